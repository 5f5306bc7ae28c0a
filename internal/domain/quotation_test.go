package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

func makeQuotation() domain.Quotation {
	now := time.Now().UTC()
	return domain.Quotation{
		ID:         "quotation-1",
		RequestID:  "request-1",
		SupplierID: "supplier-1",
		Status:     domain.QuotationStatusPending,
		Version:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestQuotationValidateInvariants_Ok(t *testing.T) {
	quotation := makeQuotation()
	if errs := quotation.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestQuotationValidateInvariants_Errors(t *testing.T) {
	cases := []struct {
		name string
		mut  func(q *domain.Quotation)
	}{
		{
			name: "no request",
			mut: func(q *domain.Quotation) {
				q.RequestID = ""
			},
		},
		{
			name: "no supplier",
			mut: func(q *domain.Quotation) {
				q.SupplierID = ""
			},
		},
		{
			name: "unknown status",
			mut: func(q *domain.Quotation) {
				q.Status = "Draft"
			},
		},
		{
			name: "negative price",
			mut: func(q *domain.Quotation) {
				q.Status = domain.QuotationStatusCompleted
				q.ProposedPrice = -1
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quotation := makeQuotation()
			tc.mut(&quotation)
			if errs := quotation.ValidateInvariants(); len(errs) == 0 {
				t.Fatalf("expected validation errors")
			}
		})
	}
}

func TestQuotationComplete(t *testing.T) {
	quotation := makeQuotation()
	now := time.Now().UTC()

	if err := quotation.Complete(true, 500, "Best price available", now); err != nil {
		t.Fatalf("complete quotation: %v", err)
	}
	if quotation.Status != domain.QuotationStatusCompleted {
		t.Fatalf("expected completed status, got %s", quotation.Status)
	}
	if !quotation.HasSupplierAccepted || quotation.ProposedPrice != 500 {
		t.Fatalf("unexpected quotation fields: %+v", quotation)
	}
}

func TestQuotationComplete_Twice(t *testing.T) {
	quotation := makeQuotation()
	now := time.Now().UTC()

	if err := quotation.Complete(true, 500, "", now); err != nil {
		t.Fatalf("complete quotation: %v", err)
	}
	err := quotation.Complete(false, 100, "second answer", now)
	if !errors.Is(err, domain.ErrQuotationCompleted) {
		t.Fatalf("expected ErrQuotationCompleted, got %v", err)
	}
	// Ответ первой попытки остаётся неизменным.
	if quotation.ProposedPrice != 500 || !quotation.HasSupplierAccepted {
		t.Fatalf("completed quotation must stay immutable: %+v", quotation)
	}
}

func TestQuotationComplete_NegativePrice(t *testing.T) {
	quotation := makeQuotation()
	err := quotation.Complete(true, -5, "", time.Now().UTC())
	if !errors.Is(err, domain.ErrPriceNegative) {
		t.Fatalf("expected ErrPriceNegative, got %v", err)
	}
	if quotation.Status != domain.QuotationStatusPending {
		t.Fatalf("failed completion must not advance status")
	}
}
