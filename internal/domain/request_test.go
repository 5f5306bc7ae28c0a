package domain_test

import (
	"testing"
	"time"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

// helper для создания заявки в сборе котировок.
func makeRequest() domain.Request {
	now := time.Now().UTC()
	return domain.Request{
		ID:           "request-1",
		CaseID:       1,
		Summary:      "Some request summary",
		Description:  "Some request description",
		CreationDate: now,
		CreatedBy:    "helen.kelly",
		Status:       domain.RequestStatusQuotationsPending,
		Version:      0,
		UpdatedAt:    now,
	}
}

func TestRequestValidateInvariants_Ok(t *testing.T) {
	request := makeRequest()
	if errs := request.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestRequestValidateInvariants_CompletedOk(t *testing.T) {
	request := makeRequest()
	now := time.Now().UTC()
	request.Status = domain.RequestStatusCompleted
	request.CompletionDate = &now
	request.SelectedSupplierID = "supplier-1"

	if errs := request.ValidateInvariants(); len(errs) != 0 {
		t.Fatalf("expected no validation errors, got %v", errs)
	}
}

func TestRequestValidateInvariants_Errors(t *testing.T) {
	now := time.Now().UTC()

	cases := []struct {
		name string
		mut  func(r *domain.Request)
		want error
	}{
		{
			name: "no summary",
			mut: func(r *domain.Request) {
				r.Summary = ""
			},
			want: domain.ErrSummaryRequired,
		},
		{
			name: "no creator",
			mut: func(r *domain.Request) {
				r.CreatedBy = ""
			},
			want: domain.ErrCreatedByRequired,
		},
		{
			name: "unknown status",
			mut: func(r *domain.Request) {
				r.Status = "In limbo"
			},
			want: domain.ErrRequestStatusUnknown,
		},
		{
			name: "completed without completion date",
			mut: func(r *domain.Request) {
				r.Status = domain.RequestStatusCompleted
				r.SelectedSupplierID = "supplier-1"
			},
			want: domain.ErrCompletionDateMissing,
		},
		{
			name: "active with completion date",
			mut: func(r *domain.Request) {
				r.CompletionDate = &now
			},
			want: domain.ErrCompletionDateUnexpected,
		},
		{
			name: "completed without supplier",
			mut: func(r *domain.Request) {
				r.Status = domain.RequestStatusCompleted
				r.CompletionDate = &now
			},
			want: domain.ErrSelectedSupplierMissing,
		},
		{
			name: "aborted with supplier",
			mut: func(r *domain.Request) {
				r.Status = domain.RequestStatusAborted
				r.CompletionDate = &now
				r.SelectedSupplierID = "supplier-1"
			},
			want: domain.ErrSelectedSupplierUnexpected,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			request := makeRequest()
			tc.mut(&request)

			errs := request.ValidateInvariants()
			if len(errs) == 0 {
				t.Fatalf("expected validation errors")
			}
			found := false
			for _, err := range errs {
				if err == tc.want {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected %v in %v", tc.want, errs)
			}
		})
	}
}

func TestRequestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from domain.RequestStatus
		to   domain.RequestStatus
		ok   bool
	}{
		{domain.RequestStatusQuotationsPending, domain.RequestStatusReviewPending, true},
		{domain.RequestStatusQuotationsPending, domain.RequestStatusCompleted, false},
		{domain.RequestStatusQuotationsPending, domain.RequestStatusAborted, false},
		{domain.RequestStatusReviewPending, domain.RequestStatusCompleted, true},
		{domain.RequestStatusReviewPending, domain.RequestStatusAborted, true},
		{domain.RequestStatusReviewPending, domain.RequestStatusQuotationsPending, false},
		{domain.RequestStatusCompleted, domain.RequestStatusAborted, false},
		{domain.RequestStatusAborted, domain.RequestStatusReviewPending, false},
	}

	for _, tc := range cases {
		request := makeRequest()
		request.Status = tc.from
		if got := request.CanTransitionTo(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}
