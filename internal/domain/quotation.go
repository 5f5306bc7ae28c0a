package domain

import "time"

// QuotationStatus описывает состояние котировки поставщика.
type QuotationStatus string

const (
	// QuotationStatusPending — котировка создана, поставщик ещё не ответил.
	QuotationStatusPending QuotationStatus = "Pending"
	// QuotationStatusCompleted — поставщик дал ответ; поля ответа больше не меняются.
	QuotationStatusCompleted QuotationStatus = "Completed"
)

// Quotation — котировка одного поставщика в рамках одной заявки.
// На пару (заявка, поставщик) существует ровно одна котировка.
type Quotation struct {
	ID         string
	RequestID  string
	SupplierID string
	Status     QuotationStatus
	// HasSupplierAccepted имеет смысл только после перехода в Completed.
	HasSupplierAccepted bool
	// ProposedPrice — предложенная цена без привязки к валюте.
	ProposedPrice float64
	Comments      string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateInvariants проверяет базовые инварианты котировки.
func (q *Quotation) ValidateInvariants() []error {
	var errs []error

	if q.RequestID == "" {
		errs = append(errs, ErrRequestIDRequired)
	}
	if q.SupplierID == "" {
		errs = append(errs, ErrSupplierIDRequired)
	}

	switch q.Status {
	case QuotationStatusPending, QuotationStatusCompleted:
	default:
		errs = append(errs, ErrQuotationStatusUnknown)
	}

	if q.Status == QuotationStatusCompleted && q.ProposedPrice < 0 {
		errs = append(errs, ErrPriceNegative)
	}

	return errs
}

// Complete переводит котировку в Completed и фиксирует ответ поставщика.
// Повторный вызов для завершённой котировки возвращает ErrQuotationCompleted.
func (q *Quotation) Complete(hasSupplierAccepted bool, price float64, comments string, now time.Time) error {
	if q.Status == QuotationStatusCompleted {
		return ErrQuotationCompleted
	}
	if price < 0 {
		return ErrPriceNegative
	}

	q.Status = QuotationStatusCompleted
	q.HasSupplierAccepted = hasSupplierAccepted
	q.ProposedPrice = price
	q.Comments = comments
	q.UpdatedAt = now
	return nil
}
