package domain

import "time"

// RequestStatus описывает жизненный цикл заявки на закупку.
type RequestStatus string

const (
	// RequestStatusQuotationsPending — заявка создана, котировки поставщиков ещё собираются.
	RequestStatusQuotationsPending RequestStatus = "Pending quotations"
	// RequestStatusReviewPending — все котировки собраны, заявка ждёт решения инициатора.
	RequestStatusReviewPending RequestStatus = "Pending for review"
	// RequestStatusCompleted — поставщик выбран, заявка завершена.
	RequestStatusCompleted RequestStatus = "Completed"
	// RequestStatusAborted — инициатор отказался от выбора, заявка прервана.
	RequestStatusAborted RequestStatus = "Aborted"
)

// IsTerminal сообщает, является ли статус конечным.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusAborted
}

// Request — корневой агрегат заявки на закупку.
type Request struct {
	ID                 string
	CaseID             int64
	Summary            string
	Description        string
	CreationDate       time.Time
	CreatedBy          string
	Status             RequestStatus
	CompletionDate     *time.Time
	SelectedSupplierID string
	// StorageURL — непрозрачная ссылка на внешнее хранилище документов, передаётся как есть.
	StorageURL string
	Version    int64
	UpdatedAt  time.Time
}

// ValidateInvariants проверяет базовые инварианты заявки и возвращает список замечаний.
func (r *Request) ValidateInvariants() []error {
	var errs []error

	if r.Summary == "" {
		errs = append(errs, ErrSummaryRequired)
	}
	if r.CreatedBy == "" {
		errs = append(errs, ErrCreatedByRequired)
	}

	switch r.Status {
	case RequestStatusQuotationsPending, RequestStatusReviewPending,
		RequestStatusCompleted, RequestStatusAborted:
	default:
		errs = append(errs, ErrRequestStatusUnknown)
	}

	// Дата завершения существует только у конечных статусов.
	if r.Status.IsTerminal() && r.CompletionDate == nil {
		errs = append(errs, ErrCompletionDateMissing)
	}
	if !r.Status.IsTerminal() && r.CompletionDate != nil {
		errs = append(errs, ErrCompletionDateUnexpected)
	}

	// Выбранный поставщик заполнен тогда и только тогда, когда заявка завершена выбором.
	if r.Status == RequestStatusCompleted && r.SelectedSupplierID == "" {
		errs = append(errs, ErrSelectedSupplierMissing)
	}
	if r.Status != RequestStatusCompleted && r.SelectedSupplierID != "" {
		errs = append(errs, ErrSelectedSupplierUnexpected)
	}

	return errs
}

// CanTransitionTo проверяет допустимость перехода статуса по графу процесса.
func (r *Request) CanTransitionTo(next RequestStatus) bool {
	switch r.Status {
	case RequestStatusQuotationsPending:
		return next == RequestStatusReviewPending
	case RequestStatusReviewPending:
		return next == RequestStatusCompleted || next == RequestStatusAborted
	default:
		// Конечные статусы переходов не имеют.
		return false
	}
}
