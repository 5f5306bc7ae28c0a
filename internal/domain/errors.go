package domain

import "errors"

var (
	// Ошибка отсутствующего краткого описания заявки.
	ErrSummaryRequired = errors.New("summary is required")
	// Ошибка отсутствующего инициатора заявки.
	ErrCreatedByRequired = errors.New("created_by is required")
	// Ошибка неизвестного статуса заявки.
	ErrRequestStatusUnknown = errors.New("unknown request status")
	// Ошибка отсутствия даты завершения у конечного статуса.
	ErrCompletionDateMissing = errors.New("terminal request must have completion date")
	// Ошибка заполненной даты завершения у незавершённой заявки.
	ErrCompletionDateUnexpected = errors.New("active request must not have completion date")
	// Ошибка отсутствия выбранного поставщика у завершённой заявки.
	ErrSelectedSupplierMissing = errors.New("completed request must reference selected supplier")
	// Ошибка заполненного поставщика у незавершённой или прерванной заявки.
	ErrSelectedSupplierUnexpected = errors.New("selected supplier is set outside completed status")
	// Ошибка отсутствующего идентификатора заявки в котировке.
	ErrRequestIDRequired = errors.New("request_id is required")
	// Ошибка отсутствующего идентификатора поставщика в котировке.
	ErrSupplierIDRequired = errors.New("supplier_id is required")
	// Ошибка неизвестного статуса котировки.
	ErrQuotationStatusUnknown = errors.New("unknown quotation status")
	// Ошибка отрицательной предложенной цены.
	ErrPriceNegative = errors.New("proposed price must be non-negative")
	// ErrQuotationCompleted возвращается при попытке повторно завершить котировку.
	ErrQuotationCompleted = errors.New("quotation already completed")

	// ErrRequestNotFound возвращается, если заявка не найдена в репозитории.
	ErrRequestNotFound = errors.New("request not found")
	// ErrQuotationNotFound возвращается, если котировка не найдена.
	ErrQuotationNotFound = errors.New("quotation not found")
	// ErrSupplierNotFound возвращается, если поставщик отсутствует в справочнике.
	ErrSupplierNotFound = errors.New("supplier not found")
	// ErrVersionConflict сигнализирует о конфликте версий при сохранении.
	ErrVersionConflict = errors.New("record version conflict")

	// ErrEmptyFanOut — пустой набор источников для fan-out (политика явного отказа).
	ErrEmptyFanOut = errors.New("fan-out requires at least one seed")
	// ErrUnknownFanOutInstance — отчёт о завершении с индексом вне диапазона fan-out.
	ErrUnknownFanOutInstance = errors.New("unknown fan-out instance index")
	// ErrTaskUnassignable — для задачи не нашлось ни одного кандидата.
	ErrTaskUnassignable = errors.New("no candidates resolved for task")
	// ErrInvalidStateTransition — переход запрошен из несовместимого состояния.
	ErrInvalidStateTransition = errors.New("invalid process state transition")
	// ErrTaskAlreadyCompleted — повторное завершение той же задачи.
	ErrTaskAlreadyCompleted = errors.New("task already completed")
	// ErrTaskAlreadyEnqueued — задача с той же тройкой (процесс, активность,
	// индекс) уже стоит в очереди.
	ErrTaskAlreadyEnqueued = errors.New("task already enqueued")
	// ErrTaskNotFound — задача с таким идентификатором не зарегистрирована.
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidSupplierSelection — ревью выбрало поставщика, не приглашённого в заявку.
	ErrInvalidSupplierSelection = errors.New("selected supplier was not invited to quote")

	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsVersionConflict проверяет, является ли ошибка конфликтом версий.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

// IsInvalidTransition проверяет, является ли ошибка нарушением графа переходов.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, ErrInvalidStateTransition)
}
