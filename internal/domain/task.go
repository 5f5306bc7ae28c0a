package domain

import "time"

// Имена человеческих задач процесса закупки.
const (
	ActivityCompleteQuotation = "Complete quotation"
	ActivityReviewQuotations  = "Review quotations & select supplier"
)

// TaskStatus описывает состояние человеческой задачи.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// HumanTask — единица работы для внешнего исполнителя.
// Задача привязана к одному экземпляру процесса, одной активности и одной
// доменной проекции (котировке либо решению по заявке).
type HumanTask struct {
	ID           string
	ProcessID    string
	ActivityName string
	// SeedIndex — позиция задачи внутри fan-out (0 для одиночных задач).
	SeedIndex int
	// QuotationID заполняется для задач "Complete quotation"; у задачи ревью пусто.
	QuotationID string
	// Candidates — идентификаторы, которым разрешено исполнить задачу.
	Candidates  []string
	Status      TaskStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
	// CompletedBy фиксирует исполнителя после завершения.
	CompletedBy string
}

// QuotationTaskInput — контракт ввода задачи "Complete quotation".
type QuotationTaskInput struct {
	HasSupplierAccepted bool
	Price               float64
	Comments            string
}

// ReviewTaskInput — контракт ввода задачи ревью. Пустой SelectedSupplierID
// означает отказ от выбора поставщика.
type ReviewTaskInput struct {
	SelectedSupplierID string
}
