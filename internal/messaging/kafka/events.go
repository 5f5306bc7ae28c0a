package kafka

import "time"

// EventType определяет тип события процесса закупки.
type EventType string

const (
	// События экземпляра процесса
	EventTypeProcessStarted       EventType = "process.started"
	EventTypeProcessReviewPending EventType = "process.review_pending"
	EventTypeProcessCompleted     EventType = "process.completed"
	EventTypeProcessAborted       EventType = "process.aborted"

	// События котировок
	EventTypeQuotationCompleted EventType = "quotation.completed"
)

// Topics для Kafka
const (
	TopicProcessEvents   = "procurement.process.events"
	TopicDeadLetterQueue = "procurement.dlq"
)

// ProcessEvent представляет событие жизненного цикла заявки.
type ProcessEvent struct {
	EventType EventType      `json:"event_type"`
	RequestID string         `json:"request_id"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewProcessEvent создаёт новое событие процесса.
func NewProcessEvent(eventType EventType, requestID string, metadata map[string]any) *ProcessEvent {
	return &ProcessEvent{
		EventType: eventType,
		RequestID: requestID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
