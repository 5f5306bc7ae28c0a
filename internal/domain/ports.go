package domain

import "time"

// DirectoryService описывает взаимодействие со справочником идентичностей.
// Ядро использует его только для назначения кандидатов на задачи.
type DirectoryService interface {
	// CandidatesForSupplier возвращает идентичности, уполномоченные отвечать
	// от имени поставщика (например, аккаунт-менеджеров).
	CandidatesForSupplier(supplierID string) ([]string, error)
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// TimelineRepository хранит события жизненного цикла заявки.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(requestID string) ([]TimelineEvent, error)
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// TimelineEvent описывает событие в жизненном цикле заявки.
type TimelineEvent struct {
	RequestID string
	Type      string
	Reason    string
	Occurred  time.Time
}
