package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

type stubOutboxRepo struct {
	mu        sync.Mutex
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
	statsErr  error
}

func (s *stubOutboxRepo) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, msg)
	return msg, nil
}

func (s *stubOutboxRepo) PullPending(limit int) ([]domain.OutboxMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]domain.OutboxMessage, 0, limit)
	marked := make(map[string]struct{}, len(s.sentIDs)+len(s.failedIDs))
	for _, id := range s.sentIDs {
		marked[id] = struct{}{}
	}
	for _, id := range s.failedIDs {
		marked[id] = struct{}{}
	}
	for _, msg := range s.pending {
		if _, done := marked[msg.ID]; done {
			continue
		}
		result = append(result, msg)
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (s *stubOutboxRepo) Stats() (domain.OutboxStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statsErr != nil {
		return domain.OutboxStats{}, s.statsErr
	}
	return domain.OutboxStats{PendingCount: len(s.pending), OldestPendingAt: time.Now().UTC()}, nil
}

func (s *stubOutboxRepo) MarkSent(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentIDs = append(s.sentIDs, id)
	return nil
}

func (s *stubOutboxRepo) MarkFailed(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedIDs = append(s.failedIDs, id)
	return nil
}

type stubPublisher struct {
	mu       sync.Mutex
	err      error
	failFor  int
	messages []domain.OutboxMessage
}

func (s *stubPublisher) Publish(msg domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if s.failFor > 0 {
		s.failFor--
		return errors.New("transient publish failure")
	}
	return s.err
}

func (s *stubPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func quotationMessage(id string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "request",
		AggregateID:   "req-1",
		EventType:     "QuotationCompleted",
		Payload:       []byte(`{"supplier_id":"supplier-1"}`),
	}
}

func TestWorker_ProcessOnce_MarksSent(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{quotationMessage("msg-1")}}
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, Options{RetryBaseDelay: -1, MaxAttempts: 3})
	processed := worker.ProcessOnce(context.Background())

	if processed != 1 {
		t.Fatalf("expected 1 processed message, got %d", processed)
	}
	if len(repo.sentIDs) != 1 || repo.sentIDs[0] != "msg-1" {
		t.Fatalf("unexpected sent marks: %v", repo.sentIDs)
	}
	if len(repo.failedIDs) != 0 {
		t.Fatalf("unexpected failed marks: %v", repo.failedIDs)
	}
	if publisher.calls() != 1 {
		t.Fatalf("expected single publish, got %d", publisher.calls())
	}
}

func TestWorker_ProcessOnce_FailedGoesToDLQ(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{quotationMessage("msg-2")}}
	publisher := &stubPublisher{err: errors.New("broker unavailable")}
	dlq := &stubPublisher{}

	worker := NewWorker(repo, publisher, Options{DLQPublisher: dlq, RetryBaseDelay: -1, MaxAttempts: 3})
	worker.ProcessOnce(context.Background())

	if publisher.calls() != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", publisher.calls())
	}
	if len(repo.failedIDs) != 1 || repo.failedIDs[0] != "msg-2" {
		t.Fatalf("unexpected failed marks: %v", repo.failedIDs)
	}
	if dlq.calls() != 1 {
		t.Fatalf("expected single DLQ publish, got %d", dlq.calls())
	}

	// DLQ-конверт содержит исходное событие и текст ошибки.
	var payload map[string]any
	if err := json.Unmarshal(dlq.messages[0].Payload, &payload); err != nil {
		t.Fatalf("decode dlq payload: %v", err)
	}
	if payload["outbox_id"] != "msg-2" {
		t.Fatalf("dlq payload must reference the original message: %v", payload)
	}
	if payload["publish_error"] == "" {
		t.Fatal("dlq payload must carry the publish error")
	}
}

func TestWorker_ProcessOnce_SuccessAfterRetry(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{quotationMessage("msg-3")}}
	publisher := &stubPublisher{failFor: 2}

	worker := NewWorker(repo, publisher, Options{RetryBaseDelay: -1, MaxAttempts: 3})
	worker.ProcessOnce(context.Background())

	if publisher.calls() != 3 {
		t.Fatalf("expected 3 publish attempts, got %d", publisher.calls())
	}
	if len(repo.sentIDs) != 1 {
		t.Fatalf("expected sent mark after retry, got %v", repo.sentIDs)
	}
	if len(repo.failedIDs) != 0 {
		t.Fatalf("unexpected failed marks: %v", repo.failedIDs)
	}
}

func TestWorker_ProcessOnce_EmptyBacklog(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{}
	publisher := &stubPublisher{}

	worker := NewWorker(repo, publisher, Options{})
	if processed := worker.ProcessOnce(context.Background()); processed != 0 {
		t.Fatalf("expected no processed messages, got %d", processed)
	}
	if publisher.calls() != 0 {
		t.Fatalf("unexpected publish calls: %d", publisher.calls())
	}
}

func TestWorker_ProcessOnce_CanceledContext(t *testing.T) {
	t.Parallel()

	repo := &stubOutboxRepo{pending: []domain.OutboxMessage{quotationMessage("msg-4")}}
	publisher := &stubPublisher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker := NewWorker(repo, publisher, Options{})
	if processed := worker.ProcessOnce(ctx); processed != 0 {
		t.Fatalf("expected no work after cancellation, got %d", processed)
	}
	if publisher.calls() != 0 {
		t.Fatalf("unexpected publish calls: %d", publisher.calls())
	}
}

var _ domain.OutboxRepository = (*stubOutboxRepo)(nil)
var _ domain.OutboxPublisher = (*stubPublisher)(nil)
