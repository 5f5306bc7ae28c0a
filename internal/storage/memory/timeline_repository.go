package memory

import (
	"sort"
	"sync"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

// timelineRepositoryInMemory хранит события в памяти (для разработки/тестов).
type timelineRepositoryInMemory struct {
	mu     sync.RWMutex
	events map[string][]domain.TimelineEvent
}

// NewTimelineRepository создаёт in-memory реализацию TimelineRepository.
func NewTimelineRepository() domain.TimelineRepository {
	return &timelineRepositoryInMemory{events: make(map[string][]domain.TimelineEvent)}
}

// Append добавляет событие в хранилище.
func (r *timelineRepositoryInMemory) Append(event domain.TimelineEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.RequestID] = append(r.events[event.RequestID], event)

	sort.SliceStable(r.events[event.RequestID], func(i, j int) bool {
		return r.events[event.RequestID][i].Occurred.Before(r.events[event.RequestID][j].Occurred)
	})

	return nil
}

// List возвращает события заявки в хронологическом порядке.
func (r *timelineRepositoryInMemory) List(requestID string) ([]domain.TimelineEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := r.events[requestID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = (*timelineRepositoryInMemory)(nil)
