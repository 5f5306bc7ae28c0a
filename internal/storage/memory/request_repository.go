package memory

import (
	"sort"
	"sync"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

// requestRepositoryInMemory — простая in-memory реализация RequestRepository.
type requestRepositoryInMemory struct {
	mu         sync.RWMutex
	items      map[string]domain.Request
	nextCaseID int64
}

// NewRequestRepository возвращает in-memory репозиторий для локальной разработки и тестов.
func NewRequestRepository() domain.RequestRepository {
	return &requestRepositoryInMemory{
		items: make(map[string]domain.Request),
	}
}

// Create сохраняет новую заявку, если ID ещё не занят.
func (r *requestRepositoryInMemory) Create(request domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[request.ID]; exists {
		return domain.ErrVersionConflict
	}
	// Сохраняем копию, чтобы избежать непредсказуемых мутаций извне.
	r.items[request.ID] = cloneRequest(request)
	return nil
}

// Get возвращает заявку или ErrRequestNotFound, если её нет.
func (r *requestRepositoryInMemory) Get(id string) (domain.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	request, ok := r.items[id]
	if !ok {
		return domain.Request{}, domain.ErrRequestNotFound
	}
	return cloneRequest(request), nil
}

// ListByCreator возвращает заявки инициатора, ограничивая выборку limit (если >0).
func (r *requestRepositoryInMemory) ListByCreator(createdBy string, limit int) ([]domain.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Request, 0, len(r.items))
	for _, request := range r.items {
		if request.CreatedBy != createdBy {
			continue
		}
		result = append(result, cloneRequest(request))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreationDate.Equal(result[j].CreationDate) {
			return result[i].CreationDate.After(result[j].CreationDate)
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

// Save перезаписывает заявку, проверяя версию (optimistic locking).
func (r *requestRepositoryInMemory) Save(request domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[request.ID]
	if !ok {
		return domain.ErrRequestNotFound
	}
	if current.Version != request.Version {
		return domain.ErrVersionConflict
	}
	// Инкрементируем версию перед сохранением.
	request.Version++
	r.items[request.ID] = cloneRequest(request)
	return nil
}

// NextCaseID выдаёт монотонно растущий номер дела.
func (r *requestRepositoryInMemory) NextCaseID() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextCaseID++
	return r.nextCaseID, nil
}

func cloneRequest(request domain.Request) domain.Request {
	copied := request
	if request.CompletionDate != nil {
		at := *request.CompletionDate
		copied.CompletionDate = &at
	}
	return copied
}

var _ domain.RequestRepository = (*requestRepositoryInMemory)(nil)
