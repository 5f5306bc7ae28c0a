package memory

import (
	"sort"
	"sync"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

// quotationRepositoryInMemory — in-memory реализация QuotationRepository.
type quotationRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Quotation
}

// NewQuotationRepository возвращает in-memory репозиторий котировок.
func NewQuotationRepository() domain.QuotationRepository {
	return &quotationRepositoryInMemory{
		items: make(map[string]domain.Quotation),
	}
}

// CreateBatch атомарно сохраняет набор котировок заявки.
// Нарушение уникальности (ID или пары заявка+поставщик) отменяет весь набор.
func (r *quotationRepositoryInMemory) CreateBatch(quotations []domain.Quotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, quotation := range quotations {
		if _, exists := r.items[quotation.ID]; exists {
			return domain.ErrVersionConflict
		}
		for _, existing := range r.items {
			if existing.RequestID == quotation.RequestID && existing.SupplierID == quotation.SupplierID {
				return domain.ErrVersionConflict
			}
		}
	}
	for _, quotation := range quotations {
		r.items[quotation.ID] = quotation
	}
	return nil
}

// Get возвращает котировку или ErrQuotationNotFound, если её нет.
func (r *quotationRepositoryInMemory) Get(id string) (domain.Quotation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	quotation, ok := r.items[id]
	if !ok {
		return domain.Quotation{}, domain.ErrQuotationNotFound
	}
	return quotation, nil
}

// ListByRequest возвращает котировки заявки в порядке создания.
func (r *quotationRepositoryInMemory) ListByRequest(requestID string) ([]domain.Quotation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Quotation, 0)
	for _, quotation := range r.items {
		if quotation.RequestID != requestID {
			continue
		}
		result = append(result, quotation)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Save перезаписывает котировку, проверяя версию (optimistic locking).
func (r *quotationRepositoryInMemory) Save(quotation domain.Quotation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.items[quotation.ID]
	if !ok {
		return domain.ErrQuotationNotFound
	}
	if current.Version != quotation.Version {
		return domain.ErrVersionConflict
	}
	quotation.Version++
	r.items[quotation.ID] = quotation
	return nil
}

var _ domain.QuotationRepository = (*quotationRepositoryInMemory)(nil)
