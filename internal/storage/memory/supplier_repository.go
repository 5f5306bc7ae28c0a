package memory

import (
	"sort"
	"sync"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

// supplierRepositoryInMemory — in-memory справочник поставщиков.
type supplierRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.Supplier
}

// NewSupplierRepository возвращает in-memory справочник поставщиков.
func NewSupplierRepository() domain.SupplierRepository {
	return &supplierRepositoryInMemory{
		items: make(map[string]domain.Supplier),
	}
}

// Create добавляет поставщика в справочник.
func (r *supplierRepositoryInMemory) Create(supplier domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[supplier.ID]; exists {
		return domain.ErrVersionConflict
	}
	r.items[supplier.ID] = supplier
	return nil
}

// Get возвращает поставщика или ErrSupplierNotFound.
func (r *supplierRepositoryInMemory) Get(id string) (domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	supplier, ok := r.items[id]
	if !ok {
		return domain.Supplier{}, domain.ErrSupplierNotFound
	}
	return supplier, nil
}

// FindByName возвращает поставщика по точному имени.
func (r *supplierRepositoryInMemory) FindByName(name string) (domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, supplier := range r.items {
		if supplier.Name == name {
			return supplier, nil
		}
	}
	return domain.Supplier{}, domain.ErrSupplierNotFound
}

// FindByIDs возвращает поставщиков в порядке переданных идентификаторов.
func (r *supplierRepositoryInMemory) FindByIDs(ids []string) ([]domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Supplier, 0, len(ids))
	for _, id := range ids {
		supplier, ok := r.items[id]
		if !ok {
			return nil, domain.ErrSupplierNotFound
		}
		result = append(result, supplier)
	}
	return result, nil
}

// List возвращает всех поставщиков, отсортированных по имени.
func (r *supplierRepositoryInMemory) List() ([]domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Supplier, 0, len(r.items))
	for _, supplier := range r.items {
		result = append(result, supplier)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

var _ domain.SupplierRepository = (*supplierRepositoryInMemory)(nil)
