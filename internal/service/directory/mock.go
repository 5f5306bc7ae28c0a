package directory

import (
	"sync"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

// MockService — конфигурируемая заглушка DirectoryService для разработки и тестов.
// Хранит отображение поставщик → аккаунт-менеджеры в памяти.
type MockService struct {
	mu       sync.RWMutex
	managers map[string][]string

	ResolveErr   error
	ResolveCalls int
}

// NewMockService возвращает пустой справочник.
func NewMockService() *MockService {
	return &MockService{managers: make(map[string][]string)}
}

// Grant назначает идентичности аккаунт-менеджерами поставщика.
func (m *MockService) Grant(supplierID string, identities ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.managers[supplierID] = append(m.managers[supplierID], identities...)
}

// CandidatesForSupplier возвращает назначенные идентичности и считает вызовы.
func (m *MockService) CandidatesForSupplier(supplierID string) ([]string, error) {
	m.mu.Lock()
	m.ResolveCalls++
	m.mu.Unlock()

	if m.ResolveErr != nil {
		return nil, m.ResolveErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	identities := m.managers[supplierID]
	result := make([]string, len(identities))
	copy(result, identities)
	return result, nil
}

var _ domain.DirectoryService = (*MockService)(nil)
