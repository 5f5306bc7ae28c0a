package candidates

import (
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

// Resolver отображает котировку на множество идентичностей, уполномоченных
// исполнить её задачу. Чистая функция от поставщика котировки: фактическое
// отображение хранит внешний справочник идентичностей.
type Resolver struct {
	directory domain.DirectoryService
	logger    *log.Entry
}

// NewResolver создаёт resolver поверх справочника идентичностей.
func NewResolver(directory domain.DirectoryService, logger *log.Entry) *Resolver {
	if logger == nil {
		logger = log.WithField("component", "candidate-resolver")
	}
	return &Resolver{directory: directory, logger: logger}
}

// ResolveForQuotation возвращает отсортированное множество кандидатов задачи
// "Complete quotation". Пустое множество — условие ErrTaskUnassignable:
// задача всё равно создаётся, эскалацию выполняет внешняя политика назначения.
func (r *Resolver) ResolveForQuotation(quotation domain.Quotation) ([]string, error) {
	identities, err := r.directory.CandidatesForSupplier(quotation.SupplierID)
	if err != nil {
		return nil, fmt.Errorf("resolve candidates for supplier %s: %w", quotation.SupplierID, err)
	}

	// Дедупликация и стабильный порядок для детерминированных проверок.
	seen := make(map[string]struct{}, len(identities))
	result := make([]string, 0, len(identities))
	for _, identity := range identities {
		if identity == "" {
			continue
		}
		if _, dup := seen[identity]; dup {
			continue
		}
		seen[identity] = struct{}{}
		result = append(result, identity)
	}
	sort.Strings(result)

	if len(result) == 0 {
		r.logger.WithFields(log.Fields{
			"quotation_id": quotation.ID,
			"supplier_id":  quotation.SupplierID,
		}).Warn("no candidates resolved for quotation task")
		return nil, domain.ErrTaskUnassignable
	}

	return result, nil
}
