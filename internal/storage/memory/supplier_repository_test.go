package memory

import (
	"errors"
	"testing"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

func seedSuppliers(t *testing.T, repo domain.SupplierRepository) {
	t.Helper()
	for _, supplier := range []domain.Supplier{
		{ID: "supplier-1", Name: "Acme Inc."},
		{ID: "supplier-2", Name: "Duff Co."},
		{ID: "supplier-3", Name: "Donut Co."},
	} {
		if err := repo.Create(supplier); err != nil {
			t.Fatalf("seed supplier %s: %v", supplier.ID, err)
		}
	}
}

func TestSupplierRepository_CreateAndLookup(t *testing.T) {
	repo := NewSupplierRepository()
	seedSuppliers(t, repo)

	if err := repo.Create(domain.Supplier{ID: "supplier-1", Name: "Duplicate"}); !errors.Is(err, domain.ErrVersionConflict) {
		t.Fatalf("expected conflict on duplicate id, got %v", err)
	}

	supplier, err := repo.Get("supplier-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if supplier.Name != "Duff Co." {
		t.Fatalf("unexpected supplier: %+v", supplier)
	}

	byName, err := repo.FindByName("Donut Co.")
	if err != nil {
		t.Fatalf("find by name: %v", err)
	}
	if byName.ID != "supplier-3" {
		t.Fatalf("unexpected supplier by name: %+v", byName)
	}

	if _, err := repo.FindByName("Unknown"); !errors.Is(err, domain.ErrSupplierNotFound) {
		t.Fatalf("expected ErrSupplierNotFound, got %v", err)
	}
}

func TestSupplierRepository_FindByIDsPreservesOrder(t *testing.T) {
	repo := NewSupplierRepository()
	seedSuppliers(t, repo)

	suppliers, err := repo.FindByIDs([]string{"supplier-3", "supplier-1"})
	if err != nil {
		t.Fatalf("find by ids: %v", err)
	}
	if len(suppliers) != 2 || suppliers[0].ID != "supplier-3" || suppliers[1].ID != "supplier-1" {
		t.Fatalf("order must follow the requested ids: %+v", suppliers)
	}

	// Любой отсутствующий идентификатор отклоняет весь запрос.
	if _, err := repo.FindByIDs([]string{"supplier-1", "missing"}); !errors.Is(err, domain.ErrSupplierNotFound) {
		t.Fatalf("expected ErrSupplierNotFound, got %v", err)
	}
}

func TestSupplierRepository_ListSortedByName(t *testing.T) {
	repo := NewSupplierRepository()
	seedSuppliers(t, repo)

	suppliers, err := repo.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(suppliers) != 3 {
		t.Fatalf("expected 3 suppliers, got %d", len(suppliers))
	}
	if suppliers[0].Name != "Acme Inc." || suppliers[1].Name != "Donut Co." || suppliers[2].Name != "Duff Co." {
		t.Fatalf("unexpected order: %+v", suppliers)
	}
}
