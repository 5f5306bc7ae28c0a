package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

type supplierRepository struct {
	db *sql.DB
}

// NewSupplierRepository создаёт PostgreSQL-реализацию SupplierRepository.
func NewSupplierRepository(store *Store) domain.SupplierRepository {
	return &supplierRepository{db: store.DB()}
}

func (r *supplierRepository) Create(supplier domain.Supplier) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, description) VALUES ($1, $2, $3)
	`, supplier.ID, supplier.Name, supplier.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert supplier: %w", err)
	}

	return nil
}

func (r *supplierRepository) Get(id string) (domain.Supplier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var supplier domain.Supplier
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description FROM suppliers WHERE id = $1
	`, id).Scan(&supplier.ID, &supplier.Name, &supplier.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Supplier{}, domain.ErrSupplierNotFound
		}
		return domain.Supplier{}, fmt.Errorf("select supplier: %w", err)
	}

	return supplier, nil
}

func (r *supplierRepository) FindByName(name string) (domain.Supplier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var supplier domain.Supplier
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description FROM suppliers WHERE name = $1
	`, name).Scan(&supplier.ID, &supplier.Name, &supplier.Description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Supplier{}, domain.ErrSupplierNotFound
		}
		return domain.Supplier{}, fmt.Errorf("select supplier by name: %w", err)
	}

	return supplier, nil
}

func (r *supplierRepository) FindByIDs(ids []string) ([]domain.Supplier, error) {
	// Порядок результата должен совпадать с порядком запрошенных идентификаторов,
	// поэтому читаем по одному.
	suppliers := make([]domain.Supplier, 0, len(ids))
	for _, id := range ids {
		supplier, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, supplier)
	}
	return suppliers, nil
}

func (r *supplierRepository) List() ([]domain.Supplier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description FROM suppliers ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	suppliers := make([]domain.Supplier, 0)
	for rows.Next() {
		var supplier domain.Supplier
		if err := rows.Scan(&supplier.ID, &supplier.Name, &supplier.Description); err != nil {
			return nil, fmt.Errorf("scan supplier row: %w", err)
		}
		suppliers = append(suppliers, supplier)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suppliers: %w", err)
	}

	return suppliers, nil
}

var _ domain.SupplierRepository = (*supplierRepository)(nil)
