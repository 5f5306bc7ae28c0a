package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

type quotationRepository struct {
	db *sql.DB
}

// NewQuotationRepository создаёт PostgreSQL-реализацию QuotationRepository.
func NewQuotationRepository(store *Store) domain.QuotationRepository {
	return &quotationRepository{db: store.DB()}
}

func (r *quotationRepository) CreateBatch(quotations []domain.Quotation) error {
	if len(quotations) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, quotation := range quotations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quotations (
				id, request_id, supplier_id, status, has_supplier_accepted,
				proposed_price, comments, version, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			quotation.ID, quotation.RequestID, quotation.SupplierID,
			string(quotation.Status), quotation.HasSupplierAccepted,
			quotation.ProposedPrice, quotation.Comments, quotation.Version,
			quotation.CreatedAt, quotation.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.ErrVersionConflict
			}
			return fmt.Errorf("insert quotation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit quotations: %w", err)
	}

	return nil
}

func (r *quotationRepository) Get(id string) (domain.Quotation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	quotation, err := scanQuotation(r.db.QueryRowContext(ctx, `
		SELECT id, request_id, supplier_id, status, has_supplier_accepted,
		       proposed_price, comments, version, created_at, updated_at
		FROM quotations
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Quotation{}, domain.ErrQuotationNotFound
		}
		return domain.Quotation{}, fmt.Errorf("select quotation: %w", err)
	}

	return quotation, nil
}

func (r *quotationRepository) ListByRequest(requestID string) ([]domain.Quotation, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, request_id, supplier_id, status, has_supplier_accepted,
		       proposed_price, comments, version, created_at, updated_at
		FROM quotations
		WHERE request_id = $1
		ORDER BY created_at, id
	`, requestID)
	if err != nil {
		return nil, fmt.Errorf("list quotations: %w", err)
	}
	defer rows.Close()

	quotations := make([]domain.Quotation, 0)
	for rows.Next() {
		quotation, err := scanQuotation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan quotation row: %w", err)
		}
		quotations = append(quotations, quotation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotations: %w", err)
	}

	return quotations, nil
}

func (r *quotationRepository) Save(quotation domain.Quotation) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE quotations
		SET status = $1, has_supplier_accepted = $2, proposed_price = $3,
		    comments = $4, version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7
	`,
		string(quotation.Status), quotation.HasSupplierAccepted, quotation.ProposedPrice,
		quotation.Comments, quotation.UpdatedAt, quotation.ID, quotation.Version,
	)
	if err != nil {
		return fmt.Errorf("update quotation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := r.Get(quotation.ID); getErr != nil {
			return getErr
		}
		return domain.ErrVersionConflict
	}

	return nil
}

func scanQuotation(row rowScanner) (domain.Quotation, error) {
	var (
		quotation domain.Quotation
		status    string
	)
	if err := row.Scan(
		&quotation.ID, &quotation.RequestID, &quotation.SupplierID, &status,
		&quotation.HasSupplierAccepted, &quotation.ProposedPrice, &quotation.Comments,
		&quotation.Version, &quotation.CreatedAt, &quotation.UpdatedAt,
	); err != nil {
		return domain.Quotation{}, err
	}
	quotation.Status = domain.QuotationStatus(status)
	return quotation, nil
}

var _ domain.QuotationRepository = (*quotationRepository)(nil)
