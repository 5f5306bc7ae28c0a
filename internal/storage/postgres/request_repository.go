package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bonitasoft-presales/learn-and-go-btt/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

type requestRepository struct {
	db *sql.DB
}

// NewRequestRepository создаёт PostgreSQL-реализацию RequestRepository.
func NewRequestRepository(store *Store) domain.RequestRepository {
	return &requestRepository{db: store.DB()}
}

func (r *requestRepository) Create(request domain.Request) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO requests (
			id, case_id, summary, description, creation_date, created_by,
			status, completion_date, selected_supplier_id, storage_url, version, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,$11,$12)
	`,
		request.ID, request.CaseID, request.Summary, request.Description,
		request.CreationDate, request.CreatedBy, string(request.Status),
		request.CompletionDate, request.SelectedSupplierID, request.StorageURL,
		request.Version, request.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("insert request: %w", err)
	}

	return nil
}

func (r *requestRepository) Get(id string) (domain.Request, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	request, err := scanRequest(r.db.QueryRowContext(ctx, `
		SELECT id, case_id, summary, description, creation_date, created_by,
		       status, completion_date, COALESCE(selected_supplier_id, ''), storage_url, version, updated_at
		FROM requests
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Request{}, domain.ErrRequestNotFound
		}
		return domain.Request{}, fmt.Errorf("select request: %w", err)
	}

	return request, nil
}

func (r *requestRepository) ListByCreator(createdBy string, limit int) ([]domain.Request, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	query := `
		SELECT id, case_id, summary, description, creation_date, created_by,
		       status, completion_date, COALESCE(selected_supplier_id, ''), storage_url, version, updated_at
		FROM requests
		WHERE created_by = $1
		ORDER BY creation_date DESC, id DESC
	`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = r.db.QueryContext(ctx, query+" LIMIT $2", createdBy, limit)
	} else {
		rows, err = r.db.QueryContext(ctx, query, createdBy)
	}
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	requests := make([]domain.Request, 0)
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request row: %w", err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}

	return requests, nil
}

func (r *requestRepository) Save(request domain.Request) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `
		UPDATE requests
		SET summary = $1, description = $2, status = $3, completion_date = $4,
		    selected_supplier_id = NULLIF($5, ''), storage_url = $6,
		    version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9
	`,
		request.Summary, request.Description, string(request.Status),
		request.CompletionDate, request.SelectedSupplierID, request.StorageURL,
		request.UpdatedAt, request.ID, request.Version,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Либо заявки нет, либо версия устарела.
		if _, getErr := r.Get(request.ID); getErr != nil {
			return getErr
		}
		return domain.ErrVersionConflict
	}

	return nil
}

func (r *requestRepository) NextCaseID() (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var caseID int64
	if err := r.db.QueryRowContext(ctx, `SELECT nextval('procurement_case_seq')`).Scan(&caseID); err != nil {
		return 0, fmt.Errorf("next case id: %w", err)
	}
	return caseID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (domain.Request, error) {
	var (
		request        domain.Request
		status         string
		completionDate sql.NullTime
	)
	if err := row.Scan(
		&request.ID, &request.CaseID, &request.Summary, &request.Description,
		&request.CreationDate, &request.CreatedBy, &status, &completionDate,
		&request.SelectedSupplierID, &request.StorageURL, &request.Version, &request.UpdatedAt,
	); err != nil {
		return domain.Request{}, err
	}
	request.Status = domain.RequestStatus(status)
	if completionDate.Valid {
		at := completionDate.Time
		request.CompletionDate = &at
	}
	return request, nil
}

// isUniqueViolation распознаёт нарушение уникальности (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ domain.RequestRepository = (*requestRepository)(nil)
