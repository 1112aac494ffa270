package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"printdrive/internal/domain"
)

var ErrReplacementNotFound = errors.New("replacement request not found")

type ReplacementRepository struct {
	db *sqlx.DB
}

func NewReplacementRepository(db *sqlx.DB) *ReplacementRepository {
	return &ReplacementRepository{db: db}
}

func (r *ReplacementRepository) Create(ctx context.Context, request *domain.FileReplacementRequest) error {
	query := `
        INSERT INTO file_replacement_requests (id, original_file_id, reason, status, requested_by)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		request.ID,
		request.OriginalFileID,
		request.Reason,
		request.Status,
		request.RequestedBy,
	).Scan(&request.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create replacement request: %w", err)
	}

	return nil
}

func (r *ReplacementRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.FileReplacementRequest, error) {
	var request domain.FileReplacementRequest
	query := `SELECT * FROM file_replacement_requests WHERE id = $1`

	err := r.db.GetContext(ctx, &request, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReplacementNotFound
		}
		return nil, err
	}

	return &request, nil
}

func (r *ReplacementRepository) GetByFileID(ctx context.Context, fileID string) ([]domain.FileReplacementRequest, error) {
	var requests []domain.FileReplacementRequest
	query := `SELECT * FROM file_replacement_requests WHERE original_file_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &requests, query, fileID)
	if err != nil {
		return nil, err
	}

	return requests, nil
}

// GetPendingByFileID возвращает ожидающую заявку по файлу, если она есть
func (r *ReplacementRepository) GetPendingByFileID(ctx context.Context, fileID string) (*domain.FileReplacementRequest, error) {
	var request domain.FileReplacementRequest
	query := `
        SELECT * FROM file_replacement_requests
        WHERE original_file_id = $1 AND status = $2
        ORDER BY created_at DESC LIMIT 1`

	err := r.db.GetContext(ctx, &request, query, fileID, domain.ReplacementPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReplacementNotFound
		}
		return nil, err
	}

	return &request, nil
}

// Approve заполняет поля решения ровно один раз: только PENDING-заявка
// может быть одобрена
func (r *ReplacementRepository) Approve(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, newFileID, approvedBy string) error {
	query := `
        UPDATE file_replacement_requests
        SET status = $1,
            new_file_id = $2,
            approved_by = $3,
            processed_at = CURRENT_TIMESTAMP
        WHERE id = $4 AND status = $5`

	result, err := tx.ExecContext(ctx, query, domain.ReplacementApproved, newFileID, approvedBy, id, domain.ReplacementPending)
	if err != nil {
		return fmt.Errorf("error approving replacement request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrReplacementNotFound
	}

	return nil
}

// Reject отклоняет PENDING-заявку с указанием причины
func (r *ReplacementRepository) Reject(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
        UPDATE file_replacement_requests
        SET status = $1,
            rejection_reason = $2,
            processed_at = CURRENT_TIMESTAMP
        WHERE id = $3 AND status = $4`

	result, err := r.db.ExecContext(ctx, query, domain.ReplacementRejected, reason, id, domain.ReplacementPending)
	if err != nil {
		return fmt.Errorf("error rejecting replacement request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrReplacementNotFound
	}

	return nil
}
