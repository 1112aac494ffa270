package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"printdrive/internal/domain"
)

var ErrLinkNotFound = errors.New("file order link not found")

type LinkRepository struct {
	db *sqlx.DB
}

func NewLinkRepository(db *sqlx.DB) *LinkRepository {
	return &LinkRepository{db: db}
}

func (r *LinkRepository) Create(ctx context.Context, link *domain.FileOrderLink) error {
	query := `
        INSERT INTO file_order_links (id, file_id, order_id, order_item_id, status, file_url, object_key, original_name, file_size)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		link.ID,
		link.FileID,
		link.OrderID,
		link.OrderItemID,
		link.Status,
		link.FileURL,
		link.ObjectKey,
		link.OriginalName,
		link.FileSize,
	).Scan(&link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create file order link: %w", err)
	}

	return nil
}

func (r *LinkRepository) GetByFileID(ctx context.Context, fileID string) (*domain.FileOrderLink, error) {
	var link domain.FileOrderLink
	query := `SELECT * FROM file_order_links WHERE file_id = $1 AND archived = FALSE ORDER BY created_at DESC LIMIT 1`

	err := r.db.GetContext(ctx, &link, query, fileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}

	return &link, nil
}

func (r *LinkRepository) GetByOrderID(ctx context.Context, orderID string) ([]domain.FileOrderLink, error) {
	var links []domain.FileOrderLink
	query := `SELECT * FROM file_order_links WHERE order_id = $1 AND archived = FALSE ORDER BY created_at`

	err := r.db.SelectContext(ctx, &links, query, orderID)
	if err != nil {
		return nil, err
	}

	return links, nil
}

func (r *LinkRepository) UpdateStatus(ctx context.Context, fileID string, status domain.FileStatus) error {
	query := `
        UPDATE file_order_links
        SET status = $1,
            updated_at = CURRENT_TIMESTAMP
        WHERE file_id = $2 AND archived = FALSE`

	result, err := r.db.ExecContext(ctx, query, status, fileID)
	if err != nil {
		return fmt.Errorf("error updating link status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// MarkOrphaned переводит связь в статус ORPHANED и назначает дату удаления
func (r *LinkRepository) MarkOrphaned(ctx context.Context, fileID string, deleteAt time.Time) error {
	query := `
        UPDATE file_order_links
        SET status = $1,
            delete_at = $2,
            updated_at = CURRENT_TIMESTAMP
        WHERE file_id = $3 AND archived = FALSE`

	result, err := r.db.ExecContext(ctx, query, domain.FileStatusOrphaned, deleteAt, fileID)
	if err != nil {
		return fmt.Errorf("error marking link orphaned: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// Archive помечает связь архивной, сохраняя запись и объект в хранилище
func (r *LinkRepository) Archive(ctx context.Context, fileID string) error {
	query := `
        UPDATE file_order_links
        SET archived = TRUE,
            updated_at = CURRENT_TIMESTAMP
        WHERE file_id = $1 AND archived = FALSE`

	result, err := r.db.ExecContext(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("error archiving link: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// ArchiveTx — вариант Archive для вызова внутри внешней транзакции
func (r *LinkRepository) ArchiveTx(ctx context.Context, tx *sqlx.Tx, fileID string) error {
	query := `
        UPDATE file_order_links
        SET archived = TRUE,
            updated_at = CURRENT_TIMESTAMP
        WHERE file_id = $1 AND archived = FALSE`

	result, err := tx.ExecContext(ctx, query, fileID)
	if err != nil {
		return fmt.Errorf("error archiving link: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrLinkNotFound
	}

	return nil
}

// GetExpired возвращает осиротевшие связи, чей срок хранения истек
func (r *LinkRepository) GetExpired(ctx context.Context) ([]domain.FileOrderLink, error) {
	var links []domain.FileOrderLink
	query := `
        SELECT * FROM file_order_links
        WHERE status = $1 AND delete_at IS NOT NULL AND delete_at < CURRENT_TIMESTAMP`

	err := r.db.SelectContext(ctx, &links, query, domain.FileStatusOrphaned)
	if err != nil {
		return nil, err
	}

	return links, nil
}

// DeleteByID удаляет запись связи по первичному ключу
func (r *LinkRepository) DeleteByID(ctx context.Context, id string) error {
	query := `DELETE FROM file_order_links WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("error deleting link by id: %w", err)
	}

	return nil
}
