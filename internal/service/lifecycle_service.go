package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"printdrive/internal/domain"
	"printdrive/internal/repository"
	"printdrive/internal/service/s3"
)

// DefaultOrphanExpiryDays — срок хранения осиротевшего файла до удаления
const DefaultOrphanExpiryDays = 30

// LifecycleService управляет жизненным циклом файлов заказа: подтверждением,
// архивацией, пометкой осиротевших, заявками на замену и удалением
// просроченных объектов из хранилища
type LifecycleService struct {
	db              *sqlx.DB
	linkRepo        *repository.LinkRepository
	replacementRepo *repository.ReplacementRepository
	s3Client        s3.Storage
}

func NewLifecycleService(
	db *sqlx.DB,
	linkRepo *repository.LinkRepository,
	replacementRepo *repository.ReplacementRepository,
	s3Client s3.Storage,
) *LifecycleService {
	return &LifecycleService{
		db:              db,
		linkRepo:        linkRepo,
		replacementRepo: replacementRepo,
		s3Client:        s3Client,
	}
}

// Confirm подтверждает файл после проверки оператором
func (s *LifecycleService) Confirm(ctx context.Context, fileID string) (domain.FileStatus, error) {
	link, err := s.linkRepo.GetByFileID(ctx, fileID)
	if err != nil {
		return "", err
	}
	if !link.Status.CanTransitionTo(domain.FileStatusConfirmed) {
		return "", fmt.Errorf("invalid status transition: %s -> %s", link.Status, domain.FileStatusConfirmed)
	}

	if err := s.linkRepo.UpdateStatus(ctx, fileID, domain.FileStatusConfirmed); err != nil {
		return "", err
	}

	return domain.FileStatusConfirmed, nil
}

// Archive переводит связь файла в архив, сохраняя объект в хранилище
func (s *LifecycleService) Archive(ctx context.Context, fileID string) error {
	if fileID == "" {
		return fmt.Errorf("file id is required")
	}

	return s.linkRepo.Archive(ctx, fileID)
}

// Orphan помечает файл осиротевшим и назначает дату физического удаления
func (s *LifecycleService) Orphan(ctx context.Context, fileID string, expiryDays int) (time.Time, error) {
	if expiryDays <= 0 {
		expiryDays = DefaultOrphanExpiryDays
	}

	link, err := s.linkRepo.GetByFileID(ctx, fileID)
	if err != nil {
		return time.Time{}, err
	}
	if !link.Status.CanTransitionTo(domain.FileStatusOrphaned) {
		return time.Time{}, fmt.Errorf("invalid status transition: %s -> %s", link.Status, domain.FileStatusOrphaned)
	}

	deleteAt := time.Now().AddDate(0, 0, expiryDays)
	if err := s.linkRepo.MarkOrphaned(ctx, fileID, deleteAt); err != nil {
		return time.Time{}, err
	}

	return deleteAt, nil
}

// RequestReplacement создает заявку на замену подтвержденного файла
func (s *LifecycleService) RequestReplacement(ctx context.Context, fileID, reason, requestedBy string) (*domain.FileReplacementRequest, error) {
	if fileID == "" || reason == "" || requestedBy == "" {
		return nil, fmt.Errorf("file id, reason and requester are required")
	}

	link, err := s.linkRepo.GetByFileID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	// Замена имеет смысл только для подтвержденного файла: до подтверждения
	// файл можно просто отвязать и загрузить заново
	if link.Status != domain.FileStatusConfirmed {
		return nil, fmt.Errorf("file %s is not confirmed, replacement is not applicable", fileID)
	}

	request := &domain.FileReplacementRequest{
		ID:             uuid.New(),
		OriginalFileID: fileID,
		Reason:         reason,
		Status:         domain.ReplacementPending,
		RequestedBy:    requestedBy,
	}

	if err := s.replacementRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

// ApproveReplacement одобряет заявку на замену: старая связь архивируется,
// заявка закрывается в одной транзакции
func (s *LifecycleService) ApproveReplacement(ctx context.Context, requestID uuid.UUID, newFileID, approvedBy string) (*domain.FileReplacementRequest, error) {
	if newFileID == "" || approvedBy == "" {
		return nil, fmt.Errorf("new file id and approver are required")
	}

	request, err := s.replacementRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != domain.ReplacementPending {
		return nil, fmt.Errorf("replacement request %s is not pending", requestID)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.replacementRepo.Approve(ctx, tx, requestID, newFileID, approvedBy); err != nil {
		return nil, err
	}
	if err := s.linkRepo.ArchiveTx(ctx, tx, request.OriginalFileID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.replacementRepo.GetByID(ctx, requestID)
}

// RejectReplacement отклоняет ожидающую заявку на замену
func (s *LifecycleService) RejectReplacement(ctx context.Context, requestID uuid.UUID, reason string) error {
	if reason == "" {
		return fmt.Errorf("rejection reason is required")
	}

	return s.replacementRepo.Reject(ctx, requestID, reason)
}

// GetReplacementRequest возвращает заявку по идентификатору
func (s *LifecycleService) GetReplacementRequest(ctx context.Context, requestID uuid.UUID) (*domain.FileReplacementRequest, error) {
	return s.replacementRepo.GetByID(ctx, requestID)
}

// GetFileReplacementRequests возвращает все заявки на замену для файла
func (s *LifecycleService) GetFileReplacementRequests(ctx context.Context, fileID string) ([]domain.FileReplacementRequest, error) {
	if fileID == "" {
		return nil, fmt.Errorf("file id is required")
	}

	return s.replacementRepo.GetByFileID(ctx, fileID)
}

// CleanupExpired удаляет осиротевшие файлы с истекшим сроком хранения:
// объект убирается из S3, запись связи — из базы
func (s *LifecycleService) CleanupExpired(ctx context.Context) (int, error) {
	links, err := s.linkRepo.GetExpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired links: %w", err)
	}

	deleted := 0
	for _, link := range links {
		if link.ObjectKey != nil {
			if err := s.s3Client.DeleteObject(*link.ObjectKey); err != nil {
				log.Printf("[Lifecycle] Failed to delete object %s: %v", *link.ObjectKey, err)
				continue
			}
		}
		if err := s.linkRepo.DeleteByID(ctx, link.ID.String()); err != nil {
			log.Printf("[Lifecycle] Failed to delete link %s: %v", link.ID, err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		log.Printf("[Lifecycle] Cleanup removed %d expired files", deleted)
	}
	return deleted, nil
}

// StartCleanupScheduler запускает периодическую очистку просроченных файлов
func (s *LifecycleService) StartCleanupScheduler(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if _, err := s.CleanupExpired(ctx); err != nil {
					log.Printf("[Lifecycle] Cleanup failed: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
