package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"printdrive/internal/domain"
	"printdrive/internal/repository"
)

// AttachInput описывает параметры привязки файла к заказу
type AttachInput struct {
	FileID       string
	OrderID      string
	OrderItemID  *string
	FileURL      string
	ObjectKey    *string
	OriginalName string
	FileSize     int64
}

// LinkService управляет связями файл-заказ и их статусами
type LinkService struct {
	linkRepo *repository.LinkRepository
}

func NewLinkService(linkRepo *repository.LinkRepository) *LinkService {
	return &LinkService{linkRepo: linkRepo}
}

// Attach связывает файл с заказом. Связь создается сразу в статусе ATTACHED.
func (s *LinkService) Attach(ctx context.Context, input AttachInput) (*domain.FileOrderLink, error) {
	if input.FileID == "" || input.OrderID == "" {
		return nil, fmt.Errorf("file id and order id are required")
	}

	link := &domain.FileOrderLink{
		ID:           uuid.New(),
		FileID:       input.FileID,
		OrderID:      input.OrderID,
		OrderItemID:  input.OrderItemID,
		Status:       domain.FileStatusAttached,
		FileURL:      input.FileURL,
		ObjectKey:    input.ObjectKey,
		OriginalName: input.OriginalName,
		FileSize:     input.FileSize,
	}

	if err := s.linkRepo.Create(ctx, link); err != nil {
		return nil, err
	}

	return link, nil
}

// Detach отвязывает файл от его заказа: связь возвращается в статус PENDING,
// запись и объект в хранилище сохраняются. Идентификатор заказа не
// обязателен; если передан, он должен совпадать с текущей связью.
func (s *LinkService) Detach(ctx context.Context, fileID, orderID string) error {
	if fileID == "" {
		return fmt.Errorf("file id is required")
	}

	link, err := s.linkRepo.GetByFileID(ctx, fileID)
	if err != nil {
		return err
	}
	if orderID != "" && link.OrderID != orderID {
		return fmt.Errorf("file %s is not attached to order %s", fileID, orderID)
	}
	if !link.Status.CanTransitionTo(domain.FileStatusPending) {
		return fmt.Errorf("invalid status transition: %s -> %s", link.Status, domain.FileStatusPending)
	}

	return s.linkRepo.UpdateStatus(ctx, fileID, domain.FileStatusPending)
}

// GetFileURL возвращает URL доступа к файлу вместе с его текущим статусом
func (s *LinkService) GetFileURL(ctx context.Context, fileID string) (string, domain.FileStatus, error) {
	link, err := s.linkRepo.GetByFileID(ctx, fileID)
	if err != nil {
		return "", "", err
	}

	return link.FileURL, link.Status, nil
}

// GetOrderFiles возвращает все активные связи файлов для заказа
func (s *LinkService) GetOrderFiles(ctx context.Context, orderID string) ([]domain.FileOrderLink, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	return s.linkRepo.GetByOrderID(ctx, orderID)
}

// GetFileStatus возвращает текущий статус файла
func (s *LinkService) GetFileStatus(ctx context.Context, fileID string) (domain.FileStatus, error) {
	link, err := s.linkRepo.GetByFileID(ctx, fileID)
	if err != nil {
		return "", err
	}

	return link.Status, nil
}

// UpdateStatus переводит файл в новый статус, проверяя допустимость
// перехода по таблице переходов
func (s *LinkService) UpdateStatus(ctx context.Context, fileID string, next domain.FileStatus) error {
	if !next.IsValid() {
		return fmt.Errorf("unknown file status: %s", next)
	}

	link, err := s.linkRepo.GetByFileID(ctx, fileID)
	if err != nil {
		return err
	}
	if !link.Status.CanTransitionTo(next) {
		return fmt.Errorf("invalid status transition: %s -> %s", link.Status, next)
	}

	return s.linkRepo.UpdateStatus(ctx, fileID, next)
}
