package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"printdrive/internal/domain"
	"printdrive/internal/service/s3"
)

const (
	// MaxObjectSize — потолок размера объекта, принимаемого в хранилище
	MaxObjectSize = 500 * 1024 * 1024

	// MaxMultipartParts — протокольный потолок количества частей
	MaxMultipartParts = 10000

	presignTTL = 15 * time.Minute
)

var objectNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// PresignService выдает presigned-ссылки для прямой загрузки файлов в S3
type PresignService struct {
	storage s3.Storage
}

func NewPresignService(storage s3.Storage) *PresignService {
	return &PresignService{storage: storage}
}

// GeneratePresignedURL выдает ссылку для одиночной загрузки объекта
func (s *PresignService) GeneratePresignedURL(ctx context.Context, fileName, contentType string, fileSize int64) (*domain.PresignedUpload, error) {
	if fileName == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if fileSize <= 0 || fileSize > MaxObjectSize {
		return nil, fmt.Errorf("invalid file size: %d", fileSize)
	}

	key := buildObjectKey(fileName)
	uploadURL, err := s.storage.PresignPutObject(ctx, key, contentType, presignTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &domain.PresignedUpload{
		UploadURL: uploadURL,
		AccessURL: s.storage.ObjectURL(key),
		ObjectKey: key,
		ExpiresIn: int64(presignTTL.Seconds()),
	}, nil
}

// InitiateMultipart создает multipart-сессию и выдает presigned-ссылку
// на каждую часть
func (s *PresignService) InitiateMultipart(ctx context.Context, fileName, contentType string, fileSize int64, totalParts int) (*domain.MultipartSession, error) {
	if fileName == "" {
		return nil, fmt.Errorf("file name is required")
	}
	if fileSize <= 0 || fileSize > MaxObjectSize {
		return nil, fmt.Errorf("invalid file size: %d", fileSize)
	}
	if totalParts <= 0 || totalParts > MaxMultipartParts {
		return nil, fmt.Errorf("invalid part count: %d", totalParts)
	}

	key := buildObjectKey(fileName)
	uploadID, err := s.storage.CreateMultipartUpload(ctx, key, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to create multipart upload: %w", err)
	}

	parts := make([]domain.MultipartPart, 0, totalParts)
	for partNumber := 1; partNumber <= totalParts; partNumber++ {
		partURL, err := s.storage.PresignUploadPart(ctx, uploadID, key, partNumber, presignTTL)
		if err != nil {
			// Сессия без полного набора ссылок бесполезна — отменяем её
			if abortErr := s.storage.AbortMultipartUpload(ctx, uploadID, key); abortErr != nil {
				return nil, fmt.Errorf("failed to presign part %d (abort also failed: %v): %w", partNumber, abortErr, err)
			}
			return nil, fmt.Errorf("failed to presign part %d: %w", partNumber, err)
		}
		parts = append(parts, domain.MultipartPart{PartNumber: partNumber, UploadURL: partURL})
	}

	return &domain.MultipartSession{
		UploadID:  uploadID,
		ObjectKey: key,
		Parts:     parts,
	}, nil
}

// CompleteMultipart завершает multipart-сессию. Части должны идти по
// возрастанию номера, каждая с непустым ETag.
func (s *PresignService) CompleteMultipart(ctx context.Context, uploadID, objectKey string, parts []s3.CompletedPart) (*domain.MultipartResult, error) {
	if uploadID == "" || objectKey == "" {
		return nil, fmt.Errorf("upload id and object key are required")
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("at least one part is required")
	}
	for i, part := range parts {
		if part.ETag == "" {
			return nil, fmt.Errorf("missing ETag for part %d", part.PartNumber)
		}
		if i > 0 && parts[i-1].PartNumber >= part.PartNumber {
			return nil, fmt.Errorf("parts must be ordered by part number")
		}
	}

	if err := s.storage.CompleteMultipartUpload(ctx, uploadID, objectKey, parts); err != nil {
		return nil, fmt.Errorf("failed to complete multipart upload: %w", err)
	}

	return &domain.MultipartResult{
		AccessURL: s.storage.ObjectURL(objectKey),
		ObjectKey: objectKey,
	}, nil
}

// AbortMultipart отменяет multipart-сессию и освобождает загруженные части
func (s *PresignService) AbortMultipart(ctx context.Context, uploadID, objectKey string) error {
	if uploadID == "" || objectKey == "" {
		return fmt.Errorf("upload id and object key are required")
	}

	return s.storage.AbortMultipartUpload(ctx, uploadID, objectKey)
}

// buildObjectKey строит ключ объекта с уникальным префиксом, чтобы разные
// загрузки одного имени не затирали друг друга
func buildObjectKey(fileName string) string {
	name := objectNameSanitizer.ReplaceAllString(fileName, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("designs/%s/%s", uuid.New().String(), name)
}
