// storage.go
package s3

import (
	"context"
	"time"
)

// Storage определяет интерфейс для работы с S3-совместимым хранилищем
type Storage interface {
	// Прямая работа с объектами
	UploadBytes(key string, data []byte) error
	DeleteObject(key string) error
	ObjectURL(key string) string
	// Выдача подписанных URL для прямой загрузки клиентом
	PresignPutObject(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignUploadPart(ctx context.Context, uploadID, key string, partNumber int, expires time.Duration) (string, error)
	// Загрузка по частям
	CreateMultipartUpload(ctx context.Context, key, contentType string) (string, error)
	CompleteMultipartUpload(ctx context.Context, uploadID, key string, parts []CompletedPart) error
	AbortMultipartUpload(ctx context.Context, uploadID, key string) error
}

// CompletedPart представляет загруженную часть файла
type CompletedPart struct {
	PartNumber int
	ETag       string
}
