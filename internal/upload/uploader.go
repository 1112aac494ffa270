package upload

import (
	"context"
	"strings"
	"time"

	"printdrive/internal/domain"
	"printdrive/internal/naming"
	"printdrive/internal/validation"
)

// UploadResult — итог успешной загрузки
type UploadResult struct {
	File         *domain.DesignFile  `json:"file"`
	URL          string              `json:"url"`
	Target       domain.UploadTarget `json:"target"`
	StandardName string              `json:"standard_name,omitempty"`
}

// Uploader — координатор загрузки дизайн-файлов. Проверяет файл, выбирает
// целевое хранилище по размеру и ведет реестр активных загрузок.
type Uploader struct {
	validator *validation.Validator
	naming    *naming.Service
	shopby    *ShopbyClient
	s3        *S3Client
	registry  *ProgressRegistry
}

func NewUploader(
	validator *validation.Validator,
	namingService *naming.Service,
	shopby *ShopbyClient,
	s3 *S3Client,
	registry *ProgressRegistry,
) *Uploader {
	return &Uploader{
		validator: validator,
		naming:    namingService,
		shopby:    shopby,
		s3:        s3,
		registry:  registry,
	}
}

// Upload проверяет файл и загружает его в подходящее хранилище:
// до 12MB — Shopby, больше — S3. Невалидный файл отклоняется без
// каких-либо сетевых вызовов.
func (u *Uploader) Upload(ctx context.Context, file *domain.FileUpload, onProgress ProgressCallback) (*UploadResult, error) {
	result := u.validator.ValidateFile(file, S3MaxFileSize)

	if result.Status == domain.ValidationInvalid {
		return nil, &Error{
			Code:    ErrCodeInvalidType,
			Message: "File validation failed: " + strings.Join(result.Errors, ", "),
		}
	}

	target := u.determineTarget(file.Size)
	designFile := u.buildDesignFile(file, result)

	// Реестр обновляется по каноническому ключу uploadId и очищается
	// по нему же при любом исходе
	wrapped := func(progress domain.FileUploadProgress) {
		u.registry.Set(progress)
		emit(onProgress, progress)
	}
	defer u.registry.Delete(designFile.ID)

	var url string
	var err error
	if target == domain.TargetShopby {
		url, err = u.shopby.UploadImage(ctx, file, designFile.ID, wrapped)
	} else {
		url, err = u.s3.Upload(ctx, file, designFile.ID, wrapped)
	}
	if err != nil {
		// Любая ошибка покидает координатор только в типизированном виде
		return nil, normalizeError(err)
	}

	designFile.URL = url
	designFile.UploadTarget = target

	return &UploadResult{
		File:   designFile,
		URL:    url,
		Target: target,
	}, nil
}

// UploadWithNaming генерирует стандартизированное имя и загружает файл под
// ним, сохраняя исходное содержимое и тип
func (u *Uploader) UploadWithNaming(
	ctx context.Context,
	file *domain.FileUpload,
	spec domain.PrintSpec,
	customer domain.CustomerInfo,
	onProgress ProgressCallback,
) (*UploadResult, error) {
	extension := validation.ExtractExtension(file.Name)
	standardName := u.naming.GenerateStandardName(spec, customer, extension)

	renamed := &domain.FileUpload{
		Name:     standardName,
		MIMEType: file.MIMEType,
		Size:     file.Size,
		Data:     file.Data,
	}

	result, err := u.Upload(ctx, renamed, onProgress)
	if err != nil {
		return nil, err
	}

	result.File.StandardName = standardName
	result.StandardName = standardName
	return result, nil
}

// Validate проверяет файл без загрузки
func (u *Uploader) Validate(file *domain.FileUpload) domain.FileValidationResult {
	return u.validator.ValidateFile(file, S3MaxFileSize)
}

// GetProgress возвращает ход активной загрузки
func (u *Uploader) GetProgress(uploadID string) (domain.FileUploadProgress, bool) {
	return u.registry.Get(uploadID)
}

// CancelUpload отменяет активную загрузку. Отмена кооперативная: убирается
// только локальный учет, прерывание транспортного запроса не гарантируется.
func (u *Uploader) CancelUpload(uploadID string) bool {
	return u.registry.Cancel(uploadID)
}

func (u *Uploader) determineTarget(size int64) domain.UploadTarget {
	if size <= ShopbyMaxFileSize {
		return domain.TargetShopby
	}
	return domain.TargetS3
}

func (u *Uploader) buildDesignFile(file *domain.FileUpload, result domain.FileValidationResult) *domain.DesignFile {
	mimeType := result.MIMEType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return &domain.DesignFile{
		ID:           u.naming.GenerateFileID(),
		OriginalName: file.Name,
		Size:         file.Size,
		MIMEType:     mimeType,
		Extension:    result.Extension,
		Validation:   result,
		Dimensions:   result.Dimensions,
		CreatedAt:    time.Now(),
	}
}
