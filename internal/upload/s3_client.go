package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"printdrive/internal/domain"
	"printdrive/internal/validation"
)

const (
	// S3MaxFileSize — жесткий потолок размера объекта
	S3MaxFileSize = 500 * 1024 * 1024

	// DefaultChunkSize — порог выбора multipart-загрузки и размер части
	DefaultChunkSize = 5 * 1024 * 1024

	// maxParts — протокольный потолок количества частей multipart-сессии
	maxParts = 10000

	defaultMaxRetries    = 3
	defaultRetryDelay    = time.Second
	defaultUploadTimeout = 30 * time.Minute
)

// initiateRequest — тело запроса инициации multipart-сессии
type initiateRequest struct {
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	MIMEType   string `json:"mimeType"`
	TotalParts int    `json:"totalParts"`
}

// presignRequest — тело запроса одиночной presigned-ссылки
type presignRequest struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MIMEType string `json:"mimeType"`
}

// completedPart — пара (номер части, ETag) для завершения сессии
type completedPart struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"eTag"`
}

// completeRequest — тело запроса завершения multipart-сессии
type completeRequest struct {
	UploadID  string          `json:"uploadId"`
	ObjectKey string          `json:"objectKey"`
	Parts     []completedPart `json:"parts"`
}

// S3Config задает параметры клиента больших файлов
type S3Config struct {
	// Endpoint — адрес промежуточного сервиса, выдающего presigned-ссылки
	Endpoint   string
	AuthToken  string
	ChunkSize  int64
	MaxRetries int
	RetryDelay time.Duration
	HTTPClient *http.Client
}

// S3Client загружает файлы до 500MB через presigned-ссылки: одним запросом
// для небольших объектов и по частям для остальных
type S3Client struct {
	endpoint   string
	authToken  string
	chunkSize  int64
	maxRetries int
	retryDelay time.Duration
	httpClient *http.Client
}

func NewS3Client(conf S3Config) *S3Client {
	chunkSize := conf.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	maxRetries := conf.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	retryDelay := conf.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}
	httpClient := conf.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultUploadTimeout}
	}
	return &S3Client{
		endpoint:   strings.TrimRight(conf.Endpoint, "/"),
		authToken:  conf.AuthToken,
		chunkSize:  chunkSize,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		httpClient: httpClient,
	}
}

// MaxFileSize возвращает потолок размера для этого хранилища
func (c *S3Client) MaxFileSize() int64 {
	return S3MaxFileSize
}

// RequiresMultipart сообщает, потребует ли файл загрузки по частям
func (c *S3Client) RequiresMultipart(size int64) bool {
	return size >= c.chunkSize
}

// Upload загружает файл и возвращает URL доступа. Файлы больше 500MB
// отклоняются до каких-либо сетевых вызовов. Метод загрузки выбирается
// по порогу размера части.
func (c *S3Client) Upload(ctx context.Context, file *domain.FileUpload, uploadID string, onProgress ProgressCallback) (string, error) {
	if file.Size > S3MaxFileSize {
		return "", &Error{
			Code: ErrCodeFileTooLarge,
			Message: fmt.Sprintf("File size exceeds S3 limit of 500MB. Current size: %s",
				validation.FormatSize(file.Size)),
		}
	}

	now := time.Now()
	emit(onProgress, domain.FileUploadProgress{
		UploadID:   uploadID,
		Target:     domain.TargetS3,
		TotalBytes: file.Size,
		State:      domain.UploadStatePending,
		StartedAt:  &now,
	})

	var accessURL string
	var err error
	if c.RequiresMultipart(file.Size) {
		accessURL, err = c.uploadMultipart(ctx, file, uploadID, onProgress)
	} else {
		accessURL, err = c.uploadSingle(ctx, file, uploadID, onProgress)
	}
	if err != nil {
		emit(onProgress, domain.FileUploadProgress{
			UploadID:   uploadID,
			Target:     domain.TargetS3,
			TotalBytes: file.Size,
			State:      domain.UploadStateFailed,
			Error:      err.Error(),
		})
		return "", err
	}

	completed := time.Now()
	emit(onProgress, domain.FileUploadProgress{
		UploadID:      uploadID,
		Target:        domain.TargetS3,
		UploadedBytes: file.Size,
		TotalBytes:    file.Size,
		Percentage:    100,
		State:         domain.UploadStateCompleted,
		ResultURL:     accessURL,
		CompletedAt:   &completed,
	})

	return accessURL, nil
}

// uploadSingle выполняет одиночную загрузку через одну presigned-ссылку
func (c *S3Client) uploadSingle(ctx context.Context, file *domain.FileUpload, uploadID string, onProgress ProgressCallback) (string, error) {
	var presigned domain.PresignedUpload
	err := c.postJSON(ctx, "/presigned-url", presignRequest{
		FileName: file.Name,
		FileSize: file.Size,
		MIMEType: file.MIMEType,
	}, &presigned)
	if err != nil {
		return "", err
	}

	reader := newCountingReader(bytes.NewReader(file.Data), func(read int64) {
		emit(onProgress, domain.FileUploadProgress{
			UploadID:      uploadID,
			Target:        domain.TargetS3,
			UploadedBytes: read,
			TotalBytes:    file.Size,
			Percentage:    int(read * 100 / file.Size),
			State:         domain.UploadStateUploading,
		})
	})

	if _, err := c.putBytes(ctx, presigned.UploadURL, reader, file.Size, 0); err != nil {
		return "", err
	}

	return presigned.AccessURL, nil
}

// uploadMultipart выполняет загрузку по частям. Части отправляются строго
// последовательно по возрастанию номера: осознанный выбор простоты вместо
// пропускной способности.
func (c *S3Client) uploadMultipart(ctx context.Context, file *domain.FileUpload, uploadID string, onProgress ProgressCallback) (string, error) {
	totalParts := int((file.Size + c.chunkSize - 1) / c.chunkSize)
	if totalParts > maxParts {
		return "", &Error{
			Code:    ErrCodeFileTooLarge,
			Message: fmt.Sprintf("File requires too many parts (%d). Maximum: %d", totalParts, maxParts),
		}
	}

	var session domain.MultipartSession
	err := c.postJSON(ctx, "/multipart/initiate", initiateRequest{
		FileName:   file.Name,
		FileSize:   file.Size,
		MIMEType:   file.MIMEType,
		TotalParts: totalParts,
	}, &session)
	if err != nil {
		return "", err
	}

	parts := make([]completedPart, 0, totalParts)
	for partNumber := 1; partNumber <= totalParts; partNumber++ {
		start := int64(partNumber-1) * c.chunkSize
		end := min64(int64(partNumber)*c.chunkSize, file.Size)
		chunk := file.Data[start:end]

		partURL := ""
		for _, p := range session.Parts {
			if p.PartNumber == partNumber {
				partURL = p.UploadURL
				break
			}
		}
		if partURL == "" {
			return "", &Error{
				Code:       ErrCodeS3Error,
				Message:    "Missing presigned URL for part",
				PartNumber: partNumber,
			}
		}

		eTag, err := c.uploadPartWithRetry(ctx, partURL, chunk, partNumber)
		if err != nil {
			return "", err
		}
		parts = append(parts, completedPart{PartNumber: partNumber, ETag: eTag})

		// Ход загрузки аппроксимируется целыми частями: последняя, возможно
		// неполная часть не учитывается побайтово до полного завершения.
		uploadedBytes := min64(int64(len(parts))*c.chunkSize, file.Size)
		emit(onProgress, domain.FileUploadProgress{
			UploadID:      uploadID,
			Target:        domain.TargetS3,
			UploadedBytes: uploadedBytes,
			TotalBytes:    file.Size,
			Percentage:    int(uploadedBytes * 100 / file.Size),
			State:         domain.UploadStateUploading,
		})
	}

	var result domain.MultipartResult
	err = c.postJSON(ctx, "/multipart/complete", completeRequest{
		UploadID:  session.UploadID,
		ObjectKey: session.ObjectKey,
		Parts:     parts,
	}, &result)
	if err != nil {
		return "", err
	}

	return result.AccessURL, nil
}

// uploadPartWithRetry отправляет одну часть с повторами. Повторяются только
// ошибки сетевого класса, не более maxRetries попыток всего, с экспоненциальной
// задержкой между ними. Наружу отдается ошибка последней попытки.
func (c *S3Client) uploadPartWithRetry(ctx context.Context, partURL string, chunk []byte, partNumber int) (string, error) {
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", &Error{Code: ErrCodeCancelled, Message: "upload cancelled", PartNumber: partNumber, Err: ctx.Err()}
			}
		}

		eTag, err := c.putBytes(ctx, partURL, bytes.NewReader(chunk), int64(len(chunk)), partNumber)
		if err == nil {
			if eTag == "" {
				// Успешный PUT без ETag не может быть завершен — жесткий отказ
				return "", &Error{
					Code:       ErrCodeS3Error,
					Message:    "Missing ETag for uploaded part",
					PartNumber: partNumber,
				}
			}
			return eTag, nil
		}

		lastErr = err
		if !IsCode(err, ErrCodeNetworkError) {
			return "", err
		}
	}

	return "", lastErr
}

// putBytes выполняет сырой PUT по presigned-ссылке и возвращает ETag ответа
func (c *S3Client) putBytes(ctx context.Context, url string, body io.Reader, size int64, partNumber int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", &Error{Code: ErrCodeS3Error, Message: fmt.Sprintf("failed to create request: %v", err), PartNumber: partNumber}
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		te := transportError(ctx, err, "Network error during S3 upload")
		te.PartNumber = partNumber
		return "", te
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Error{
			Code:       ErrCodeS3Error,
			Message:    fmt.Sprintf("S3 upload failed: %d", resp.StatusCode),
			PartNumber: partNumber,
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}

// postJSON выполняет JSON-запрос к промежуточному сервису
func (c *S3Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return newError(ErrCodeS3Error, fmt.Sprintf("failed to encode request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return newError(ErrCodeS3Error, fmt.Sprintf("failed to create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(ctx, err, "Network error: unable to reach upload API")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Code:       ErrCodeS3Error,
			Message:    fmt.Sprintf("Upload API error: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Code: ErrCodeS3Error, Message: "Invalid response from upload API", Err: err}
		}
	}
	return nil
}
