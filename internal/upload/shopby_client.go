package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"printdrive/internal/domain"
	"printdrive/internal/validation"
)

// ShopbyMaxFileSize — жесткий потолок размера файла для Shopby-хранилища
const ShopbyMaxFileSize = 12 * 1024 * 1024

const defaultShopbyBaseURL = "https://api.shopby.co.kr/shop/v1"

// shopbyUploadResponse — тело успешного ответа Shopby Storage API
type shopbyUploadResponse struct {
	AccessURL string `json:"accessUrl"`
	FilePath  string `json:"filePath"`
	FileSize  int64  `json:"fileSize"`
}

// shopbyErrorResponse — структурированное тело ошибки Shopby API
type shopbyErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ShopbyConfig задает параметры клиента Shopby-хранилища
type ShopbyConfig struct {
	BaseURL     string
	PartnerID   string
	AccessToken string
	HTTPClient  *http.Client
}

// ShopbyClient загружает файлы до 12MB в Shopby Storage одним запросом
type ShopbyClient struct {
	baseURL     string
	partnerID   string
	accessToken string
	httpClient  *http.Client
}

func NewShopbyClient(conf ShopbyConfig) *ShopbyClient {
	baseURL := conf.BaseURL
	if baseURL == "" {
		baseURL = defaultShopbyBaseURL
	}
	httpClient := conf.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &ShopbyClient{
		baseURL:     baseURL,
		partnerID:   conf.PartnerID,
		accessToken: conf.AccessToken,
		httpClient:  httpClient,
	}
}

// MaxFileSize возвращает потолок размера для этого хранилища
func (c *ShopbyClient) MaxFileSize() int64 {
	return ShopbyMaxFileSize
}

// WithinLimits сообщает, укладывается ли файл в лимиты Shopby
func (c *ShopbyClient) WithinLimits(size int64) bool {
	return size > 0 && size <= ShopbyMaxFileSize
}

// UploadImage загружает файл в Shopby Storage и возвращает URL доступа.
// Файлы больше 12MB отклоняются до каких-либо сетевых вызовов.
func (c *ShopbyClient) UploadImage(ctx context.Context, file *domain.FileUpload, uploadID string, onProgress ProgressCallback) (string, error) {
	if file.Size > ShopbyMaxFileSize {
		return "", &Error{
			Code: ErrCodeFileTooLarge,
			Message: fmt.Sprintf("File size exceeds Shopby limit of 12MB. Current size: %s",
				validation.FormatSize(file.Size)),
		}
	}

	now := time.Now()
	emit(onProgress, domain.FileUploadProgress{
		UploadID:   uploadID,
		Target:     domain.TargetShopby,
		TotalBytes: file.Size,
		State:      domain.UploadStatePending,
		StartedAt:  &now,
	})

	result, err := c.doUpload(ctx, file, uploadID, onProgress)
	if err != nil {
		emit(onProgress, domain.FileUploadProgress{
			UploadID:   uploadID,
			Target:     domain.TargetShopby,
			TotalBytes: file.Size,
			State:      domain.UploadStateFailed,
			Error:      err.Error(),
		})
		return "", err
	}

	completed := time.Now()
	emit(onProgress, domain.FileUploadProgress{
		UploadID:      uploadID,
		Target:        domain.TargetShopby,
		UploadedBytes: file.Size,
		TotalBytes:    file.Size,
		Percentage:    100,
		State:         domain.UploadStateCompleted,
		ResultURL:     result.AccessURL,
		CompletedAt:   &completed,
	})

	return result.AccessURL, nil
}

func (c *ShopbyClient) doUpload(ctx context.Context, file *domain.FileUpload, uploadID string, onProgress ProgressCallback) (*shopbyUploadResponse, error) {
	// Собираем multipart-форму в буфер, чтобы знать полный размер тела
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, newError(ErrCodeShopbyError, fmt.Sprintf("failed to build upload form: %v", err))
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, newError(ErrCodeShopbyError, fmt.Sprintf("failed to build upload form: %v", err))
	}
	if err := writer.Close(); err != nil {
		return nil, newError(ErrCodeShopbyError, fmt.Sprintf("failed to build upload form: %v", err))
	}

	totalBytes := int64(body.Len())
	reader := newCountingReader(&body, func(read int64) {
		percentage := int(read * 100 / totalBytes)
		emit(onProgress, domain.FileUploadProgress{
			UploadID:      uploadID,
			Target:        domain.TargetShopby,
			UploadedBytes: min64(read, file.Size),
			TotalBytes:    file.Size,
			Percentage:    percentage,
			State:         domain.UploadStateUploading,
		})
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/storage/temporary-images", reader)
	if err != nil {
		return nil, newError(ErrCodeShopbyError, fmt.Sprintf("failed to create request: %v", err))
	}
	req.ContentLength = totalBytes
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
	if c.partnerID != "" {
		req.Header.Set("X-Partner-Id", c.partnerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(ctx, err, "Network error: unable to reach Shopby API")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Пытаемся разобрать структурированное тело ошибки
		var apiErr shopbyErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return nil, &Error{
				Code:       ErrCodeShopbyError,
				Message:    apiErr.Message,
				StatusCode: resp.StatusCode,
				Body:       string(raw),
			}
		}
		return nil, &Error{
			Code:       ErrCodeShopbyError,
			Message:    fmt.Sprintf("Shopby API error: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	var result shopbyUploadResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &Error{
			Code:       ErrCodeShopbyError,
			Message:    "Invalid response from Shopby API",
			StatusCode: resp.StatusCode,
			Err:        err,
		}
	}

	return &result, nil
}

func emit(onProgress ProgressCallback, progress domain.FileUploadProgress) {
	if onProgress != nil {
		onProgress(progress)
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
