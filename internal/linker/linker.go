package linker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"printdrive/internal/domain"
	"printdrive/internal/upload"
)

// Config задает параметры клиента связей файл-заказ
type Config struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
}

// Linker связывает загруженные файлы с заказами через REST API платформы.
// Полученные связи кэшируются по fileId до явной очистки или detach.
type Linker struct {
	baseURL    string
	authToken  string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]*domain.FileOrderLink
}

func NewLinker(conf Config) *Linker {
	httpClient := conf.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Linker{
		baseURL:    conf.BaseURL,
		authToken:  conf.AuthToken,
		httpClient: httpClient,
		cache:      make(map[string]*domain.FileOrderLink),
	}
}

type attachRequest struct {
	FileID      string  `json:"fileId"`
	OrderID     string  `json:"orderId"`
	OrderItemID *string `json:"orderItemId,omitempty"`
}

type detachRequest struct {
	FileID string `json:"fileId"`
}

type linkResponse struct {
	Success bool                  `json:"success"`
	Link    *domain.FileOrderLink `json:"link,omitempty"`
	Error   string                `json:"error,omitempty"`
}

type fileURLResponse struct {
	URL    string            `json:"url"`
	Status domain.FileStatus `json:"status"`
}

type orderFilesResponse struct {
	Files []domain.FileOrderLink `json:"files"`
}

type fileStatusResponse struct {
	Status domain.FileStatus `json:"status"`
}

type statusUpdateRequest struct {
	Status domain.FileStatus `json:"status"`
}

// AttachFile связывает файл с заказом. Новая связь попадает в кэш.
func (l *Linker) AttachFile(ctx context.Context, fileID, orderID string, orderItemID *string) (*domain.FileOrderLink, error) {
	var resp linkResponse
	err := l.doJSON(ctx, http.MethodPost, "/v1/files/attach", attachRequest{
		FileID:      fileID,
		OrderID:     orderID,
		OrderItemID: orderItemID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Link == nil {
		return nil, &upload.Error{
			Code:    upload.ErrCodeUploadFailed,
			Message: fmt.Sprintf("failed to attach file %s to order %s: %s", fileID, orderID, resp.Error),
			FileID:  fileID,
		}
	}

	l.mu.Lock()
	l.cache[fileID] = resp.Link
	l.mu.Unlock()

	return resp.Link, nil
}

// DetachFile отвязывает файл от его заказа и убирает связь из кэша
func (l *Linker) DetachFile(ctx context.Context, fileID string) error {
	var resp linkResponse
	err := l.doJSON(ctx, http.MethodPost, "/v1/files/detach", detachRequest{FileID: fileID}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return &upload.Error{
			Code:    upload.ErrCodeUploadFailed,
			Message: fmt.Sprintf("failed to detach file %s: %s", fileID, resp.Error),
			FileID:  fileID,
		}
	}

	l.mu.Lock()
	delete(l.cache, fileID)
	l.mu.Unlock()

	return nil
}

// GetFileURL возвращает URL доступа к файлу. Сначала смотрит в кэш; файл в
// статусе ORPHANED недоступен независимо от источника ответа.
func (l *Linker) GetFileURL(ctx context.Context, fileID string) (string, error) {
	l.mu.Lock()
	cached, ok := l.cache[fileID]
	l.mu.Unlock()

	if ok {
		if cached.Status == domain.FileStatusOrphaned {
			return "", &upload.Error{
				Code:    upload.ErrCodeUploadFailed,
				Message: fmt.Sprintf("file %s is orphaned and no longer accessible", fileID),
				FileID:  fileID,
			}
		}
		return cached.FileURL, nil
	}

	var resp fileURLResponse
	if err := l.doJSON(ctx, http.MethodGet, "/v1/files/"+fileID+"/url", nil, &resp); err != nil {
		return "", err
	}
	if resp.Status == domain.FileStatusOrphaned {
		return "", &upload.Error{
			Code:    upload.ErrCodeUploadFailed,
			Message: fmt.Sprintf("file %s is orphaned and no longer accessible", fileID),
			FileID:  fileID,
		}
	}

	return resp.URL, nil
}

// GetOrderFiles возвращает все связи файлов для заказа и обновляет кэш
func (l *Linker) GetOrderFiles(ctx context.Context, orderID string) ([]domain.FileOrderLink, error) {
	var resp orderFilesResponse
	if err := l.doJSON(ctx, http.MethodGet, "/v1/orders/"+orderID+"/files", nil, &resp); err != nil {
		return nil, err
	}

	l.mu.Lock()
	for i := range resp.Files {
		link := resp.Files[i]
		l.cache[link.FileID] = &link
	}
	l.mu.Unlock()

	return resp.Files, nil
}

// GetFileStatus запрашивает текущий статус файла у сервера. Закэшированная
// связь обновляется полученным статусом.
func (l *Linker) GetFileStatus(ctx context.Context, fileID string) (domain.FileStatus, error) {
	var resp fileStatusResponse
	if err := l.doJSON(ctx, http.MethodGet, "/v1/files/"+fileID+"/status", nil, &resp); err != nil {
		return "", err
	}

	l.mu.Lock()
	if cached, ok := l.cache[fileID]; ok {
		cached.Status = resp.Status
	}
	l.mu.Unlock()

	return resp.Status, nil
}

// TransitionStatus переводит файл в новый статус. Переход проверяется по
// таблице допустимых переходов до обращения к серверу; недопустимый переход
// отклоняется локально.
func (l *Linker) TransitionStatus(ctx context.Context, fileID string, next domain.FileStatus) error {
	if !next.IsValid() {
		return &upload.Error{
			Code:    upload.ErrCodeUploadFailed,
			Message: fmt.Sprintf("unknown file status: %s", next),
			FileID:  fileID,
		}
	}

	current, err := l.GetFileStatus(ctx, fileID)
	if err != nil {
		return err
	}
	if !current.CanTransitionTo(next) {
		return &upload.Error{
			Code:    upload.ErrCodeUploadFailed,
			Message: fmt.Sprintf("invalid status transition for file %s: %s -> %s", fileID, current, next),
			FileID:  fileID,
		}
	}

	if err := l.doJSON(ctx, http.MethodPatch, "/v1/files/"+fileID+"/status", statusUpdateRequest{Status: next}, nil); err != nil {
		return err
	}

	l.mu.Lock()
	if cached, ok := l.cache[fileID]; ok {
		cached.Status = next
		cached.UpdatedAt = time.Now()
	}
	l.mu.Unlock()

	return nil
}

// ClearCache сбрасывает кэш связей
func (l *Linker) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*domain.FileOrderLink)
	l.mu.Unlock()
}

func (l *Linker) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &upload.Error{Code: upload.ErrCodeUploadFailed, Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, reader)
	if err != nil {
		return &upload.Error{Code: upload.ErrCodeUploadFailed, Message: "failed to create request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if l.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+l.authToken)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return &upload.Error{Code: upload.ErrCodeNetworkError, Message: "Network error: unable to reach order API", Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &upload.Error{
			Code:       upload.ErrCodeUploadFailed,
			Message:    fmt.Sprintf("order API error: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &upload.Error{Code: upload.ErrCodeUploadFailed, Message: "invalid response from order API", Err: err}
	}
	return nil
}
