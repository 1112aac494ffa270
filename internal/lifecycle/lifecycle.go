package lifecycle

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

// DefaultExpiryDays — срок хранения осиротевшего файла до физического удаления
const DefaultExpiryDays = 30

// EventCallback вызывается на каждую изменяющую состояние операцию
type EventCallback func(domain.FileLifecycleEvent)

// Config задает параметры менеджера жизненного цикла файлов
type Config struct {
	BaseURL    string
	AuthToken  string
	HTTPClient *http.Client
	OnEvent    EventCallback
}

// Manager управляет жизненным циклом файлов заказа: подтверждением,
// архивацией, пометкой осиротевших и процессом замены. Известные заявки на
// замену кэшируются по файлу; одобрение без ожидающей заявки отклоняется
// без обращения к серверу.
type Manager struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	onEvent    EventCallback

	mu       sync.Mutex
	requests map[string]*domain.FileReplacementRequest // ключ — originalFileId
}

func NewManager(conf Config) *Manager {
	httpClient := conf.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Manager{
		baseURL:    conf.BaseURL,
		authToken:  conf.AuthToken,
		httpClient: httpClient,
		onEvent:    conf.OnEvent,
		requests:   make(map[string]*domain.FileReplacementRequest),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

type confirmData struct {
	Status domain.FileStatus `json:"status"`
}

type orphanRequest struct {
	ExpiryDays int `json:"expiryDays"`
}

type orphanData struct {
	DeleteAt time.Time `json:"deleteAt"`
}

type replacementRequestBody struct {
	FileID      string `json:"fileId"`
	Reason      string `json:"reason"`
	RequestedBy string `json:"requestedBy"`
}

type approveRequestBody struct {
	NewFileID  string `json:"newFileId"`
	ApprovedBy string `json:"approvedBy"`
}

type rejectRequestBody struct {
	Reason string `json:"reason"`
}

type requestListData struct {
	Requests []domain.FileReplacementRequest `json:"requests"`
}

// ConfirmFile подтверждает файл после проверки оператором
func (m *Manager) ConfirmFile(ctx context.Context, fileID string) (domain.FileStatus, error) {
	env, err := m.doJSON(ctx, http.MethodPost, "/v1/files/"+fileID+"/confirm", nil)
	if err != nil {
		return "", err
	}

	var data confirmData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return "", invalidResponse(err)
	}

	m.emit(domain.EventConfirmed, fileID, nil)
	return data.Status, nil
}

// ArchiveFile переводит файл в архив, сохраняя его содержимое
func (m *Manager) ArchiveFile(ctx context.Context, fileID string) error {
	if _, err := m.doJSON(ctx, http.MethodPost, "/v1/files/"+fileID+"/archive", nil); err != nil {
		return err
	}
	m.emit(domain.EventArchived, fileID, nil)
	return nil
}

// OrphanFile помечает файл осиротевшим и назначает дату удаления через
// expiryDays дней. Нулевое значение означает срок по умолчанию.
func (m *Manager) OrphanFile(ctx context.Context, fileID string, expiryDays int) (time.Time, error) {
	if expiryDays <= 0 {
		expiryDays = DefaultExpiryDays
	}

	env, err := m.doJSON(ctx, http.MethodPost, "/v1/files/"+fileID+"/orphan", orphanRequest{ExpiryDays: expiryDays})
	if err != nil {
		return time.Time{}, err
	}

	var data orphanData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return time.Time{}, invalidResponse(err)
	}

	m.emit(domain.EventOrphaned, fileID, map[string]interface{}{
		"delete_at": data.DeleteAt,
	})
	return data.DeleteAt, nil
}

// RequestReplacement создает заявку на замену подтвержденного файла
func (m *Manager) RequestReplacement(ctx context.Context, fileID, reason, requestedBy string) (*domain.FileReplacementRequest, error) {
	env, err := m.doJSON(ctx, http.MethodPost, "/v1/replacements", replacementRequestBody{
		FileID:      fileID,
		Reason:      reason,
		RequestedBy: requestedBy,
	})
	if err != nil {
		return nil, err
	}

	var request domain.FileReplacementRequest
	if err := json.Unmarshal(env.Data, &request); err != nil {
		return nil, invalidResponse(err)
	}

	m.mu.Lock()
	m.requests[request.OriginalFileID] = &request
	m.mu.Unlock()

	m.emit(domain.EventReplacementRequested, fileID, map[string]interface{}{
		"request_id": request.ID.String(),
		"reason":     reason,
	})
	return &request, nil
}

// ApproveReplacement одобряет ожидающую заявку на замену файла. Без
// известной PENDING-заявки по этому файлу операция отклоняется локально.
func (m *Manager) ApproveReplacement(ctx context.Context, fileID, newFileID, approvedBy string) (*domain.FileReplacementRequest, error) {
	m.mu.Lock()
	request, ok := m.requests[fileID]
	m.mu.Unlock()

	if !ok || request.Status != domain.ReplacementPending {
		return nil, &upload.Error{
			Code:    upload.ErrCodeUploadFailed,
			Message: fmt.Sprintf("no pending replacement request for file %s", fileID),
			FileID:  fileID,
		}
	}

	env, err := m.doJSON(ctx, http.MethodPost, "/v1/replacements/"+request.ID.String()+"/approve", approveRequestBody{
		NewFileID:  newFileID,
		ApprovedBy: approvedBy,
	})
	if err != nil {
		return nil, err
	}

	var updated domain.FileReplacementRequest
	if err := json.Unmarshal(env.Data, &updated); err != nil {
		return nil, invalidResponse(err)
	}
	if updated.ProcessedAt == nil {
		now := time.Now()
		updated.ProcessedAt = &now
	}

	// Закрытая заявка остается в кэше: повторное одобрение отклоняется локально
	m.mu.Lock()
	m.requests[fileID] = &updated
	m.mu.Unlock()

	m.emit(domain.EventReplacementApproved, fileID, map[string]interface{}{
		"request_id":  updated.ID.String(),
		"new_file_id": newFileID,
	})
	return &updated, nil
}

// RejectReplacement отклоняет заявку на замену по её идентификатору.
// Решение принимает сервер; локальной заявки для этого не требуется, но
// известная заявка в кэше переводится в REJECTED.
func (m *Manager) RejectReplacement(ctx context.Context, requestID, reason string) error {
	if _, err := m.doJSON(ctx, http.MethodPost, "/v1/replacements/"+requestID+"/reject", rejectRequestBody{
		Reason: reason,
	}); err != nil {
		return err
	}

	var fileID string
	now := time.Now()
	m.mu.Lock()
	for _, request := range m.requests {
		if request.ID.String() == requestID {
			request.Status = domain.ReplacementRejected
			request.RejectionReason = &reason
			request.ProcessedAt = &now
			fileID = request.OriginalFileID
			break
		}
	}
	m.mu.Unlock()

	m.emit(domain.EventReplacementRejected, fileID, map[string]interface{}{
		"request_id": requestID,
		"reason":     reason,
	})
	return nil
}

// GetReplacementRequest возвращает заявку на замену по её идентификатору.
// Сначала смотрит в кэш, за неизвестной заявкой идет к серверу.
func (m *Manager) GetReplacementRequest(ctx context.Context, requestID string) (*domain.FileReplacementRequest, error) {
	m.mu.Lock()
	for _, request := range m.requests {
		if request.ID.String() == requestID {
			cached := *request
			m.mu.Unlock()
			return &cached, nil
		}
	}
	m.mu.Unlock()

	env, err := m.doJSON(ctx, http.MethodGet, "/v1/replacements/"+requestID, nil)
	if err != nil {
		return nil, err
	}

	var request domain.FileReplacementRequest
	if err := json.Unmarshal(env.Data, &request); err != nil {
		return nil, invalidResponse(err)
	}
	return &request, nil
}

// GetFileReplacementRequests возвращает все заявки на замену для файла и
// подхватывает ожидающие заявки в локальный кэш
func (m *Manager) GetFileReplacementRequests(ctx context.Context, fileID string) ([]domain.FileReplacementRequest, error) {
	env, err := m.doJSON(ctx, http.MethodGet, "/v1/files/"+fileID+"/replacements", nil)
	if err != nil {
		return nil, err
	}

	var data requestListData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, invalidResponse(err)
	}

	m.mu.Lock()
	for i := range data.Requests {
		request := data.Requests[i]
		if request.Status == domain.ReplacementPending {
			m.requests[request.OriginalFileID] = &request
		}
	}
	m.mu.Unlock()

	return data.Requests, nil
}

func (m *Manager) emit(eventType domain.LifecycleEventType, fileID string, data map[string]interface{}) {
	if m.onEvent == nil {
		return
	}
	m.onEvent(domain.FileLifecycleEvent{
		Type:      eventType,
		FileID:    fileID,
		Timestamp: time.Now(),
		Data:      data,
	})
}

func (m *Manager) doJSON(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, &upload.Error{Code: upload.ErrCodeUploadFailed, Message: "failed to encode request", Err: err}
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+path, reader)
	if err != nil {
		return nil, &upload.Error{Code: upload.ErrCodeUploadFailed, Message: "failed to create request", Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if m.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+m.authToken)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, &upload.Error{Code: upload.ErrCodeNetworkError, Message: "Network error: unable to reach lifecycle API", Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &upload.Error{
			Code:       upload.ErrCodeUploadFailed,
			Message:    fmt.Sprintf("lifecycle API error: %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Body:       string(raw),
		}
	}

	// 204 и пустое тело — успех без конверта
	if resp.StatusCode == http.StatusNoContent || len(raw) == 0 {
		return &envelope{Success: true}, nil
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, invalidResponse(err)
	}
	if !env.Success {
		return nil, &upload.Error{
			Code:       upload.ErrCodeUploadFailed,
			Message:    fmt.Sprintf("lifecycle API error: %s", env.Error),
			StatusCode: resp.StatusCode,
		}
	}
	return &env, nil
}

func invalidResponse(err error) *upload.Error {
	return &upload.Error{Code: upload.ErrCodeUploadFailed, Message: "invalid response from lifecycle API", Err: err}
}
