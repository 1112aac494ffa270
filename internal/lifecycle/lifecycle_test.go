package lifecycle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printdrive/internal/domain"
	"printdrive/internal/upload"
)

type fakeLifecycleAPI struct {
	server      *httptest.Server
	approveHits int32
	rejectHits  int32
	requestID   uuid.UUID
	expiryDays  int
}

func newFakeLifecycleAPI(t *testing.T) *fakeLifecycleAPI {
	f := &fakeLifecycleAPI{requestID: uuid.New()}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/files/file-1/confirm", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    map[string]interface{}{"status": domain.FileStatusConfirmed},
		})
	})
	mux.HandleFunc("/v1/files/file-1/archive", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})
	mux.HandleFunc("/v1/files/file-1/orphan", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExpiryDays int `json:"expiryDays"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.expiryDays = req.ExpiryDays

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"deleteAt": time.Now().AddDate(0, 0, req.ExpiryDays).Format(time.RFC3339),
			},
		})
	})
	mux.HandleFunc("/v1/replacements", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FileID      string `json:"fileId"`
			Reason      string `json:"reason"`
			RequestedBy string `json:"requestedBy"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": domain.FileReplacementRequest{
				ID:             f.requestID,
				OriginalFileID: req.FileID,
				Reason:         req.Reason,
				Status:         domain.ReplacementPending,
				RequestedBy:    req.RequestedBy,
				CreatedAt:      time.Now(),
			},
		})
	})
	mux.HandleFunc("/v1/replacements/"+f.requestID.String()+"/approve", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.approveHits, 1)

		var req struct {
			NewFileID  string `json:"newFileId"`
			ApprovedBy string `json:"approvedBy"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": domain.FileReplacementRequest{
				ID:             f.requestID,
				OriginalFileID: "file-1",
				NewFileID:      &req.NewFileID,
				Status:         domain.ReplacementApproved,
				ApprovedBy:     &req.ApprovedBy,
			},
		})
	})
	mux.HandleFunc("/v1/replacements/"+f.requestID.String()+"/reject", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.rejectHits, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
	})
	mux.HandleFunc("/v1/files/file-1/replacements", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"requests": []domain.FileReplacementRequest{
					{ID: f.requestID, OriginalFileID: "file-1", Status: domain.ReplacementPending},
				},
			},
		})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeLifecycleAPI) manager(onEvent EventCallback) *Manager {
	return NewManager(Config{BaseURL: f.server.URL, OnEvent: onEvent})
}

func TestConfirmFileEmitsEvent(t *testing.T) {
	api := newFakeLifecycleAPI(t)

	var events []domain.FileLifecycleEvent
	m := api.manager(func(e domain.FileLifecycleEvent) { events = append(events, e) })

	status, err := m.ConfirmFile(context.Background(), "file-1")

	require.NoError(t, err)
	assert.Equal(t, domain.FileStatusConfirmed, status)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventConfirmed, events[0].Type)
	assert.Equal(t, "file-1", events[0].FileID)
}

func TestArchiveFile(t *testing.T) {
	api := newFakeLifecycleAPI(t)

	var events []domain.FileLifecycleEvent
	m := api.manager(func(e domain.FileLifecycleEvent) { events = append(events, e) })

	require.NoError(t, m.ArchiveFile(context.Background(), "file-1"))
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventArchived, events[0].Type)
}

func TestOrphanFileDefaultExpiry(t *testing.T) {
	api := newFakeLifecycleAPI(t)
	m := api.manager(nil)

	deleteAt, err := m.OrphanFile(context.Background(), "file-1", 0)

	require.NoError(t, err)
	assert.Equal(t, DefaultExpiryDays, api.expiryDays)
	assert.True(t, deleteAt.After(time.Now()))
}

func TestOrphanFileCustomExpiry(t *testing.T) {
	api := newFakeLifecycleAPI(t)
	m := api.manager(nil)

	_, err := m.OrphanFile(context.Background(), "file-1", 7)

	require.NoError(t, err)
	assert.Equal(t, 7, api.expiryDays)
}

func TestApproveWithoutPendingRequestFailsLocally(t *testing.T) {
	api := newFakeLifecycleAPI(t)
	m := api.manager(nil)

	_, err := m.ApproveReplacement(context.Background(), "file-1", "file-2", "admin")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no pending replacement request")
	assert.Equal(t, int32(0), atomic.LoadInt32(&api.approveHits))
}

func TestRequestThenApproveReplacement(t *testing.T) {
	api := newFakeLifecycleAPI(t)

	var events []domain.FileLifecycleEvent
	m := api.manager(func(e domain.FileLifecycleEvent) { events = append(events, e) })

	request, err := m.RequestReplacement(context.Background(), "file-1", "wrong color profile", "customer-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplacementPending, request.Status)

	approved, err := m.ApproveReplacement(context.Background(), "file-1", "file-2", "admin")
	require.NoError(t, err)
	assert.Equal(t, domain.ReplacementApproved, approved.Status)
	require.NotNil(t, approved.NewFileID)
	assert.Equal(t, "file-2", *approved.NewFileID)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.approveHits))

	require.Len(t, events, 2)
	assert.Equal(t, domain.EventReplacementRequested, events[0].Type)
	assert.Equal(t, domain.EventReplacementApproved, events[1].Type)

	// Кэш хранит закрытую заявку: чтение обходится без сервера
	cached, err := m.GetReplacementRequest(context.Background(), request.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.ReplacementApproved, cached.Status)
	require.NotNil(t, cached.ProcessedAt)

	// Повторное одобрение отклоняется без обращения к серверу
	_, err = m.ApproveReplacement(context.Background(), "file-1", "file-3", "admin")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.approveHits))
}

func TestRejectReplacementUpdatesCachedRequest(t *testing.T) {
	api := newFakeLifecycleAPI(t)

	var events []domain.FileLifecycleEvent
	m := api.manager(func(e domain.FileLifecycleEvent) { events = append(events, e) })

	request, err := m.RequestReplacement(context.Background(), "file-1", "wrong color profile", "customer-1")
	require.NoError(t, err)

	require.NoError(t, m.RejectReplacement(context.Background(), request.ID.String(), "file is fine"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.rejectHits))

	require.Len(t, events, 2)
	assert.Equal(t, domain.EventReplacementRejected, events[1].Type)
	assert.Equal(t, "file-1", events[1].FileID)

	// Кэш переведен в REJECTED: чтение обходится без сервера
	cached, err := m.GetReplacementRequest(context.Background(), request.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.ReplacementRejected, cached.Status)
	require.NotNil(t, cached.RejectionReason)
	assert.Equal(t, "file is fine", *cached.RejectionReason)
	require.NotNil(t, cached.ProcessedAt)
}

func TestRejectReplacementWithoutLocalState(t *testing.T) {
	api := newFakeLifecycleAPI(t)
	m := api.manager(nil)

	// Отклонить заявку может и менеджер, который её не создавал
	err := m.RejectReplacement(context.Background(), api.requestID.String(), "duplicate request")

	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.rejectHits))
}

func TestGetFileReplacementRequestsRefreshesPendingCache(t *testing.T) {
	api := newFakeLifecycleAPI(t)
	m := api.manager(nil)

	requests, err := m.GetFileReplacementRequests(context.Background(), "file-1")
	require.NoError(t, err)
	require.Len(t, requests, 1)

	// Ожидающая заявка подхвачена из списка: одобрение возможно
	_, err = m.ApproveReplacement(context.Background(), "file-1", "file-2", "admin")
	require.NoError(t, err)
}

func TestArchiveFileAcceptsNoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(server.Close)

	var events []domain.FileLifecycleEvent
	m := NewManager(Config{BaseURL: server.URL, OnEvent: func(e domain.FileLifecycleEvent) { events = append(events, e) }})

	// 204 без тела — пустой успешный ответ
	require.NoError(t, m.ArchiveFile(context.Background(), "file-1"))
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventArchived, events[0].Type)
}

func TestEnvelopeFailureSurfacesTypedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "invalid status transition"})
	}))
	t.Cleanup(server.Close)

	m := NewManager(Config{BaseURL: server.URL})

	_, err := m.ConfirmFile(context.Background(), "file-1")

	require.Error(t, err)
	var ue *upload.Error
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, upload.ErrCodeUploadFailed, ue.Code)
	assert.Equal(t, http.StatusConflict, ue.StatusCode)
}
