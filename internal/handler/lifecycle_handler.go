package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"printdrive/internal/domain"
	"printdrive/internal/repository"
	"printdrive/internal/service"
)

type LifecycleHandler struct {
	lifecycleService *service.LifecycleService
}

func NewLifecycleHandler(lifecycleService *service.LifecycleService) *LifecycleHandler {
	return &LifecycleHandler{lifecycleService: lifecycleService}
}

type lifecycleEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type orphanPayload struct {
	ExpiryDays int `json:"expiryDays"`
}

type replacementPayload struct {
	FileID      string `json:"fileId"`
	Reason      string `json:"reason"`
	RequestedBy string `json:"requestedBy"`
}

type approvePayload struct {
	NewFileID  string `json:"newFileId"`
	ApprovedBy string `json:"approvedBy"`
}

type rejectPayload struct {
	Reason string `json:"reason"`
}

// ConfirmFile обрабатывает запрос подтверждения файла
func (h *LifecycleHandler) ConfirmFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	status, err := h.lifecycleService.Confirm(r.Context(), fileID)
	if err != nil {
		log.Printf("Failed to confirm file: %v", err)
		writeLifecycleError(w, err)
		return
	}

	writeLifecycleJSON(w, lifecycleEnvelope{Success: true, Data: map[string]interface{}{
		"status": status,
	}})
}

// ArchiveFile обрабатывает запрос архивации файла
func (h *LifecycleHandler) ArchiveFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	if err := h.lifecycleService.Archive(r.Context(), fileID); err != nil {
		log.Printf("Failed to archive file: %v", err)
		writeLifecycleError(w, err)
		return
	}

	writeLifecycleJSON(w, lifecycleEnvelope{Success: true})
}

// OrphanFile обрабатывает запрос пометки файла осиротевшим
func (h *LifecycleHandler) OrphanFile(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	var req orphanPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("Failed to decode request: %v", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	deleteAt, err := h.lifecycleService.Orphan(r.Context(), fileID, req.ExpiryDays)
	if err != nil {
		log.Printf("Failed to orphan file: %v", err)
		writeLifecycleError(w, err)
		return
	}

	writeLifecycleJSON(w, lifecycleEnvelope{Success: true, Data: map[string]interface{}{
		"deleteAt": deleteAt.Format(time.RFC3339),
	}})
}

// RequestReplacement обрабатывает запрос создания заявки на замену
func (h *LifecycleHandler) RequestReplacement(w http.ResponseWriter, r *http.Request) {
	var req replacementPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.lifecycleService.RequestReplacement(r.Context(), req.FileID, req.Reason, req.RequestedBy)
	if err != nil {
		log.Printf("Failed to create replacement request: %v", err)
		writeLifecycleError(w, err)
		return
	}

	writeLifecycleJSON(w, lifecycleEnvelope{Success: true, Data: request})
}

// ApproveReplacement обрабатывает запрос одобрения заявки на замену
func (h *LifecycleHandler) ApproveReplacement(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		http.Error(w, "Invalid request id", http.StatusBadRequest)
		return
	}

	var req approvePayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	request, err := h.lifecycleService.ApproveReplacement(r.Context(), requestID, req.NewFileID, req.ApprovedBy)
	if err != nil {
		log.Printf("Failed to approve replacement request: %v", err)
		writeLifecycleError(w, err)
		return
	}

	writeLifecycleJSON(w, lifecycleEnvelope{Success: true, Data: request})
}

// RejectReplacement обрабатывает запрос отклонения заявки на замену
func (h *LifecycleHandler) RejectReplacement(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		http.Error(w, "Invalid request id", http.StatusBadRequest)
		return
	}

	var req rejectPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.lifecycleService.RejectReplacement(r.Context(), requestID, req.Reason); err != nil {
		log.Printf("Failed to reject replacement request: %v", err)
		writeLifecycleError(w, err)
		return
	}

	writeLifecycleJSON(w, lifecycleEnvelope{Success: true})
}

// GetReplacementRequest обрабатывает запрос заявки по идентификатору
func (h *LifecycleHandler) GetReplacementRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		http.Error(w, "Invalid request id", http.StatusBadRequest)
		return
	}

	request, err := h.lifecycleService.GetReplacementRequest(r.Context(), requestID)
	if err != nil {
		log.Printf("Failed to get replacement request: %v", err)
		writeLifecycleError(w, err)
		return
	}

	writeLifecycleJSON(w, lifecycleEnvelope{Success: true, Data: request})
}

// GetFileReplacementRequests обрабатывает запрос всех заявок по файлу
func (h *LifecycleHandler) GetFileReplacementRequests(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	requests, err := h.lifecycleService.GetFileReplacementRequests(r.Context(), fileID)
	if err != nil {
		log.Printf("Failed to get replacement requests: %v", err)
		writeLifecycleError(w, err)
		return
	}
	if requests == nil {
		requests = []domain.FileReplacementRequest{}
	}

	writeLifecycleJSON(w, lifecycleEnvelope{Success: true, Data: map[string]interface{}{
		"requests": requests,
	}})
}

func writeLifecycleJSON(w http.ResponseWriter, env lifecycleEnvelope) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(env)
}

func writeLifecycleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrLinkNotFound),
		errors.Is(err, repository.ErrReplacementNotFound):
		status = http.StatusNotFound
	case strings.Contains(err.Error(), "invalid status transition"),
		strings.Contains(err.Error(), "is not pending"),
		strings.Contains(err.Error(), "is not confirmed"):
		status = http.StatusConflict
	case strings.Contains(err.Error(), "required"):
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(lifecycleEnvelope{Success: false, Error: err.Error()})
}
