package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"printdrive/internal/domain"
	"printdrive/internal/repository"
	"printdrive/internal/service"
)

type LinkHandler struct {
	linkService *service.LinkService
}

func NewLinkHandler(linkService *service.LinkService) *LinkHandler {
	return &LinkHandler{linkService: linkService}
}

type attachPayload struct {
	FileID       string  `json:"fileId"`
	OrderID      string  `json:"orderId"`
	OrderItemID  *string `json:"orderItemId,omitempty"`
	FileURL      string  `json:"fileUrl,omitempty"`
	ObjectKey    *string `json:"objectKey,omitempty"`
	OriginalName string  `json:"originalName,omitempty"`
	FileSize     int64   `json:"fileSize,omitempty"`
}

type detachPayload struct {
	FileID  string `json:"fileId"`
	OrderID string `json:"orderId"`
}

type linkEnvelope struct {
	Success bool                  `json:"success"`
	Link    *domain.FileOrderLink `json:"link,omitempty"`
	Error   string                `json:"error,omitempty"`
}

type statusPayload struct {
	Status domain.FileStatus `json:"status"`
}

// AttachFile обрабатывает запрос привязки файла к заказу
func (h *LinkHandler) AttachFile(w http.ResponseWriter, r *http.Request) {
	var req attachPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	link, err := h.linkService.Attach(r.Context(), service.AttachInput{
		FileID:       req.FileID,
		OrderID:      req.OrderID,
		OrderItemID:  req.OrderItemID,
		FileURL:      req.FileURL,
		ObjectKey:    req.ObjectKey,
		OriginalName: req.OriginalName,
		FileSize:     req.FileSize,
	})
	if err != nil {
		log.Printf("Failed to attach file: %v", err)
		writeLinkError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(linkEnvelope{Success: true, Link: link})
}

// DetachFile обрабатывает запрос отвязки файла от заказа
func (h *LinkHandler) DetachFile(w http.ResponseWriter, r *http.Request) {
	var req detachPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.linkService.Detach(r.Context(), req.FileID, req.OrderID); err != nil {
		log.Printf("Failed to detach file: %v", err)
		writeLinkError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(linkEnvelope{Success: true})
}

// GetFileURL обрабатывает запрос URL доступа к файлу
func (h *LinkHandler) GetFileURL(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	url, status, err := h.linkService.GetFileURL(r.Context(), fileID)
	if err != nil {
		log.Printf("Failed to get file URL: %v", err)
		writeLinkError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"url":    url,
		"status": status,
	})
}

// GetOrderFiles обрабатывает запрос списка файлов заказа
func (h *LinkHandler) GetOrderFiles(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	files, err := h.linkService.GetOrderFiles(r.Context(), orderID)
	if err != nil {
		log.Printf("Failed to get order files: %v", err)
		writeLinkError(w, err)
		return
	}
	if files == nil {
		files = []domain.FileOrderLink{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"files": files,
	})
}

// GetFileStatus обрабатывает запрос текущего статуса файла
func (h *LinkHandler) GetFileStatus(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	status, err := h.linkService.GetFileStatus(r.Context(), fileID)
	if err != nil {
		log.Printf("Failed to get file status: %v", err)
		writeLinkError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": status,
	})
}

// UpdateFileStatus обрабатывает запрос смены статуса файла
func (h *LinkHandler) UpdateFileStatus(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")

	var req statusPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.linkService.UpdateStatus(r.Context(), fileID, req.Status); err != nil {
		log.Printf("Failed to update file status: %v", err)
		writeLinkError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeLinkError подбирает HTTP-статус под вид ошибки: отсутствующая
// связь — 404, недопустимый переход — 409, прочее — 500
func writeLinkError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrLinkNotFound):
		status = http.StatusNotFound
	case strings.Contains(err.Error(), "invalid status transition"):
		status = http.StatusConflict
	case strings.Contains(err.Error(), "required"),
		strings.Contains(err.Error(), "unknown file status"),
		strings.Contains(err.Error(), "is not attached"):
		status = http.StatusBadRequest
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(linkEnvelope{Success: false, Error: err.Error()})
}
