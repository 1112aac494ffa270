package handler

import (
	"encoding/json"
	"log"
	"net/http"

	"printdrive/internal/service"
	"printdrive/internal/service/s3"
)

type PresignHandler struct {
	presignService *service.PresignService
}

func NewPresignHandler(presignService *service.PresignService) *PresignHandler {
	return &PresignHandler{presignService: presignService}
}

type presignURLRequest struct {
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MIMEType string `json:"mimeType"`
}

type initiateMultipartRequest struct {
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	MIMEType   string `json:"mimeType"`
	TotalParts int    `json:"totalParts"`
}

type completedPartPayload struct {
	PartNumber int    `json:"partNumber"`
	ETag       string `json:"eTag"`
}

type completeMultipartRequest struct {
	UploadID  string                 `json:"uploadId"`
	ObjectKey string                 `json:"objectKey"`
	Parts     []completedPartPayload `json:"parts"`
}

type abortMultipartRequest struct {
	UploadID  string `json:"uploadId"`
	ObjectKey string `json:"objectKey"`
}

// GeneratePresignedURL обрабатывает запрос одиночной presigned-ссылки
func (h *PresignHandler) GeneratePresignedURL(w http.ResponseWriter, r *http.Request) {
	var req presignURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	presigned, err := h.presignService.GeneratePresignedURL(r.Context(), req.FileName, req.MIMEType, req.FileSize)
	if err != nil {
		log.Printf("Failed to generate presigned URL: %v", err)
		http.Error(w, "Failed to generate presigned URL", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(presigned)
}

// InitiateMultipart обрабатывает запрос инициации multipart-сессии
func (h *PresignHandler) InitiateMultipart(w http.ResponseWriter, r *http.Request) {
	var req initiateMultipartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	session, err := h.presignService.InitiateMultipart(r.Context(), req.FileName, req.MIMEType, req.FileSize, req.TotalParts)
	if err != nil {
		log.Printf("Failed to initiate multipart upload: %v", err)
		http.Error(w, "Failed to initiate multipart upload", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(session)
}

// CompleteMultipart обрабатывает запрос завершения multipart-сессии
func (h *PresignHandler) CompleteMultipart(w http.ResponseWriter, r *http.Request) {
	var req completeMultipartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	parts := make([]s3.CompletedPart, 0, len(req.Parts))
	for _, part := range req.Parts {
		parts = append(parts, s3.CompletedPart{PartNumber: part.PartNumber, ETag: part.ETag})
	}

	result, err := h.presignService.CompleteMultipart(r.Context(), req.UploadID, req.ObjectKey, parts)
	if err != nil {
		log.Printf("Failed to complete multipart upload: %v", err)
		http.Error(w, "Failed to complete multipart upload", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// AbortMultipart обрабатывает запрос отмены multipart-сессии
func (h *PresignHandler) AbortMultipart(w http.ResponseWriter, r *http.Request) {
	var req abortMultipartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("Failed to decode request: %v", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.presignService.AbortMultipart(r.Context(), req.UploadID, req.ObjectKey); err != nil {
		log.Printf("Failed to abort multipart upload: %v", err)
		http.Error(w, "Failed to abort multipart upload", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
}
