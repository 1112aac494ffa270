package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReplacementStatus представляет статус заявки на замену файла
type ReplacementStatus string

const (
	ReplacementPending  ReplacementStatus = "PENDING"
	ReplacementApproved ReplacementStatus = "APPROVED"
	ReplacementRejected ReplacementStatus = "REJECTED"
)

// FileReplacementRequest представляет заявку на замену подтвержденного файла.
// Создается в статусе PENDING; после решения администратора меняются только
// поля, заполняемые ровно один раз при одобрении или отклонении.
type FileReplacementRequest struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	OriginalFileID  string            `json:"original_file_id" db:"original_file_id"`
	NewFileID       *string           `json:"new_file_id,omitempty" db:"new_file_id"`
	Reason          string            `json:"reason" db:"reason"`
	Status          ReplacementStatus `json:"status" db:"status"`
	RequestedBy     string            `json:"requested_by" db:"requested_by"`
	ApprovedBy      *string           `json:"approved_by,omitempty" db:"approved_by"`
	RejectionReason *string           `json:"rejection_reason,omitempty" db:"rejection_reason"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty" db:"processed_at"`
}

// LifecycleEventType представляет тип события жизненного цикла файла
type LifecycleEventType string

const (
	EventConfirmed            LifecycleEventType = "CONFIRMED"
	EventArchived             LifecycleEventType = "ARCHIVED"
	EventOrphaned             LifecycleEventType = "ORPHANED"
	EventReplacementRequested LifecycleEventType = "REPLACEMENT_REQUESTED"
	EventReplacementApproved  LifecycleEventType = "REPLACEMENT_APPROVED"
	EventReplacementRejected  LifecycleEventType = "REPLACEMENT_REJECTED"
)

// FileLifecycleEvent передается внешнему наблюдателю при каждой
// изменяющей состояние операции жизненного цикла
type FileLifecycleEvent struct {
	Type      LifecycleEventType     `json:"type"`
	FileID    string                 `json:"file_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
