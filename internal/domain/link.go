package domain

import (
	"time"

	"github.com/google/uuid"
)

// FileStatus представляет статус файла в жизненном цикле заказа
type FileStatus string

const (
	FileStatusPending   FileStatus = "PENDING"
	FileStatusAttached  FileStatus = "ATTACHED"
	FileStatusConfirmed FileStatus = "CONFIRMED"
	FileStatusOrphaned  FileStatus = "ORPHANED" // терминальный статус
)

// fileTransitions задает единственную таблицу допустимых переходов статуса.
// Других путей мутации статуса не существует.
var fileTransitions = map[FileStatus][]FileStatus{
	FileStatusPending:   {FileStatusAttached, FileStatusOrphaned},
	FileStatusAttached:  {FileStatusConfirmed, FileStatusPending, FileStatusOrphaned},
	FileStatusConfirmed: {FileStatusOrphaned},
	FileStatusOrphaned:  {},
}

// CanTransitionTo сообщает, допустим ли переход из текущего статуса в next
func (s FileStatus) CanTransitionTo(next FileStatus) bool {
	for _, allowed := range fileTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid сообщает, является ли значение известным статусом
func (s FileStatus) IsValid() bool {
	_, ok := fileTransitions[s]
	return ok
}

// FileOrderLink связывает загруженный файл с заказом
type FileOrderLink struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	FileID       string     `json:"file_id" db:"file_id"`
	OrderID      string     `json:"order_id" db:"order_id"`
	OrderItemID  *string    `json:"order_item_id,omitempty" db:"order_item_id"`
	Status       FileStatus `json:"status" db:"status"`
	FileURL      string     `json:"file_url" db:"file_url"`
	ObjectKey    *string    `json:"object_key,omitempty" db:"object_key"`
	OriginalName string     `json:"original_name" db:"original_name"`
	FileSize     int64      `json:"file_size" db:"file_size"`
	Archived     bool       `json:"archived" db:"archived"`
	DeleteAt     *time.Time `json:"delete_at,omitempty" db:"delete_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}
