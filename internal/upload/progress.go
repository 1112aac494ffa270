package upload

import (
	"io"
	"sync"

	"printdrive/internal/domain"
)

// ProgressCallback вызывается на каждое изменение хода загрузки
type ProgressCallback func(domain.FileUploadProgress)

// ProgressRegistry хранит состояние активных загрузок. Реестр принадлежит
// координатору и передается через конструктор; записи создаются, обновляются
// и удаляются только по каноническому ключу uploadId.
type ProgressRegistry struct {
	mu      sync.Mutex
	uploads map[string]domain.FileUploadProgress
}

func NewProgressRegistry() *ProgressRegistry {
	return &ProgressRegistry{
		uploads: make(map[string]domain.FileUploadProgress),
	}
}

// Set сохраняет снимок хода загрузки
func (r *ProgressRegistry) Set(progress domain.FileUploadProgress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads[progress.UploadID] = progress
}

// Get возвращает текущий снимок хода загрузки
func (r *ProgressRegistry) Get(uploadID string) (domain.FileUploadProgress, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	progress, ok := r.uploads[uploadID]
	return progress, ok
}

// Delete удаляет запись о загрузке
func (r *ProgressRegistry) Delete(uploadID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.uploads, uploadID)
}

// Cancel помечает активную загрузку отмененной и убирает её из реестра.
// Отмена кооперативная: транспортный запрос при этом не прерывается.
func (r *ProgressRegistry) Cancel(uploadID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	progress, ok := r.uploads[uploadID]
	if !ok {
		return false
	}
	if progress.State != domain.UploadStateUploading && progress.State != domain.UploadStatePending {
		return false
	}

	delete(r.uploads, uploadID)
	return true
}

// countingReader оборачивает io.Reader и сообщает количество прочитанных байт
type countingReader struct {
	reader io.Reader
	read   int64
	report func(read int64)
}

func newCountingReader(reader io.Reader, report func(read int64)) *countingReader {
	return &countingReader{reader: reader, report: report}
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	if n > 0 {
		c.read += int64(n)
		if c.report != nil {
			c.report(c.read)
		}
	}
	return n, err
}
