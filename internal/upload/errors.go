package upload

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode — явный дискриминатор вида ошибки загрузки
type ErrorCode string

const (
	ErrCodeFileTooLarge     ErrorCode = "FILE_TOO_LARGE"
	ErrCodeInvalidType      ErrorCode = "INVALID_TYPE"
	ErrCodeInvalidMagicByte ErrorCode = "INVALID_MAGIC_BYTES"
	ErrCodeLowResolution    ErrorCode = "LOW_RESOLUTION"
	ErrCodeUploadFailed     ErrorCode = "UPLOAD_FAILED"
	ErrCodeNetworkError     ErrorCode = "NETWORK_ERROR"
	ErrCodeShopbyError      ErrorCode = "SHOPBY_ERROR"
	ErrCodeS3Error          ErrorCode = "S3_ERROR"
	ErrCodeCancelled        ErrorCode = "CANCELLED"
)

// Error — типизированная ошибка подсистемы загрузки. Вид ошибки хранится
// явно в Code и различается только через errors.As, а не по форме значения.
type Error struct {
	Code       ErrorCode
	Message    string
	FileID     string // идентификатор файла, если известен
	PartNumber int    // номер части multipart-загрузки, если применимо
	StatusCode int    // HTTP-статус, если применимо
	Body       string // сырое тело ответа, если применимо
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.PartNumber > 0 {
		msg = fmt.Sprintf("%s (part %d)", msg, e.PartNumber)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// IsCode сообщает, является ли err типизированной ошибкой с данным кодом
func IsCode(err error, code ErrorCode) bool {
	var ue *Error
	return errors.As(err, &ue) && ue.Code == code
}

// normalizeError приводит любое значение ошибки к *Error. Уже типизированные
// ошибки проходят без изменений; отмена контекста становится CANCELLED,
// остальное — UPLOAD_FAILED.
func normalizeError(err error) *Error {
	var ue *Error
	if errors.As(err, &ue) {
		return ue
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: ErrCodeCancelled, Message: "upload cancelled", Err: err}
	}
	return &Error{Code: ErrCodeUploadFailed, Message: err.Error(), Err: err}
}

// transportError классифицирует ошибку исполнения HTTP-запроса: отмена
// контекста — CANCELLED, всё остальное — сетевой класс
func transportError(ctx context.Context, err error, message string) *Error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Error{Code: ErrCodeCancelled, Message: "upload cancelled", Err: err}
	}
	return &Error{Code: ErrCodeNetworkError, Message: message, Err: err}
}
