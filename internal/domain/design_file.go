package domain

import (
	"time"
)

// UploadTarget определяет целевое хранилище для загрузки
type UploadTarget string

const (
	TargetShopby UploadTarget = "SHOPBY"
	TargetS3     UploadTarget = "S3"
)

// Поддерживаемые MIME-типы дизайн-файлов
const (
	MIMETypePDF  = "application/pdf"
	MIMETypeJPEG = "image/jpeg"
	MIMETypePNG  = "image/png"
	MIMETypeTIFF = "image/tiff"
	MIMETypeAI   = "application/postscript"
	MIMETypePSD  = "image/vnd.adobe.photoshop"
)

// SupportedMIMETypes сопоставляет MIME-тип с человекочитаемым названием формата
var SupportedMIMETypes = map[string]string{
	MIMETypePDF:  "PDF",
	MIMETypeJPEG: "JPEG",
	MIMETypePNG:  "PNG",
	MIMETypeTIFF: "TIFF",
	MIMETypeAI:   "AI",
	MIMETypePSD:  "PSD",
}

// ExtensionToMIME сопоставляет расширение файла с MIME-типом
var ExtensionToMIME = map[string]string{
	"pdf":  MIMETypePDF,
	"jpg":  MIMETypeJPEG,
	"jpeg": MIMETypeJPEG,
	"png":  MIMETypePNG,
	"tif":  MIMETypeTIFF,
	"tiff": MIMETypeTIFF,
	"ai":   MIMETypeAI,
	"psd":  MIMETypePSD,
}

// ValidationStatus представляет итог проверки файла
type ValidationStatus string

const (
	ValidationValid    ValidationStatus = "VALID"
	ValidationWarning  ValidationStatus = "WARNING"
	ValidationInvalid  ValidationStatus = "INVALID"
	ValidationScanning ValidationStatus = "SCANNING"
)

// ImageDimensions содержит размеры изображения в пикселях и разрешение
type ImageDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	DPI    int `json:"dpi"`
}

// FileValidationResult содержит результат проверки файла.
// Неизменяем после создания: все замечания попадают в Warnings/Errors.
type FileValidationResult struct {
	Status        ValidationStatus `json:"status"`
	MIMEType      string           `json:"mime_type,omitempty"` // пустая строка = тип не определен
	Extension     string           `json:"extension"`
	Size          int64            `json:"size"`
	SizeFormatted string           `json:"size_formatted"`
	SizeValid     bool             `json:"size_valid"`
	Dimensions    *ImageDimensions `json:"dimensions,omitempty"`
	DPIValid      *bool            `json:"dpi_valid,omitempty"`
	Warnings      []string         `json:"warnings"`
	Errors        []string         `json:"errors"`
}

// UploadState представляет состояние одной загрузки
type UploadState string

const (
	UploadStatePending   UploadState = "pending"
	UploadStateUploading UploadState = "uploading"
	UploadStateCompleted UploadState = "completed"
	UploadStateFailed    UploadState = "failed"
	UploadStateCancelled UploadState = "cancelled"
)

// FileUploadProgress отражает ход одной загрузки.
// Мутируется только владеющим клиентом на время жизни загрузки.
type FileUploadProgress struct {
	UploadID      string       `json:"upload_id"`
	Target        UploadTarget `json:"target"`
	UploadedBytes int64        `json:"uploaded_bytes"`
	TotalBytes    int64        `json:"total_bytes"`
	Percentage    int          `json:"percentage"`
	State         UploadState  `json:"state"`
	Error         string       `json:"error,omitempty"`
	ResultURL     string       `json:"result_url,omitempty"`
	StartedAt     *time.Time   `json:"started_at,omitempty"`
	CompletedAt   *time.Time   `json:"completed_at,omitempty"`
}

// FileUpload представляет содержимое файла, переданное на загрузку
type FileUpload struct {
	Name     string
	MIMEType string // тип, заявленный источником; проверяется по сигнатуре
	Size     int64
	Data     []byte
}

// DesignFile представляет метаданные дизайн-файла
type DesignFile struct {
	ID           string               `json:"id"`
	OriginalName string               `json:"original_name"`
	StandardName string               `json:"standard_name,omitempty"`
	Size         int64                `json:"size"`
	MIMEType     string               `json:"mime_type"`
	Extension    string               `json:"extension"`
	Validation   FileValidationResult `json:"validation"`
	Dimensions   *ImageDimensions     `json:"dimensions,omitempty"`
	URL          string               `json:"url,omitempty"`
	UploadTarget UploadTarget         `json:"upload_target,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
}

// PrintSpec описывает параметры печати для генерации имени файла
type PrintSpec struct {
	ProductType string `json:"product_type"`
	Size        string `json:"size"`
	Sides       string `json:"sides"`
	Material    string `json:"material"`
	Quantity    int    `json:"quantity"`
}

// CustomerInfo описывает данные заказчика для генерации имени файла
type CustomerInfo struct {
	CompanyName  string `json:"company_name,omitempty"`
	CustomerName string `json:"customer_name"`
	FileNumber   int    `json:"file_number,omitempty"`
}
