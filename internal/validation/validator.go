package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/h2non/bimg"

	"printdrive/internal/domain"
)

const (
	// Количество байт, читаемых для определения типа по сигнатуре
	headerSize = 16

	// DefaultMinDPI — минимальное рекомендуемое разрешение для печати
	DefaultMinDPI = 300

	// Разрешение по умолчанию: достоверно извлечь DPI на стороне клиента
	// нельзя, поэтому без переопределения принимается экранное значение.
	// Это документированное ограничение, а не дефект.
	fallbackDPI = 72
)

// signature связывает MIME-тип с его magic-byte сигнатурой
type signature struct {
	mimeType string
	bytes    []byte
}

// Таблица сигнатур проверяется по порядку. У TIFF два допустимых порядка
// байт, отображаемых в один тип.
var magicSignatures = []signature{
	{domain.MIMETypePDF, []byte{0x25, 0x50, 0x44, 0x46}},  // %PDF
	{domain.MIMETypeJPEG, []byte{0xFF, 0xD8, 0xFF}},       // JPEG
	{domain.MIMETypePNG, []byte{0x89, 0x50, 0x4E, 0x47}},  // PNG
	{domain.MIMETypeTIFF, []byte{0x49, 0x49, 0x2A, 0x00}}, // TIFF little-endian
	{domain.MIMETypeTIFF, []byte{0x4D, 0x4D, 0x00, 0x2A}}, // TIFF big-endian
	{domain.MIMETypeAI, []byte{0x25, 0x21, 0x50, 0x53}},   // %!PS
	{domain.MIMETypePSD, []byte{0x38, 0x42, 0x50, 0x53}},  // 8BPS
}

// DPIResolver извлекает DPI из содержимого файла. Возвращает 0, если
// разрешение неизвестно.
type DPIResolver func(data []byte) int

// Validator проверяет дизайн-файлы: тип по сигнатуре, размер и разрешение
type Validator struct {
	minDPI      int
	dpiResolver DPIResolver
}

func NewValidator(minDPI int) *Validator {
	if minDPI <= 0 {
		minDPI = DefaultMinDPI
	}
	return &Validator{minDPI: minDPI}
}

// SetDPIResolver задает внешний способ извлечения DPI (например, разбор EXIF
// на стороне сервера) вместо значения по умолчанию
func (v *Validator) SetDPIResolver(resolver DPIResolver) {
	v.dpiResolver = resolver
}

// ValidateMIMEType определяет тип файла по первым 16 байтам содержимого.
// Возвращает пустую строку, если ни одна сигнатура не совпала; расширение
// на этом уровне не учитывается.
func (v *Validator) ValidateMIMEType(data []byte) string {
	header := data
	if len(header) > headerSize {
		header = header[:headerSize]
	}

	for _, sig := range magicSignatures {
		if matchesSignature(header, sig.bytes) {
			return sig.mimeType
		}
	}
	return ""
}

// ValidateSize проверяет, что размер файла положителен и не превышает лимит
func (v *Validator) ValidateSize(size, maxSize int64) bool {
	return size > 0 && size <= maxSize
}

// ValidateResolution читает пиксельные размеры изображения. Применимо только
// к графическим типам; для остальных возвращается nil.
func (v *Validator) ValidateResolution(file *domain.FileUpload) *domain.ImageDimensions {
	if !isImageType(file.MIMEType) {
		return nil
	}

	size, err := bimg.NewImage(file.Data).Size()
	if err != nil {
		return nil
	}

	dpi := fallbackDPI
	if v.dpiResolver != nil {
		if resolved := v.dpiResolver(file.Data); resolved > 0 {
			dpi = resolved
		}
	}

	return &domain.ImageDimensions{
		Width:  size.Width,
		Height: size.Height,
		DPI:    dpi,
	}
}

// ValidateFile выполняет полную проверку файла. Никогда не возвращает ошибку
// как значение: все найденные проблемы попадают в Warnings и Errors
// результата, чтобы вызывающий мог показать частичную диагностику.
func (v *Validator) ValidateFile(file *domain.FileUpload, maxSize int64) domain.FileValidationResult {
	warnings := []string{}
	errors := []string{}

	extension := ExtractExtension(file.Name)

	detected := v.ValidateMIMEType(file.Data)
	finalMIMEType := detected

	if detected == "" {
		// Сигнатура не распознана: откатываемся к типу по расширению
		finalMIMEType = domain.ExtensionToMIME[extension]
		if finalMIMEType == "" {
			errors = append(errors, fmt.Sprintf(
				"Unsupported file type. Supported formats: %s", supportedFormats()))
		} else {
			warnings = append(warnings,
				"Could not verify file type from content. Using extension-based detection.")
		}
	} else if file.MIMEType != "" && file.MIMEType != detected {
		if _, known := domain.SupportedMIMETypes[file.MIMEType]; known {
			warnings = append(warnings, fmt.Sprintf(
				"File type mismatch: declared type is %s, content indicates %s",
				file.MIMEType, detected))
		}
	}

	sizeValid := v.ValidateSize(file.Size, maxSize)
	if !sizeValid {
		if file.Size == 0 {
			errors = append(errors, "File is empty")
		} else {
			errors = append(errors, fmt.Sprintf(
				"File size (%s) exceeds maximum allowed (%s)",
				FormatSize(file.Size), FormatSize(maxSize)))
		}
	}

	var dimensions *domain.ImageDimensions
	var dpiValid *bool

	if finalMIMEType != "" && isImageType(finalMIMEType) {
		probe := &domain.FileUpload{Name: file.Name, MIMEType: finalMIMEType, Size: file.Size, Data: file.Data}
		if resolution := v.ValidateResolution(probe); resolution != nil {
			dimensions = resolution
			valid := resolution.DPI >= v.minDPI
			dpiValid = &valid

			if !valid {
				warnings = append(warnings, fmt.Sprintf(
					"Image resolution (%d DPI) is below recommended minimum (%d DPI) for print quality",
					resolution.DPI, v.minDPI))
			}
		}
	}

	status := domain.ValidationValid
	if len(errors) > 0 {
		status = domain.ValidationInvalid
	} else if len(warnings) > 0 {
		status = domain.ValidationWarning
	}

	return domain.FileValidationResult{
		Status:        status,
		MIMEType:      finalMIMEType,
		Extension:     extension,
		Size:          file.Size,
		SizeFormatted: FormatSize(file.Size),
		SizeValid:     sizeValid,
		Dimensions:    dimensions,
		DPIValid:      dpiValid,
		Warnings:      warnings,
		Errors:        errors,
	}
}

// ExtractExtension возвращает расширение файла в нижнем регистре без точки
func ExtractExtension(filename string) string {
	lastDot := strings.LastIndex(filename, ".")
	if lastDot == -1 || lastDot == len(filename)-1 {
		return ""
	}
	return strings.ToLower(filename[lastDot+1:])
}

// FormatSize форматирует размер файла в человекочитаемый вид
func FormatSize(bytes int64) string {
	units := []string{"B", "KB", "MB", "GB"}
	size := float64(bytes)
	unitIndex := 0

	for size >= 1024 && unitIndex < len(units)-1 {
		size /= 1024
		unitIndex++
	}

	if unitIndex == 0 {
		return fmt.Sprintf("%d %s", bytes, units[0])
	}
	return fmt.Sprintf("%.1f %s", size, units[unitIndex])
}

func matchesSignature(data, sig []byte) bool {
	if len(data) < len(sig) {
		return false
	}
	for i := range sig {
		if data[i] != sig[i] {
			return false
		}
	}
	return true
}

func isImageType(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

func supportedFormats() string {
	names := make([]string, 0, len(domain.SupportedMIMETypes))
	for _, name := range domain.SupportedMIMETypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
