package validation

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printdrive/internal/domain"
)

// 1x1 прозрачный PNG
const tinyPNGBase64 = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mP8z8BQDwAEhQGAhKmMIQAAAABJRU5ErkJggg=="

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(tinyPNGBase64)
	require.NoError(t, err)
	return data
}

func pad(sig []byte) []byte {
	data := make([]byte, 64)
	copy(data, sig)
	return data
}

func TestValidateMIMEType_Signatures(t *testing.T) {
	v := NewValidator(0)

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"PDF", pad([]byte("%PDF-1.7")), domain.MIMETypePDF},
		{"JPEG", pad([]byte{0xFF, 0xD8, 0xFF, 0xE0}), domain.MIMETypeJPEG},
		{"PNG", pad([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}), domain.MIMETypePNG},
		{"TIFF little-endian", pad([]byte{0x49, 0x49, 0x2A, 0x00}), domain.MIMETypeTIFF},
		{"TIFF big-endian", pad([]byte{0x4D, 0x4D, 0x00, 0x2A}), domain.MIMETypeTIFF},
		{"AI", pad([]byte("%!PS-Adobe")), domain.MIMETypeAI},
		{"PSD", pad([]byte("8BPS")), domain.MIMETypePSD},
		{"unknown", pad([]byte{0x00, 0x01, 0x02, 0x03}), ""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.ValidateMIMEType(tt.data))
		})
	}
}

func TestValidateFile_ExtensionDoesNotOverrideContent(t *testing.T) {
	v := NewValidator(0)

	// Содержимое JPEG под именем .png: тип определяется по сигнатуре
	file := &domain.FileUpload{
		Name: "design.png",
		Size: 64,
		Data: pad([]byte{0xFF, 0xD8, 0xFF, 0xE0}),
	}

	result := v.ValidateFile(file, 1024)
	assert.Equal(t, domain.MIMETypeJPEG, result.MIMEType)
	assert.Equal(t, "png", result.Extension)
}

func TestValidateFile_ExtensionFallback(t *testing.T) {
	v := NewValidator(0)

	file := &domain.FileUpload{
		Name: "design.pdf",
		Size: 64,
		Data: pad([]byte{0x00, 0x01, 0x02}),
	}

	result := v.ValidateFile(file, 1024)
	assert.Equal(t, domain.ValidationWarning, result.Status)
	assert.Equal(t, domain.MIMETypePDF, result.MIMEType)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "extension-based detection")
}

func TestValidateFile_UnknownTypeRejected(t *testing.T) {
	v := NewValidator(0)

	file := &domain.FileUpload{
		Name: "design.docx",
		Size: 64,
		Data: pad([]byte{0x00, 0x01, 0x02}),
	}

	result := v.ValidateFile(file, 1024)
	assert.Equal(t, domain.ValidationInvalid, result.Status)
	assert.Empty(t, result.MIMEType)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "Unsupported file type")
}

func TestValidateFile_DeclaredTypeMismatchWarning(t *testing.T) {
	v := NewValidator(0)

	file := &domain.FileUpload{
		Name:     "design.png",
		MIMEType: domain.MIMETypePNG,
		Size:     64,
		Data:     pad([]byte{0xFF, 0xD8, 0xFF, 0xE0}),
	}

	result := v.ValidateFile(file, 1024)
	assert.Equal(t, domain.ValidationWarning, result.Status)
	require.NotEmpty(t, result.Warnings)
	assert.Contains(t, result.Warnings[0], "mismatch")
}

func TestValidateFile_UnknownDeclaredTypeNoWarning(t *testing.T) {
	v := NewValidator(0)

	// Заявленный тип неизвестен системе: расхождение не считается замечанием
	file := &domain.FileUpload{
		Name:     "design.pdf",
		MIMEType: "application/x-custom",
		Size:     64,
		Data:     pad([]byte("%PDF-1.7")),
	}

	result := v.ValidateFile(file, 1024)
	assert.Equal(t, domain.ValidationValid, result.Status)
	assert.Empty(t, result.Warnings)
}

func TestValidateFile_EmptyFile(t *testing.T) {
	v := NewValidator(0)

	file := &domain.FileUpload{Name: "design.pdf", Size: 0, Data: nil}

	result := v.ValidateFile(file, 1024)
	assert.Equal(t, domain.ValidationInvalid, result.Status)
	assert.False(t, result.SizeValid)
	assert.Contains(t, result.Errors, "File is empty")
}

func TestValidateFile_Oversize(t *testing.T) {
	v := NewValidator(0)

	file := &domain.FileUpload{
		Name: "design.pdf",
		Size: 2048,
		Data: pad([]byte("%PDF-1.7")),
	}

	result := v.ValidateFile(file, 1024)
	assert.Equal(t, domain.ValidationInvalid, result.Status)
	assert.False(t, result.SizeValid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "exceeds maximum allowed")
}

func TestValidateResolution_NonImageReturnsNil(t *testing.T) {
	v := NewValidator(0)

	file := &domain.FileUpload{
		Name:     "design.pdf",
		MIMEType: domain.MIMETypePDF,
		Data:     pad([]byte("%PDF-1.7")),
	}

	assert.Nil(t, v.ValidateResolution(file))
}

func TestValidateFile_ImageDimensionsAndDPIWarning(t *testing.T) {
	v := NewValidator(300)
	data := tinyPNG(t)

	file := &domain.FileUpload{
		Name: "design.png",
		Size: int64(len(data)),
		Data: data,
	}

	result := v.ValidateFile(file, 1024*1024)

	require.NotNil(t, result.Dimensions)
	assert.Equal(t, 1, result.Dimensions.Width)
	assert.Equal(t, 1, result.Dimensions.Height)
	// Без внешнего резолвера DPI принимается экранное значение — ниже минимума
	assert.Equal(t, 72, result.Dimensions.DPI)
	require.NotNil(t, result.DPIValid)
	assert.False(t, *result.DPIValid)
	assert.Equal(t, domain.ValidationWarning, result.Status)
}

func TestValidateFile_DPIResolverOverride(t *testing.T) {
	v := NewValidator(300)
	v.SetDPIResolver(func(data []byte) int { return 350 })
	data := tinyPNG(t)

	file := &domain.FileUpload{
		Name: "design.png",
		Size: int64(len(data)),
		Data: data,
	}

	result := v.ValidateFile(file, 1024*1024)

	require.NotNil(t, result.Dimensions)
	assert.Equal(t, 350, result.Dimensions.DPI)
	require.NotNil(t, result.DPIValid)
	assert.True(t, *result.DPIValid)
	assert.Equal(t, domain.ValidationValid, result.Status)
}

func TestExtractExtension(t *testing.T) {
	assert.Equal(t, "pdf", ExtractExtension("design.PDF"))
	assert.Equal(t, "jpg", ExtractExtension("photo.final.jpg"))
	assert.Equal(t, "", ExtractExtension("noextension"))
	assert.Equal(t, "", ExtractExtension("trailing."))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", FormatSize(512))
	assert.Equal(t, "1.0 KB", FormatSize(1024))
	assert.Equal(t, "12.0 MB", FormatSize(12*1024*1024))
	assert.Equal(t, "1.5 GB", FormatSize(1536*1024*1024))
}
