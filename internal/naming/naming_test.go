package naming

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"printdrive/internal/domain"
)

func TestGenerateStandardName_WithCompany(t *testing.T) {
	s := NewService()

	name := s.GenerateStandardName(
		domain.PrintSpec{ProductType: "명함", Size: "90x50", Sides: "양면", Material: "스노우지", Quantity: 500},
		domain.CustomerInfo{CompanyName: "ABC인쇄", CustomerName: "홍길동", FileNumber: 2},
		"pdf",
	)

	assert.Equal(t, "명함_90x50_양면_스노우지_ABC인쇄_홍길동_2_500.pdf", name)
}

func TestGenerateStandardName_WithoutCompany(t *testing.T) {
	s := NewService()

	name := s.GenerateStandardName(
		domain.PrintSpec{ProductType: "명함", Size: "90x50", Sides: "단면", Material: "아트지", Quantity: 100},
		domain.CustomerInfo{CustomerName: "홍길동"},
		"pdf",
	)

	// Номер файла по умолчанию равен 1
	assert.Equal(t, "명함_90x50_단면_아트지_홍길동_1_100.pdf", name)
}

func TestGenerateStandardName_NormalizesToNFC(t *testing.T) {
	s := NewService()

	decomposed := norm.NFD.String("명함")
	require.NotEqual(t, "명함", decomposed)

	name := s.GenerateStandardName(
		domain.PrintSpec{ProductType: decomposed, Size: "90x50", Sides: "단면", Material: "아트지", Quantity: 100},
		domain.CustomerInfo{CustomerName: norm.NFD.String("홍길동")},
		"pdf",
	)

	assert.Equal(t, norm.NFC.String(name), name)
	assert.True(t, strings.HasPrefix(name, "명함_"))
}

func TestGenerateStandardName_Sanitization(t *testing.T) {
	s := NewService()

	name := s.GenerateStandardName(
		domain.PrintSpec{ProductType: "business card", Size: `90x50"`, Sides: "front/back", Material: "art paper", Quantity: 100},
		domain.CustomerInfo{CustomerName: "John Doe"},
		".PDF",
	)

	assert.NotContains(t, name, " ")
	assert.NotContains(t, name, `"`)
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "__")
	assert.True(t, strings.HasSuffix(name, ".pdf"))
}

func TestGenerateStandardName_LengthCap(t *testing.T) {
	s := NewService()

	name := s.GenerateStandardName(
		domain.PrintSpec{ProductType: strings.Repeat("가", 300), Size: "90x50", Sides: "단면", Material: "아트지", Quantity: 100},
		domain.CustomerInfo{CustomerName: "홍길동"},
		"pdf",
	)

	base := strings.TrimSuffix(name, ".pdf")
	assert.LessOrEqual(t, len([]rune(base)), 200)
}

func TestGenerateFileID_Format(t *testing.T) {
	s := NewService()

	id := s.GenerateFileID()
	parts := strings.Split(id, "_")

	require.Len(t, parts, 3)
	assert.Equal(t, "file", parts[0])
	assert.NotEmpty(t, parts[1])
	assert.Len(t, parts[2], 6)
}

func TestGenerateFileID_Unique(t *testing.T) {
	s := NewService()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := s.GenerateFileID()
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestParseStandardName_Roundtrip(t *testing.T) {
	s := NewService()

	spec := domain.PrintSpec{ProductType: "명함", Size: "90x50", Sides: "양면", Material: "스노우지", Quantity: 500}
	customer := domain.CustomerInfo{CompanyName: "ABC인쇄", CustomerName: "홍길동", FileNumber: 3}

	name := s.GenerateStandardName(spec, customer, "pdf")
	parsed := s.ParseStandardName(name)

	require.NotNil(t, parsed)
	assert.Equal(t, "명함", parsed.ProductType)
	assert.Equal(t, "90x50", parsed.Size)
	assert.Equal(t, "양면", parsed.Sides)
	assert.Equal(t, "스노우지", parsed.Material)
	assert.Equal(t, "ABC인쇄", parsed.CompanyName)
	assert.Equal(t, "홍길동", parsed.CustomerName)
	assert.Equal(t, 3, parsed.FileNumber)
	assert.Equal(t, 500, parsed.Quantity)
	assert.Equal(t, "pdf", parsed.Extension)
}

func TestParseStandardName_SevenParts(t *testing.T) {
	s := NewService()

	parsed := s.ParseStandardName("명함_90x50_단면_아트지_홍길동_1_100.pdf")

	require.NotNil(t, parsed)
	assert.Empty(t, parsed.CompanyName)
	assert.Equal(t, "홍길동", parsed.CustomerName)
	assert.Equal(t, 1, parsed.FileNumber)
	assert.Equal(t, 100, parsed.Quantity)
}

func TestParseStandardName_Invalid(t *testing.T) {
	s := NewService()

	tests := []struct {
		name     string
		filename string
	}{
		{"no extension", "명함_90x50_단면_아트지_홍길동_1_100"},
		{"too few parts", "명함_90x50_단면.pdf"},
		{"too many parts", "a_b_c_d_e_f_g_h_i.pdf"},
		{"non-numeric file number", "명함_90x50_단면_아트지_홍길동_x_100.pdf"},
		{"non-numeric quantity", "명함_90x50_단면_아트지_홍길동_1_x.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, s.ParseStandardName(tt.filename))
		})
	}
}
