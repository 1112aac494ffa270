package naming

import (
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"printdrive/internal/domain"
)

const (
	maxNameLength      = 200
	maxExtensionLength = 10
	randomSuffixLength = 6
)

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	unsafeCharsRe = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	underscoresRe = regexp.MustCompile(`_+`)
	extensionRe   = regexp.MustCompile(`[^a-z0-9]`)
)

// ParsedName содержит семантические компоненты стандартизированного имени файла
type ParsedName struct {
	ProductType  string
	Size         string
	Sides        string
	Material     string
	CompanyName  string
	CustomerName string
	FileNumber   int
	Quantity     int
	Extension    string
}

// Service генерирует и разбирает стандартизированные имена дизайн-файлов.
// Формат: {品目}_{размер}_{стороны}_{материал}_{компания?}_{заказчик}_{номер}_{тираж}.{расширение}
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// GenerateStandardName собирает стандартизированное имя из параметров печати
// и данных заказчика. Каждое поле приводится к форме NFC: входные строки могут
// приходить в NFD или смешанной нормализации, и без канонизации сравнение строк
// и поведение файловых систем расходятся между платформами.
func (s *Service) GenerateStandardName(spec domain.PrintSpec, customer domain.CustomerInfo, extension string) string {
	fileNumber := customer.FileNumber
	if fileNumber == 0 {
		fileNumber = 1
	}

	parts := []string{
		normalize(spec.ProductType),
		normalize(spec.Size),
		normalize(spec.Sides),
		normalize(spec.Material),
	}
	if customer.CompanyName != "" {
		parts = append(parts, normalize(customer.CompanyName))
	}
	parts = append(parts,
		normalize(customer.CustomerName),
		strconv.Itoa(fileNumber),
		strconv.Itoa(spec.Quantity),
	)

	// Пустые необязательные поля отбрасываются до склейки
	joined := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			joined = append(joined, p)
		}
	}

	return sanitizeName(strings.Join(joined, "_")) + "." + sanitizeExtension(extension)
}

// GenerateFileID генерирует идентификатор файла: метка времени в base-36 плюс
// случайный суффикс. Устойчив к коллизиям, но не криптографически стойкий.
func (s *Service) GenerateFileID() string {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 36)
	suffix := make([]byte, randomSuffixLength)
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	for i := range suffix {
		suffix[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return "file_" + timestamp + "_" + string(suffix)
}

// ParseStandardName разбирает стандартизированное имя обратно на компоненты.
// Ровно 7 частей — без названия компании, ровно 8 — с ним. Любое другое число
// частей или нечисловые номер файла/тираж дают nil.
func (s *Service) ParseStandardName(filename string) *ParsedName {
	lastDot := strings.LastIndex(filename, ".")
	if lastDot == -1 {
		return nil
	}

	extension := strings.ToLower(filename[lastDot+1:])
	basename := filename[:lastDot]
	parts := strings.Split(basename, "_")

	if len(parts) < 7 || len(parts) > 8 {
		return nil
	}

	parsed := &ParsedName{
		ProductType: parts[0],
		Size:        parts[1],
		Sides:       parts[2],
		Material:    parts[3],
		Extension:   extension,
	}

	var fileNumberRaw, quantityRaw string
	if len(parts) == 7 {
		parsed.CustomerName = parts[4]
		fileNumberRaw = parts[5]
		quantityRaw = parts[6]
	} else {
		parsed.CompanyName = parts[4]
		parsed.CustomerName = parts[5]
		fileNumberRaw = parts[6]
		quantityRaw = parts[7]
	}

	fileNumber, err := strconv.Atoi(fileNumberRaw)
	if err != nil {
		return nil
	}
	quantity, err := strconv.Atoi(quantityRaw)
	if err != nil {
		return nil
	}

	parsed.FileNumber = fileNumber
	parsed.Quantity = quantity
	return parsed
}

// normalize приводит текст к канонической форме NFC
func normalize(text string) string {
	return norm.NFC.String(text)
}

// sanitizeName очищает имя от символов, небезопасных для файловых систем
func sanitizeName(name string) string {
	name = whitespaceRe.ReplaceAllString(name, "_")
	name = unsafeCharsRe.ReplaceAllString(name, "")
	name = underscoresRe.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	runes := []rune(name)
	if len(runes) > maxNameLength {
		runes = runes[:maxNameLength]
	}
	return string(runes)
}

// sanitizeExtension очищает расширение: нижний регистр, только буквы и цифры
func sanitizeExtension(extension string) string {
	extension = strings.ToLower(strings.TrimPrefix(extension, "."))
	extension = extensionRe.ReplaceAllString(extension, "")
	if len(extension) > maxExtensionLength {
		extension = extension[:maxExtensionLength]
	}
	return extension
}
