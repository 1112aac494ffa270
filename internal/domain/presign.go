package domain

// PresignedUpload представляет ответ на запрос одиночной presigned-ссылки
type PresignedUpload struct {
	UploadURL string `json:"uploadUrl"`
	AccessURL string `json:"accessUrl"`
	ObjectKey string `json:"objectKey"`
	ExpiresIn int64  `json:"expiresIn"`
}

// MultipartPart представляет одну часть multipart-сессии с её presigned-ссылкой
type MultipartPart struct {
	PartNumber int    `json:"partNumber"`
	UploadURL  string `json:"uploadUrl"`
}

// MultipartSession представляет инициированную multipart-сессию
type MultipartSession struct {
	UploadID  string          `json:"uploadId"`
	ObjectKey string          `json:"objectKey"`
	Parts     []MultipartPart `json:"parts"`
}

// MultipartResult представляет итог завершенной multipart-загрузки
type MultipartResult struct {
	AccessURL string `json:"accessUrl"`
	ObjectKey string `json:"objectKey"`
}
