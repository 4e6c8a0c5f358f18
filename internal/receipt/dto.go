package receipt

import "github.com/golang-jwt/jwt/v5"

// UploadTicket tells a client where and how to post a receipt. Fields must
// be sent back as form fields next to the file.
type UploadTicket struct {
	UploadURL string            `json:"upload_url"`
	FileKey   string            `json:"file_key"`
	Fields    map[string]string `json:"fields"`
	ExpiresAt string            `json:"expires_at"`
}

type DownloadTicket struct {
	DownloadURL string `json:"download_url"`
	FileKey     string `json:"file_key"`
	ExpiresAt   string `json:"expires_at"`
}

type UploadResponse struct {
	FileKey string `json:"file_key"`
	Size    int64  `json:"size"`
}

func jwtSubject(key string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: key}
}
