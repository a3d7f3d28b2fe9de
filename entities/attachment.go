package entities

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	FileTypeImage = "image"
	FileTypePDF   = "pdf"
	FileTypeDoc   = "doc"
	FileTypeOther = "other"
)

type Attachment struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	FileURL    string    `json:"file_url"`
	FileType   string    `json:"file_type"` // image|pdf|doc|other
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
	Notes      string    `json:"notes,omitempty"`
}

// FileTypeOf classifies a file name by extension.
func FileTypeOf(name string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "jpg", "jpeg", "png", "gif", "webp", "bmp":
		return FileTypeImage
	case "pdf":
		return FileTypePDF
	case "doc", "docx", "xls", "xlsx", "csv", "txt":
		return FileTypeDoc
	default:
		return FileTypeOther
	}
}
