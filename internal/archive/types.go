package archive

import "time"

// Upload is one image received by the intake endpoint.
type Upload struct {
	IntakeID   string
	Image      []byte
	MIMEType   string
	ReceivedAt time.Time
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	IntakeID   string  `json:"intake_id"`
	S3Key      string  `json:"s3_key"`
	MIMEType   string  `json:"mime_type"`
	SizeBytes  int     `json:"size_bytes"`
	SHA256     string  `json:"sha256"`
	Status     string  `json:"status,omitempty"`
	Confidence float64 `json:"ocr_confidence"`
	ArchivedAt string  `json:"archived_at"`
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
	"image/webp": ".webp",
	"image/tiff": ".tiff",
}

// ExtensionFor returns the file extension stored for a MIME type.
func ExtensionFor(mimeType string) string {
	if ext, ok := extensions[mimeType]; ok {
		return ext
	}
	return ".bin"
}
