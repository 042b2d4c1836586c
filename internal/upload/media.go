package upload

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// MediaReference identifies uploaded media. It is immutable once returned.
type MediaReference struct {
	ID         string      `json:"id"`
	Duration   float64     `json:"duration"`
	Size       int64       `json:"file_size"`
	Filename   string      `json:"original_filename"`
	UploadedAt string      `json:"uploaded_at,omitempty"`
	LocalPath  string      `json:"-"`
	MIMEType   string      `json:"-"`
	Trim       *TrimWindow `json:"-"`
}

// TrimWindow selects [Start, End) seconds of the source clip.
type TrimWindow struct {
	Start float64
	End   float64
}

// Length returns the clip length of the window.
func (w TrimWindow) Length() time.Duration {
	return time.Duration((w.End - w.Start) * float64(time.Second))
}

func (w TrimWindow) String() string {
	return fmt.Sprintf("%.2fs-%.2fs", w.Start, w.End)
}

// Limits bound what the client will send.
type Limits struct {
	MaxBytes int64
	MaxClip  time.Duration
}

// DefaultLimits mirrors the backend defaults: 50MB and a 10s clip.
func DefaultLimits() Limits {
	return Limits{MaxBytes: 50 * 1024 * 1024, MaxClip: 10 * time.Second}
}

var mimeTypes = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
}

// AllowedExtensions lists the accepted container extensions.
func AllowedExtensions() []string {
	return []string{"mp4", "mov", "avi", "mkv", "webm"}
}

// MIMEType returns the media type for name, or "" when the extension is not
// accepted.
func MIMEType(name string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return mimeTypes[ext]
}
