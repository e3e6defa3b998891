package api

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// MaxMediaSize is the largest attachment accepted, in bytes.
const MaxMediaSize = 50 * 1024 * 1024

// AllowedMediaTypes lists the declared content types accepted for upload.
var AllowedMediaTypes = []string{"image/jpeg", "image/png", "video/mp4", "video/webm"}

// Media is a file to attach to a check.
type Media struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// IsImage reports whether m is declared as an image.
func (m Media) IsImage() bool {
	return strings.HasPrefix(m.ContentType, "image/")
}

// ValidateMedia rejects files that must never be sent.
func ValidateMedia(m Media) error {
	if m.Size > MaxMediaSize {
		return ErrMediaTooLarge
	}
	if !slices.Contains(AllowedMediaTypes, m.ContentType) {
		return ErrMediaType
	}
	return nil
}

// videoTypes covers extensions missing from Go's built-in mime table.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
}

func declaredType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := videoTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}

// OpenMedia opens a local file as Media, declaring its type from the file
// extension. The caller closes the returned file.
func OpenMedia(path string) (Media, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return Media{}, nil, fmt.Errorf("open media: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return Media{}, nil, fmt.Errorf("stat media: %w", err)
	}

	contentType := declaredType(path)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}

	return Media{
		Name:        filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Body:        f,
	}, f, nil
}
