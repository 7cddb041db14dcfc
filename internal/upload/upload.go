// Package upload stores client-submitted images on local disk and hands back
// the public URL they are served under.
package upload

import (
	"errors"
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for anything that is not an allowed image.
var ErrUnsupportedType = errors.New("unsupported image type")

// DefaultMaxBytes caps uploads at 5 MiB.
const DefaultMaxBytes = 5 << 20

var allowedExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".webp": {},
}

// Saver writes uploaded images under dir/<area>/ and returns URLs rooted at
// baseURL.
type Saver struct {
	dir      string
	baseURL  string
	maxBytes int64
}

// NewSaver creates a saver rooted at dir; files are served under baseURL.
func NewSaver(dir, baseURL string, maxBytes int64) (*Saver, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Saver{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/"), maxBytes: maxBytes}, nil
}

// Dir returns the filesystem root uploads are stored under.
func (s *Saver) Dir() string {
	return s.dir
}

// Save validates and stores one uploaded image, returning its public URL.
func (s *Saver) Save(c *gin.Context, file *multipart.FileHeader, area string) (string, error) {
	if file.Size > s.maxBytes {
		return "", fmt.Errorf("image exceeds %d bytes", s.maxBytes)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", ErrUnsupportedType
	}

	name := uuid.NewString() + ext
	destDir := filepath.Join(s.dir, area)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create area dir: %w", err)
	}

	if err := c.SaveUploadedFile(file, filepath.Join(destDir, name)); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}

	return s.baseURL + path.Join("/", area, name), nil
}
