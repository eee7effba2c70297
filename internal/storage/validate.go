package storage

import (
	"fmt"
	"path/filepath"
	"strings"

	"wardrobe/internal/domain"
)

var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ValidateUpload accepts images only, by both extension and content type,
// no larger than maxSize bytes.
func ValidateUpload(upload domain.PhotoUpload, maxSize int64) error {
	ext := strings.ToLower(filepath.Ext(upload.FileName))
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(upload.ContentType, ";", 2)[0]))
	if !allowedExtensions[ext] || !allowedContentTypes[ct] {
		return fmt.Errorf("%w: only image files are allowed (jpeg, jpg, png, gif, webp): %s", domain.ErrValidation, upload.FileName)
	}
	if maxSize > 0 && upload.Size > maxSize {
		return fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrValidation, upload.FileName, maxSize)
	}
	if upload.Body == nil {
		return fmt.Errorf("%w: %s has no content", domain.ErrValidation, upload.FileName)
	}
	return nil
}

// objectName builds the stored file name, keeping the original extension.
func objectName(id, fileName string) string {
	return "return-" + id + strings.ToLower(filepath.Ext(fileName))
}

func joinURL(prefix, name string) string {
	return strings.TrimRight(prefix, "/") + "/" + name
}
