// Package intake validates user-selected documents and derives their previews.
package intake

import (
	"fmt"

	"github.com/medreport/analyzer/internal/models"
)

// MaxFileSize is the largest document accepted for analysis (5 MiB).
const MaxFileSize int64 = 5 * 1024 * 1024

// AllowedTypes lists the declared mime types the validator accepts.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/jpg", "application/pdf"}

// Reason identifies why a document was rejected.
type Reason string

const (
	ReasonUnsupportedType Reason = "unsupported type"
	ReasonTooLarge        Reason = "too large"
)

// ValidationError reports a rejected document. Callers must drop any
// previously accepted file and preview when they receive one.
type ValidationError struct {
	Reason   Reason
	MimeType string
	Size     int64
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	switch e.Reason {
	case ReasonTooLarge:
		return fmt.Sprintf("%s: file size should be less than 5MB (got %d bytes)", e.Reason, e.Size)
	default:
		return fmt.Sprintf("%s: please upload an image (JPEG, PNG) or PDF file (got %q)", e.Reason, e.MimeType)
	}
}

// IsAllowedType reports whether mimeType is on the allow-list.
func IsAllowedType(mimeType string) bool {
	for _, t := range AllowedTypes {
		if t == mimeType {
			return true
		}
	}
	return false
}

// Validate checks a candidate document's declared type and size.
// The type is checked before the size.
func Validate(mimeType string, size int64) error {
	if !IsAllowedType(mimeType) {
		return &ValidationError{Reason: ReasonUnsupportedType, MimeType: mimeType, Size: size}
	}
	if size > MaxFileSize {
		return &ValidationError{Reason: ReasonTooLarge, MimeType: mimeType, Size: size}
	}
	return nil
}

// NewUploadedFile validates the document and wraps it for the session slot.
func NewUploadedFile(name, mimeType string, content []byte) (*models.UploadedFile, error) {
	size := int64(len(content))
	if err := Validate(mimeType, size); err != nil {
		return nil, err
	}

	return &models.UploadedFile{
		Name:     name,
		MimeType: mimeType,
		Size:     size,
		Content:  content,
	}, nil
}
