// Package models contains domain types for the Medical Report Analyzer.
package models

// UploadedFile is the document currently held in a session's file slot.
// It only exists after the intake validator has accepted it.
type UploadedFile struct {
	Name     string `json:"name" msgpack:"name"`
	MimeType string `json:"mimeType" msgpack:"mimeType"`
	Size     int64  `json:"size" msgpack:"size"`
	Content  []byte `json:"-" msgpack:"-"`
}

// IsImage reports whether the file is one of the accepted image types.
func (f *UploadedFile) IsImage() bool {
	switch f.MimeType {
	case "image/jpeg", "image/jpg", "image/png":
		return true
	}
	return false
}

// IsPDF reports whether the file is a PDF document.
func (f *UploadedFile) IsPDF() bool {
	return f.MimeType == "application/pdf"
}
