package intake

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DeclaredType resolves the mime type to validate for an uploaded part.
// The client-supplied header wins unless it is missing or generic, in which
// case the content is sniffed.
func DeclaredType(header string, content []byte) string {
	if mt := mediaType(header); mt != "" && mt != "application/octet-stream" {
		return mt
	}
	return mediaType(mimetype.Detect(content).String())
}

// mediaType strips parameters ("; charset=...") and lowercases the type.
func mediaType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(value)
	if err != nil {
		return ""
	}
	return strings.ToLower(mt)
}
