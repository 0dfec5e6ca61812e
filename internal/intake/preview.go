package intake

import (
	"context"
	"encoding/base64"

	"github.com/medreport/analyzer/internal/models"
)

// EncodePreview renders an accepted file as a data URI for an image tag or an
// embedded document viewer. Files that are neither image nor PDF get "".
func EncodePreview(f *models.UploadedFile) string {
	if f == nil || (!f.IsImage() && !f.IsPDF()) {
		return ""
	}
	return "data:" + f.MimeType + ";base64," + base64.StdEncoding.EncodeToString(f.Content)
}

// EncodePreviewAsync encodes the preview on its own goroutine and delivers
// the result exactly once. The channel is closed without a value when ctx is
// cancelled first.
func EncodePreviewAsync(ctx context.Context, f *models.UploadedFile) <-chan string {
	out := make(chan string, 1)
	go func() {
		defer close(out)
		preview := EncodePreview(f)
		select {
		case <-ctx.Done():
		case out <- preview:
		}
	}()
	return out
}
