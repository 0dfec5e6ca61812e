package intake

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mimeType   string
		size       int64
		wantReason Reason // empty means accepted
	}{
		{name: "jpeg", mimeType: "image/jpeg", size: 1024},
		{name: "jpg alias", mimeType: "image/jpg", size: 1024},
		{name: "png", mimeType: "image/png", size: 1024},
		{name: "pdf", mimeType: "application/pdf", size: 1024},
		{name: "exactly 5 MiB", mimeType: "application/pdf", size: MaxFileSize},
		{name: "empty file", mimeType: "image/png", size: 0},
		{name: "gif", mimeType: "image/gif", size: 10, wantReason: ReasonUnsupportedType},
		{name: "webp", mimeType: "image/webp", size: 10, wantReason: ReasonUnsupportedType},
		{name: "text", mimeType: "text/plain", size: 10, wantReason: ReasonUnsupportedType},
		{name: "empty type", mimeType: "", size: 10, wantReason: ReasonUnsupportedType},
		{name: "case differs", mimeType: "IMAGE/PNG", size: 10, wantReason: ReasonUnsupportedType},
		{name: "one byte over", mimeType: "image/png", size: MaxFileSize + 1, wantReason: ReasonTooLarge},
		{name: "oversized pdf", mimeType: "application/pdf", size: 20 * 1024 * 1024, wantReason: ReasonTooLarge},
		{name: "oversized and unsupported", mimeType: "video/mp4", size: MaxFileSize * 3, wantReason: ReasonUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.mimeType, tt.size)
			if tt.wantReason == "" {
				assert.NoError(t, err)
				return
			}

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %T", err)
			assert.Equal(t, tt.wantReason, verr.Reason)
			assert.Contains(t, verr.Error(), string(tt.wantReason))
		})
	}
}

func TestValidate_SizeAppliesToEveryAllowedType(t *testing.T) {
	for _, mt := range AllowedTypes {
		err := Validate(mt, MaxFileSize+1)
		var verr *ValidationError
		if assert.True(t, errors.As(err, &verr), mt) {
			assert.Equal(t, ReasonTooLarge, verr.Reason, mt)
		}
	}
}

func TestNewUploadedFile(t *testing.T) {
	t.Run("accepted file keeps content", func(t *testing.T) {
		f, err := NewUploadedFile("scan.png", "image/png", []byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, "scan.png", f.Name)
		assert.Equal(t, int64(3), f.Size)
		assert.Equal(t, []byte("abc"), f.Content)
	})

	t.Run("rejected file yields nothing", func(t *testing.T) {
		f, err := NewUploadedFile("notes.txt", "text/plain", []byte("abc"))
		assert.Nil(t, f)
		assert.Error(t, err)
	})
}
