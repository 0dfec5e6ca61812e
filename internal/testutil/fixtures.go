// fixtures.go - Sample documents for testing
package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// PNGBytes returns a small valid PNG image.
func PNGBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// JPEGHeader returns bytes that begin with a JPEG signature.
func JPEGHeader() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
}

// PDFBytes returns a minimal PDF document.
func PDFBytes() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
}

// Oversized returns a buffer one byte larger than limit.
func Oversized(limit int64) []byte {
	return make([]byte, limit+1)
}
