package imagepkg

import (
	"bytes"
	"image"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/youruser/gemdeck/internal/deck"
)

const (
	MinQRSize     = 64
	MaxQRSize     = 1024
	DefaultQRSize = 400
)

// ClampQRSize keeps a requested edge length inside [MinQRSize, MaxQRSize].
func ClampQRSize(size int) int {
	switch {
	case size <= 0:
		return DefaultQRSize
	case size < MinQRSize:
		return MinQRSize
	case size > MaxQRSize:
		return MaxQRSize
	}
	return size
}

// QRPNG encodes text as a PNG QR code.
func QRPNG(text string, size int) ([]byte, error) {
	return qrcode.Encode(text, qrcode.Medium, ClampQRSize(size))
}

// DeckQR encodes the shareable code of d.
func DeckQR(d deck.Deck, size int) (image.Image, error) {
	b, err := QRPNG(d.Code(), size)
	if err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(b))
}
