package imagepkg

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	cardW   = 215
	cardH   = 300
	gap     = 12
	margin  = 48
	columns = 5
	qrEdge  = 300
)

var (
	background = color.NRGBA{R: 0x2f, G: 0x33, B: 0x4d, A: 0xff}
	emptySlot  = color.NRGBA{R: 0x44, G: 0x48, B: 0x66, A: 0xff}
)

// ComposeDeckImage lays the deck out like the deck grid: two rows of five
// slots, with the QR code to the right. Nil entries are drawn as empty slots.
func ComposeDeckImage(slots []image.Image, qr image.Image) image.Image {
	rows := (len(slots) + columns - 1) / columns
	if rows < 2 {
		rows = 2
	}
	gridW := columns*cardW + (columns-1)*gap
	gridH := rows*cardH + (rows-1)*gap
	w := margin*2 + gridW
	if qr != nil {
		w += margin + qrEdge
	}
	h := margin*2 + max(gridH, qrEdge)

	canvas := imaging.New(w, h, background)
	blank := imaging.New(cardW, cardH, emptySlot)
	for i := 0; i < rows*columns; i++ {
		x := margin + (i%columns)*(cardW+gap)
		y := margin + (i/columns)*(cardH+gap)
		tile := blank
		if i < len(slots) && slots[i] != nil {
			tile = imaging.Fit(slots[i], cardW, cardH, imaging.Lanczos)
		}
		canvas = imaging.Paste(canvas, tile, image.Pt(x, y))
	}
	if qr != nil {
		q := imaging.Resize(qr, qrEdge, qrEdge, imaging.NearestNeighbor)
		canvas = imaging.Paste(canvas, q, image.Pt(margin*2+gridW, margin))
	}
	return canvas
}
