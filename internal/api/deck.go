package api

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/youruser/gemdeck/internal/auraapi"
	"github.com/youruser/gemdeck/internal/cards"
	"github.com/youruser/gemdeck/internal/companion"
	"github.com/youruser/gemdeck/internal/deck"
	imagepkg "github.com/youruser/gemdeck/internal/image"
)

func (h *Handlers) listCards(c *gin.Context) {
	var opt cards.FilterOptions
	if err := c.ShouldBindQuery(&opt); err != nil {
		badRequest(c, err)
		return
	}
	w := workspace(c)
	if !w.Loaded() {
		if _, err := w.Load(c.Request.Context()); err != nil {
			h.fail(c, err)
			return
		}
	}
	out, err := w.Cards(opt)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "cards": out})
}

// deckView loads the collection on first use, as opening the deck page does.
func (h *Handlers) deckView(c *gin.Context) {
	w := workspace(c)
	var (
		v   companion.View
		err error
	)
	if w.Loaded() {
		v, err = w.View()
	} else {
		v, err = w.Load(c.Request.Context())
	}
	h.respondView(c, v, err)
}

func (h *Handlers) reloadDeck(c *gin.Context) {
	v, err := workspace(c).Load(c.Request.Context())
	h.respondView(c, v, err)
}

func (h *Handlers) beginEdit(c *gin.Context) {
	v, err := workspace(c).BeginEdit()
	h.respondView(c, v, err)
}

func (h *Handlers) toggle(c *gin.Context) {
	var req struct {
		CardID int `json:"cardId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := workspace(c).Toggle(req.CardID)
	h.respondView(c, v, err)
}

func (h *Handlers) removeAt(c *gin.Context) {
	var req struct {
		Index *int `json:"index" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	v, err := workspace(c).RemoveAt(*req.Index)
	h.respondView(c, v, err)
}

// commit answers with the view even on failure so the draft stays on screen.
func (h *Handlers) commit(c *gin.Context) {
	v, err := workspace(c).Commit(c.Request.Context())
	if err != nil && v.Capacity > 0 {
		_ = c.Error(err)
		c.JSON(statusOf(err), gin.H{"error": auraapi.Message(err), "view": v})
		return
	}
	h.respondView(c, v, err)
}

func (h *Handlers) cancel(c *gin.Context) {
	v, err := workspace(c).Cancel()
	h.respondView(c, v, err)
}

func (h *Handlers) respondView(c *gin.Context, v companion.View, err error) {
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *Handlers) battle(c *gin.Context) {
	w := workspace(c)
	chosen, err := w.Battle(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	st, attached := w.Launcher().Status()
	c.JSON(http.StatusOK, gin.H{"deck": chosen, "attached": attached, "game": st})
}

func currentDeck(w *companion.Workspace) (deck.Deck, error) {
	v, err := w.View()
	if err != nil {
		return nil, err
	}
	if v.Editing {
		return v.Draft, nil
	}
	return v.Persisted, nil
}

// exportDeck returns the deck as a text list, or as a share code with format=code.
func (h *Handlers) exportDeck(c *gin.Context) {
	w := workspace(c)
	d, err := currentDeck(w)
	if err != nil {
		h.fail(c, err)
		return
	}
	if c.Query("format") == "code" {
		c.JSON(http.StatusOK, gin.H{"code": d.Code()})
		return
	}
	title := c.DefaultQuery("title", "Gem deck")
	c.String(http.StatusOK, deck.ExportText(title, d, w.Names()))
}

// deckImage renders the deck grid with its share code as a QR. Artwork that
// cannot be fetched is drawn as an empty slot.
func (h *Handlers) deckImage(c *gin.Context) {
	w := workspace(c)
	d, err := currentDeck(w)
	if err != nil {
		h.fail(c, err)
		return
	}

	slots := make([]image.Image, deck.Size)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(4)
	for i, id := range d {
		if i >= deck.Size || h.art == nil {
			break
		}
		i, id := i, id
		g.Go(func() error {
			img, err := h.art.Get(ctx, id)
			if err != nil {
				h.log.Warn("artwork download failed", slog.Int("id", id), slog.Any("error", err))
				return nil
			}
			slots[i] = img
			return nil
		})
	}
	_ = g.Wait()

	var qr image.Image
	if len(d) > 0 {
		if q, err := imagepkg.DeckQR(d, 300); err == nil {
			qr = q
		}
	}
	out := imagepkg.ComposeDeckImage(slots, qr)
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, out); err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// qr endpoint returns a PNG of a QR for "text" query param
func qrHandler(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		badRequest(c, errors.New("text is required"))
		return
	}
	size := imagepkg.DefaultQRSize
	if v, err := strconv.Atoi(c.Query("size")); err == nil {
		size = v
	}
	b, err := imagepkg.QRPNG(text, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}
