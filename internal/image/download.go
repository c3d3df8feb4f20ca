package imagepkg

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru"

	"github.com/youruser/gemdeck/internal/cards"
	"github.com/youruser/gemdeck/internal/util"
)

// Artwork downloads gem artwork from the asset host and keeps decoded images
// in an LRU cache.
type Artwork struct {
	baseURL string
	cache   *lru.Cache
	fetch   func(ctx context.Context, url string) ([]byte, error)
}

func NewArtwork(baseURL string, cacheSize int) (*Artwork, error) {
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &Artwork{baseURL: strings.TrimRight(baseURL, "/"), cache: cache, fetch: util.GetBytes}, nil
}

// URL is where the artwork for id lives.
func (a *Artwork) URL(id int) string {
	return a.baseURL + cards.ArtworkPath(id)
}

func (a *Artwork) Get(ctx context.Context, id int) (image.Image, error) {
	if v, ok := a.cache.Get(id); ok {
		return v.(image.Image), nil
	}
	body, err := a.fetch(ctx, a.URL(id))
	if err != nil {
		return nil, fmt.Errorf("artwork %d: %w", id, err)
	}
	img, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("artwork %d: %w", id, err)
	}
	a.cache.Add(id, img)
	return img, nil
}
