package cards

import "fmt"

// Card is an owned gem as returned by the collection endpoint.
type Card struct {
	ID       int      `json:"id"`
	Quantity int      `json:"quantity"`
	Metadata Metadata `json:"metadata"`
}

type Metadata struct {
	Name        string `json:"name"`
	Image       string `json:"image"`
	Description string `json:"description"`
}

// Name returns the display name, falling back to the zero-padded id.
func (c Card) Name() string {
	if c.Metadata.Name != "" {
		return c.Metadata.Name
	}
	return fmt.Sprintf("Gem #%03d", c.ID)
}

// Owned reports whether at least one copy is held.
func (c Card) Owned() bool {
	return c.Quantity > 0
}

// ArtworkPath is the artwork location relative to the asset root, e.g. "/img/007.png".
func ArtworkPath(id int) string {
	return fmt.Sprintf("/img/%03d.png", id)
}

// Collection indexes cards by id, keeping the server's order for listing.
type Collection struct {
	order []Card
	byID  map[int]Card
}

func NewCollection(cs []Card) *Collection {
	col := &Collection{order: make([]Card, 0, len(cs)), byID: make(map[int]Card, len(cs))}
	for _, c := range cs {
		if _, dup := col.byID[c.ID]; dup {
			continue
		}
		col.order = append(col.order, c)
		col.byID[c.ID] = c
	}
	return col
}

func (col *Collection) Get(id int) (Card, bool) {
	if col == nil {
		return Card{}, false
	}
	c, ok := col.byID[id]
	return c, ok
}

// All returns the cards in server order.
func (col *Collection) All() []Card {
	if col == nil {
		return nil
	}
	out := make([]Card, len(col.order))
	copy(out, col.order)
	return out
}

// Names maps ids to display names.
func (col *Collection) Names() map[int]string {
	out := map[int]string{}
	for _, c := range col.All() {
		out[c.ID] = c.Name()
	}
	return out
}

func (col *Collection) Len() int {
	if col == nil {
		return 0
	}
	return len(col.order)
}
