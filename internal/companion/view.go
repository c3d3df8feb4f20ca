package companion

import (
	"github.com/youruser/gemdeck/internal/cards"
	"github.com/youruser/gemdeck/internal/deck"
)

// View is what the deck screen renders.
type View struct {
	Editing    bool       `json:"editing"`
	Count      int        `json:"count"`
	Capacity   int        `json:"capacity"`
	Persisted  deck.Deck  `json:"persisted"`
	Draft      deck.Deck  `json:"draft"`
	CanCommit  bool       `json:"canCommit"`
	CanBattle  bool       `json:"canBattle"`
	Committing bool       `json:"committing"`
	Slots      []Slot     `json:"slots"`
	Cards      []CardView `json:"cards"`
}

// Slot is one of the deck grid positions. CardID is 0 for an empty slot.
type Slot struct {
	Index  int    `json:"index"`
	CardID int    `json:"cardId"`
	Name   string `json:"name,omitempty"`
}

// CardView is a collection entry with its highlight state.
type CardView struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Quantity   int    `json:"quantity"`
	Effect     string `json:"effect"`
	Artwork    string `json:"artwork"`
	InDeck     bool   `json:"inDeck"`
	Selectable bool   `json:"selectable"`
}

func (w *Workspace) viewLocked() View {
	st := w.state
	cur := deck.Current(st)

	v := View{
		Editing:    deck.IsEditing(st),
		Count:      deck.Count(st),
		Capacity:   deck.Size,
		Persisted:  st.Persisted(),
		Draft:      deck.Deck{},
		Committing: w.committing,
		Slots:      make([]Slot, deck.Size),
		Cards:      w.cardViewsLocked(w.collection.All()),
	}
	if e, ok := st.(deck.Editing); ok {
		v.Draft = e.Draft()
		v.CanCommit = e.Ready() && !w.committing
		v.CanBattle = v.CanCommit
	} else {
		v.CanBattle = v.Persisted.Complete() && !w.committing
	}

	for i := range v.Slots {
		v.Slots[i].Index = i
		if i < len(cur) {
			v.Slots[i].CardID = cur[i]
			if c, ok := w.collection.Get(cur[i]); ok {
				v.Slots[i].Name = c.Name()
			}
		}
	}
	return v
}

func (w *Workspace) cardViewsLocked(cs []cards.Card) []CardView {
	out := make([]CardView, 0, len(cs))
	for _, c := range cs {
		out = append(out, CardView{
			ID:         c.ID,
			Name:       c.Name(),
			Quantity:   c.Quantity,
			Effect:     w.catalog.Effect(c.ID),
			Artwork:    cards.ArtworkPath(c.ID),
			InDeck:     deck.InDeck(w.state, c.ID),
			Selectable: c.Owned() && !w.committing && deck.CanSelect(w.state, c.ID),
		})
	}
	return out
}
