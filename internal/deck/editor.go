package deck

import "context"

// State is either Idle or Editing. The set of variants is closed.
type State interface {
	// Persisted is the deck last accepted by the server.
	Persisted() Deck
	state()
}

// Replacer persists a complete deck and echoes what the server accepted.
type Replacer interface {
	ReplaceDeck(ctx context.Context, d Deck) (Deck, error)
}

// ReplacerFunc adapts a function to Replacer.
type ReplacerFunc func(ctx context.Context, d Deck) (Deck, error)

func (f ReplacerFunc) ReplaceDeck(ctx context.Context, d Deck) (Deck, error) {
	return f(ctx, d)
}

// Idle shows the persisted deck with no draft in progress.
type Idle struct {
	persisted Deck
}

// NewIdle starts from the deck fetched from the server, which may be partial or empty.
func NewIdle(persisted Deck) Idle {
	return Idle{persisted: persisted.Clone()}
}

func (s Idle) Persisted() Deck { return s.persisted.Clone() }
func (Idle) state()            {}

// BeginEdit seeds the draft with a copy of the persisted deck.
func (s Idle) BeginEdit() Editing {
	return Editing{persisted: s.persisted.Clone(), draft: s.persisted.Clone()}
}

// Toggle begins editing and toggles id in the fresh draft.
func (s Idle) Toggle(id int) Editing {
	return s.BeginEdit().Toggle(id)
}

// Editing holds a draft next to the persisted deck. It stays Editing even when
// the draft is emptied; only Commit and Cancel leave it.
type Editing struct {
	persisted Deck
	draft     Deck
}

func (s Editing) Persisted() Deck { return s.persisted.Clone() }
func (Editing) state()            {}

// Draft returns a copy of the selection in progress.
func (s Editing) Draft() Deck { return s.draft.Clone() }

// BeginEdit is a no-op while already editing.
func (s Editing) BeginEdit() Editing { return s }

// Toggle removes id if it is in the draft, appends it if there is room,
// and otherwise leaves the draft untouched.
func (s Editing) Toggle(id int) Editing {
	if i := s.draft.IndexOf(id); i >= 0 {
		return s.RemoveAt(i)
	}
	if len(s.draft) >= Size {
		return s
	}
	next := make(Deck, len(s.draft), len(s.draft)+1)
	copy(next, s.draft)
	return Editing{persisted: s.persisted, draft: append(next, id)}
}

// RemoveAt drops the draft slot at index. Out of range indexes are ignored.
func (s Editing) RemoveAt(index int) Editing {
	if index < 0 || index >= len(s.draft) {
		return s
	}
	next := make(Deck, 0, len(s.draft)-1)
	next = append(next, s.draft[:index]...)
	next = append(next, s.draft[index+1:]...)
	return Editing{persisted: s.persisted, draft: next}
}

// Cancel discards the draft without touching the server.
func (s Editing) Cancel() Idle {
	return Idle{persisted: s.persisted}
}

// Ready reports whether Commit would issue a request.
func (s Editing) Ready() bool {
	return s.draft.Complete()
}

// Commit sends a complete draft to r. On success the draft becomes the persisted
// deck and editing ends. On failure, or when the draft is not complete, s is
// returned unchanged.
func (s Editing) Commit(ctx context.Context, r Replacer) (State, error) {
	if !s.Ready() {
		return s, nil
	}
	if _, err := r.ReplaceDeck(ctx, s.draft.Clone()); err != nil {
		return s, err
	}
	return Idle{persisted: s.draft.Clone()}, nil
}

// IsEditing reports whether st is the Editing variant.
func IsEditing(st State) bool {
	_, ok := st.(Editing)
	return ok
}

// Current is the deck the player is looking at: the draft while editing,
// the persisted deck otherwise.
func Current(st State) Deck {
	if e, ok := st.(Editing); ok {
		return e.Draft()
	}
	return st.Persisted()
}

// Count is the N in the "N/10" counter. An emptied draft still counts as
// editing, so it reads 0 rather than falling back to the persisted deck.
func Count(st State) int {
	if e, ok := st.(Editing); ok {
		return len(e.draft)
	}
	return len(st.Persisted())
}

// InDeck is the highlight predicate for a card in the collection view.
func InDeck(st State, id int) bool {
	if e, ok := st.(Editing); ok {
		return e.draft.Contains(id)
	}
	return st.Persisted().Contains(id)
}

// CanSelect reports whether toggling id would change the selection.
func CanSelect(st State, id int) bool {
	cur := Current(st)
	return cur.Contains(id) || len(cur) < Size
}
