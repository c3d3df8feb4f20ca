package deck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReplacer struct {
	calls []Deck
	err   error
}

func (r *recordingReplacer) ReplaceDeck(_ context.Context, d Deck) (Deck, error) {
	r.calls = append(r.calls, d.Clone())
	if r.err != nil {
		return nil, r.err
	}
	return d, nil
}

func fullDeck() Deck {
	return Deck{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
}

func TestBeginEditCopiesPersistedInOrder(t *testing.T) {
	e := NewIdle(fullDeck()).BeginEdit()
	assert.Equal(t, fullDeck(), e.Draft())
	assert.Equal(t, e, e.BeginEdit(), "begin edit while editing is a no-op")
}

func TestBeginEditWithoutPersistedDeck(t *testing.T) {
	e := NewIdle(nil).BeginEdit()
	assert.Empty(t, e.Draft())
	assert.True(t, IsEditing(e))
	assert.Equal(t, 0, Count(e))
}

func TestToggleIsAnInvolution(t *testing.T) {
	start := NewIdle(Deck{4, 8, 15}).BeginEdit()
	for _, id := range []int{4, 15, 16, 23, 42} {
		assert.Equal(t, start.Draft(), start.Toggle(id).Toggle(id).Draft(), "id %d", id)
	}
}

func TestToggleAppendsInSelectionOrder(t *testing.T) {
	e := NewIdle(nil).Toggle(9).Toggle(2).Toggle(5)
	assert.Equal(t, Deck{9, 2, 5}, e.Draft())
}

func TestToggleRejectsEleventhCard(t *testing.T) {
	e := NewIdle(fullDeck()).BeginEdit()
	next := e.Toggle(11)
	assert.Equal(t, fullDeck(), next.Draft())
	assert.False(t, CanSelect(e, 11))
	assert.True(t, CanSelect(e, 3))
}

func TestToggleNeverInsertsDuplicates(t *testing.T) {
	var e Editing = NewIdle(nil).BeginEdit()
	ops := []int{1, 2, 1, 3, 3, 3, 4, 2, 5, 6, 7, 8, 9, 10, 11, 12, 1, 1}
	for _, id := range ops {
		e = e.Toggle(id)
		require.NoError(t, checkDistinct(e.Draft()))
		require.LessOrEqual(t, len(e.Draft()), Size)
	}
	for i := 0; i < 3; i++ {
		e = e.RemoveAt(0).Toggle(1)
		require.NoError(t, checkDistinct(e.Draft()))
	}
}

func checkDistinct(d Deck) error {
	seen := map[int]bool{}
	for _, id := range d {
		if seen[id] {
			return errors.New("duplicate")
		}
		seen[id] = true
	}
	return nil
}

func TestIdleToggleSeedsFromPersisted(t *testing.T) {
	e := NewIdle(Deck{1, 2, 3}).Toggle(2)
	assert.Equal(t, Deck{1, 3}, e.Draft())
	assert.Equal(t, Deck{1, 2, 3}, e.Persisted())
}

func TestRemoveAtOutOfRange(t *testing.T) {
	e := NewIdle(Deck{1, 2}).BeginEdit()
	assert.Equal(t, Deck{1, 2}, e.RemoveAt(-1).Draft())
	assert.Equal(t, Deck{1, 2}, e.RemoveAt(2).Draft())
	assert.Equal(t, Deck{2}, e.RemoveAt(0).Draft())
}

func TestStatesDoNotShareMemory(t *testing.T) {
	src := Deck{1, 2, 3}
	idle := NewIdle(src)
	src[0] = 99
	assert.Equal(t, Deck{1, 2, 3}, idle.Persisted())

	a := idle.BeginEdit()
	b := a.Toggle(4)
	c := a.Toggle(5)
	assert.Equal(t, Deck{1, 2, 3, 4}, b.Draft())
	assert.Equal(t, Deck{1, 2, 3, 5}, c.Draft())

	d := a.Draft()
	d[0] = 77
	assert.Equal(t, Deck{1, 2, 3}, a.Draft())
}

func TestCommitIncompleteIsNoop(t *testing.T) {
	r := &recordingReplacer{}
	for n := 0; n < Size; n++ {
		e := NewIdle(nil).BeginEdit()
		for id := 1; id <= n; id++ {
			e = e.Toggle(id)
		}
		st, err := e.Commit(context.Background(), r)
		require.NoError(t, err)
		assert.Equal(t, e, st)
		assert.Empty(t, st.Persisted())
	}
	assert.Empty(t, r.calls)
}

func TestCancelKeepsPersisted(t *testing.T) {
	r := &recordingReplacer{}
	idle := NewIdle(nil).Toggle(5).Toggle(9).Cancel()
	assert.Empty(t, idle.Persisted())
	assert.False(t, IsEditing(idle))
	assert.Empty(t, Current(idle))
	assert.Empty(t, r.calls)
}

func TestEditRemoveAddCommit(t *testing.T) {
	r := &recordingReplacer{}
	e := NewIdle(fullDeck()).BeginEdit().RemoveAt(3)
	require.Len(t, e.Draft(), 9)
	e = e.Toggle(42)
	require.True(t, e.Ready())

	st, err := e.Commit(context.Background(), r)
	require.NoError(t, err)

	want := Deck{1, 2, 3, 5, 6, 7, 8, 9, 10, 42}
	require.Len(t, r.calls, 1)
	assert.Equal(t, want, r.calls[0])
	assert.False(t, IsEditing(st))
	assert.Equal(t, want, st.Persisted())
}

func TestCommitFailureKeepsDraft(t *testing.T) {
	r := &recordingReplacer{err: errors.New("Failed to update gem deck")}
	e := NewIdle(fullDeck()).BeginEdit().RemoveAt(0).Toggle(11)

	st, err := e.Commit(context.Background(), r)
	require.Error(t, err)
	assert.Equal(t, e, st)
	assert.Equal(t, fullDeck(), st.Persisted())

	r.err = nil
	st, err = st.(Editing).Commit(context.Background(), r)
	require.NoError(t, err)
	assert.Len(t, r.calls, 2)
	assert.Equal(t, Deck{2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, st.Persisted())
}

func TestCounterAndHighlight(t *testing.T) {
	idle := NewIdle(Deck{1, 2, 3})
	assert.Equal(t, 3, Count(idle))
	assert.True(t, InDeck(idle, 2))

	e := idle.BeginEdit().Toggle(2).Toggle(7)
	assert.Equal(t, 3, Count(e))
	assert.False(t, InDeck(e, 2))
	assert.True(t, InDeck(e, 7))

	e = e.RemoveAt(0).RemoveAt(0).RemoveAt(0)
	assert.Equal(t, 0, Count(e))
	assert.True(t, IsEditing(e))
}
