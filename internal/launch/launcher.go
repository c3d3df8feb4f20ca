package launch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/youruser/gemdeck/internal/deck"
	"github.com/youruser/gemdeck/internal/store"
)

// KV is the slice of the durable store the launcher needs.
type KV interface {
	Get(ctx context.Context, scope, key string) (string, error)
	Set(ctx context.Context, scope, key, value string) error
}

// ErrLauncherClosed is returned by Attach once the owning session has ended.
var ErrLauncherClosed = errors.New("game launcher closed")

// Launcher remembers the battle deck under store.BattleDeckKey and feeds it to
// whichever bridge is attached. A newly attached bridge is seeded from the
// stored deck, so a fresh game page still receives the last choice.
type Launcher struct {
	kv    KV
	scope string

	mu     sync.Mutex
	bridge *Bridge
	gen    uint64
	closed bool
}

func NewLauncher(kv KV, scope string) *Launcher {
	return &Launcher{kv: kv, scope: scope}
}

// Launch records d as the battle deck and queues it on the attached bridge.
// Concurrent launches are applied in the order they are stored.
func (l *Launcher) Launch(ctx context.Context, d deck.Deck) error {
	payload := d.JSON()
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.kv.Set(ctx, l.scope, store.BattleDeckKey, payload); err != nil {
		return fmt.Errorf("save battle deck: %w", err)
	}
	l.gen++
	if l.bridge != nil {
		l.bridge.QueuePayload(payload)
	}
	return nil
}

// Saved returns the stored battle deck, if any.
func (l *Launcher) Saved(ctx context.Context) (deck.Deck, bool, error) {
	payload, err := l.kv.Get(ctx, l.scope, store.BattleDeckKey)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	d, err := deck.ParseJSON(payload)
	if err != nil {
		return nil, false, err
	}
	return d, true, nil
}

// Attach makes b the live bridge and seeds it with the stored deck, unless a
// Launch has queued a newer one in the meantime. It returns a detach func that
// is a no-op once another bridge has replaced b.
func (l *Launcher) Attach(ctx context.Context, b *Bridge) (func(), error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		b.Close()
		return func() {}, ErrLauncherClosed
	}
	l.bridge = b
	gen := l.gen
	l.mu.Unlock()

	detach := func() {
		l.mu.Lock()
		if l.bridge == b {
			l.bridge = nil
		}
		l.mu.Unlock()
	}

	payload, err := l.kv.Get(ctx, l.scope, store.BattleDeckKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return detach, nil
	case err != nil:
		return detach, fmt.Errorf("load battle deck: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.gen == gen && l.bridge == b {
		b.QueuePayload(payload)
	}
	return detach, nil
}

// Close detaches and closes the live bridge. Later Attach calls fail.
func (l *Launcher) Close() {
	l.mu.Lock()
	b := l.bridge
	l.bridge = nil
	l.closed = true
	l.mu.Unlock()
	if b != nil {
		b.Close()
	}
}

// Status reports the attached bridge, or a zero status when no module is attached.
func (l *Launcher) Status() (Status, bool) {
	l.mu.Lock()
	b := l.bridge
	l.mu.Unlock()
	if b == nil {
		return Status{}, false
	}
	return b.Status(), true
}
