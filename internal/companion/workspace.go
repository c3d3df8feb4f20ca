package companion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/youruser/gemdeck/internal/auraapi"
	"github.com/youruser/gemdeck/internal/cards"
	"github.com/youruser/gemdeck/internal/deck"
	"github.com/youruser/gemdeck/internal/launch"
	"github.com/youruser/gemdeck/internal/session"
	"github.com/youruser/gemdeck/internal/wallet"
)

var (
	ErrNotLoaded        = errors.New("collection not loaded yet")
	ErrNotEditing       = errors.New("no deck edit in progress")
	ErrDeckIncomplete   = errors.New("select exactly 10 cards first")
	ErrCommitInProgress = errors.New("deck is being saved, please wait")
	ErrUnknownCard      = errors.New("card is not in your collection")
	ErrNoWallet         = errors.New("no wallet is bound to this account")
	ErrNoPendingBind    = errors.New("request a wallet bind nonce first")
)

// API is the remote server as seen by a workspace.
type API interface {
	IssueNonce(ctx context.Context) (string, error)
	LoginWithWallet(ctx context.Context, address, signature, name string) (auraapi.Login, error)
	LoginWithPassword(ctx context.Context, username, password string) (auraapi.Login, error)
	Register(ctx context.Context, username, password string) error
	FetchOwnedCards(ctx context.Context, token string) ([]cards.Card, error)
	FetchDeck(ctx context.Context, token string) (deck.Deck, error)
	ReplaceDeck(ctx context.Context, token string, d deck.Deck) (deck.Deck, error)
	RequestWalletBind(ctx context.Context, token, address string) (string, error)
	ConfirmWalletBind(ctx context.Context, token, address, signature string) error
	UnbindWallet(ctx context.Context, token, address string) error
}

type pendingBind struct {
	address string
	nonce   string
}

// Workspace is everything one logged-in browser owns: its session, the deck
// editor state and the game launcher. Methods are safe for concurrent use.
type Workspace struct {
	id       string
	sess     *session.Session
	api      API
	catalog  cards.Catalog
	launcher *launch.Launcher
	log      *slog.Logger

	mu         sync.Mutex
	collection *cards.Collection
	state      deck.State
	committing bool
	bind       *pendingBind
	lastSeen   time.Time
}

func (w *Workspace) ID() string                 { return w.id }
func (w *Workspace) Session() *session.Session  { return w.sess }
func (w *Workspace) Launcher() *launch.Launcher { return w.launcher }
func (w *Workspace) Profile() session.Profile   { return w.sess.Profile() }

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}

// Loaded reports whether the collection and deck have been fetched.
func (w *Workspace) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state != nil
}

// Load fetches the owned cards and the persisted deck together. Any draft in
// progress is discarded, as leaving the deck view does.
func (w *Workspace) Load(ctx context.Context) (View, error) {
	w.mu.Lock()
	busy := w.committing
	w.mu.Unlock()
	if busy {
		return View{}, ErrCommitInProgress
	}

	token, err := w.sess.Token()
	if err != nil {
		return View{}, err
	}

	var (
		owned     []cards.Card
		persisted deck.Deck
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cs, err := w.api.FetchOwnedCards(gctx, token)
		owned = cs
		return err
	})
	g.Go(func() error {
		d, err := w.api.FetchDeck(gctx, token)
		persisted = d
		return err
	})
	if err := g.Wait(); err != nil {
		w.log.Warn("load failed", slog.Any("error", err))
		return View{}, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.committing {
		return View{}, ErrCommitInProgress
	}
	w.collection = cards.NewCollection(w.catalog.Apply(owned))
	w.state = deck.NewIdle(persisted)
	w.log.Debug("workspace loaded",
		slog.Int("cards", w.collection.Len()),
		slog.Int("deck", len(persisted)),
	)
	return w.viewLocked(), nil
}

// View returns the current deck editor view.
func (w *Workspace) View() (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == nil {
		return View{}, ErrNotLoaded
	}
	return w.viewLocked(), nil
}

// mutate applies a local transition. Transitions are refused while a commit
// is in flight so the applied result always matches what was sent.
func (w *Workspace) mutate(fn func(deck.State) (deck.State, error)) (View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == nil {
		return View{}, ErrNotLoaded
	}
	if w.committing {
		return View{}, ErrCommitInProgress
	}
	next, err := fn(w.state)
	if err != nil {
		return View{}, err
	}
	w.state = next
	return w.viewLocked(), nil
}

func (w *Workspace) BeginEdit() (View, error) {
	return w.mutate(func(st deck.State) (deck.State, error) {
		switch s := st.(type) {
		case deck.Idle:
			return s.BeginEdit(), nil
		case deck.Editing:
			return s.BeginEdit(), nil
		}
		return st, nil
	})
}

// Toggle selects or unselects a card, beginning an edit if needed. Only owned
// cards can be added; a card already in the deck can always be removed.
func (w *Workspace) Toggle(cardID int) (View, error) {
	return w.mutate(func(st deck.State) (deck.State, error) {
		if !deck.Current(st).Contains(cardID) {
			c, ok := w.collection.Get(cardID)
			if !ok || !c.Owned() {
				return nil, fmt.Errorf("%w: %d", ErrUnknownCard, cardID)
			}
		}
		switch s := st.(type) {
		case deck.Idle:
			return s.Toggle(cardID), nil
		case deck.Editing:
			return s.Toggle(cardID), nil
		}
		return st, nil
	})
}

// RemoveAt drops a draft slot by position, as clicking a deck grid slot does.
func (w *Workspace) RemoveAt(index int) (View, error) {
	return w.mutate(func(st deck.State) (deck.State, error) {
		e, ok := st.(deck.Editing)
		if !ok {
			return nil, ErrNotEditing
		}
		return e.RemoveAt(index), nil
	})
}

func (w *Workspace) Cancel() (View, error) {
	return w.mutate(func(st deck.State) (deck.State, error) {
		if e, ok := st.(deck.Editing); ok {
			return e.Cancel(), nil
		}
		return st, nil
	})
}

// Commit saves a complete draft. Only one commit runs at a time per workspace;
// a failure leaves the draft in place for a retry.
func (w *Workspace) Commit(ctx context.Context) (View, error) {
	w.mu.Lock()
	if w.state == nil {
		w.mu.Unlock()
		return View{}, ErrNotLoaded
	}
	if w.committing {
		w.mu.Unlock()
		return View{}, ErrCommitInProgress
	}
	ed, ok := w.state.(deck.Editing)
	if !ok {
		w.mu.Unlock()
		return View{}, ErrNotEditing
	}
	if !ed.Ready() {
		w.mu.Unlock()
		return View{}, ErrDeckIncomplete
	}
	token, err := w.sess.Token()
	if err != nil {
		w.mu.Unlock()
		return View{}, err
	}
	w.committing = true
	w.mu.Unlock()

	next, err := ed.Commit(ctx, deck.ReplacerFunc(func(ctx context.Context, d deck.Deck) (deck.Deck, error) {
		return w.api.ReplaceDeck(ctx, token, d)
	}))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.committing = false
	w.state = next
	if err != nil {
		w.log.Warn("deck commit failed", slog.Any("error", err))
		return w.viewLocked(), err
	}
	w.log.Info("deck committed", slog.String("deck", next.Persisted().JSON()))
	return w.viewLocked(), nil
}

// Battle picks the deck to play and hands it to the launcher: a complete
// draft is committed first, otherwise the persisted deck is used.
func (w *Workspace) Battle(ctx context.Context) (deck.Deck, error) {
	w.mu.Lock()
	st := w.state
	busy := w.committing
	w.mu.Unlock()

	if st == nil {
		return nil, ErrNotLoaded
	}
	if busy {
		return nil, ErrCommitInProgress
	}

	var chosen deck.Deck
	switch s := st.(type) {
	case deck.Editing:
		if !s.Ready() {
			return nil, ErrDeckIncomplete
		}
		v, err := w.Commit(ctx)
		if err != nil {
			return nil, err
		}
		chosen = v.Persisted
	default:
		chosen = s.Persisted()
		if !chosen.Complete() {
			return nil, ErrDeckIncomplete
		}
	}

	if err := w.launcher.Launch(ctx, chosen); err != nil {
		return nil, err
	}
	return chosen, nil
}

// RequestWalletBind asks the server for a nonce that address must sign.
func (w *Workspace) RequestWalletBind(ctx context.Context, address string) (string, error) {
	addr, err := wallet.NormalizeAddress(address)
	if err != nil {
		return "", err
	}
	token, err := w.sess.Token()
	if err != nil {
		return "", err
	}
	nonce, err := w.api.RequestWalletBind(ctx, token, addr)
	if err != nil {
		return "", err
	}
	w.mu.Lock()
	w.bind = &pendingBind{address: addr, nonce: nonce}
	w.mu.Unlock()
	return nonce, nil
}

// ConfirmWalletBind checks signature against the pending nonce before
// forwarding it, then records the wallet on the session.
func (w *Workspace) ConfirmWalletBind(ctx context.Context, signature string) (session.Profile, error) {
	w.mu.Lock()
	pb := w.bind
	w.mu.Unlock()
	if pb == nil {
		return session.Profile{}, ErrNoPendingBind
	}
	if err := wallet.Verify(pb.address, pb.nonce, signature); err != nil {
		return session.Profile{}, err
	}
	token, err := w.sess.Token()
	if err != nil {
		return session.Profile{}, err
	}
	if err := w.api.ConfirmWalletBind(ctx, token, pb.address, signature); err != nil {
		return session.Profile{}, err
	}

	w.mu.Lock()
	w.bind = nil
	w.mu.Unlock()
	w.sess.SetWallet(pb.address)
	w.log.Info("wallet bound", slog.String("wallet", pb.address))
	return w.sess.Profile(), nil
}

func (w *Workspace) UnbindWallet(ctx context.Context) (session.Profile, error) {
	addr := w.sess.Wallet()
	if addr == "" {
		return session.Profile{}, ErrNoWallet
	}
	token, err := w.sess.Token()
	if err != nil {
		return session.Profile{}, err
	}
	if err := w.api.UnbindWallet(ctx, token, addr); err != nil {
		return session.Profile{}, err
	}
	w.sess.SetWallet("")
	w.log.Info("wallet unbound", slog.String("wallet", addr))
	return w.sess.Profile(), nil
}

// Cards returns the owned collection, narrowed by opt.
func (w *Workspace) Cards(opt cards.FilterOptions) ([]CardView, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state == nil {
		return nil, ErrNotLoaded
	}
	return w.cardViewsLocked(cards.Filter(w.collection.All(), w.catalog, opt)), nil
}

// Names maps owned card ids to display names.
func (w *Workspace) Names() map[int]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.collection.Names()
}
