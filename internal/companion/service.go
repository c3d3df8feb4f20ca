// Package companion binds a logged-in browser to its session, deck editor
// and game launcher.
package companion

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/youruser/gemdeck/internal/auraapi"
	"github.com/youruser/gemdeck/internal/cards"
	"github.com/youruser/gemdeck/internal/launch"
	"github.com/youruser/gemdeck/internal/session"
	"github.com/youruser/gemdeck/internal/wallet"
)

var ErrMissingCredentials = errors.New("username and password are required")

// Service owns every workspace. Each login gets a fresh workspace id, which
// the HTTP layer keeps in a cookie.
type Service struct {
	api     API
	kv      launch.KV
	catalog cards.Catalog
	log     *slog.Logger
	now     func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

func NewService(api API, kv launch.KV, catalog cards.Catalog, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		api:        api,
		kv:         kv,
		catalog:    catalog,
		log:        log.With(slog.String("component", "companion")),
		now:        time.Now,
		workspaces: map[string]*Workspace{},
	}
}

// IssueNonce returns a challenge for a wallet login.
func (s *Service) IssueNonce(ctx context.Context) (string, error) {
	return s.api.IssueNonce(ctx)
}

// Register creates an account without logging in.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}
	return s.api.Register(ctx, username, password)
}

func (s *Service) LoginWithPassword(ctx context.Context, username, password string) (*Workspace, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	l, err := s.api.LoginWithPassword(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return s.open(l)
}

// LoginWithWallet checks that signature over nonce recovers to address, then
// exchanges it for a session.
func (s *Service) LoginWithWallet(ctx context.Context, address, nonce, signature, name string) (*Workspace, error) {
	addr, err := wallet.NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	if err := wallet.Verify(addr, nonce, signature); err != nil {
		return nil, err
	}
	l, err := s.api.LoginWithWallet(ctx, addr, signature, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if l.WalletAddress == "" {
		l.WalletAddress = addr
	}
	return s.open(l)
}

func (s *Service) open(l auraapi.Login) (*Workspace, error) {
	sess, err := session.Begin(l)
	if err != nil {
		return nil, err
	}
	scope := sess.UserID()
	if scope == "" {
		scope = "user:" + l.Username
	}

	id := uuid.NewString()
	w := &Workspace{
		id:       id,
		sess:     sess,
		api:      s.api,
		catalog:  s.catalog,
		launcher: launch.NewLauncher(s.kv, scope),
		log:      s.log.With(slog.String("workspace", id[:8]), slog.String("user", scope)),
		lastSeen: s.now(),
	}

	s.mu.Lock()
	s.workspaces[id] = w
	s.mu.Unlock()
	w.log.Info("logged in", slog.String("username", l.Username))
	return w, nil
}

// Workspace looks up a live workspace and marks it as used.
func (s *Service) Workspace(id string) (*Workspace, bool) {
	s.mu.Lock()
	w, ok := s.workspaces[id]
	s.mu.Unlock()
	if !ok {
		return nil, false
	}
	if w.sess.Ended() {
		s.Logout(id)
		return nil, false
	}
	w.touch(s.now())
	return w, true
}

// Logout ends the session, closes the game module connection and forgets the
// workspace. An in-flight commit still finishes against the server; its result
// is simply not observed.
func (s *Service) Logout(id string) {
	s.mu.Lock()
	w, ok := s.workspaces[id]
	delete(s.workspaces, id)
	s.mu.Unlock()
	if ok {
		w.sess.End()
		w.launcher.Close()
		w.log.Info("logged out")
	}
}

// Sweep logs out workspaces idle for longer than maxIdle and returns how many.
func (s *Service) Sweep(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	var stale []string
	s.mu.Lock()
	for id, w := range s.workspaces {
		if w.idleSince().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	s.mu.Unlock()
	for _, id := range stale {
		s.Logout(id)
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Service) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(maxIdle); n > 0 {
				s.log.Info("dropped idle workspaces", slog.Int("count", n))
			}
		}
	}
}

// Len returns the number of live workspaces.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.workspaces)
}
