// Package session holds the authenticated identity of one browser.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/youruser/gemdeck/internal/auraapi"
)

var (
	ErrEnded   = errors.New("session ended, please log in again")
	ErrExpired = errors.New("session expired, please log in again")
	ErrNoToken = errors.New("login response carried no token")
)

// Session is created on login and ended on logout. It is safe for concurrent use.
type Session struct {
	mu        sync.RWMutex
	token     string
	userID    string
	username  string
	wallet    string
	expiresAt time.Time
	ended     bool
	now       func() time.Time
}

// Profile is a read-only snapshot of the session identity.
type Profile struct {
	UserID        string    `json:"userId"`
	Username      string    `json:"username"`
	WalletAddress string    `json:"walletAddress,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Begin starts a session from a login response. The token's exp claim, when
// present, bounds the session; the signature is the server's concern.
func Begin(l auraapi.Login) (*Session, error) {
	if l.Token == "" {
		return nil, ErrNoToken
	}
	s := &Session{
		token:    l.Token,
		userID:   string(l.UserID),
		username: l.Username,
		wallet:   l.WalletAddress,
		now:      time.Now,
	}
	s.expiresAt = expiry(l.Token)
	return s, nil
}

func expiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Token returns the bearer credential for authenticated calls.
func (s *Session) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ended {
		return "", ErrEnded
	}
	if !s.expiresAt.IsZero() && !s.now().Before(s.expiresAt) {
		return "", ErrExpired
	}
	return s.token, nil
}

func (s *Session) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Profile{UserID: s.userID, Username: s.username, WalletAddress: s.wallet, ExpiresAt: s.expiresAt}
}

func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) Wallet() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wallet
}

// SetWallet records a bound wallet; an empty address clears it.
func (s *Session) SetWallet(address string) {
	s.mu.Lock()
	s.wallet = address
	s.mu.Unlock()
}

// End drops the credential. Further Token calls fail with ErrEnded.
func (s *Session) End() {
	s.mu.Lock()
	s.token = ""
	s.ended = true
	s.mu.Unlock()
}

func (s *Session) Ended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ended
}
