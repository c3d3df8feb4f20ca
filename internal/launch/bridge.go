// Package launch hands the chosen deck to the embedded game module once it
// reports that it has finished loading.
package launch

import (
	"log/slog"
	"sync"

	"github.com/youruser/gemdeck/internal/deck"
)

// Channel and Method address the deck setter inside the game module.
const (
	Channel = "Web"
	Method  = "SetCardDeck"
)

// Messenger is the module's message-send capability.
type Messenger interface {
	SendMessage(channel, method, payload string) error
}

// Status is a snapshot for display.
type Status struct {
	Ready    bool    `json:"ready"`
	Progress float64 `json:"progress"`
	Pending  bool    `json:"pending"`
}

// Bridge keeps at most one pending deck and delivers it when the module is
// ready. Delivery is fire-and-forget.
type Bridge struct {
	mu       sync.Mutex
	m        Messenger
	log      *slog.Logger
	pending  string
	ready    bool
	progress float64
}

func NewBridge(m Messenger, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.Default()
	}
	return &Bridge{m: m, log: log}
}

// Queue stores d as the pending deck, replacing any earlier one, and delivers
// it right away when the module is already ready.
func (b *Bridge) Queue(d deck.Deck) {
	b.QueuePayload(d.JSON())
}

// QueuePayload is Queue for an already serialized deck.
func (b *Bridge) QueuePayload(payload string) {
	b.mu.Lock()
	b.pending = payload
	send := b.takeLocked()
	b.mu.Unlock()
	b.deliver(send)
}

// MarkReady records the module's ready signal and flushes the pending deck.
func (b *Bridge) MarkReady() {
	b.mu.Lock()
	b.ready = true
	b.progress = 1
	send := b.takeLocked()
	b.mu.Unlock()
	b.deliver(send)
}

// SetProgress records load progress, clamped to [0, 1].
func (b *Bridge) SetProgress(p float64) {
	switch {
	case p < 0:
		p = 0
	case p > 1:
		p = 1
	}
	b.mu.Lock()
	b.progress = p
	b.mu.Unlock()
}

// Close shuts the module connection down when the messenger supports it.
func (b *Bridge) Close() {
	if c, ok := b.m.(interface{ Close() }); ok {
		c.Close()
	}
}

func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Status{Ready: b.ready, Progress: b.progress, Pending: b.pending != ""}
}

// takeLocked empties the pending slot if it can be sent now.
func (b *Bridge) takeLocked() string {
	if !b.ready || b.pending == "" {
		return ""
	}
	p := b.pending
	b.pending = ""
	return p
}

func (b *Bridge) deliver(payload string) {
	if payload == "" {
		return
	}
	if err := b.m.SendMessage(Channel, Method, payload); err != nil {
		b.log.Warn("deck delivery failed", slog.Any("error", err))
		return
	}
	b.log.Info("deck delivered to game module", slog.String("deck", payload))
}
