package deck

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Size is the number of cards in a complete deck.
const Size = 10

// codePrefix marks a shareable deck code.
const codePrefix = "gemdeck:"

var (
	ErrWrongSize = errors.New("deck must hold exactly 10 cards")
	ErrDuplicate = errors.New("deck holds a card more than once")
	ErrBadCardID = errors.New("card id must be positive")
	ErrBadCode   = errors.New("malformed deck code")
)

// Deck is an ordered list of card ids. Order is selection order.
type Deck []int

// Clone returns a copy that shares no memory with d. A nil deck clones to an empty one.
func (d Deck) Clone() Deck {
	out := make(Deck, len(d))
	copy(out, d)
	return out
}

func (d Deck) Contains(id int) bool {
	return d.IndexOf(id) >= 0
}

func (d Deck) IndexOf(id int) int {
	for i, v := range d {
		if v == id {
			return i
		}
	}
	return -1
}

// Complete reports whether d has exactly Size cards.
func (d Deck) Complete() bool {
	return len(d) == Size
}

// Validate checks that d is a complete deck of distinct positive ids.
func (d Deck) Validate() error {
	if len(d) != Size {
		return fmt.Errorf("%w: got %d", ErrWrongSize, len(d))
	}
	seen := make(map[int]struct{}, len(d))
	for _, id := range d {
		if id <= 0 {
			return fmt.Errorf("%w: %d", ErrBadCardID, id)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicate, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// JSON returns the stable JSON array form handed to the game module, e.g. [1,2,3].
func (d Deck) JSON() string {
	if d == nil {
		d = Deck{}
	}
	b, _ := json.Marshal([]int(d))
	return string(b)
}

// ParseJSON reads the form produced by JSON.
func ParseJSON(s string) (Deck, error) {
	var ids []int
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil, fmt.Errorf("parse deck json: %w", err)
	}
	return Deck(ids), nil
}

// Code returns a short shareable code such as "gemdeck:1-2-3".
func (d Deck) Code() string {
	parts := make([]string, len(d))
	for i, id := range d {
		parts[i] = strconv.Itoa(id)
	}
	return codePrefix + strings.Join(parts, "-")
}

// ParseCode reverses Code. The result is not validated for size.
func ParseCode(code string) (Deck, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(code), codePrefix)
	if !ok {
		return nil, ErrBadCode
	}
	if rest == "" {
		return Deck{}, nil
	}
	parts := strings.Split(rest, "-")
	out := make(Deck, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.Atoi(p)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("%w: %q", ErrBadCode, p)
		}
		out = append(out, id)
	}
	return out, nil
}
