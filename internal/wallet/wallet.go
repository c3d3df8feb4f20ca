// Package wallet signs and checks Ethereum personal_sign messages.
package wallet

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

var (
	ErrBadAddress     = errors.New("malformed wallet address")
	ErrBadSignature   = errors.New("malformed wallet signature")
	ErrSignerMismatch = errors.New("signature was not made by this wallet")
)

// HashMessage is the personal_sign digest of msg.
func HashMessage(msg string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(msg)) + msg))
	return h.Sum(nil)
}

// NormalizeAddress lower-cases a 0x-prefixed 20-byte hex address.
func NormalizeAddress(addr string) (string, error) {
	a := strings.ToLower(strings.TrimSpace(addr))
	if !strings.HasPrefix(a, "0x") || len(a) != 42 {
		return "", fmt.Errorf("%w: %q", ErrBadAddress, addr)
	}
	if _, err := hex.DecodeString(a[2:]); err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadAddress, addr)
	}
	return a, nil
}

// AddressOf derives the lower-case address of pub.
func AddressOf(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeUncompressed()
	h := sha3.NewLegacyKeccak256()
	h.Write(raw[1:])
	return "0x" + hex.EncodeToString(h.Sum(nil)[12:])
}

// Recover returns the address that produced sig over msg. sig is the 65-byte
// r||s||v hex string a wallet returns, v being 0/1 or 27/28.
func Recover(msg, sig string) (string, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(sig), "0x"))
	if err != nil || len(b) != 65 {
		return "", ErrBadSignature
	}
	v := b[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", ErrBadSignature
	}
	compact := make([]byte, 65)
	compact[0] = 27 + v
	copy(compact[1:], b[:64])

	pub, _, err := ecdsa.RecoverCompact(compact, HashMessage(msg))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return AddressOf(pub), nil
}

// Verify checks that sig over msg was made by address.
func Verify(address, msg, sig string) error {
	want, err := NormalizeAddress(address)
	if err != nil {
		return err
	}
	got, err := Recover(msg, sig)
	if err != nil {
		return err
	}
	if got != want {
		return ErrSignerMismatch
	}
	return nil
}

// Signer produces personal_sign signatures from a local key, for headless logins.
type Signer struct {
	key *secp256k1.PrivateKey
}

// NewSigner parses a hex private key, with or without 0x.
func NewSigner(hexKey string) (*Signer, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil || len(b) != 32 {
		return nil, errors.New("private key must be 32 bytes of hex")
	}
	return &Signer{key: secp256k1.PrivKeyFromBytes(b)}, nil
}

func (s *Signer) Address() string {
	return AddressOf(s.key.PubKey())
}

// Sign returns the 0x-prefixed r||s||v signature with v in {27, 28}.
func (s *Signer) Sign(msg string) string {
	compact := ecdsa.SignCompact(s.key, HashMessage(msg), false)
	out := make([]byte, 65)
	copy(out, compact[1:])
	out[64] = compact[0]
	return "0x" + hex.EncodeToString(out)
}
