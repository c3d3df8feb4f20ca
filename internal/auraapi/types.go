package auraapi

import (
	"bytes"
	"encoding/json"
)

// UserID accepts either a JSON string or number.
type UserID string

func (id *UserID) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

// Login is the body returned by every successful login.
type Login struct {
	Token         string `json:"token"`
	UserID        UserID `json:"userId"`
	Username      string `json:"username"`
	WalletAddress string `json:"walletAddress,omitempty"`
}

type nonceResponse struct {
	Nonce string `json:"nonce"`
}

type walletLoginRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Name          string `json:"name,omitempty"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type deckResponse struct {
	Deck []int `json:"deck"`
}

type replaceDeckRequest struct {
	Gems []int `json:"gems"`
}

type walletRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature,omitempty"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
