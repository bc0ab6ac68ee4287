package model

import "time"

// Nonce is a single-use authentication challenge value issued to a wallet
// address. At most one row exists per address; issuing a new nonce replaces
// any previous one.
type Nonce struct {
	Address   string    `json:"address"`
	Value     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}
