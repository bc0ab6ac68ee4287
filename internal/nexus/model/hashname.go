package model

import "time"

// HashName is a claimable namespace. OwnerAddress is nil until a wallet
// claims the handle; the claim transition is one-way.
type HashName struct {
	ID           int64     `json:"hashname_id"`
	Handle       string    `json:"handle"`
	OwnerAddress *string   `json:"owner_address"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// OwnedBy reports whether the hashname is owned by the given address.
func (h *HashName) OwnedBy(address string) bool {
	return h.OwnerAddress != nil && *h.OwnerAddress == address
}
