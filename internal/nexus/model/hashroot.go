package model

import "time"

// RequestStatus is the lifecycle state of a hashroot request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// HashRootRequest is a proposal to attach a seed to a hashname, awaiting a
// decision by the hashname owner. A request terminates exactly once, as
// accepted or rejected; a rejected request does not block a later one for
// the same pair.
type HashRootRequest struct {
	ID               int64         `json:"request_id"`
	SeedID           int64         `json:"seed_id"`
	HashNameID       int64         `json:"hashname_id"`
	RequesterAddress string        `json:"requester_address"`
	Status           RequestStatus `json:"status"`
	CreatedAt        time.Time     `json:"created_at"`
	ResolvedAt       *time.Time    `json:"resolved_at,omitempty"`
	DecisionNote     *string       `json:"decision_note,omitempty"`
}

// HashRoot is the durable, approved association between a seed and a
// hashname. The (SeedID, HashNameID) pair is its natural key.
type HashRoot struct {
	SeedID            int64     `json:"seed_id"`
	HashNameID        int64     `json:"hashname_id"`
	AttachedByAddress string    `json:"attached_by_address"`
	AttachedAt        time.Time `json:"attached_at"`
}
