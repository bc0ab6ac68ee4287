// Package auth implements the wallet-signature authentication protocol:
// the canonical signing message, EIP-191 signature recovery, and the
// authorization gate every protected operation passes through.
package auth

import (
	"strconv"
	"strings"
	"time"
)

// SignatureWindow bounds both nonce lifetime and the accepted age of a
// signed timestamp. A captured (message, signature) pair is useless once
// either expires.
const SignatureWindow = 10 * time.Minute

// Challenge carries the fields a client signs to authorize one operation.
// It is ephemeral and never persisted.
type Challenge struct {
	Address   string
	Action    string
	Nonce     string
	Timestamp int64  // unix milliseconds, as produced by wallet clients
	SubjectID *int64 // seed id or request id, depending on Action
}

// Message renders the exact text the wallet signs. Field order and labels
// are the wire contract shared with clients; any change is a breaking
// protocol revision. The "Seed ID" label is kept for all subject kinds —
// it is the historical name of the line, not a typing claim.
func (c Challenge) Message() string {
	lines := []string{
		"Guava Nexus Authentication",
		"",
		"Address: " + c.Address,
		"Action: " + c.Action,
		"Nonce: " + c.Nonce,
		"Timestamp: " + strconv.FormatInt(c.Timestamp, 10),
	}

	if c.SubjectID != nil {
		lines = append(lines, "Seed ID: "+strconv.FormatInt(*c.SubjectID, 10))
	}

	lines = append(lines,
		"",
		"By signing this message, you prove ownership of this wallet address.",
		"This signature is valid for 10 minutes.",
	)

	return strings.Join(lines, "\n")
}
