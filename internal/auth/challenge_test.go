package auth_test

import (
	"strings"
	"testing"

	"github.com/guava-nexus/nexus/internal/auth"
)

func TestChallengeMessage_withoutSubject(t *testing.T) {
	msg := auth.Challenge{
		Address:   "0x00112233445566778899aabbccddeeff00112233",
		Action:    "claim_hashname",
		Nonce:     "deadbeef",
		Timestamp: 1700000000000,
	}.Message()

	want := strings.Join([]string{
		"Guava Nexus Authentication",
		"",
		"Address: 0x00112233445566778899aabbccddeeff00112233",
		"Action: claim_hashname",
		"Nonce: deadbeef",
		"Timestamp: 1700000000000",
		"",
		"By signing this message, you prove ownership of this wallet address.",
		"This signature is valid for 10 minutes.",
	}, "\n")

	if msg != want {
		t.Errorf("message mismatch:\ngot:\n%s\nwant:\n%s", msg, want)
	}
}

func TestChallengeMessage_withSubject(t *testing.T) {
	id := int64(42)
	msg := auth.Challenge{
		Address:   "0x00112233445566778899aabbccddeeff00112233",
		Action:    "update_seed",
		Nonce:     "cafef00d",
		Timestamp: 1700000000000,
		SubjectID: &id,
	}.Message()

	if !strings.Contains(msg, "Seed ID: 42\n") {
		t.Errorf("message missing subject line:\n%s", msg)
	}
	// Subject line sits between the timestamp and the disclosure block.
	lines := strings.Split(msg, "\n")
	if lines[6] != "Seed ID: 42" {
		t.Errorf("subject line misplaced, line 7 = %q", lines[6])
	}
}

func TestChallengeMessage_subjectChangesPayload(t *testing.T) {
	base := auth.Challenge{
		Address:   "0x00112233445566778899aabbccddeeff00112233",
		Action:    "resolve_hashroot",
		Nonce:     "ff",
		Timestamp: 1,
	}
	withSubject := base
	id := int64(7)
	withSubject.SubjectID = &id

	if base.Message() == withSubject.Message() {
		t.Error("subject id must change the signed payload")
	}
}
