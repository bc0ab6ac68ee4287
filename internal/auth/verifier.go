package auth

import (
	"encoding/hex"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// addressPattern matches a lower-cased hex wallet address.
var addressPattern = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// ValidAddress reports whether address is a well-formed, lower-cased
// wallet address. Callers must normalize with strings.ToLower first.
func ValidAddress(address string) bool {
	return addressPattern.MatchString(address)
}

// VerifySignature recovers the signer of message from an EIP-191
// personal_sign signature and compares it case-insensitively to
// claimedAddress. Malformed input is never an error, just a mismatch.
func VerifySignature(message, signature, claimedAddress string) bool {
	recovered, err := RecoverAddress(message, signature)
	if err != nil {
		return false
	}
	return recovered == strings.ToLower(claimedAddress)
}

// RecoverAddress returns the lower-cased wallet address that produced the
// given personal_sign signature over message.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return "", errors.New("signature is not valid hex")
	}
	if len(sig) != 65 {
		return "", errors.New("signature must be 65 bytes")
	}

	// Wallets emit r || s || v with v as 27/28 (or occasionally 0/1);
	// RecoverCompact wants the recovery code first.
	v := sig[64]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return "", errors.New("invalid recovery id")
	}
	compact := make([]byte, 65)
	compact[0] = v + 27
	copy(compact[1:], sig[:64])

	pub, _, err := secpecdsa.RecoverCompact(compact, personalSignHash(message))
	if err != nil {
		return "", err
	}
	return pubKeyAddress(pub), nil
}

// personalSignHash is the EIP-191 digest: Keccak-256 over the prefixed
// message, exactly what wallets hash for personal_sign.
func personalSignHash(message string) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message))))
	h.Write([]byte(message))
	return h.Sum(nil)
}

// pubKeyAddress derives the wallet address: Keccak-256 of the uncompressed
// public key (without the 0x04 tag), last 20 bytes, lower-case hex.
func pubKeyAddress(pub *secp256k1.PublicKey) string {
	raw := pub.SerializeUncompressed()
	h := sha3.NewLegacyKeccak256()
	h.Write(raw[1:])
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[12:])
}
