package client

import (
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

// Wallet holds a secp256k1 key and signs canonical authorization messages
// exactly the way browser wallets do with personal_sign.
type Wallet struct {
	priv    *secp256k1.PrivateKey
	address string
}

// NewWallet parses a hex-encoded 32-byte private key, with or without a
// 0x prefix.
func NewWallet(hexKey string) (*Wallet, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexKey, "0x"))
	if err != nil || len(raw) != 32 {
		return nil, errors.New("private key must be 32 bytes of hex")
	}
	return walletFromKey(secp256k1.PrivKeyFromBytes(raw)), nil
}

// GenerateWallet creates a wallet with a fresh random key.
func GenerateWallet() (*Wallet, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return walletFromKey(priv), nil
}

func walletFromKey(priv *secp256k1.PrivateKey) *Wallet {
	pub := priv.PubKey().SerializeUncompressed()
	h := sha3.NewLegacyKeccak256()
	h.Write(pub[1:])
	sum := h.Sum(nil)
	return &Wallet{priv: priv, address: "0x" + hex.EncodeToString(sum[12:])}
}

// Address returns the lowercase 0x-prefixed address derived from the key.
func (w *Wallet) Address() string {
	return w.address
}

// Sign produces a personal_sign signature over message: r || s || v with
// the recovery byte last, the format the server's verifier expects.
func (w *Wallet) Sign(message string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte("\x19Ethereum Signed Message:\n" + strconv.Itoa(len(message))))
	h.Write([]byte(message))
	digest := h.Sum(nil)

	compact := secpecdsa.SignCompact(w.priv, digest, false)
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return "0x" + hex.EncodeToString(sig)
}
