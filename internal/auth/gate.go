package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sentinel errors for the authorization gate. All of them map to
// unauthorized except ErrBadAddress, which is a malformed input.
var (
	ErrBadAddress       = errors.New("invalid wallet address format")
	ErrStaleSignature   = errors.New("signature timestamp outside the allowed window")
	ErrInvalidNonce     = errors.New("invalid or expired nonce")
	ErrInvalidSignature = errors.New("signature does not match the claimed address")
)

// NonceConsumer is the nonce side of the gate, satisfied by
// *service.NonceService. Consume must delete the nonce on success so it
// can back at most one authorization.
type NonceConsumer interface {
	Consume(ctx context.Context, address, nonce string) error
}

// Request is one authorization attempt as submitted by a client.
type Request struct {
	Address   string
	Signature string
	Nonce     string
	Timestamp int64 // unix milliseconds
	Action    string
	SubjectID *int64
}

// Gate verifies wallet-signature authorization requests. It is the single
// entry point for every protected operation: nonce freshness, timestamp
// window, and signature recovery are checked here and nowhere else.
type Gate struct {
	nonces NonceConsumer
	logger *zap.Logger
	now    func() time.Time
}

// NewGate creates a Gate backed by the given nonce consumer.
func NewGate(nonces NonceConsumer, logger *zap.Logger) *Gate {
	return &Gate{nonces: nonces, logger: logger, now: time.Now}
}

// SetClock overrides the gate's time source. Test hook.
func (g *Gate) SetClock(now func() time.Time) {
	g.now = now
}

// Authorize runs the ordered verification gates and returns the normalized
// address as the verified principal. Each gate short-circuits; the only
// side effect on any path is nonce consumption, which is irrevocable the
// moment the nonce gate is reached — a failed signature check cannot be
// retried with the same nonce.
func (g *Gate) Authorize(ctx context.Context, req Request) (string, error) {
	address := strings.ToLower(req.Address)
	if !ValidAddress(address) {
		return "", ErrBadAddress
	}

	now := g.now()
	issued := time.UnixMilli(req.Timestamp)
	if issued.After(now) || now.Sub(issued) >= SignatureWindow {
		return "", ErrStaleSignature
	}

	if err := g.nonces.Consume(ctx, address, req.Nonce); err != nil {
		g.logger.Info("nonce rejected",
			zap.String("address", address),
			zap.String("action", req.Action),
			zap.Error(err),
		)
		return "", fmt.Errorf("%w: %s", ErrInvalidNonce, err.Error())
	}

	msg := Challenge{
		Address:   address,
		Action:    req.Action,
		Nonce:     req.Nonce,
		Timestamp: req.Timestamp,
		SubjectID: req.SubjectID,
	}.Message()

	if !VerifySignature(msg, req.Signature, address) {
		g.logger.Info("signature rejected",
			zap.String("address", address),
			zap.String("action", req.Action),
		)
		return "", ErrInvalidSignature
	}

	return address, nil
}
