// Package handler exposes the nexus core over HTTP. Handlers translate
// JSON bodies into service calls and map typed service errors onto status
// codes; no domain decision lives here.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/auth"
	"github.com/guava-nexus/nexus/internal/nexus/service"
)

// authFields are the wallet-signature fields every protected request
// carries alongside its operation payload.
type authFields struct {
	Address   string `json:"address" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Nonce     string `json:"nonce" binding:"required"`
	Timestamp int64  `json:"timestamp" binding:"required"`
}

func (a authFields) gateRequest(action string, subjectID *int64) auth.Request {
	return auth.Request{
		Address:   a.Address,
		Signature: a.Signature,
		Nonce:     a.Nonce,
		Timestamp: a.Timestamp,
		Action:    action,
		SubjectID: subjectID,
	}
}

// writeError maps a service or gate error onto an HTTP status with an
// actionable message. Unclassified errors become an opaque 500; store
// internals never reach the client.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, auth.ErrBadAddress),
		errors.Is(err, service.ErrEmptyContent),
		errors.Is(err, service.ErrInvalidResolveAction),
		errors.Is(err, service.ErrHashNameInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

	case errors.Is(err, auth.ErrStaleSignature),
		errors.Is(err, auth.ErrInvalidNonce),
		errors.Is(err, auth.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrNotSeedAuthor),
		errors.Is(err, service.ErrNotHashNameOwner),
		errors.Is(err, service.ErrNotSeedUpdater):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrHashNameNotFound),
		errors.Is(err, service.ErrSeedNotFound),
		errors.Is(err, service.ErrRequestNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrAlreadyClaimed),
		errors.Is(err, service.ErrAlreadyResolved),
		errors.Is(err, service.ErrHashNameUnclaimed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})

	case errors.Is(err, service.ErrStoreTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "store request timed out, retry is safe"})

	default:
		logger.Error("unclassified handler error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
