package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/auth"
	"github.com/guava-nexus/nexus/internal/nexus/service"
)

// AuthHandler serves nonce issuance, the entry point of every signing
// flow.
type AuthHandler struct {
	nonces *service.NonceService
	logger *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(nonces *service.NonceService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{nonces: nonces, logger: logger}
}

// Register mounts the auth routes on the given group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/nonce", h.IssueNonce)
}

type nonceRequest struct {
	Address string `json:"address" binding:"required"`
}

// IssueNonce hands out a fresh single-use nonce for an address, replacing
// any previously issued one.
func (h *AuthHandler) IssueNonce(c *gin.Context) {
	var req nonceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid wallet address required"})
		return
	}

	address := strings.ToLower(req.Address)
	if !auth.ValidAddress(address) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "valid wallet address required"})
		return
	}

	n, err := h.nonces.Issue(c.Request.Context(), address)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nonce":      n.Value,
		"expires_at": n.ExpiresAt,
	})
}
