package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/auth"
	"github.com/guava-nexus/nexus/internal/nexus/service"
)

// ActionClaimHashName tags the claim operation in the signed message.
const ActionClaimHashName = "claim_hashname"

// HashNameHandler serves hashname lookup and claiming.
type HashNameHandler struct {
	gate   *auth.Gate
	claims *service.ClaimService
	logger *zap.Logger
}

// NewHashNameHandler creates a HashNameHandler.
func NewHashNameHandler(gate *auth.Gate, claims *service.ClaimService, logger *zap.Logger) *HashNameHandler {
	return &HashNameHandler{gate: gate, claims: claims, logger: logger}
}

// Register mounts the hashname routes on the given group.
func (h *HashNameHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/hashnames/claim", h.Claim)
	rg.GET("/hashnames/:handle", h.Get)
}

type claimRequest struct {
	Handle string `json:"handle" binding:"required"`
	authFields
}

// Claim verifies the caller's wallet signature and performs the
// first-claim-wins ownership transition.
func (h *HashNameHandler) Claim(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "handle and authentication fields (address, signature, nonce, timestamp) are required"})
		return
	}

	verified, err := h.gate.Authorize(c.Request.Context(), req.gateRequest(ActionClaimHashName, nil))
	RecordAuthDecision(ActionClaimHashName, err == nil)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	result, err := h.claims.Claim(c.Request.Context(), req.Handle, verified)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	msg := "hashname claimed successfully"
	if result.Outcome == service.OutcomeAlreadyOwned {
		msg = "you already own this hashname"
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":            true,
		"handle":        result.HashName.Handle,
		"owner_address": verified,
		"outcome":       result.Outcome,
		"message":       msg,
	})
}

// Get returns public hashname info by handle.
func (h *HashNameHandler) Get(c *gin.Context) {
	hn, err := h.claims.Lookup(c.Request.Context(), c.Param("handle"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, hn)
}
