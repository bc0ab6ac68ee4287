package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/auth"
	"github.com/guava-nexus/nexus/internal/nexus/service"
)

// Action tags for the hashroot workflow, written into the signed message.
const (
	ActionRequestHashRoot = "request_hashroot"
	ActionResolveHashRoot = "resolve_hashroot"
)

// HashRootHandler serves attachment requests and their resolution.
type HashRootHandler struct {
	gate      *auth.Gate
	hashroots *service.HashRootService
	logger    *zap.Logger
}

// NewHashRootHandler creates a HashRootHandler.
func NewHashRootHandler(gate *auth.Gate, hashroots *service.HashRootService, logger *zap.Logger) *HashRootHandler {
	return &HashRootHandler{gate: gate, hashroots: hashroots, logger: logger}
}

// Register mounts the hashroot routes on the given group.
func (h *HashRootHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/hashroots/request", h.Request)
	rg.POST("/hashroots/resolve", h.Resolve)
	rg.GET("/hashnames/:handle/requests", h.ListRequests)
}

type requestHashRootRequest struct {
	SeedID         int64  `json:"seed_id" binding:"required,min=1"`
	HashNameHandle string `json:"hashname_handle" binding:"required"`
	authFields
}

// Request opens (or idempotently returns) the pending attachment request
// for a seed and hashname. The signature covers the seed id.
func (h *HashRootHandler) Request(c *gin.Context) {
	var req requestHashRootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seed_id, hashname_handle and authentication fields are required"})
		return
	}

	verified, err := h.gate.Authorize(c.Request.Context(), req.gateRequest(ActionRequestHashRoot, &req.SeedID))
	RecordAuthDecision(ActionRequestHashRoot, err == nil)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	result, err := h.hashroots.Request(c.Request.Context(), req.SeedID, req.HashNameHandle, verified)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	if result.AlreadyAttached {
		c.JSON(http.StatusOK, gin.H{
			"ok":               true,
			"already_attached": true,
			"seed_id":          req.SeedID,
			"hashname_handle":  result.Handle,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"request_id":      result.Request.ID,
		"status":          result.Request.Status,
		"seed_id":         result.Request.SeedID,
		"hashname_handle": result.Handle,
	})
}

type resolveHashRootRequest struct {
	RequestID int64   `json:"request_id" binding:"required,min=1"`
	Action    string  `json:"action" binding:"required"`
	Note      *string `json:"note"`
	authFields
}

// Resolve accepts or rejects a pending request. The signature covers the
// request id; only the hashname owner's wallet passes the service check.
func (h *HashRootHandler) Resolve(c *gin.Context) {
	var req resolveHashRootRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request_id, action and authentication fields are required"})
		return
	}

	verified, err := h.gate.Authorize(c.Request.Context(), req.gateRequest(ActionResolveHashRoot, &req.RequestID))
	RecordAuthDecision(ActionResolveHashRoot, err == nil)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	result, err := h.hashroots.Resolve(c.Request.Context(), req.RequestID, service.ResolveAction(req.Action), verified, req.Note)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":              true,
		"status":          result.Status,
		"seed_id":         result.SeedID,
		"hashname_handle": result.Handle,
	})
}

// ListRequests returns all requests against a hashname, newest first.
func (h *HashRootHandler) ListRequests(c *gin.Context) {
	reqs, err := h.hashroots.ListRequests(c.Request.Context(), c.Param("handle"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs, "count": len(reqs)})
}
