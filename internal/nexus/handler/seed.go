package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/guava-nexus/nexus/internal/auth"
	"github.com/guava-nexus/nexus/internal/nexus/service"
)

// ActionUpdateSeed tags the seed update operation in the signed message.
const ActionUpdateSeed = "update_seed"

// SeedHandler serves seed creation, lookup, and signature-gated updates.
type SeedHandler struct {
	gate   *auth.Gate
	seeds  *service.SeedService
	logger *zap.Logger
}

// NewSeedHandler creates a SeedHandler.
func NewSeedHandler(gate *auth.Gate, seeds *service.SeedService, logger *zap.Logger) *SeedHandler {
	return &SeedHandler{gate: gate, seeds: seeds, logger: logger}
}

// Register mounts the seed routes on the given group.
func (h *SeedHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/seeds", h.Create)
	rg.GET("/seeds/:id", h.Get)
	rg.GET("/seeds/:id/versions", h.Versions)
	rg.POST("/seeds/:id/update", h.Update)
}

type createSeedRequest struct {
	Content       string `json:"content" binding:"required"`
	AuthorAddress string `json:"author_address"`
}

// Create inserts a new seed. Attribution is optional, but an unattributed
// seed can never be updated or attached to a hashname.
func (h *SeedHandler) Create(c *gin.Context) {
	var req createSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return
	}

	var author *string
	if req.AuthorAddress != "" {
		a := strings.ToLower(req.AuthorAddress)
		if !auth.ValidAddress(a) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author address format"})
			return
		}
		author = &a
	}

	seed, err := h.seeds.Create(c.Request.Context(), req.Content, author)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, seed)
}

func seedID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid seed id"})
		return 0, false
	}
	return id, true
}

// Get returns a seed by id.
func (h *SeedHandler) Get(c *gin.Context) {
	id, ok := seedID(c)
	if !ok {
		return
	}
	seed, err := h.seeds.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, seed)
}

// Versions returns the seed's revision history.
func (h *SeedHandler) Versions(c *gin.Context) {
	id, ok := seedID(c)
	if !ok {
		return
	}
	versions, err := h.seeds.Versions(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"versions": versions, "count": len(versions)})
}

type updateSeedRequest struct {
	Content string `json:"content" binding:"required"`
	authFields
}

// Update replaces the seed's content with a new version. The signature
// covers the seed id; only the author of record passes the service check.
func (h *SeedHandler) Update(c *gin.Context) {
	id, ok := seedID(c)
	if !ok {
		return
	}

	var req updateSeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content and authentication fields are required"})
		return
	}

	verified, err := h.gate.Authorize(c.Request.Context(), req.gateRequest(ActionUpdateSeed, &id))
	RecordAuthDecision(ActionUpdateSeed, err == nil)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	seed, err := h.seeds.Update(c.Request.Context(), id, verified, req.Content)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, seed)
}
