package spaceconfig

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler handles space config requests
type Handler struct {
	store *Store
}

// NewHandler creates a new space config handler
func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// Get returns the effective config for a space, defaults included.
func (h *Handler) Get(c *gin.Context) {
	cfg, err := h.store.Get(c.Param("spaceId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch space config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// Put merges the provided fields into the space's config.
func (h *Handler) Put(c *gin.Context) {
	var patch Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	spaceID := c.Param("spaceId")
	if err := h.store.Put(spaceID, patch); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save space config"})
		return
	}

	cfg, err := h.store.Get(spaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch space config"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// IncrementStats bumps the usage counter for a space. Kept for callers
// that run completions outside the gateway, e.g. the in-browser chat.
func (h *Handler) IncrementStats(c *gin.Context) {
	if err := h.store.IncrementUsage(c.Param("spaceId")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update usage stats"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

// RegisterRoutes registers authenticated config routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/spaces/:spaceId/config", h.Get)
	rg.PUT("/spaces/:spaceId/config", h.Put)
}

// RegisterStatsRoutes registers the public stats route. The web frontend
// calls it without credentials, so it stays unauthenticated.
func (h *Handler) RegisterStatsRoutes(rg *gin.RouterGroup) {
	rg.POST("/spaces/:spaceId/stats/increment", h.IncrementStats)
}
