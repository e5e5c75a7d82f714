package spaces

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ragspace/ragspace/pkg/ragspace/auth"
	"github.com/ragspace/ragspace/pkg/ragspace/gemini"
	"github.com/ragspace/ragspace/pkg/ragspace/keys"
	"github.com/ragspace/ragspace/pkg/ragspace/models"
	"github.com/ragspace/ragspace/pkg/ragspace/spaceconfig"
	"gorm.io/gorm"
)

// StoreClient manages upstream file-search stores.
// *gemini.Client satisfies this; tests substitute fakes.
type StoreClient interface {
	ListStores(ctx context.Context) ([]gemini.StoreInfo, error)
	CreateStore(ctx context.Context, displayName string) (*gemini.StoreInfo, error)
	DeleteStore(ctx context.Context, name string) error
}

// ClientFunc builds a StoreClient for one upstream credential.
type ClientFunc func(ctx context.Context, apiKey string) (StoreClient, error)

// GeminiClientFunc is the production ClientFunc backed by the Gemini API.
func GeminiClientFunc(ctx context.Context, apiKey string) (StoreClient, error) {
	return gemini.NewClient(ctx, apiKey)
}

// Handler handles space lifecycle requests. The upstream service owns the
// truth about which spaces exist; the handler keeps the local key registry
// and config table consistent with it.
type Handler struct {
	db        *gorm.DB
	keys      *keys.Store
	configs   *spaceconfig.Store
	newClient ClientFunc
}

// NewHandler creates a new spaces handler.
func NewHandler(db *gorm.DB, keyStore *keys.Store, configStore *spaceconfig.Store, newClient ClientFunc) *Handler {
	return &Handler{db: db, keys: keyStore, configs: configStore, newClient: newClient}
}

// CreateSpaceRequest represents a request to create a space
type CreateSpaceRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
}

// client builds an upstream client from the caller's stored credential.
func (h *Handler) client(c *gin.Context) (StoreClient, string, bool) {
	username, _ := auth.GetUsername(c)

	var user models.User
	if err := h.db.Where("username = ?", username).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return nil, "", false
	}
	if user.GeminiAPIKey == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Gemini API key not configured"})
		return nil, "", false
	}

	client, err := h.newClient(c.Request.Context(), user.GeminiAPIKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, "", false
	}
	return client, username, true
}

// List returns the caller's live upstream spaces and reconciles the local
// key registry against that listing: keys bound to spaces that no longer
// exist upstream are dropped.
func (h *Handler) List(c *gin.Context) {
	client, username, ok := h.client(c)
	if !ok {
		return
	}

	stores, err := client.ListStores(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	live := make(map[string]struct{}, len(stores))
	for _, s := range stores {
		live[s.Name] = struct{}{}
	}
	if _, err := h.keys.Reconcile(username, live); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile API keys"})
		return
	}

	if stores == nil {
		stores = []gemini.StoreInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"spaces": stores})
}

// Create creates a new upstream space and records it on the user.
func (h *Handler) Create(c *gin.Context) {
	var req CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing displayName"})
		return
	}

	client, username, ok := h.client(c)
	if !ok {
		return
	}

	store, err := client.CreateStore(c.Request.Context(), req.DisplayName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.updateUserSpaces(username, store.Name, true); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record space"})
		return
	}

	c.JSON(http.StatusOK, store)
}

// Delete removes an upstream space and cleans up everything local that
// referenced it: the space config, the user's space list and, via
// reconciliation against the post-delete listing, any issued keys.
func (h *Handler) Delete(c *gin.Context) {
	spaceID := c.Param("spaceId")

	client, username, ok := h.client(c)
	if !ok {
		return
	}

	if err := client.DeleteStore(c.Request.Context(), spaceID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if err := h.configs.Remove(spaceID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove space config"})
		return
	}
	if err := h.updateUserSpaces(username, spaceID, false); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user spaces"})
		return
	}

	stores, err := client.ListStores(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	live := make(map[string]struct{}, len(stores))
	for _, s := range stores {
		live[s.Name] = struct{}{}
	}
	if _, err := h.keys.Reconcile(username, live); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reconcile API keys"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Space deleted successfully"})
}

// updateUserSpaces adds or removes a space name on the user record.
func (h *Handler) updateUserSpaces(username, spaceID string, add bool) error {
	var user models.User
	if err := h.db.Where("username = ?", username).First(&user).Error; err != nil {
		return err
	}

	spaces := user.Spaces
	if add {
		for _, s := range spaces {
			if s == spaceID {
				return nil
			}
		}
		spaces = append(spaces, spaceID)
	} else {
		kept := spaces[:0]
		for _, s := range spaces {
			if s != spaceID {
				kept = append(kept, s)
			}
		}
		spaces = kept
	}

	return h.db.Model(&user).Update("spaces", spaces).Error
}

// RegisterRoutes registers space routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/spaces", h.List)
	rg.POST("/spaces", h.Create)
	rg.DELETE("/spaces/:spaceId", h.Delete)
}
