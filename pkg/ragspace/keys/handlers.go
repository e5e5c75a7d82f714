package keys

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ragspace/ragspace/pkg/ragspace/auth"
	"github.com/ragspace/ragspace/pkg/ragspace/models"
	"gorm.io/gorm"
)

// Handler handles key issuance and listing requests
type Handler struct {
	db      *gorm.DB
	store   *Store
	baseURL string
}

// NewHandler creates a new keys handler. baseURL is used to build the
// chat-completions endpoint returned with each generated key.
func NewHandler(db *gorm.DB, store *Store, baseURL string) *Handler {
	return &Handler{db: db, store: store, baseURL: baseURL}
}

// GenerateKeyRequest represents a request to issue a key for a space
type GenerateKeyRequest struct {
	DisplayName string `json:"displayName"`
	// GeminiKey optionally overrides the owner's stored upstream credential.
	GeminiKey string `json:"geminiKey"`
}

// GenerateKeyResponse includes the full key (only shown here and in the
// owner's own listing)
type GenerateKeyResponse struct {
	APIKey   string `json:"apiKey"`
	Endpoint string `json:"endpoint"`
}

// KeyInfo represents one issued key in listings
type KeyInfo struct {
	SpaceName   string    `json:"spaceName"`
	DisplayName string    `json:"displayName"`
	Username    string    `json:"username"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (h *Handler) endpoint() string {
	return h.baseURL + "/v1/chat/completions"
}

// Generate issues a new bearer token for a space. The upstream credential
// is taken from the request body when present, otherwise from the owner's
// stored Gemini key.
func (h *Handler) Generate(c *gin.Context) {
	username, _ := auth.GetUsername(c)
	spaceID := c.Param("spaceId")
	if spaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	var req GenerateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// displayName and geminiKey are both optional
		req = GenerateKeyRequest{}
	}

	credential := req.GeminiKey
	if credential == "" {
		var user models.User
		if err := h.db.Where("username = ?", username).First(&user).Error; err == nil {
			credential = user.GeminiAPIKey
		}
	}
	if credential == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = spaceID
	}

	key, err := h.store.Issue(username, spaceID, displayName, credential)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate API key"})
		return
	}

	c.JSON(http.StatusOK, GenerateKeyResponse{
		APIKey:   key.Token,
		Endpoint: h.endpoint(),
	})
}

// ListWithKeys returns the caller's issued keys as a map keyed by token,
// used by the frontend to restore space display names. Other owners'
// records are never included.
func (h *Handler) ListWithKeys(c *gin.Context) {
	username, _ := auth.GetUsername(c)

	keys, err := h.store.ListForOwner(username)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch API keys"})
		return
	}

	apiKeys := make(map[string]KeyInfo, len(keys))
	for _, key := range keys {
		apiKeys[key.Token] = KeyInfo{
			SpaceName:   key.TargetSpaceID,
			DisplayName: key.DisplayName,
			Username:    key.OwnerUsername,
			CreatedAt:   key.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{"apiKeys": apiKeys})
}

// GetForSpace returns the newest key the caller issued for a space.
func (h *Handler) GetForSpace(c *gin.Context) {
	username, _ := auth.GetUsername(c)
	spaceID := c.Param("spaceId")

	key, err := h.store.FindForSpace(username, spaceID)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "API key not found for this space"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch API key"})
		return
	}

	c.JSON(http.StatusOK, GenerateKeyResponse{
		APIKey:   key.Token,
		Endpoint: h.endpoint(),
	})
}

// RegisterRoutes registers key routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/spaces/:spaceId/generate-key", h.Generate)
	rg.GET("/spaces/:spaceId/api-key", h.GetForSpace)
	rg.GET("/spaces/list-with-keys", h.ListWithKeys)
}
