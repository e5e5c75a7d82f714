package users

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ragspace/ragspace/pkg/ragspace/auth"
	"github.com/ragspace/ragspace/pkg/ragspace/models"
	"gorm.io/gorm"
)

// Handler handles user self-service requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new users handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// UpdateGeminiKeyRequest carries a user's upstream credential
type UpdateGeminiKeyRequest struct {
	GeminiAPIKey string `json:"geminiApiKey"`
}

// UpdateGeminiKey stores the Gemini API key for a user. Users may update
// their own key; admins may update anyone's.
func (h *Handler) UpdateGeminiKey(c *gin.Context) {
	username := c.Param("username")
	requester, _ := auth.GetUsername(c)
	role, _ := auth.GetRole(c)

	if requester != username && role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	if err := h.db.Where("username = ?", username).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	var req UpdateGeminiKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.db.Model(&user).Update("gemini_api_key", req.GeminiAPIKey).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save API key"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Gemini API key saved successfully"})
}

// RegisterRoutes registers user routes on the given router group
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.PUT("/users/:username/gemini-key", h.UpdateGeminiKey)
}
