package gateway

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ragspace/ragspace/pkg/ragspace/gemini"
	"github.com/ragspace/ragspace/pkg/ragspace/keys"
	"github.com/ragspace/ragspace/pkg/ragspace/spaceconfig"
)

// Generator runs one file-search-grounded generation call.
// *gemini.Client satisfies this; tests substitute fakes.
type Generator interface {
	FileSearch(ctx context.Context, p gemini.FileSearchParams) (*gemini.QueryResult, error)
}

// ClientFunc builds a Generator for one upstream credential. A fresh
// client per request keeps tenants from sharing upstream state.
type ClientFunc func(ctx context.Context, apiKey string) (Generator, error)

// GeminiClientFunc is the production ClientFunc backed by the Gemini API.
func GeminiClientFunc(ctx context.Context, apiKey string) (Generator, error) {
	return gemini.NewClient(ctx, apiKey)
}

// Handler serves the OpenAI-compatible chat completions endpoint.
type Handler struct {
	keys      *keys.Store
	configs   *spaceconfig.Store
	newClient ClientFunc
}

// NewHandler creates a gateway handler.
func NewHandler(keyStore *keys.Store, configStore *spaceconfig.Store, newClient ClientFunc) *Handler {
	return &Handler{keys: keyStore, configs: configStore, newClient: newClient}
}

func apiError(c *gin.Context, status int, errType, message string) {
	c.JSON(status, ErrorResponse{Error: APIError{Message: message, Type: errType}})
}

// bearerToken extracts the token from an Authorization header, or "" when
// the header is absent or malformed.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// ChatCompletions handles POST /v1/chat/completions.
func (h *Handler) ChatCompletions(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		apiError(c, http.StatusUnauthorized, errTypeInvalidRequest, "Invalid or missing API key")
		return
	}

	key, err := h.keys.Resolve(token)
	if err != nil {
		// Fail closed: lookup errors reject the request the same as an
		// unknown token.
		apiError(c, http.StatusUnauthorized, errTypeInvalidRequest, "Invalid API key")
		return
	}

	var req ChatCompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil || !validMessages(req.Messages) {
		apiError(c, http.StatusBadRequest, errTypeInvalidRequest, "Invalid messages format")
		return
	}

	cfg, err := h.configs.Get(key.TargetSpaceID)
	if err != nil {
		apiError(c, http.StatusInternalServerError, errTypeAPI, "Failed to load space config")
		return
	}

	client, err := h.newClient(c.Request.Context(), key.UpstreamCredential)
	if err != nil {
		apiError(c, http.StatusInternalServerError, errTypeAPI, err.Error())
		return
	}

	query, turns := translate(req.Messages)
	result, err := client.FileSearch(c.Request.Context(), gemini.FileSearchParams{
		StoreName:         key.TargetSpaceID,
		Model:             cfg.Model,
		SystemInstruction: cfg.SystemInstruction,
		Query:             query,
		Turns:             turns,
	})
	if err != nil {
		apiError(c, http.StatusInternalServerError, errTypeAPI, err.Error())
		return
	}

	// The upstream work already happened; a failed counter write is logged
	// rather than turned into a client-visible error.
	if err := h.configs.IncrementUsage(key.TargetSpaceID); err != nil {
		log.Printf("Failed to record usage for space %s: %v", key.TargetSpaceID, err)
	}

	// The response echoes the caller's requested model, or the space's
	// effective model when the request omitted one.
	echoModel := req.Model
	if echoModel == "" {
		echoModel = cfg.Model
	}

	c.JSON(http.StatusOK, ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   echoModel,
		Choices: []Choice{
			{
				Index:        0,
				Message:      Message{Role: "assistant", Content: result.Text},
				FinishReason: "stop",
			},
		},
		Usage: Usage{},
	})
}

// RegisterRoutes registers the gateway route on the engine root.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/v1/chat/completions", h.ChatCompletions)
}
