// Package gemini wraps the Google GenAI SDK for file-search-grounded
// generation and store lifecycle management. Clients are cheap and are
// built per request from the tenant's own credential, so one process can
// serve many tenants without sharing an upstream handle.
package gemini

import (
	"context"
	"errors"

	"google.golang.org/genai"
)

const (
	// DefaultModel is used when a space has no model configured.
	DefaultModel = "gemini-2.5-flash"

	// DefaultSystemInstruction is used when a space has no instruction
	// configured.
	DefaultSystemInstruction = "DO NOT ASK THE USER TO READ THE MANUAL. " +
		"Provide a direct answer based on the provided context. " +
		"Pinpoint the relevant sections."
)

// Turn is one conversation turn in a multi-turn query.
// Role is a Gemini role: "user" or "model".
type Turn struct {
	Role string
	Text string
}

// FileSearchParams describes one grounded generation call.
// Exactly one of Query or Turns should be set: Query for a single-turn
// question, Turns for a conversation transcript.
type FileSearchParams struct {
	StoreName         string
	Model             string
	SystemInstruction string
	Query             string
	Turns             []Turn
}

// Citation is one grounding reference returned with a generated answer.
type Citation struct {
	Title string `json:"title,omitempty"`
	Text  string `json:"text,omitempty"`
}

// QueryResult is the outcome of a file-search generation call.
type QueryResult struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations,omitempty"`
}

// StoreInfo describes one upstream file-search store.
type StoreInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Client talks to the Gemini API on behalf of a single credential.
type Client struct {
	ai *genai.Client
}

// NewClient creates a client for the given API key.
func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key not set")
	}
	ai, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Client{ai: ai}, nil
}

// FileSearch runs a generation call grounded in the given store.
func (c *Client) FileSearch(ctx context.Context, p FileSearchParams) (*QueryResult, error) {
	model := p.Model
	if model == "" {
		model = DefaultModel
	}
	instruction := p.SystemInstruction
	if instruction == "" {
		instruction = DefaultSystemInstruction
	}

	var contents []*genai.Content
	if p.Query != "" {
		contents = genai.Text(p.Query)
	} else {
		for _, turn := range p.Turns {
			contents = append(contents, genai.NewContentFromText(turn.Text, genai.Role(turn.Role)))
		}
	}
	if len(contents) == 0 {
		return nil, errors.New("gemini: empty query")
	}

	resp, err := c.ai.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Tools: []*genai.Tool{
			{FileSearch: &genai.FileSearch{FileSearchStoreNames: []string{p.StoreName}}},
		},
	})
	if err != nil {
		return nil, err
	}

	return &QueryResult{
		Text:      resp.Text(),
		Citations: citations(resp),
	}, nil
}

func citations(resp *genai.GenerateContentResponse) []Citation {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []Citation
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.RetrievedContext == nil {
			continue
		}
		out = append(out, Citation{
			Title: chunk.RetrievedContext.Title,
			Text:  chunk.RetrievedContext.Text,
		})
	}
	return out
}

// ListStores returns all file-search stores visible to the credential.
func (c *Client) ListStores(ctx context.Context) ([]StoreInfo, error) {
	var stores []StoreInfo
	page, err := c.ai.FileSearchStores.List(ctx, &genai.ListFileSearchStoresConfig{})
	for {
		if err != nil {
			if errors.Is(err, genai.ErrPageDone) {
				break
			}
			return nil, err
		}
		for _, s := range page.Items {
			info := StoreInfo{Name: s.Name, DisplayName: s.DisplayName}
			if info.DisplayName == "" {
				info.DisplayName = s.Name
			}
			stores = append(stores, info)
		}
		page, err = page.Next(ctx)
	}
	return stores, nil
}

// CreateStore creates a new file-search store and returns it.
func (c *Client) CreateStore(ctx context.Context, displayName string) (*StoreInfo, error) {
	store, err := c.ai.FileSearchStores.Create(ctx, &genai.CreateFileSearchStoreConfig{
		DisplayName: displayName,
	})
	if err != nil {
		return nil, err
	}
	if store.Name == "" {
		return nil, errors.New("gemini: created store has no name")
	}
	return &StoreInfo{Name: store.Name, DisplayName: displayName}, nil
}

// DeleteStore deletes a file-search store and all its documents.
func (c *Client) DeleteStore(ctx context.Context, name string) error {
	return c.ai.FileSearchStores.Delete(ctx, name, &genai.DeleteFileSearchStoreConfig{
		Force: genai.Ptr(true),
	})
}
