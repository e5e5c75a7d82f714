package models

import (
	"time"

	"gorm.io/gorm"
)

// IssuedKey represents a gateway bearer token bound to one upstream space.
// A token is minted once and never rebound; several tokens may point at the
// same space.
type IssuedKey struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	// Token is the opaque secret presented by OpenAI-compatible clients.
	// Stored raw: owners read their keys back via list-with-keys.
	Token         string `gorm:"uniqueIndex;not null" json:"token"`
	OwnerUsername string `gorm:"index;not null" json:"username"`
	// TargetSpaceID is the upstream store name, e.g. "fileSearchStores/abc".
	TargetSpaceID string `gorm:"index;not null" json:"space_name"`
	DisplayName   string `json:"display_name"`
	// UpstreamCredential is the owner's Gemini API key captured at issuance.
	UpstreamCredential string `json:"-"`
}
