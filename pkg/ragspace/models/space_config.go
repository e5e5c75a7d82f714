package models

import (
	"time"
)

// SpaceConfig holds per-space generation settings and usage counters.
// A missing row is equivalent to all-default values.
type SpaceConfig struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// SpaceID is the upstream store name this config belongs to.
	SpaceID           string     `gorm:"uniqueIndex;not null" json:"spaceId"`
	Model             string     `json:"model"`
	SystemInstruction string     `json:"systemInstruction"`
	UsageCount        int64      `gorm:"default:0" json:"usageCount"`
	LastActive        *time.Time `json:"lastActive"`
}
