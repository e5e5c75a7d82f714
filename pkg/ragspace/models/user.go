package models

import (
	"time"

	"gorm.io/gorm"
)

// Role represents a user's system-wide role
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User represents an account that can manage spaces and issue gateway keys
type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Username     string         `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string         `json:"-"`
	Role         Role           `gorm:"type:varchar(20);default:'user'" json:"role"`
	// GeminiAPIKey is the user's upstream credential. It is copied onto every
	// issued key at issuance time and never serialized to callers.
	GeminiAPIKey string `json:"-"`
	// Spaces holds the upstream file-search store names owned by the user.
	Spaces []string `gorm:"serializer:json" json:"spaces"`

	// Relationships
	IssuedKeys []IssuedKey `gorm:"foreignKey:OwnerUsername;references:Username" json:"issued_keys,omitempty"`
}
