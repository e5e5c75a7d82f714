package config

import (
	"os"
)

// Config holds the core runtime configuration for the service.
// Values are sourced from environment variables (optionally via a .env
// file loaded by the caller), with defaults suitable for development.
type Config struct {
	// Port the HTTP server listens on.
	Port string

	// DBPath is the SQLite database file path.
	DBPath string

	// BaseURL is the externally visible URL of this service, used to build
	// the chat-completions endpoint returned alongside generated keys.
	BaseURL string

	AdminUsername string
	AdminPassword string

	// GeminiAPIKey optionally seeds the admin account's upstream credential.
	GeminiAPIKey string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:          getenv("PORT", "8080"),
		DBPath:        getenv("RAGSPACE_DB_PATH", "ragspace.db"),
		BaseURL:       getenv("RAGSPACE_BASE_URL", "http://localhost:8080"),
		AdminUsername: getenv("ADMIN_USERNAME", "admin"),
		AdminPassword: getenv("ADMIN_PASSWORD", "admin123"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
	}
}

// HasValidGeminiKey reports whether the configured admin Gemini key looks
// usable rather than a placeholder left in .env.
func (c *Config) HasValidGeminiKey() bool {
	return c.GeminiAPIKey != "" &&
		c.GeminiAPIKey != "your-api-key-here" &&
		len(c.GeminiAPIKey) > 20
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
