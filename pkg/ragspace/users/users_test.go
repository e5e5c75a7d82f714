package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ragspace/ragspace/pkg/ragspace/auth"
	"github.com/ragspace/ragspace/pkg/ragspace/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	models.AutoMigrate(db)
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, username string, role models.Role) models.User {
	hash, _ := auth.HashPassword("password123")
	user := models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Spaces:       []string{},
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

func setupTestRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handler := NewHandler(db)
	api := r.Group("/api", auth.AuthMiddleware())
	handler.RegisterRoutes(api)
	return r
}

func putGeminiKey(router *gin.Engine, as models.User, target, key string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	json.NewEncoder(&buf).Encode(map[string]string{"geminiApiKey": key})
	req, _ := http.NewRequest("PUT", "/api/users/"+target+"/gemini-key", &buf)
	req.Header.Set("Content-Type", "application/json")
	token, _ := auth.GenerateToken(as.Username, string(as.Role))
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestUpdateOwnGeminiKey(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", models.RoleUser)
	router := setupTestRouter(db)

	resp := putGeminiKey(router, alice, "alice", "AIza-new-key")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var stored models.User
	db.Where("username = ?", "alice").First(&stored)
	if stored.GeminiAPIKey != "AIza-new-key" {
		t.Errorf("Expected the key to be saved, got %q", stored.GeminiAPIKey)
	}
}

func TestAdminCanUpdateAnyGeminiKey(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	createTestUser(t, db, "alice", models.RoleUser)
	router := setupTestRouter(db)

	resp := putGeminiKey(router, admin, "alice", "AIza-admin-set")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var stored models.User
	db.Where("username = ?", "alice").First(&stored)
	if stored.GeminiAPIKey != "AIza-admin-set" {
		t.Errorf("Expected the key to be saved, got %q", stored.GeminiAPIKey)
	}
}

func TestCannotUpdateAnotherUsersKey(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "alice", models.RoleUser)
	bob := createTestUser(t, db, "bob", models.RoleUser)
	router := setupTestRouter(db)

	resp := putGeminiKey(router, bob, "alice", "AIza-sneaky")
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}

	var stored models.User
	db.Where("username = ?", "alice").First(&stored)
	if stored.GeminiAPIKey != "" {
		t.Error("Expected alice's key to be untouched")
	}
}

func TestClearGeminiKey(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", models.RoleUser)
	db.Model(&alice).Update("gemini_api_key", "AIza-old")
	router := setupTestRouter(db)

	resp := putGeminiKey(router, alice, "alice", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var stored models.User
	db.Where("username = ?", "alice").First(&stored)
	if stored.GeminiAPIKey != "" {
		t.Errorf("Expected the key to be cleared, got %q", stored.GeminiAPIKey)
	}
}

func TestUpdateKeyUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	router := setupTestRouter(db)

	resp := putGeminiKey(router, admin, "ghost", "AIza-key")
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}
