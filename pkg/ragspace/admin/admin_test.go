package admin

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ragspace/ragspace/pkg/ragspace/auth"
	"github.com/ragspace/ragspace/pkg/ragspace/keys"
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
	adminGroup := r.Group("/api/admin", auth.AuthMiddleware(), auth.RequireAdmin())
	handler.RegisterRoutes(adminGroup)
	return r
}

func doRequest(router *gin.Engine, user models.User, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	token, _ := auth.GenerateToken(user.Username, string(user.Role))
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	alice := createTestUser(t, db, "alice", models.RoleUser)
	db.Model(&alice).Update("spaces", []string{"fileSearchStores/a", "fileSearchStores/b"})
	router := setupTestRouter(db)

	resp := doRequest(router, admin, "GET", "/api/admin/users", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result struct {
		Users []UserResponse `json:"users"`
	}
	json.Unmarshal(resp.Body.Bytes(), &result)
	if len(result.Users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(result.Users))
	}

	for _, u := range result.Users {
		if u.Username == "alice" && u.SpacesCount != 2 {
			t.Errorf("Expected alice to have 2 spaces, got %d", u.SpacesCount)
		}
		if u.CreatedAt == "" {
			t.Error("Expected a createdAt timestamp")
		}
	}
}

func TestListUsersForbiddenForNonAdmin(t *testing.T) {
	db := setupTestDB(t)
	alice := createTestUser(t, db, "alice", models.RoleUser)
	router := setupTestRouter(db)

	resp := doRequest(router, alice, "GET", "/api/admin/users", nil)
	if resp.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", resp.Code)
	}
}

func TestCreateUser(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	router := setupTestRouter(db)

	resp := doRequest(router, admin, "POST", "/api/admin/users", map[string]string{
		"username": "bob",
		"password": "secret123",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var user models.User
	if err := db.Where("username = ?", "bob").First(&user).Error; err != nil {
		t.Fatalf("Expected bob to exist: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Errorf("Expected default role user, got %s", user.Role)
	}
	if !auth.CheckPassword("secret123", user.PasswordHash) {
		t.Error("Stored hash must verify against the given password")
	}
	if user.PasswordHash == "secret123" {
		t.Error("Password must not be stored in the clear")
	}
}

func TestCreateAdminUser(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	router := setupTestRouter(db)

	resp := doRequest(router, admin, "POST", "/api/admin/users", map[string]string{
		"username": "root2",
		"password": "secret123",
		"role":     "admin",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.Code)
	}

	var user models.User
	db.Where("username = ?", "root2").First(&user)
	if user.Role != models.RoleAdmin {
		t.Errorf("Expected admin role, got %s", user.Role)
	}
}

func TestCreateDuplicateUser(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	createTestUser(t, db, "alice", models.RoleUser)
	router := setupTestRouter(db)

	resp := doRequest(router, admin, "POST", "/api/admin/users", map[string]string{
		"username": "alice",
		"password": "secret123",
	})
	if resp.Code != http.StatusConflict {
		t.Errorf("Expected status 409, got %d", resp.Code)
	}
}

func TestCreateUserMissingFields(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	router := setupTestRouter(db)

	resp := doRequest(router, admin, "POST", "/api/admin/users", map[string]string{
		"username": "bob",
	})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}

func TestDeleteUserRemovesIssuedKeys(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	createTestUser(t, db, "alice", models.RoleUser)
	router := setupTestRouter(db)

	keyStore := keys.NewStore(db)
	aliceKey, _ := keyStore.Issue("alice", "fileSearchStores/abc", "Docs", "AIza-key")

	resp := doRequest(router, admin, "DELETE", "/api/admin/users/alice", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var user models.User
	if err := db.Where("username = ?", "alice").First(&user).Error; err == nil {
		t.Error("Expected alice to be deleted")
	}
	if _, err := keyStore.Resolve(aliceKey.Token); !errors.Is(err, keys.ErrKeyNotFound) {
		t.Errorf("Expected alice's keys to be revoked, got %v", err)
	}
}

func TestCannotDeleteSelf(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	router := setupTestRouter(db)

	resp := doRequest(router, admin, "DELETE", "/api/admin/users/admin", nil)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}

	var user models.User
	if err := db.Where("username = ?", "admin").First(&user).Error; err != nil {
		t.Error("Admin account must survive a self-delete attempt")
	}
}

func TestDeleteUnknownUser(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	router := setupTestRouter(db)

	resp := doRequest(router, admin, "DELETE", "/api/admin/users/ghost", nil)
	if resp.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", resp.Code)
	}
}

func TestResetPassword(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	createTestUser(t, db, "alice", models.RoleUser)
	router := setupTestRouter(db)

	resp := doRequest(router, admin, "PUT", "/api/admin/users/alice/reset-password", map[string]string{
		"newPassword": "newsecret",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var user models.User
	db.Where("username = ?", "alice").First(&user)
	if !auth.CheckPassword("newsecret", user.PasswordHash) {
		t.Error("Expected the new password to verify")
	}
	if auth.CheckPassword("password123", user.PasswordHash) {
		t.Error("Expected the old password to stop working")
	}
}

func TestResetPasswordTooShort(t *testing.T) {
	db := setupTestDB(t)
	admin := createTestUser(t, db, "admin", models.RoleAdmin)
	createTestUser(t, db, "alice", models.RoleUser)
	router := setupTestRouter(db)

	resp := doRequest(router, admin, "PUT", "/api/admin/users/alice/reset-password", map[string]string{
		"newPassword": "short",
	})
	if resp.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.Code)
	}
}
