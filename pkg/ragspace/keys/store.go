package keys

import (
	"errors"

	"github.com/google/uuid"
	"github.com/ragspace/ragspace/pkg/ragspace/models"
	"gorm.io/gorm"
)

// TokenPrefix marks tokens minted by this service.
const TokenPrefix = "grag-"

// ErrKeyNotFound is returned when a token does not resolve to an issued key.
var ErrKeyNotFound = errors.New("api key not found")

// Store issues, resolves and reconciles gateway bearer tokens.
//
// Every mutation goes straight to the database, so a key reported as issued
// is durable before the caller sees the token. Resolution fails closed: an
// unknown token is an error, never a "no restriction" pass.
type Store struct {
	db *gorm.DB
}

// NewStore creates a credential store backed by the given database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Issue mints a new bearer token bound to the given space and persists it.
// A fresh token is generated on every call; tokens are never reused or
// rebound.
func (s *Store) Issue(ownerUsername, targetSpaceID, displayName, upstreamCredential string) (*models.IssuedKey, error) {
	key := models.IssuedKey{
		Token:              TokenPrefix + uuid.NewString(),
		OwnerUsername:      ownerUsername,
		TargetSpaceID:      targetSpaceID,
		DisplayName:        displayName,
		UpstreamCredential: upstreamCredential,
	}
	if err := s.db.Create(&key).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

// Resolve looks up the issued key for a token.
func (s *Store) Resolve(token string) (*models.IssuedKey, error) {
	var key models.IssuedKey
	if err := s.db.Where("token = ?", token).First(&key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

// ListForOwner returns all keys issued by the given user, newest first.
func (s *Store) ListForOwner(ownerUsername string) ([]models.IssuedKey, error) {
	var keys []models.IssuedKey
	err := s.db.Where("owner_username = ?", ownerUsername).
		Order("created_at DESC").Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// FindForSpace returns the newest key the owner issued for a space, or
// ErrKeyNotFound when none exists.
func (s *Store) FindForSpace(ownerUsername, targetSpaceID string) (*models.IssuedKey, error) {
	var key models.IssuedKey
	err := s.db.Where("owner_username = ? AND target_space_id = ?", ownerUsername, targetSpaceID).
		Order("created_at DESC").First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

// Reconcile removes all keys owned by ownerUsername whose target space is
// not in liveSpaceIDs. The upstream listing is the source of truth for
// which spaces exist; this keeps the local registry from accumulating keys
// for deleted stores. Reconcile is idempotent.
func (s *Store) Reconcile(ownerUsername string, liveSpaceIDs map[string]struct{}) (int, error) {
	keys, err := s.ListForOwner(ownerUsername)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, key := range keys {
		if _, live := liveSpaceIDs[key.TargetSpaceID]; live {
			continue
		}
		if err := s.db.Delete(&key).Error; err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
