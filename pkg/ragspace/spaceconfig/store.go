package spaceconfig

import (
	"errors"
	"time"

	"github.com/ragspace/ragspace/pkg/ragspace/gemini"
	"github.com/ragspace/ragspace/pkg/ragspace/models"
	"gorm.io/gorm"
)

// Store manages per-space generation settings and usage counters.
//
// A space with no stored row behaves exactly like one configured with all
// defaults. Usage increments are a single SQL update, so concurrent
// completions against the same space cannot lose counts and completions
// against different spaces touch different rows.
type Store struct {
	db *gorm.DB
}

// NewStore creates a config store backed by the given database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Patch is a partial config update. Nil fields are left untouched.
type Patch struct {
	Model             *string `json:"model"`
	SystemInstruction *string `json:"systemInstruction"`
}

// Get returns the config for a space, with defaults filled in. A missing
// row is not an error.
func (s *Store) Get(spaceID string) (models.SpaceConfig, error) {
	var cfg models.SpaceConfig
	err := s.db.Where("space_id = ?", spaceID).First(&cfg).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return cfg, err
		}
		cfg = models.SpaceConfig{SpaceID: spaceID}
	}
	if cfg.Model == "" {
		cfg.Model = gemini.DefaultModel
	}
	if cfg.SystemInstruction == "" {
		cfg.SystemInstruction = gemini.DefaultSystemInstruction
	}
	return cfg, nil
}

// Put merges the given fields into the space's config, creating the row on
// first write. Usage counters are never touched here.
func (s *Store) Put(spaceID string, p Patch) error {
	updates := map[string]interface{}{}
	if p.Model != nil {
		updates["model"] = *p.Model
	}
	if p.SystemInstruction != nil {
		updates["system_instruction"] = *p.SystemInstruction
	}
	if len(updates) == 0 {
		return nil
	}

	res := s.db.Model(&models.SpaceConfig{}).Where("space_id = ?", spaceID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	cfg := models.SpaceConfig{SpaceID: spaceID}
	if p.Model != nil {
		cfg.Model = *p.Model
	}
	if p.SystemInstruction != nil {
		cfg.SystemInstruction = *p.SystemInstruction
	}
	if err := s.db.Create(&cfg).Error; err != nil {
		// Lost a create race; the row exists now, merge into it.
		res = s.db.Model(&models.SpaceConfig{}).Where("space_id = ?", spaceID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return err
		}
	}
	return nil
}

// IncrementUsage adds one successful completion to the space's counters,
// creating the row if needed. The increment is a single atomic UPDATE, so
// concurrent calls never drop a count.
func (s *Store) IncrementUsage(spaceID string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"usage_count": gorm.Expr("usage_count + 1"),
		"last_active": now,
		"updated_at":  now,
	}

	res := s.db.Model(&models.SpaceConfig{}).Where("space_id = ?", spaceID).UpdateColumns(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// First completion for this space.
	cfg := models.SpaceConfig{SpaceID: spaceID, UsageCount: 1, LastActive: &now}
	if err := s.db.Create(&cfg).Error; err != nil {
		// Lost the create race to a concurrent increment; retry the update.
		res = s.db.Model(&models.SpaceConfig{}).Where("space_id = ?", spaceID).UpdateColumns(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return err
		}
	}
	return nil
}

// Remove deletes the config for a space. Removing an absent config is a
// no-op.
func (s *Store) Remove(spaceID string) error {
	return s.db.Where("space_id = ?", spaceID).Delete(&models.SpaceConfig{}).Error
}
