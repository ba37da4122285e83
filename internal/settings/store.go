package settings

import (
	"context"
	"fmt"
	"strings"

	"horse.fit/glossa/internal/db"
)

// TargetLanguageKey stores the last user-chosen translation target language.
const TargetLanguageKey = "translate:target_language"

// storage is the slice of db.Pool the store depends on.
type storage interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	UpsertSetting(ctx context.Context, key, value string) error
	ListSettings(ctx context.Context) ([]db.SettingRow, error)
}

// Store reads and writes durable keyed settings.
type Store struct {
	storage storage
}

func NewStore(st storage) *Store {
	return &Store{storage: st}
}

// Get returns the stored value and whether the key exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.storage == nil {
		return "", false, fmt.Errorf("settings store is not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, fmt.Errorf("settings key is required")
	}
	return s.storage.GetSetting(ctx, key)
}

// Put upserts one key. Last writer wins.
func (s *Store) Put(ctx context.Context, key, value string) error {
	if s == nil || s.storage == nil {
		return fmt.Errorf("settings store is not initialized")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("settings key is required")
	}
	return s.storage.UpsertSetting(ctx, key, value)
}

// List returns every stored setting ordered by key.
func (s *Store) List(ctx context.Context) ([]db.SettingRow, error) {
	if s == nil || s.storage == nil {
		return nil, fmt.Errorf("settings store is not initialized")
	}
	return s.storage.ListSettings(ctx)
}
