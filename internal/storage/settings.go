package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"canvasboard/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Settings: key/value rows in app_settings
// ─────────────────────────────────────────────────────────────

// ViewportKey is the settings row holding the saved viewport.
const ViewportKey = "canvas-viewport"

// SettingsStore persists small JSON values by key. It doubles as the
// viewport state store.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get decodes the value stored under key into v. ok is false when the key
// has never been written.
func (s *SettingsStore) Get(ctx context.Context, key string, v any) (bool, error) {
	var raw string
	err := s.db.queryRow(ctx, `SELECT value FROM app_settings WHERE name = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get setting %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return true, nil
}

// Set stores v under key as JSON.
func (s *SettingsStore) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	q := `INSERT INTO app_settings (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`
	if s.db.driver == DriverMySQL {
		q = `INSERT INTO app_settings (name, value) VALUES (?, ?)
		 ON DUPLICATE KEY UPDATE value = VALUES(value)`
	}
	if _, err := s.db.exec(ctx, q, key, string(data)); err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

func (s *SettingsStore) LoadViewport() (domain.Viewport, bool, error) {
	var v domain.Viewport
	ok, err := s.Get(context.Background(), ViewportKey, &v)
	return v, ok, err
}

func (s *SettingsStore) SaveViewport(v domain.Viewport) error {
	return s.Set(context.Background(), ViewportKey, v)
}
