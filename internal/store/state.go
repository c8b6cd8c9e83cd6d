package store

import (
	"database/sql"
	"errors"
	"time"
)

// State persistence keys.
const (
	keySessionID = "session_id"
	keyMode      = "mode"
)

// StateStore persists the active session identity so it survives restarts.
// Implements session.StateStore.
type StateStore struct {
	db *DB
}

// NewStateStore creates a state store using the given database.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// LoadState returns the persisted session id and mode. Missing values come
// back empty, not as errors.
func (s *StateStore) LoadState() (string, string, error) {
	id, err := s.get(keySessionID)
	if err != nil {
		return "", "", err
	}
	mode, err := s.get(keyMode)
	if err != nil {
		return "", "", err
	}
	return id, mode, nil
}

// SaveState persists the session id and mode.
func (s *StateStore) SaveState(id, mode string) error {
	if err := s.set(keySessionID, id); err != nil {
		return err
	}
	return s.set(keyMode, mode)
}

func (s *StateStore) get(key string) (string, error) {
	var value string
	err := s.db.sql.QueryRow(`SELECT value FROM client_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *StateStore) set(key, value string) error {
	_, err := s.db.sql.Exec(
		`INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = excluded.updated_at`,
		key, value, time.Now().Format(time.DateTime),
	)
	return err
}
