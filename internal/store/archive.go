package store

import (
	"database/sql"
	"encoding/json"

	"github.com/odochat/odochat/internal/transcript"
)

// Archive keeps finalized turns in SQLite so past conversations can be
// reviewed offline. The in-memory transcript store stays the source of
// truth for the live session; the archive only ever appends.
type Archive struct {
	db *DB
}

// NewArchive creates a turn archive using the given database.
func NewArchive(db *DB) *Archive {
	return &Archive{db: db}
}

// Record stores one finalized turn under a session id. Re-recording the
// same turn id (e.g. after a replayed finalize) is a no-op.
func (a *Archive) Record(sessionID string, t transcript.Turn) error {
	var toolCalls, usage sql.NullString
	if len(t.ToolCalls) > 0 {
		if data, err := json.Marshal(t.ToolCalls); err == nil {
			toolCalls = sql.NullString{String: string(data), Valid: true}
		}
	}
	if t.Usage != nil {
		if data, err := json.Marshal(t.Usage); err == nil {
			usage = sql.NullString{String: string(data), Valid: true}
		}
	}

	_, err := a.db.sql.Exec(
		`INSERT INTO turns (turn_id, session_id, role, content, status, tool_calls, usage)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(turn_id) DO NOTHING`,
		t.ID, sessionID, string(t.Role), t.Content, string(t.Status), toolCalls, usage,
	)
	return err
}

// List returns the archived turns for a session in insertion order.
func (a *Archive) List(sessionID string) ([]transcript.Turn, error) {
	rows, err := a.db.sql.Query(
		`SELECT turn_id, role, content, status, tool_calls, usage
		 FROM turns WHERE session_id = ? ORDER BY seq`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []transcript.Turn
	for rows.Next() {
		var t transcript.Turn
		var role, status string
		var toolCalls, usage sql.NullString

		if err := rows.Scan(&t.ID, &role, &t.Content, &status, &toolCalls, &usage); err != nil {
			continue
		}
		t.Role = transcript.Role(role)
		t.Status = transcript.Status(status)
		if toolCalls.Valid && toolCalls.String != "" {
			_ = json.Unmarshal([]byte(toolCalls.String), &t.ToolCalls)
		}
		if usage.Valid && usage.String != "" {
			t.Usage = &transcript.Usage{}
			_ = json.Unmarshal([]byte(usage.String), t.Usage)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// Sessions returns the archived session ids, most recently written first.
func (a *Archive) Sessions() ([]string, error) {
	rows, err := a.db.sql.Query(
		`SELECT session_id FROM turns GROUP BY session_id ORDER BY MAX(seq) DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
