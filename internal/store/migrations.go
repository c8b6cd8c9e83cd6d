package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create client state and turn archive",
		SQL: `
			CREATE TABLE client_state (
				key         TEXT PRIMARY KEY,
				value       TEXT NOT NULL,
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE turns (
				seq         INTEGER PRIMARY KEY AUTOINCREMENT,
				turn_id     TEXT NOT NULL,
				session_id  TEXT NOT NULL,
				role        TEXT NOT NULL,
				content     TEXT NOT NULL,
				status      TEXT NOT NULL,
				tool_calls  TEXT,
				usage       TEXT,
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_turns_turn ON turns (turn_id);
			CREATE INDEX idx_turns_session ON turns (session_id, seq);
		`,
	},
}
