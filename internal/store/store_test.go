package store

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odochat/odochat/internal/logging"
	"github.com/odochat/odochat/internal/transcript"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.New(io.Discard, "silent"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStateStoreRoundTrip(t *testing.T) {
	s := NewStateStore(testDB(t))

	id, mode, err := s.LoadState()
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, mode)

	require.NoError(t, s.SaveState("sess-1", "agent"))

	id, mode, err = s.LoadState()
	require.NoError(t, err)
	assert.Equal(t, "sess-1", id)
	assert.Equal(t, "agent", mode)
}

func TestStateStoreOverwrite(t *testing.T) {
	s := NewStateStore(testDB(t))

	require.NoError(t, s.SaveState("first", "agent"))
	require.NoError(t, s.SaveState("second", "ask"))

	id, mode, err := s.LoadState()
	require.NoError(t, err)
	assert.Equal(t, "second", id)
	assert.Equal(t, "ask", mode)
}

func TestArchiveRecordAndList(t *testing.T) {
	a := NewArchive(testDB(t))

	turn := transcript.Turn{
		ID:      "t-1",
		Role:    transcript.RoleAgent,
		Content: "answer",
		Status:  transcript.StatusFinal,
		ToolCalls: []transcript.ToolCallRef{{
			ID:     "call_1",
			Name:   "odoo_tool",
			Status: transcript.CallCompleted,
			Result: &transcript.ToolResult{ToolCallID: "call_1", Content: "{}", Status: transcript.ResultSuccess},
		}},
		Usage: &transcript.Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3},
	}
	require.NoError(t, a.Record("sess-1", turn))
	require.NoError(t, a.Record("sess-1", transcript.Turn{
		ID: "t-2", Role: transcript.RoleUser, Content: "question", Status: transcript.StatusFinal,
	}))

	turns, err := a.List("sess-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)

	assert.Equal(t, "t-1", turns[0].ID)
	require.Len(t, turns[0].ToolCalls, 1)
	assert.Equal(t, transcript.CallCompleted, turns[0].ToolCalls[0].Status)
	require.NotNil(t, turns[0].Usage)
	assert.Equal(t, 3, turns[0].Usage.TotalTokens)

	assert.Equal(t, transcript.RoleUser, turns[1].Role)
	assert.Nil(t, turns[1].Usage)
}

func TestArchiveRecordIdempotent(t *testing.T) {
	a := NewArchive(testDB(t))

	turn := transcript.Turn{ID: "t-1", Role: transcript.RoleAgent, Content: "once", Status: transcript.StatusFinal}
	require.NoError(t, a.Record("sess-1", turn))
	require.NoError(t, a.Record("sess-1", turn))

	turns, err := a.List("sess-1")
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestArchiveSessions(t *testing.T) {
	a := NewArchive(testDB(t))

	require.NoError(t, a.Record("older", transcript.Turn{ID: "t-1", Role: transcript.RoleUser, Content: "a", Status: transcript.StatusFinal}))
	require.NoError(t, a.Record("newer", transcript.Turn{ID: "t-2", Role: transcript.RoleUser, Content: "b", Status: transcript.StatusFinal}))

	ids, err := a.Sessions()
	require.NoError(t, err)
	assert.Equal(t, []string{"newer", "older"}, ids)
}

func TestOpenCreatesDirectories(t *testing.T) {
	path := t.TempDir() + "/nested/odochat.db"
	db, err := Open(path, logging.New(io.Discard, "silent"))
	require.NoError(t, err)
	defer db.Close()

	// migrations are recorded, so a reopen applies nothing new
	require.NoError(t, db.Close())
	db2, err := Open(path, logging.New(io.Discard, "silent"))
	require.NoError(t, err)
	defer db2.Close()
}
