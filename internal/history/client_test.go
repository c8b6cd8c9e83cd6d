package history

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odochat/odochat/internal/logging"
	"github.com/odochat/odochat/internal/routing"
	"github.com/odochat/odochat/internal/transcript"
)

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "silent")
}

func historyServer(t *testing.T, entries map[string][]Entry) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Path[len("/history/"):]
		json.NewEncoder(w).Encode(map[string]any{"history": entries[sessionID]})
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestFetch(t *testing.T) {
	ts := historyServer(t, map[string][]Entry{
		"sess-1": {
			{Msg: "hello", Sender: "user"},
			{Msg: `{"rag":{"messages":{"content":"hi there"}}}`, Sender: "agent"},
		},
	})

	c := NewClient(ts.URL, testLogger())
	entries, err := c.Fetch(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "user", entries[0].Sender)
}

func TestFetchEmptyHistory(t *testing.T) {
	ts := historyServer(t, nil)

	c := NewClient(ts.URL, testLogger())
	entries, err := c.Fetch(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	t.Cleanup(ts.Close)

	c := NewClient(ts.URL, testLogger())
	c.http.RetryMax = 0
	_, err := c.Fetch(context.Background(), "sess-1")
	assert.Error(t, err)
}

func TestSeedReplaysThroughClassifier(t *testing.T) {
	ts := historyServer(t, map[string][]Entry{
		"sess-1": {
			{Msg: "what models exist?", Sender: "user"},
			{Msg: `{"agent":{"messages":[{"content":"","additional_kwargs":{"tool_calls":[{"id":"call_1","type":"function","function":{"name":"odoo_tool","arguments":"{}"}}]}}]}}`, Sender: "agent"},
			{Msg: `{"tools":{"messages":[{"tool_call_id":"call_1","name":"odoo_tool","content":"res.partner","status":"success"}]}}`, Sender: "agent"},
			{Msg: `{"agent":{"messages":[{"content":"There is res.partner.","additional_kwargs":{}}]}}`, Sender: "agent"},
		},
	})

	log := testLogger()
	store := transcript.NewStore(log)
	acc := transcript.NewAccumulator(transcript.AccumulatorConfig{IdleTimeout: time.Hour}, store, log)
	cor := transcript.NewCorrelator(store, log)
	router := routing.New(store, acc, cor, log)

	c := NewClient(ts.URL, testLogger())
	require.NoError(t, c.Seed(context.Background(), "sess-1", store, router))

	turns := store.Snapshot()
	require.Len(t, turns, 2, "user turn plus one replayed agent turn")
	assert.Equal(t, transcript.RoleUser, turns[0].Role)
	assert.Equal(t, "what models exist?", turns[0].Content)

	agent := turns[1]
	assert.Equal(t, transcript.StatusFinal, agent.Status, "replay must not leave an open stream")
	assert.Equal(t, "There is res.partner.", agent.Content)
	require.Len(t, agent.ToolCalls, 1)
	assert.Equal(t, transcript.CallCompleted, agent.ToolCalls[0].Status)
}
