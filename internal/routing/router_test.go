package routing

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odochat/odochat/internal/logging"
	"github.com/odochat/odochat/internal/transcript"
	"github.com/odochat/odochat/internal/transport"
)

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "silent")
}

func testRouter(t *testing.T, idle time.Duration) (*Router, *transcript.Store) {
	t.Helper()
	log := testLogger()
	store := transcript.NewStore(log)
	acc := transcript.NewAccumulator(transcript.AccumulatorConfig{IdleTimeout: idle}, store, log)
	cor := transcript.NewCorrelator(store, log)
	return New(store, acc, cor, log), store
}

func TestToolCallEndToEnd(t *testing.T) {
	r, store := testRouter(t, time.Hour)

	r.HandleRaw(`{"agent":{"messages":[{"content":"","additional_kwargs":{"tool_calls":[{"id":"call_1","type":"function","function":{"name":"odoo_tool","arguments":"{\"action\":\"schema\"}"}}]}}]}}`)
	r.HandleRaw(`{"tools":{"messages":[{"tool_call_id":"call_1","name":"odoo_tool","content":"{...}","status":"success"}]}}`)
	r.FinalizeStream()

	turns := store.Snapshot()
	require.Len(t, turns, 1, "call and result collapse into one agent turn")
	turn := turns[0]
	assert.Equal(t, transcript.RoleAgent, turn.Role)
	require.Len(t, turn.ToolCalls, 1)
	tc := turn.ToolCalls[0]
	assert.Equal(t, "call_1", tc.ID)
	assert.Equal(t, transcript.CallCompleted, tc.Status)
	require.NotNil(t, tc.Result)
	assert.Equal(t, "{...}", tc.Result.Content)
}

func TestPlainTextChunksStream(t *testing.T) {
	r, store := testRouter(t, 40*time.Millisecond)

	r.HandleRaw("Hel")
	r.HandleRaw("lo, ")
	r.HandleRaw("world")

	require.Eventually(t, func() bool {
		turns := store.Snapshot()
		return len(turns) == 1 && turns[0].Status == transcript.StatusFinal
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "Hello, world", store.Snapshot()[0].Content)
}

func TestRagCompleteFinalizesActiveStream(t *testing.T) {
	r, store := testRouter(t, time.Hour)

	r.HandleRaw(`{"rag":{"partial":true,"content":"thinking"}}`)
	r.HandleRaw(`{"rag":{"messages":{"content":"final answer","usage_metadata":{"input_tokens":1,"output_tokens":2,"total_tokens":3}}}}`)

	turns := store.Snapshot()
	require.Len(t, turns, 2)
	assert.Equal(t, transcript.StatusFinal, turns[0].Status, "open stream is finalized first")
	assert.Equal(t, "thinking", turns[0].Content)
	assert.Equal(t, "final answer", turns[1].Content)
	require.NotNil(t, turns[1].Usage)
	assert.Equal(t, 3, turns[1].Usage.TotalTokens)
	assert.Empty(t, store.ActiveStreamID())
}

func TestOrphanToolResult(t *testing.T) {
	r, store := testRouter(t, time.Hour)

	before := store.Len()
	r.HandleRaw(`{"tools":{"messages":[{"tool_call_id":"X","name":"odoo_tool","content":"late","status":"success"}]}}`)

	assert.Equal(t, before+1, store.Len(), "orphan adds exactly one standalone tool turn")
	last := store.Snapshot()[store.Len()-1]
	assert.Equal(t, transcript.RoleTool, last.Role)
}

func TestMalformedPayloadDegradesToChunk(t *testing.T) {
	r, store := testRouter(t, time.Hour)

	r.HandleRaw(`{"agent":{"mess`)
	r.FinalizeStream()

	turns := store.Snapshot()
	require.Len(t, turns, 1)
	assert.Equal(t, `{"agent":{"mess`, turns[0].Content, "anomalies keep their raw text")
}

func TestAgentContentJoinsToolCallTurn(t *testing.T) {
	r, store := testRouter(t, time.Hour)

	r.HandleRaw(`{"agent":{"messages":[{"content":"","additional_kwargs":{"tool_calls":[{"id":"call_2","type":"function","function":{"name":"odoo_tool","arguments":"{}"}}]}}]}}`)
	r.HandleRaw(`{"tools":{"messages":[{"tool_call_id":"call_2","name":"odoo_tool","content":"rows","status":"success"}]}}`)
	r.HandleRaw(`{"agent":{"messages":[{"content":"Based on the rows, done.","additional_kwargs":{},"usage_metadata":{"input_tokens":10,"output_tokens":20,"total_tokens":30}}]}}`)
	r.FinalizeStream()

	turns := store.Snapshot()
	require.Len(t, turns, 1, "one response window folds into one turn")
	turn := turns[0]
	assert.Equal(t, "Based on the rows, done.", turn.Content)
	require.Len(t, turn.ToolCalls, 1)
	assert.Equal(t, transcript.CallCompleted, turn.ToolCalls[0].Status)
	require.NotNil(t, turn.Usage)
	assert.Equal(t, 30, turn.Usage.TotalTokens)
}

func TestRunProcessesEvents(t *testing.T) {
	r, store := testRouter(t, time.Hour)

	events := make(chan transport.Event, 4)
	events <- transport.Event{Kind: transport.EventConnected, Mode: transport.ModeAgent}
	events <- transport.Event{Kind: transport.EventMessage, Text: `{"rag":{"messages":{"content":"hi"}}}`}
	events <- transport.Event{Kind: transport.EventDisconnected, Mode: transport.ModeAgent}
	close(events)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Run(ctx, events)

	require.Equal(t, 1, store.Len(), "disconnects leave the transcript untouched")
	assert.Equal(t, "hi", store.Snapshot()[0].Content)
}
