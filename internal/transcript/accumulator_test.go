package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccumulatorRoundTrip(t *testing.T) {
	s := NewStore(testLogger())
	a := NewAccumulator(AccumulatorConfig{IdleTimeout: 50 * time.Millisecond}, s, testLogger())

	a.OnChunk("Hel", nil)
	a.OnChunk("lo, ", nil)
	id := a.OnChunk("world", nil)

	require.Eventually(t, func() bool {
		turn, ok := s.Turn(id)
		return ok && turn.Status == StatusFinal
	}, time.Second, 5*time.Millisecond, "idle timeout should finalize the stream")

	require.Equal(t, 1, s.Len(), "chunks within the timeout form exactly one turn")
	turn, _ := s.Turn(id)
	assert.Equal(t, "Hello, world", turn.Content)
	assert.Equal(t, RoleAgent, turn.Role)
}

func TestAccumulatorIdleFinalizeKeepsContent(t *testing.T) {
	s := NewStore(testLogger())
	a := NewAccumulator(AccumulatorConfig{IdleTimeout: 30 * time.Millisecond}, s, testLogger())

	id := a.OnChunk("only chunk", nil)

	require.Eventually(t, func() bool {
		turn, _ := s.Turn(id)
		return turn.Status == StatusFinal
	}, time.Second, 5*time.Millisecond)

	turn, _ := s.Turn(id)
	assert.Equal(t, "only chunk", turn.Content, "finalize must not alter content")
}

func TestAccumulatorRearm(t *testing.T) {
	s := NewStore(testLogger())
	a := NewAccumulator(AccumulatorConfig{IdleTimeout: 70 * time.Millisecond}, s, testLogger())

	id := a.OnChunk("a", nil)
	// keep feeding chunks faster than the timeout; the turn must stay open
	for i := 0; i < 4; i++ {
		time.Sleep(25 * time.Millisecond)
		a.OnChunk("b", nil)
	}

	turn, _ := s.Turn(id)
	assert.Equal(t, StatusStreaming, turn.Status, "timer re-arms on every chunk")

	a.Finalize()
	turn, _ = s.Turn(id)
	assert.Equal(t, "abbbb", turn.Content)
	assert.Equal(t, StatusFinal, turn.Status)
}

func TestAccumulatorExplicitFinalize(t *testing.T) {
	s := NewStore(testLogger())
	a := NewAccumulator(AccumulatorConfig{IdleTimeout: time.Hour}, s, testLogger())

	id := a.OnChunk("pending", nil)
	got := a.Finalize()
	assert.Equal(t, id, got)

	// no surprise finalize later: the timer was cancelled, and a new stream
	// can start cleanly
	next := a.OnChunk("next", nil)
	assert.NotEqual(t, id, next)
	assert.Equal(t, next, s.ActiveStreamID())
}

func TestAccumulatorFinalizeWhenIdle(t *testing.T) {
	s := NewStore(testLogger())
	a := NewAccumulator(AccumulatorConfig{}, s, testLogger())

	assert.Empty(t, a.Finalize())
	assert.Zero(t, s.Len())
}

func TestAccumulatorTouch(t *testing.T) {
	s := NewStore(testLogger())
	a := NewAccumulator(AccumulatorConfig{IdleTimeout: time.Hour}, s, testLogger())

	id := a.Touch()
	turn, ok := s.Turn(id)
	require.True(t, ok)
	assert.Equal(t, StatusStreaming, turn.Status)
	assert.Empty(t, turn.Content)

	// a later touch reuses the same turn
	assert.Equal(t, id, a.Touch())
}
