// Package routing connects transport events to the transcript state
// machines: classify the payload, then hand it to the stream accumulator or
// the tool-call correlator.
package routing

import (
	"context"

	"github.com/odochat/odochat/internal/logging"
	"github.com/odochat/odochat/internal/protocol"
	"github.com/odochat/odochat/internal/transcript"
	"github.com/odochat/odochat/internal/transport"
)

// Router applies classified envelopes to the transcript. Every envelope
// produces either a store mutation or a logged anomaly, never neither.
type Router struct {
	store       *transcript.Store
	accumulator *transcript.Accumulator
	correlator  *transcript.Correlator
	log         *logging.Logger
}

// New creates a router over the given transcript machinery.
func New(
	store *transcript.Store,
	accumulator *transcript.Accumulator,
	correlator *transcript.Correlator,
	log *logging.Logger,
) *Router {
	return &Router{
		store:       store,
		accumulator: accumulator,
		correlator:  correlator,
		log:         log.Sub("routing"),
	}
}

// Run consumes transport events until the context is cancelled or the event
// channel closes. This is the single dispatch loop: every envelope is
// processed in delivery order, and all mutations go through the store.
func (r *Router) Run(ctx context.Context, events <-chan transport.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case transport.EventMessage:
				r.HandleRaw(ev.Text)
			case transport.EventConnected:
				r.log.Info().Str("mode", string(ev.Mode)).Msg("session online")
			case transport.EventDisconnected:
				// transcript is untouched; the transport retries on its own
				r.log.Warn().Err(ev.Err).Str("mode", string(ev.Mode)).Msg("session offline")
			}
		}
	}
}

// HandleRaw classifies one raw payload and applies it.
func (r *Router) HandleRaw(raw string) {
	r.Handle(protocol.Classify(raw))
}

// Handle applies one classified envelope to the transcript.
func (r *Router) Handle(env protocol.Envelope) {
	switch env.Kind {
	case protocol.KindRagComplete:
		// a complete answer closes any open stream before it is appended
		r.accumulator.Finalize()
		r.store.AppendAgentTurn(env.Text, usage(env.Usage))

	case protocol.KindRagPartial:
		r.accumulator.OnChunk(env.Text, nil)

	case protocol.KindAgentContent:
		r.accumulator.OnChunk(env.Text, usage(env.Usage))

	case protocol.KindAgentToolCalls:
		turnID := r.accumulator.OnChunk(env.Text, usage(env.Usage))
		r.correlator.OnToolCalls(turnID, toolCallRefs(env.ToolCalls))

	case protocol.KindToolResults:
		for _, res := range env.Results {
			r.correlator.OnToolResult(toolResult(res))
		}

	case protocol.KindPlainText:
		// legacy ask-mode stream and every unrecognized shape land here;
		// the raw text is preserved as a chunk so nothing is lost
		r.log.Debug().Int("bytes", len(env.Text)).Msg("plain text chunk")
		r.accumulator.OnChunk(env.Text, nil)
	}
}

// FinalizeStream closes the active stream, if any. Used after history replay
// and before session transitions.
func (r *Router) FinalizeStream() {
	r.accumulator.Finalize()
}

func usage(u *protocol.Usage) *transcript.Usage {
	if u == nil {
		return nil
	}
	return &transcript.Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
}

func toolCallRefs(calls []protocol.ToolCall) []transcript.ToolCallRef {
	refs := make([]transcript.ToolCallRef, 0, len(calls))
	for _, c := range calls {
		refs = append(refs, transcript.ToolCallRef{
			ID:           c.ID,
			Name:         c.Name,
			ArgumentsRaw: c.ArgumentsRaw,
		})
	}
	return refs
}

func toolResult(res protocol.ToolResult) transcript.ToolResult {
	status := transcript.ResultSuccess
	if res.Status == "error" {
		status = transcript.ResultError
	}
	return transcript.ToolResult{
		ToolCallID: res.ToolCallID,
		Name:       res.Name,
		Content:    res.Content,
		Status:     status,
	}
}
