package protocol

import "encoding/json"

// Wire shapes emitted by the backend's streaming update protocol.

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireAgentMessage struct {
	Content          string `json:"content"`
	AdditionalKwargs struct {
		ToolCalls []wireToolCall `json:"tool_calls"`
	} `json:"additional_kwargs"`
	UsageMetadata *wireUsage `json:"usage_metadata"`
}

type wireToolMessage struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	Status     string `json:"status"`
}

type wireRagMessage struct {
	Content       string     `json:"content"`
	UsageMetadata *wireUsage `json:"usage_metadata"`
}

type wireRag struct {
	Partial  bool            `json:"partial"`
	Content  string          `json:"content"`
	Messages *wireRagMessage `json:"messages"`
}

type wireEnvelope struct {
	Rag   *wireRag `json:"rag"`
	Agent *struct {
		Messages []wireAgentMessage `json:"messages"`
	} `json:"agent"`
	Tools *struct {
		Messages []wireToolMessage `json:"messages"`
	} `json:"tools"`
}

// Classify maps one raw socket payload to exactly one envelope. It is total:
// parse or shape failures degrade to a plain-text chunk carrying the raw
// payload, so no inbound message is ever dropped or raises an error.
func Classify(raw string) Envelope {
	var w wireEnvelope
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return plainText(raw)
	}

	switch {
	case w.Rag != nil && w.Rag.Messages != nil && w.Rag.Messages.Content != "":
		return Envelope{
			Kind:  KindRagComplete,
			Text:  w.Rag.Messages.Content,
			Usage: usage(w.Rag.Messages.UsageMetadata),
			Raw:   raw,
		}

	case w.Rag != nil && w.Rag.Partial && w.Rag.Content != "":
		return Envelope{Kind: KindRagPartial, Text: w.Rag.Content, Raw: raw}

	case w.Agent != nil && len(w.Agent.Messages) > 0:
		msg := w.Agent.Messages[0]
		if len(msg.AdditionalKwargs.ToolCalls) > 0 {
			calls := make([]ToolCall, 0, len(msg.AdditionalKwargs.ToolCalls))
			for _, tc := range msg.AdditionalKwargs.ToolCalls {
				calls = append(calls, ToolCall{
					ID:           tc.ID,
					Name:         tc.Function.Name,
					ArgumentsRaw: tc.Function.Arguments,
				})
			}
			return Envelope{
				Kind:      KindAgentToolCalls,
				Text:      msg.Content,
				Usage:     usage(msg.UsageMetadata),
				ToolCalls: calls,
				Raw:       raw,
			}
		}
		if msg.Content != "" {
			return Envelope{
				Kind:  KindAgentContent,
				Text:  msg.Content,
				Usage: usage(msg.UsageMetadata),
				Raw:   raw,
			}
		}
		return plainText(raw)

	case w.Tools != nil && len(w.Tools.Messages) > 0:
		results := make([]ToolResult, 0, len(w.Tools.Messages))
		for _, tm := range w.Tools.Messages {
			results = append(results, ToolResult{
				ToolCallID: tm.ToolCallID,
				Name:       tm.Name,
				Content:    tm.Content,
				Status:     tm.Status,
			})
		}
		return Envelope{Kind: KindToolResults, Results: results, Raw: raw}
	}

	return plainText(raw)
}

func plainText(raw string) Envelope {
	return Envelope{Kind: KindPlainText, Text: raw, Raw: raw}
}

func usage(u *wireUsage) *Usage {
	if u == nil {
		return nil
	}
	return &Usage{
		InputTokens:  u.InputTokens,
		OutputTokens: u.OutputTokens,
		TotalTokens:  u.TotalTokens,
	}
}
