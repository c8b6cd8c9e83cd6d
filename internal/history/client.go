// Package history fetches a session's prior transcript from the backend
// and replays it into the local transcript store.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/odochat/odochat/internal/logging"
	"github.com/odochat/odochat/internal/routing"
	"github.com/odochat/odochat/internal/transcript"
)

// Entry is one stored history record. Agent entries hold the raw envelope
// JSON exactly as it went over the socket; user entries hold plain text.
type Entry struct {
	Msg    string `json:"msg"`
	Sender string `json:"sender"`
}

type historyResponse struct {
	History []Entry `json:"history"`
}

// Client fetches history over HTTP with retries.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	log     *logging.Logger
}

// NewClient creates a history client for the backend's HTTP origin.
func NewClient(baseURL string, log *logging.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	return &Client{
		baseURL: baseURL,
		http:    rc,
		log:     log.Sub("history"),
	}
}

// Fetch returns the stored history for a session.
func (c *Client) Fetch(ctx context.Context, sessionID string) ([]Entry, error) {
	url := fmt.Sprintf("%s/history/%s", c.baseURL, sessionID)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building history request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history endpoint returned %d", resp.StatusCode)
	}

	var body historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return body.History, nil
}

// Seed fetches a session's history and replays it into the store. Agent
// entries pass through the same classification path as live traffic so
// replayed turns match what the stream produced; user entries append
// directly. The stream is finalized after replay so nothing stays open.
func (c *Client) Seed(ctx context.Context, sessionID string, store *transcript.Store, router *routing.Router) error {
	entries, err := c.Fetch(ctx, sessionID)
	if err != nil {
		return err
	}

	for _, e := range entries {
		if e.Sender == "user" {
			store.AppendUserTurn(e.Msg)
			continue
		}
		router.HandleRaw(e.Msg)
	}
	router.FinalizeStream()

	c.log.Info().Str("sessionId", sessionID).Int("entries", len(entries)).Msg("history seeded")
	return nil
}
