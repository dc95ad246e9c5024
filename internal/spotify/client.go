// Package spotify provides the upstream API capability: fetching one page
// of recently-played tracks for a bearer token obtained elsewhere.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/playlog/playlog/internal/errors"
	"github.com/playlog/playlog/internal/eventstore"
)

// Client calls the Spotify Web API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// NewClient creates a Client. Token acquisition (the OAuth flow) is the
// caller's responsibility; the client only attaches the bearer token.
func NewClient(baseURL, accessToken string) *Client {
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// RecentlyPlayed fetches up to limit most recent play events in one page.
// The endpoint serves a single page; plays older than the page are
// unreachable once more than limit tracks play between runs. That is a
// coverage limitation of the upstream API, not something to retry around.
func (c *Client) RecentlyPlayed(ctx context.Context, limit int) ([]eventstore.PlayEvent, error) {
	url := fmt.Sprintf("%s/me/player/recently-played?limit=%d", c.baseURL, limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewIngestError(apperrors.CodeUpstreamCallFailed, "failed to build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewIngestError(apperrors.CodeUpstreamCallFailed, "recently-played call failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.NewIngestError(apperrors.CodeUpstreamCallFailed,
			fmt.Sprintf("recently-played returned %d: %s", resp.StatusCode, body), nil)
	}

	var page struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, apperrors.NewIngestError(apperrors.CodeUpstreamCallFailed, "undecodable response", err)
	}

	events := make([]eventstore.PlayEvent, 0, len(page.Items))
	for _, item := range page.Items {
		event, err := eventstore.DecodeEvent(item)
		if err != nil {
			return nil, apperrors.NewIngestError(apperrors.CodeUpstreamCallFailed, "undecodable play event in response", err)
		}
		events = append(events, event)
	}
	return events, nil
}
