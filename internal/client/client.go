// Package client talks to a running arena server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"arena/internal/core"
	"arena/internal/logging"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status int
	core.ErrorResponse
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.ErrorResponse.Error)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	return msg
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Log        *slog.Logger
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			// Long polls are held for up to 25s by the server
			Timeout: 30 * time.Second,
		},
		Log: logging.Nop(),
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	c.Log.Debug("API request", "method", method, "path", path, "status", resp.StatusCode, "latency", time.Since(start))

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, &apiErr.ErrorResponse); err != nil {
			apiErr.ErrorResponse.Error = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// Health returns the server's health document
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	var resp map[string]any
	err := c.doRequest(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}

func (c *Client) CreateMatch(ctx context.Context, req *core.CreateMatchRequest) (*core.MatchResponse, error) {
	var resp core.MatchResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/matches", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) GetMatch(ctx context.Context, matchID string) (*core.MatchResponse, error) {
	var resp core.MatchResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/matches/"+url.PathEscape(matchID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// WaitMatch long-polls until the match has a ply count other than plies or
// ends.
func (c *Client) WaitMatch(ctx context.Context, matchID string, plies int) (*core.MatchResponse, error) {
	var resp core.MatchResponse
	path := fmt.Sprintf("/api/v1/matches/%s?wait=true&plies=%d", url.PathEscape(matchID), plies)
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ListMatches(ctx context.Context) ([]core.MatchResponse, error) {
	var resp core.MatchListResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/matches", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// Follow calls onUpdate each time the match progresses and returns the
// finished match.
func (c *Client) Follow(ctx context.Context, matchID string, onUpdate func(*core.MatchResponse)) (*core.MatchResponse, error) {
	plies := 0
	for {
		m, err := c.WaitMatch(ctx, matchID, plies)
		if err != nil {
			return nil, err
		}
		if len(m.Moves) != plies || Done(m) {
			plies = len(m.Moves)
			if onUpdate != nil {
				onUpdate(m)
			}
		}
		if Done(m) {
			return m, nil
		}
	}
}

// Done reports whether a match will not change any more.
func Done(m *core.MatchResponse) bool {
	return m.Status == "finished" || m.Status == "failed"
}
