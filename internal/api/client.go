package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client queries a running pool's JSON status endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a status client for the given host:port.
func NewClient(baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches GET /json.
func (c *Client) Status(ctx context.Context) (*PoolStatus, error) {
	var status PoolStatus
	if err := c.get(ctx, "/json", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Version fetches GET /json/version.
func (c *Client) Version(ctx context.Context) (*VersionResponse, error) {
	var version VersionResponse
	if err := c.get(ctx, "/json/version", &version); err != nil {
		return nil, err
	}
	return &version, nil
}

// Participant fetches GET /json/address/{addr}.
func (c *Client) Participant(ctx context.Context, address string) (*ParticipantStatus, error) {
	var status ParticipantStatus
	if err := c.get(ctx, "/json/address/"+url.PathEscape(address), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Blocks fetches GET /json/blocks.
func (c *Client) Blocks(ctx context.Context, limit int) ([]BlockSummary, error) {
	var response BlocksResponse
	if err := c.get(ctx, withLimit("/json/blocks", limit), &response); err != nil {
		return nil, err
	}
	return response.Blocks, nil
}

// Payouts fetches GET /json/payouts.
func (c *Client) Payouts(ctx context.Context, limit int) ([]Payout, error) {
	var response PayoutsResponse
	if err := c.get(ctx, withLimit("/json/payouts", limit), &response); err != nil {
		return nil, err
	}
	return response.Payouts, nil
}

func withLimit(path string, limit int) string {
	if limit <= 0 {
		return path
	}
	return path + "?limit=" + strconv.Itoa(limit)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("query pool: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ErrorResponse
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
			return fmt.Errorf("pool returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("pool returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
