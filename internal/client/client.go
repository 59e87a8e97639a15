// Package client is the HTTP client for the binderyd API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bindery/internal/api"
)

// Client talks to a running binderyd over its HTTP API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New constructs a client for the daemon bound at addr (host:port).
func New(addr, token string) *Client {
	return &Client{
		baseURL: "http://" + strings.TrimSpace(addr),
		token:   strings.TrimSpace(token),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (*api.DaemonStatus, error) {
	var out api.DaemonStatus
	if err := c.do(ctx, http.MethodGet, "/api/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDownload submits a new download request.
func (c *Client) CreateDownload(ctx context.Context, req api.CreateDownloadRequest) (*api.CreateDownloadResponse, error) {
	var out api.CreateDownloadResponse
	if err := c.do(ctx, http.MethodPost, "/api/downloads", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDownloads returns jobs, optionally filtered by status names.
func (c *Client) ListDownloads(ctx context.Context, statuses ...string) ([]api.JobView, error) {
	path := "/api/downloads"
	if len(statuses) > 0 {
		values := url.Values{}
		for _, status := range statuses {
			values.Add("status", status)
		}
		path += "?" + values.Encode()
	}
	var out api.JobListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// GetDownload returns one job.
func (c *Client) GetDownload(ctx context.Context, jobID string) (*api.JobView, error) {
	var out api.JobResponse
	if err := c.do(ctx, http.MethodGet, "/api/downloads/"+url.PathEscape(jobID), nil, &out); err != nil {
		return nil, err
	}
	return &out.Job, nil
}

// CancelDownload cancels a job.
func (c *Client) CancelDownload(ctx context.Context, jobID string) error {
	return c.do(ctx, http.MethodDelete, "/api/downloads/"+url.PathEscape(jobID), nil, nil)
}

// CacheStats fetches cache statistics.
func (c *Client) CacheStats(ctx context.Context) (*api.CacheStatsResponse, error) {
	var out api.CacheStatsResponse
	if err := c.do(ctx, http.MethodGet, "/api/cache/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearCache expires reusable bundles and sweeps the cache root.
func (c *Client) ClearCache(ctx context.Context) (*api.CacheClearResponse, error) {
	var out api.CacheClearResponse
	if err := c.do(ctx, http.MethodPost, "/api/cache/clear", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return wrapDialError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr api.ErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&apiErr); decodeErr == nil && apiErr.Error != "" {
			return fmt.Errorf("daemon: %s", apiErr.Error)
		}
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapDialError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("connect to daemon: request timed out: %w", err)
	}
	return fmt.Errorf("connect to daemon: %w (is binderyd running?)", err)
}
