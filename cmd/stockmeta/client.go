package main

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
	"syscall"
	"time"

	"stockmeta/internal/api"
)

// controlClient calls a running `stockmeta serve` over its JSON routes.
type controlClient struct {
	baseURL string
	http    *http.Client
}

func newControlClient(addr string) *controlClient {
	base := strings.TrimRight(strings.TrimSpace(addr), "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &controlClient{baseURL: base, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *controlClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return wrapDialError(err, c.baseURL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr api.APIError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			apiErr.Status = resp.StatusCode
			return &apiErr
		}
		return fmt.Errorf("server returned %s", resp.Status)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func wrapDialError(err error, base string) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && errors.Is(urlErr.Err, syscall.ECONNREFUSED) {
		return fmt.Errorf("connect to %s: connection refused; start the server with `stockmeta serve`", base)
	}
	return fmt.Errorf("connect to %s: %w", base, err)
}

func (c *controlClient) Snapshot(ctx context.Context) (api.Snapshot, error) {
	var snap api.Snapshot
	err := c.do(ctx, http.MethodGet, "/api/snapshot", nil, &snap)
	return snap, err
}

func (c *controlClient) Items(ctx context.Context) ([]api.QueueItem, error) {
	var resp api.QueueListResponse
	err := c.do(ctx, http.MethodGet, "/api/items", nil, &resp)
	return resp.Items, err
}

func (c *controlClient) AddPaths(ctx context.Context, paths []string) (api.AddFilesResponse, error) {
	var resp api.AddFilesResponse
	err := c.do(ctx, http.MethodPost, "/api/items/paths", api.AddPathsRequest{Paths: paths}, &resp)
	return resp, err
}

func (c *controlClient) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/items/"+url.PathEscape(id), nil, nil)
}

func (c *controlClient) Clear(ctx context.Context) (int, error) {
	var resp api.CountResponse
	err := c.do(ctx, http.MethodDelete, "/api/items", nil, &resp)
	return resp.Count, err
}

func (c *controlClient) Retry(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/items/"+url.PathEscape(id)+"/retry", nil, nil)
}

func (c *controlClient) RetryFailed(ctx context.Context) (int, error) {
	var resp api.CountResponse
	err := c.do(ctx, http.MethodPost, "/api/items/retry", nil, &resp)
	return resp.Count, err
}

func (c *controlClient) Copy(ctx context.Context, id string) (string, error) {
	var resp api.CopyResponse
	err := c.do(ctx, http.MethodGet, "/api/items/"+url.PathEscape(id)+"/copy", nil, &resp)
	return resp.Text, err
}

func (c *controlClient) Start(ctx context.Context) (api.RunResponse, error) {
	var resp api.RunResponse
	err := c.do(ctx, http.MethodPost, "/api/run/start", nil, &resp)
	return resp, err
}

func (c *controlClient) RunAction(ctx context.Context, action string) error {
	return c.do(ctx, http.MethodPost, "/api/run/"+action, nil, nil)
}

func (c *controlClient) Export(ctx context.Context, kind string, req api.ExportRequest) ([]string, error) {
	var resp api.ExportResponse
	err := c.do(ctx, http.MethodPost, "/api/export/"+kind, req, &resp)
	return resp.Paths, err
}
