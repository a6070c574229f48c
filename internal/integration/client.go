// Package integration is an HTTP client for the bandsense command surface.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sod/bandsense/internal/publish/model"
	"github.com/go-sod/bandsense/internal/session"
)

type prefixRoundTripper struct {
	scheme string
	addr   string
	rt     http.RoundTripper
}

func (p *prefixRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	u := r.URL
	if u.Scheme == "" {
		u.Scheme = p.scheme
	}
	if u.Host == "" {
		u.Host = p.addr
	}

	return p.rt.RoundTrip(r)
}

// NewClient accepts host:port or a base URL.
func NewClient(addr string) *Client {
	scheme := "http"
	if u, err := url.Parse(addr); err == nil && u.Host != "" {
		scheme, addr = u.Scheme, u.Host
	}
	return &Client{client: &http.Client{Transport: &prefixRoundTripper{scheme: scheme, addr: addr, rt: http.DefaultTransport}}}
}

type Client struct {
	client *http.Client
}

// StatusError carries a non-2xx reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, strings.TrimSpace(e.Body))
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("unable marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, path, body)
	if err != nil {
		return fmt.Errorf("create new request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error with sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("unable unmarshal response: %w", err)
		}
	}
	return nil
}

func (c *Client) Initialize(ctx context.Context, sc session.Context) (*session.Status, error) {
	var st session.Status
	if err := c.do(ctx, http.MethodPost, "/session/init", sc, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) Status(ctx context.Context) (*session.Status, error) {
	var st session.Status
	if err := c.do(ctx, http.MethodGet, "/session/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) StartCollecting(ctx context.Context, label int) error {
	return c.do(ctx, http.MethodPost, "/collect/start", map[string]int{"label": label}, nil)
}

// StopCollecting returns the number of examples carrying the collected label.
func (c *Client) StopCollecting(ctx context.Context) (int, error) {
	var resp struct {
		Collected int `json:"collected"`
	}
	if err := c.do(ctx, http.MethodPost, "/collect/stop", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Collected, nil
}

func (c *Client) Counts(ctx context.Context) (*session.Counts, error) {
	var counts session.Counts
	if err := c.do(ctx, http.MethodGet, "/collect/counts", nil, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

func (c *Client) Fit(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/fit", nil, nil)
}

// FitWithScore uses the server default when k is zero.
func (c *Client) FitWithScore(ctx context.Context, k int) (*session.Diagnostics, error) {
	var in interface{}
	if k != 0 {
		in = map[string]int{"k": k}
	}
	var d session.Diagnostics
	if err := c.do(ctx, http.MethodPost, "/fit/score", in, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) StartPredicting(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/predict/start", nil, nil)
}

func (c *Client) StopPredicting(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/predict/stop", nil, nil)
}

// Results returns up to n recent predictions, the server maximum when n is zero.
func (c *Client) Results(ctx context.Context, n int) ([]model.Prediction, error) {
	path := "/predict/results"
	if n > 0 {
		path += "?n=" + strconv.Itoa(n)
	}
	var resp struct {
		Predictions []model.Prediction `json:"predictions"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/reset", nil, nil)
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}
