// Package ynab provides a client for the YNAB budgeting REST API.
package ynab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the public YNAB API endpoint.
	DefaultBaseURL = "https://api.youneedabudget.com/v1"

	requestTimeout = 10 * time.Second
	maxBodySize    = 8 << 20 // budget exports can be large
	userAgent      = "github.com/theirongolddev/ynabd/1.0"
)

var (
	// ErrUnauthorized indicates the access token is invalid or revoked.
	ErrUnauthorized = errors.New("ynab: unauthorized (access token invalid or revoked)")
	// ErrNotFound indicates the budget or resource does not exist.
	ErrNotFound = errors.New("ynab: not found")
	// ErrRateLimited indicates the hourly request budget was exhausted.
	ErrRateLimited = errors.New("ynab: rate limited")
)

// Client talks to the YNAB API on behalf of one access token.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewClient creates a client for the given personal access token.
// Returns nil if the key is empty.
func NewClient(apiKey string, opts ...Option) *Client {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root this client uses.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Budgets returns the summaries of every budget the token can see.
func (c *Client) Budgets(ctx context.Context) ([]BudgetSummary, error) {
	body, _, err := c.do(ctx, http.MethodGet, "/budgets")
	if err != nil {
		return nil, err
	}

	var resp budgetsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ynab: parsing budgets: %w", err)
	}
	return resp.Data.Budgets, nil
}

// Budget returns the full export of one budget. budgetID may be "last-used".
func (c *Client) Budget(ctx context.Context, budgetID string) (*BudgetDetail, error) {
	body, _, err := c.do(ctx, http.MethodGet, "/budgets/"+url.PathEscape(budgetID))
	if err != nil {
		return nil, err
	}

	var resp budgetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ynab: parsing budget: %w", err)
	}
	return &resp.Data.Budget, nil
}

// ImportTransactions asks YNAB to pull new transactions from linked
// accounts of the budget right away.
func (c *Client) ImportTransactions(ctx context.Context, budgetID string) (*ImportResult, error) {
	body, header, err := c.do(ctx, http.MethodPost, "/budgets/"+url.PathEscape(budgetID)+"/transactions/import")
	if err != nil {
		return nil, err
	}

	var resp importResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("ynab: parsing import result: %w", err)
	}
	return &ImportResult{
		TransactionIDs: resp.Data.TransactionIDs,
		RateLimit:      header.Get("X-Rate-Limit"),
	}, nil
}

// do performs an authenticated request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string) ([]byte, http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("ynab: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("ynab: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, nil, fmt.Errorf("ynab: reading response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, nil, ErrRateLimited
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{}
		var env errorResponse
		if json.Unmarshal(body, &env) == nil {
			apiErr = &env.Error
		}
		apiErr.Status = resp.StatusCode
		return nil, nil, apiErr
	}

	return body, resp.Header, nil
}

// Ping reports whether the endpoint answers a plain GET with 200 OK.
// No credentials are sent.
func Ping(ctx context.Context, hc *http.Client, endpoint string) error {
	if hc == nil {
		hc = &http.Client{}
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("ynab: creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("ynab: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	return nil
}
