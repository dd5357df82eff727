package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/ynabd/internal/events"
	"github.com/theirongolddev/ynabd/internal/state"
)

const (
	clientTimeout  = 5 * time.Second
	refreshTimeout = 35 * time.Second
	maxBodySize    = 4 << 20
)

// ErrUnreachable indicates nothing answered at the daemon address.
var ErrUnreachable = errors.New("daemon: unreachable")

// Client talks to a running daemon's HTTP API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the daemon listening on addr (host:port).
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{base: base, http: &http.Client{}}
}

// Addr returns the base URL the client talks to.
func (c *Client) Addr() string { return c.base }

// Status fetches /v1/status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.getJSON(ctx, "/v1/status", &st)
	return st, err
}

// Sensors fetches every sensor value.
func (c *Client) Sensors(ctx context.Context) (map[string]state.Value, error) {
	var values map[string]state.Value
	err := c.getJSON(ctx, "/v1/sensors", &values)
	return values, err
}

// Sensor fetches one sensor with up to limit history points. A limit of
// zero skips history.
func (c *Client) Sensor(ctx context.Context, key string, limit int) (SensorResponse, error) {
	path := "/v1/sensors/" + url.PathEscape(key)
	if limit > 0 {
		path += "?history=" + strconv.Itoa(limit)
	}
	var resp SensorResponse
	err := c.getJSON(ctx, path, &resp)
	return resp, err
}

// Events fetches the retained event history, oldest first.
func (c *Client) Events(ctx context.Context) ([]events.Event, error) {
	var evs []events.Event
	err := c.getJSON(ctx, "/v1/events", &evs)
	return evs, err
}

// Refresh asks the daemon for an unthrottled update.
func (c *Client) Refresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()
	_, err := c.do(ctx, http.MethodPost, "/v1/refresh")
	return err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, clientTimeout)
	defer cancel()

	body, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("daemon: decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, nil)
	if err != nil {
		return nil, fmt.Errorf("daemon: creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("daemon: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("daemon: %s (HTTP %d)", e.Error, resp.StatusCode)
		}
		return nil, fmt.Errorf("daemon: unexpected status %d", resp.StatusCode)
	}
	return body, nil
}
