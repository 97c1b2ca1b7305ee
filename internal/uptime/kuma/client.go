// Package kuma implements uptime.Source against an Uptime Kuma style
// monitoring API.
package kuma

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/statusgen/statusgen/internal/provider"
	"github.com/statusgen/statusgen/internal/provider/resilience"
	"github.com/statusgen/statusgen/internal/uptime"
)

// ProviderName identifies this monitoring source.
const ProviderName = "uptime-kuma"

// ClientConfig holds configuration for the monitoring API client.
type ClientConfig struct {
	// BaseURL is the monitoring instance URL (required).
	BaseURL string

	// APIKey is sent as a bearer token (required).
	APIKey string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is a monitoring API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new monitoring API client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// ListMonitors fetches all monitors.
func (c *Client) ListMonitors(ctx context.Context) ([]uptime.Monitor, error) {
	const op = "list monitors"

	body, err := c.get(ctx, op, c.baseURL+"/api/monitor")
	if err != nil {
		return nil, err
	}

	var raw []monitorResponse
	if err := decodeList(body, "monitors", &raw); err != nil {
		return nil, &provider.ParseError{Service: ProviderName, Op: op, Err: err}
	}

	monitors := make([]uptime.Monitor, 0, len(raw))
	for _, m := range raw {
		monitors = append(monitors, uptime.Monitor{
			ID:     m.ID,
			Name:   m.Name,
			Status: uptime.MonitorStatus(m.Status),
		})
	}

	c.logger.Info().Int("count", len(monitors)).Msg("fetched monitors")
	return monitors, nil
}

// ListHeartbeats fetches heartbeat history for a monitor over the last
// windowHours hours.
func (c *Client) ListHeartbeats(ctx context.Context, monitorID int, windowHours int) ([]uptime.Heartbeat, error) {
	const op = "list heartbeats"

	query := url.Values{}
	query.Set("hours", strconv.Itoa(windowHours))
	endpoint := fmt.Sprintf("%s/api/monitor/%d/heartbeat?%s", c.baseURL, monitorID, query.Encode())

	body, err := c.get(ctx, op, endpoint)
	if err != nil {
		return nil, err
	}

	var raw []heartbeatResponse
	if err := decodeList(body, "heartbeats", &raw); err != nil {
		return nil, &provider.ParseError{Service: ProviderName, Op: op, Err: err}
	}

	heartbeats := make([]uptime.Heartbeat, 0, len(raw))
	for _, h := range raw {
		heartbeats = append(heartbeats, uptime.Heartbeat{
			Status: uptime.MonitorStatus(h.Status),
			Time:   parseTime(h.Time),
		})
	}

	c.logger.Debug().
		Int("monitor_id", monitorID).
		Int("window_hours", windowHours).
		Int("count", len(heartbeats)).
		Msg("fetched heartbeats")
	return heartbeats, nil
}

func (c *Client) get(ctx context.Context, op, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &provider.TransportError{Service: ProviderName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &provider.TransportError{Service: ProviderName, Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.TransportError{Service: ProviderName, Op: op, Err: err}
	}
	return body, nil
}

// decodeList decodes body into v, accepting either a bare JSON array or an
// object carrying the array under key. The response shape differs between
// API versions.
func decodeList(body []byte, key string, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return io.ErrUnexpectedEOF
	}

	if trimmed[0] == '[' {
		return json.Unmarshal(trimmed, v)
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return err
	}

	inner, ok := wrapper[key]
	if !ok || string(inner) == "null" {
		return json.Unmarshal([]byte("[]"), v)
	}
	return json.Unmarshal(inner, v)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
}

// parseTime parses a heartbeat timestamp. Zone-less values are UTC; an
// unparseable value yields the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// Monitoring API response structures.

type monitorResponse struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status int    `json:"status"`
}

type heartbeatResponse struct {
	Status int    `json:"status"`
	Time   string `json:"time"`
}
