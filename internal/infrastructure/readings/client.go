// Package readings is the HTTP client for the sensor readings API.
package readings

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-patient-monitor/internal/domain"
	"github.com/go-patient-monitor/internal/pkg/validate"
)

const (
	defaultTimeout  = 10 * time.Second
	errorBodyMaxLen = 512
)

// RequestError is a transport failure or non-2xx answer. It unwraps to
// domain.ErrUnavailable.
type RequestError struct {
	Status int // 0 when no response was received
	Reason string
}

func (e *RequestError) Error() string {
	if e.Status == 0 {
		return "readings api: " + e.Reason
	}
	return fmt.Sprintf("readings api: status %d: %s", e.Status, e.Reason)
}

func (e *RequestError) Unwrap() error { return domain.ErrUnavailable }

type Client struct {
	baseURL string
	http    *http.Client
	token   func() string
}

// NewClient targets baseURL. token, when non-nil, supplies the bearer
// credential for each request.
func NewClient(baseURL string, token func() string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
		token:   token,
	}
}

type envelope[T any] struct {
	Data    T    `json:"data"`
	Success bool `json:"success"`
}

// CurrentReadings returns the latest reading of every device, ordered by id.
func (c *Client) CurrentReadings(ctx context.Context) ([]domain.DeviceReading, error) {
	var resp envelope[map[string]domain.DeviceReading]
	if err := c.get(ctx, "/devices/readings/current", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.DeviceReading, 0, len(resp.Data))
	for _, r := range resp.Data {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out, nil
}

// Scenario returns the active scenario of a device, or nil when none is running.
func (c *Client) Scenario(ctx context.Context, deviceID string) (*domain.ActiveScenario, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required: %w", domain.ErrBadRequest)
	}
	var resp struct {
		Scenario *domain.ActiveScenario `json:"scenario"`
	}
	if err := c.get(ctx, "/devices/"+url.PathEscape(deviceID)+"/scenario", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Scenario, nil
}

func (c *Client) History(ctx context.Context, q domain.HistoryQuery) ([]domain.HistoricalReading, error) {
	if err := validate.Struct(q); err != nil {
		return nil, err
	}
	params := url.Values{"start": {q.Start}, "end": {q.End}}
	if q.Window != "" {
		params.Set("window", q.Window)
	}
	var resp envelope[[]domain.HistoricalReading]
	if err := c.get(ctx, "/history/"+url.PathEscape(q.DeviceID), params, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &RequestError{Status: http.StatusOK, Reason: "history request was not successful"}
	}
	if resp.Data == nil {
		return []domain.HistoricalReading{}, nil
	}
	return resp.Data, nil
}

func (c *Client) DailyStats(ctx context.Context, deviceID, date string) (*domain.DailyStats, error) {
	if deviceID == "" || date == "" {
		return nil, fmt.Errorf("device id and date are required: %w", domain.ErrBadRequest)
	}
	var resp struct {
		Stats *domain.DailyStats `json:"stats"`
	}
	params := url.Values{"deviceId": {deviceID}, "date": {date}}
	if err := c.get(ctx, "/history/daily", params, &resp); err != nil {
		return nil, err
	}
	if resp.Stats == nil {
		return nil, fmt.Errorf("no stats for %s on %s: %w", deviceID, date, domain.ErrNotFound)
	}
	return resp.Stats, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMaxLen))
		reason := strings.TrimSpace(string(body))
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return &RequestError{Status: resp.StatusCode, Reason: reason}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RequestError{Status: resp.StatusCode, Reason: "decode response: " + err.Error()}
	}
	return nil
}
