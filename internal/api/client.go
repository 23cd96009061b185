package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/home-energy-dashboard/internal/metrics"
)

const (
	DefaultHistoryLimit = 100
	MaxForecastDays     = 30
	dayLayout           = "2006-01-02"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the given origin. The origin is expected to be
// normalised already (see config.APIBaseURL).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) LatestReadings(ctx context.Context) ([]domain.Reading, error) {
	var out []domain.Reading
	if err := c.do(ctx, http.MethodGet, "/readings/latest", "/readings/latest", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeviceReadings(ctx context.Context, device string, limit int) ([]domain.Reading, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	var out []domain.Reading
	path := "/readings/device/" + url.PathEscape(device)
	if err := c.do(ctx, http.MethodGet, "/readings/device/{device}", path, params, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DailySummary(ctx context.Context, day time.Time) (*domain.DailySummary, error) {
	params := url.Values{}
	params.Set("day", day.Format(dayLayout))
	var out domain.DailySummary
	if err := c.do(ctx, http.MethodGet, "/analytics/daily-summary", "/analytics/daily-summary", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) HighestConsumer(ctx context.Context, day time.Time) (*domain.HighestConsumer, error) {
	params := url.Values{}
	params.Set("day", day.Format(dayLayout))
	var out domain.HighestConsumer
	if err := c.do(ctx, http.MethodGet, "/analytics/highest-consumer", "/analytics/highest-consumer", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Anomalies(ctx context.Context, device string) (*domain.AnomalyResponse, error) {
	var out domain.AnomalyResponse
	path := "/anomalies/" + url.PathEscape(device)
	if err := c.do(ctx, http.MethodGet, "/anomalies/{device}", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeviceThreshold(ctx context.Context, device string) (*domain.Device, error) {
	var out domain.Device
	path := "/anomalies/devices/" + url.PathEscape(device) + "/threshold"
	if err := c.do(ctx, http.MethodGet, "/anomalies/devices/{device}/threshold", path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SetDeviceThreshold(ctx context.Context, device string, threshold float64) (*domain.Device, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	var out domain.Device
	path := "/anomalies/devices/" + url.PathEscape(device) + "/threshold"
	in := domain.ThresholdUpdate{Threshold: threshold}
	if err := c.do(ctx, http.MethodPost, "/anomalies/devices/{device}/threshold", path, nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Devices(ctx context.Context) ([]domain.Device, error) {
	var out []domain.Device
	if err := c.do(ctx, http.MethodGet, "/anomalies/devices", "/anomalies/devices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Forecast(ctx context.Context, days int) (*domain.ForecastResponse, error) {
	if days < 1 || days > MaxForecastDays {
		return nil, &ValidationError{Field: "days", Reason: fmt.Sprintf("must be between 1 and %d", MaxForecastDays)}
	}
	params := url.Values{}
	params.Set("days", strconv.Itoa(days))
	var out domain.ForecastResponse
	if err := c.do(ctx, http.MethodPost, "/forecast/", "/forecast/", params, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Chat(ctx context.Context, question, sessionID string) (*domain.ChatAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &ValidationError{Field: "question", Reason: "must not be empty"}
	}
	in := domain.ChatQuery{Question: question, SessionID: sessionID}
	var out domain.ChatAnswer
	if err := c.do(ctx, http.MethodPost, "/chatbot/query", "/chatbot/query", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RelayStates(ctx context.Context) (domain.RelayStates, error) {
	out := domain.RelayStates{}
	if err := c.do(ctx, http.MethodGet, "/devices/", "/devices/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetRelayState(ctx context.Context, relayID string, state bool) (*domain.RelayUpdateResult, error) {
	var out domain.RelayUpdateResult
	path := "/devices/" + url.PathEscape(relayID)
	if err := c.do(ctx, http.MethodPatch, "/devices/{relay}", path, nil, domain.RelayUpdate{State: state}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateThreshold rejects values the backend would store but that make no
// sense as a power limit.
func ValidateThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return &ValidationError{Field: "threshold", Reason: "must be a finite number"}
	}
	if threshold < 0 {
		return &ValidationError{Field: "threshold", Reason: "must not be negative"}
	}
	return nil
}

// do issues one JSON request. route is the path template used as a metrics
// label so per-device paths do not explode cardinality.
func (c *Client) do(ctx context.Context, method, route, path string, params url.Values, in, out any) (err error) {
	start := time.Now()
	defer func() { metrics.RecordAPIRequest(route, method, time.Since(start), err) }()

	u := c.baseURL + path
	if params != nil {
		if encoded := params.Encode(); encoded != "" {
			u += "?" + encoded
		}
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", route, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", route, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newRequestError(method, path, resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", route, err)
	}
	return nil
}

func newRequestError(method, path string, resp *http.Response) *RequestError {
	statusText := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if statusText == "" {
		statusText = http.StatusText(resp.StatusCode)
	}
	e := &RequestError{
		Method:     method,
		Path:       path,
		Status:     resp.StatusCode,
		StatusText: statusText,
		Message:    statusText,
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return e
	}
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) != nil || len(payload.Detail) == 0 {
		return e
	}
	if msg := detailMessage(payload.Detail); msg != "" {
		e.Message = msg
	}
	return e
}

// detailMessage understands both a plain string detail and the list of
// validation issues the backend framework emits for 422s.
func detailMessage(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var issues []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &issues) == nil {
		msgs := make([]string, 0, len(issues))
		for _, issue := range issues {
			if issue.Msg != "" {
				msgs = append(msgs, issue.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
