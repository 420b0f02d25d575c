package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/smartdoctor/agent/pkg/deviceinfo"
)

// Client talks to the diagnosis server named by a deep link's base_url
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// SubmitRequest is the body of a phone data submission
type SubmitRequest struct {
	SessionID string                 `json:"session_id"`
	PhoneData *deviceinfo.DeviceInfo `json:"phone_data"`
}

// SubmitResponse is returned by a successful submission
type SubmitResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CheckResponse reports whether the server holds data for a session
type CheckResponse struct {
	Available bool            `json:"available"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Server    string `json:"server"`
}

// New creates a client for baseURL
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SubmitPhoneData uploads a snapshot for a session
func (c *Client) SubmitPhoneData(ctx context.Context, sessionID string, info *deviceinfo.DeviceInfo) (*SubmitResponse, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	body, err := json.Marshal(SubmitRequest{SessionID: sessionID, PhoneData: info})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize phone data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/submit_phone_data", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit phone data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse submit response: %w", err)
	}

	return &result, nil
}

// CheckPhoneData asks whether the server has data for a session
func (c *Client) CheckPhoneData(ctx context.Context, sessionID string) (*CheckResponse, error) {
	endpoint := c.baseURL + "/api/check_phone_data/" + url.PathEscape(sessionID)

	var result CheckResponse
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, fmt.Errorf("failed to check phone data: %w", err)
	}

	return &result, nil
}

// Health queries the health endpoint at path (e.g. /healthz or /health)
func (c *Client) Health(ctx context.Context, path string) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.getJSON(ctx, c.baseURL+path, &result); err != nil {
		return nil, fmt.Errorf("failed to get health: %w", err)
	}

	return &result, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// parseError extracts error information from a response
func (c *Client) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}

	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case errResp.Error != "" && errResp.Message != "":
			return fmt.Errorf("server error (%d): %s - %s", resp.StatusCode, errResp.Error, errResp.Message)
		case errResp.Error != "":
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Error)
		case errResp.Message != "":
			return fmt.Errorf("server error (%d): %s", resp.StatusCode, errResp.Message)
		}
	}

	return fmt.Errorf("server error: %s", resp.Status)
}
