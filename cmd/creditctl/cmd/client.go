package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the creditbot API HTTP client.
type Client struct {
	baseURL    string
	callerID   int64
	httpClient *http.Client
	verbose    bool
}

// NewClient creates a new creditbot API client.
func NewClient(baseURL string, callerID int64, verbose bool) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		callerID: callerID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		verbose: verbose,
	}
}

// commandArgs are the typed arguments a dispatch call may carry.
type commandArgs struct {
	TargetID   int64  `json:"target_id,omitempty"`
	Amount     int64  `json:"amount,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Role       string `json:"role,omitempty"`
	RoleID     int64  `json:"role_id,omitempty"`
	Confirm    bool   `json:"confirm,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

// Dispatch invokes one bot command and decodes its result into out.
func (c *Client) Dispatch(name string, args commandArgs, out any) error {
	payload := struct {
		CallerID int64 `json:"caller_id"`
		commandArgs
	}{
		CallerID:    c.callerID,
		commandArgs: args,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	url := c.baseURL + "/v1/commands/" + name
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if c.verbose {
		fmt.Printf(">>> POST %s\n", url)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if c.verbose {
		fmt.Printf("<<< %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Error != "" {
			return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("command failed with status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// GetSweepStatus reads the latest sweep report.
func (c *Client) GetSweepStatus(out any) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.baseURL+"/v1/sweeps/latest", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("no sweep has run yet")
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
