// Package groupapi implements the group.Client interface over the
// external group-management service's HTTP API.
package groupapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/timedealhq/creditbot/internal/config"
	"github.com/timedealhq/creditbot/internal/metrics"
	"github.com/timedealhq/creditbot/pkg/domain/group"
)

// maxErrorBody caps how much of an upstream error body is carried in
// diagnostics.
const maxErrorBody = 512

// Client talks to the external group service. All calls carry the
// static API key; no call is retried.
type Client struct {
	config     config.GroupConfig
	httpClient *http.Client
	baseURL    string
}

// New creates a new group service client.
func New(cfg config.GroupConfig) *Client {
	timeout := cfg.HTTPTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// ListRoles fetches the group's full role catalog.
func (c *Client) ListRoles(ctx context.Context) ([]group.Role, error) {
	path := fmt.Sprintf("/v1/groups/%d/roles", c.config.GroupID)

	resp, err := c.doRequest(ctx, "list_roles", http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.upstreamError("list_roles", resp)
	}

	var body struct {
		Roles []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
			Rank int    `json:"rank"`
		} `json:"roles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode roles response: %w", err)
	}

	roles := make([]group.Role, len(body.Roles))
	for i, r := range body.Roles {
		roles[i] = group.Role{ID: r.ID, Name: r.Name, Rank: r.Rank}
	}
	return roles, nil
}

// FindMembership looks up a user's membership via a filtered listing
// query. Returns (nil, nil) when the user has no membership.
func (c *Client) FindMembership(ctx context.Context, userID int64) (*group.Membership, error) {
	path := fmt.Sprintf("/v1/groups/%d/memberships?userId=%d&maxPageSize=1",
		c.config.GroupID, userID)

	page, err := c.fetchMembershipPage(ctx, "find_membership", path)
	if err != nil {
		return nil, err
	}
	if len(page.Memberships) == 0 {
		return nil, nil
	}
	m := page.Memberships[0]
	return &m, nil
}

// ListMemberships fetches one page of the full membership listing.
func (c *Client) ListMemberships(ctx context.Context, pageToken string, pageSize int) (*group.MembershipPage, error) {
	if pageSize <= 0 {
		pageSize = c.config.PageSize
	}

	path := fmt.Sprintf("/v1/groups/%d/memberships?maxPageSize=%d", c.config.GroupID, pageSize)
	if pageToken != "" {
		path += "&pageToken=" + url.QueryEscape(pageToken)
	}

	return c.fetchMembershipPage(ctx, "list_memberships", path)
}

// UpdateMembershipRole reassigns a membership to a role. Single attempt.
func (c *Client) UpdateMembershipRole(ctx context.Context, membershipID string, roleID int64) error {
	path := fmt.Sprintf("/v1/groups/%d/memberships/%s",
		c.config.GroupID, url.PathEscape(membershipID))

	payload, err := json.Marshal(map[string]int64{"roleId": roleID})
	if err != nil {
		return fmt.Errorf("failed to encode role update: %w", err)
	}

	resp, err := c.doRequest(ctx, "update_membership", http.MethodPatch, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return c.upstreamError("update_membership", resp)
	}
	return nil
}

// LookupUserID resolves a display name to a user id.
func (c *Client) LookupUserID(ctx context.Context, username string) (int64, error) {
	path := "/v1/users/lookup?username=" + url.QueryEscape(username)

	resp, err := c.doRequest(ctx, "lookup_user", http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("username %q not found", username)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, c.upstreamError("lookup_user", resp)
	}

	var body struct {
		UserID int64 `json:"userId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode user lookup response: %w", err)
	}
	return body.UserID, nil
}

func (c *Client) fetchMembershipPage(ctx context.Context, op, path string) (*group.MembershipPage, error) {
	resp, err := c.doRequest(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, c.upstreamError(op, resp)
	}

	var body struct {
		Memberships []struct {
			ID     string `json:"id"`
			UserID int64  `json:"userId"`
			RoleID int64  `json:"roleId"`
		} `json:"memberships"`
		NextPageToken string `json:"nextPageToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode memberships response: %w", err)
	}

	page := &group.MembershipPage{
		Memberships:   make([]group.Membership, len(body.Memberships)),
		NextPageToken: body.NextPageToken,
	}
	for i, m := range body.Memberships {
		page.Memberships[i] = group.Membership{ID: m.ID, UserID: m.UserID, RoleID: m.RoleID}
	}
	return page, nil
}

func (c *Client) doRequest(ctx context.Context, op, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.GroupRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GroupRequestsTotal.WithLabelValues(op, "transport_error").Inc()
		return nil, fmt.Errorf("group service %s request failed: %w", op, err)
	}

	metrics.GroupRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}

// upstreamError builds an UpstreamError from a failure response,
// preferring the structured body when one is present.
func (c *Client) upstreamError(op string, resp *http.Response) *group.UpstreamError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var structured struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	detail := ""
	if err := json.Unmarshal(raw, &structured); err == nil && structured.Message != "" {
		detail = structured.Message
		if structured.Code != "" {
			detail = structured.Code + ": " + detail
		}
	} else {
		detail = strings.TrimSpace(string(raw))
		if len(detail) > maxErrorBody {
			detail = detail[:maxErrorBody]
		}
	}

	return &group.UpstreamError{
		Op:         op,
		StatusCode: resp.StatusCode,
		Body:       detail,
	}
}
