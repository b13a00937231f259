package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"schemaplane/pkg/api"
)

// Client handles API calls to the schemaplane controller.
type Client struct {
	BaseURL     string
	Token       string
	AdminSecret string
	AdminUser   string
	HTTPClient  *http.Client
}

// NewClient creates a new client with the given base URL and tenant token.
func NewClient(baseURL, token string) *Client {
	return &Client{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NewAdminClient creates a client for the admin endpoints.
func NewAdminClient(baseURL, adminSecret, adminUser string) *Client {
	return &Client{
		BaseURL:     baseURL,
		AdminSecret: adminSecret,
		AdminUser:   adminUser,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// do sends a JSON request and decodes the JSON response into out.
// Tenant requests carry the API key, admin requests the shared secret
// and the acting principal.
func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.AdminSecret != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.AdminSecret))
		httpReq.Header.Add("X-Admin-User", c.AdminUser)
	} else if c.Token != "" {
		httpReq.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.Token))
	}
	httpReq.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// CreateTenant sends POST /tenants to register a new tenant.
func (c *Client) CreateTenant(req api.CreateTenantRequest) (*api.CreateTenantResponse, error) {
	var result api.CreateTenantResponse
	if err := c.do(http.MethodPost, "/tenants", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitOperation sends POST /operations to submit a DDL or DML intent.
func (c *Client) SubmitOperation(req api.CreateOperationRequest) (*api.CreateOperationResponse, error) {
	var result api.CreateOperationResponse
	if err := c.do(http.MethodPost, "/operations", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RequestApproval sends POST /groups/{id}/request-approval.
func (c *Client) RequestApproval(groupID string, req api.RequestApprovalRequest) (*api.ReviewGroupResponse, error) {
	var result api.ReviewGroupResponse
	if err := c.do(http.MethodPost, fmt.Sprintf("/groups/%s/request-approval", groupID), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetGroup sends GET /groups/{id} to retrieve a group with its operations.
func (c *Client) GetGroup(groupID string) (*api.GroupResponse, error) {
	var result api.GroupResponse
	if err := c.do(http.MethodGet, fmt.Sprintf("/groups/%s", groupID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RawQuery sends POST /queries to run a guarded read-only SELECT.
func (c *Client) RawQuery(req api.RawQueryRequest) (*api.RawQueryResponse, error) {
	var result api.RawQueryResponse
	if err := c.do(http.MethodPost, "/queries", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PendingGroups sends GET /admin/groups/pending to list the review queue.
func (c *Client) PendingGroups(limit, offset int) (*api.PendingGroupsResponse, error) {
	var result api.PendingGroupsResponse
	path := fmt.Sprintf("/admin/groups/pending?limit=%d&offset=%d", limit, offset)
	if err := c.do(http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReviewGroup sends POST /admin/groups/{id}/{action} for approve, reject
// or cancel.
func (c *Client) ReviewGroup(groupID, action string, req api.ReviewGroupRequest) (*api.ReviewGroupResponse, error) {
	var result api.ReviewGroupResponse
	if err := c.do(http.MethodPost, fmt.Sprintf("/admin/groups/%s/%s", groupID, action), req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ExecuteGroup sends POST /admin/groups/{id}/execute to run an approved batch.
func (c *Client) ExecuteGroup(groupID string) (*api.BatchResultResponse, error) {
	var result api.BatchResultResponse
	if err := c.do(http.MethodPost, fmt.Sprintf("/admin/groups/%s/execute", groupID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
