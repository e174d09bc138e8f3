// Package client provides an HTTP client for the campaign flow API.
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

	"github.com/outflowhq/outflow/pkg/models"
)

const defaultTimeoutSeconds = 30

// APIError is returned when the server answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Body)
}

// Client talks to the campaign flow REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeoutSeconds * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type flowPayload struct {
	CampaignID string           `json:"campaign_id"`
	Nodes      []models.NodeDTO `json:"nodes"`
	Edges      []models.EdgeDTO `json:"edges"`
}

func (p flowPayload) toFlow() *models.CampaignFlow {
	return models.FlowFromDTOs(p.CampaignID, p.Nodes, p.Edges)
}

// GetFlow fetches the stored flow for a campaign. A campaign with no
// saved flow comes back as an empty flow.
func (c *Client) GetFlow(ctx context.Context, campaignID string) (*models.CampaignFlow, error) {
	var payload flowPayload

	err := c.do(ctx, http.MethodGet, "/campaigns/get-flow/"+url.PathEscape(campaignID), nil, &payload)
	if err != nil {
		return nil, err
	}

	return payload.toFlow(), nil
}

// SaveFlow replaces the complete flow for a campaign and returns the
// persisted result, including any server-issued node IDs.
func (c *Client) SaveFlow(ctx context.Context, flow *models.CampaignFlow) (*models.CampaignFlow, error) {
	nodes, edges := models.FlowToDTOs(flow)

	body := flowPayload{
		CampaignID: flow.CampaignID,
		Nodes:      nodes,
		Edges:      edges,
	}

	var payload flowPayload

	err := c.do(ctx, http.MethodPost, "/campaigns/save-flow", body, &payload)
	if err != nil {
		return nil, err
	}

	return payload.toFlow(), nil
}

// UpdateNodeRequest carries a partial node update.
type UpdateNodeRequest struct {
	PositionX *float64 `json:"position_x,omitempty"`
	PositionY *float64 `json:"position_y,omitempty"`
	WaitTime  *int     `json:"wait_time,omitempty"`
	Content   *string  `json:"content,omitempty"`
}

// UpdateNode sends a partial update for a single node.
func (c *Client) UpdateNode(ctx context.Context, nodeID string, req UpdateNodeRequest) (*models.FlowNode, error) {
	var dto models.NodeDTO

	err := c.do(ctx, http.MethodPut, "/campaigns/update_node/"+url.PathEscape(nodeID), req, &dto)
	if err != nil {
		return nil, err
	}

	return models.NodeFromDTO(dto), nil
}

// UpdateNodePosition moves a single node without touching its other
// fields.
func (c *Client) UpdateNodePosition(ctx context.Context, nodeID string, pos models.Position) error {
	req := UpdateNodeRequest{
		PositionX: &pos.X,
		PositionY: &pos.Y,
	}

	_, err := c.UpdateNode(ctx, nodeID, req)

	return err
}

// DeleteNode asks the server to remove a node. A refusal (a node that
// still has following steps) is not an error: it comes back in the
// result with Status false.
func (c *Client) DeleteNode(ctx context.Context, nodeID string) (*models.DeleteResult, error) {
	var result models.DeleteResult

	err := c.do(ctx, http.MethodDelete, "/campaigns/delete_node/"+url.PathEscape(nodeID), nil, &result)
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// ReplaceNodeRequest carries an in-place kind swap.
type ReplaceNodeRequest struct {
	ActionKey string `json:"action_key"`
	Label     string `json:"label,omitempty"`
	Subtitle  string `json:"subtitle,omitempty"`
	WaitTime  *int   `json:"wait_time,omitempty"`
}

// ReplaceNode swaps a node's kind on the server.
func (c *Client) ReplaceNode(ctx context.Context, nodeID string, req ReplaceNodeRequest) (*models.FlowNode, error) {
	var dto models.NodeDTO

	err := c.do(ctx, http.MethodPut, "/campaigns/replace_node/"+url.PathEscape(nodeID), req, &dto)
	if err != nil {
		return nil, err
	}

	return models.NodeFromDTO(dto), nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}

		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
