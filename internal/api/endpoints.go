package api

import (
	"context"
	"fmt"
)

// GetServerInfo retrieves collaborator configuration, including the
// response signing key. It does not pin the key; callers decide that.
func (c *Client) GetServerInfo(ctx context.Context) (*ServerInfo, error) {
	var result ServerInfo
	if err := c.do(ctx, "GET", "/api/v1/server-info", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckStrength submits one encrypted password for server-side scoring.
func (c *Client) CheckStrength(ctx context.Context, req StrengthRequest) (*StrengthResponse, error) {
	var result StrengthResponse
	if err := c.doSigned(ctx, "POST", "/api/v1/strength", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// BatchCheckStrength scores several encrypted passwords in one request.
// The collaborator guarantees one result per item, in order.
func (c *Client) BatchCheckStrength(ctx context.Context, req BatchStrengthRequest) (*BatchStrengthResponse, error) {
	var result BatchStrengthResponse
	if err := c.doSigned(ctx, "POST", "/api/v1/strength/batch", req, &result); err != nil {
		return nil, err
	}
	if got, want := len(result.Results), len(req.Items); got != want {
		return nil, fmt.Errorf("batch result count mismatch: got %d, want %d", got, want)
	}
	return &result, nil
}

// EncryptedSearch matches a blinded query against the caller's encrypted
// entries. There is no local fallback for this operation.
func (c *Client) EncryptedSearch(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	var result SearchResponse
	if err := c.doSigned(ctx, "POST", "/api/v1/search", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReportStatus pushes an aggregate operational snapshot.
func (c *Client) ReportStatus(ctx context.Context, report StatusReport) (*StatusResponse, error) {
	var result StatusResponse
	if err := c.do(ctx, "POST", "/api/v1/status", report, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
