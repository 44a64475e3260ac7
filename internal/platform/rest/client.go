// Package rest is the small JSON-over-HTTP client shared by the Twitch, Kick and Facebook adapters.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/pkg/errors"
	"go.uber.org/zap"
)

const userAgent = "multistream-checker/1.0"

type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient wraps httpClient. A nil httpClient gets a client with the default request timeout.
func NewClient(httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.APIConfig.RequestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{httpClient: httpClient, logger: logger}
}

// GetJSON performs a GET and decodes a 2xx body into dest.
//
// A non-2xx response yields *errors.APIError whose StatusCode is the HTTP status and whose
// Context["body"] holds the (truncated) response body. Transport and decode failures are
// returned as plain wrapped errors.
func (c *Client) GetJSON(ctx context.Context, url string, headers http.Header, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, constants.APIConfig.MaxErrorBodyBytes))
		c.logger.Debug("Upstream returned non-success status",
			zap.Int("status", resp.StatusCode),
			zap.String("host", req.URL.Host),
		)
		return errors.NewAPIError(resp.Status, resp.StatusCode, map[string]any{
			"url":  req.URL.Redacted(),
			"body": string(body),
		})
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, constants.APIConfig.MaxPayloadBodyBytes)).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ErrorBody returns the response body recorded on an APIError produced by GetJSON.
func ErrorBody(err *errors.APIError) []byte {
	if err == nil || err.Context == nil {
		return nil
	}
	s, _ := err.Context["body"].(string)
	return []byte(s)
}
