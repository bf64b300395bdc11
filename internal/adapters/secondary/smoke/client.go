package smoke

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const livenessText = "OK"

var (
	ErrUnhealthy        = errors.New("health check failed")
	ErrPredictionFailed = errors.New("prediction check failed")
)

// Result is the body returned by POST /predict.
type Result struct {
	Status  string  `json:"status"`
	Predict float64 `json:"predict"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client exercises a running prediction server, directly or through the gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Health calls GET / and expects the liveness text.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return fmt.Errorf("read health response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != livenessText {
		return fmt.Errorf("%w: status %d body %q", ErrUnhealthy, resp.StatusCode, body)
	}
	return nil
}

// Predict posts features to /predict and requires a success response.
func (c *Client) Predict(ctx context.Context, features map[string]interface{}) (*Result, error) {
	payload, err := json.Marshal(features)
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response (status %d): %v", ErrPredictionFailed, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || result.Status != "success" {
		msg := result.Status
		if result.Error != nil {
			msg = result.Error.Code + ": " + result.Error.Message
		}
		return &result, fmt.Errorf("%w: status %d: %s", ErrPredictionFailed, resp.StatusCode, msg)
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// The gateway reads the API key from the query string.
	if c.apiKey != "" && method == http.MethodPost {
		q := req.URL.Query()
		q.Set("key", c.apiKey)
		req.URL.RawQuery = q.Encode()
	}

	log.WithFields(log.Fields{
		"method": method,
		"url":    c.baseURL + path,
	}).Debug("sending smoke request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}
