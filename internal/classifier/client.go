// Package classifier is the boundary to the external model gateway. The
// engine calls it up to three times per message (primary, secondary,
// review); the gateway owns the actual LLM wire protocol. No retry or
// backoff lives here: a failed call surfaces immediately and the message
// stays eligible for a later classification pass.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"mailminder/pkg/metrics"
)

// Result is one model opinion.
type Result struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Config is the gateway snapshot a Client is built from. It is resolved
// per request (persisted ai_config row, falling back to the static
// config) so decisions are reproducible against the snapshot in use.
type Config struct {
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type classifyRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// Classify asks one model for an opinion on a prompt. The model is always
// passed explicitly; the client holds no ambient model state.
func (c *Client) Classify(ctx context.Context, model, prompt string) (*Result, error) {
	start := time.Now()
	res, err := c.classify(ctx, model, prompt)
	metrics.RecordClassifierCall(model, callStatus(err), time.Since(start))
	return res, err
}

func (c *Client) classify(ctx context.Context, model, prompt string) (*Result, error) {
	b, err := json.Marshal(classifyRequest{Model: model, Prompt: prompt})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/classify", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: model %s: %v", ErrTimeout, model, err)
		}
		return nil, fmt.Errorf("%w: model %s: %v", ErrUnavailable, model, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: classifier gateway 5xx: %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier gateway error: %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode classifier response: %w", err)
	}
	if strings.TrimSpace(result.Label) == "" {
		return nil, fmt.Errorf("classifier gateway error: empty label from model %s", model)
	}
	return &result, nil
}

// ListModels returns the model names the gateway exposes.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL+"/models", nil)
	if err != nil {
		return nil, err
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier gateway error: %d", resp.StatusCode)
	}

	var out struct {
		Models []string `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}
	return out.Models, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
