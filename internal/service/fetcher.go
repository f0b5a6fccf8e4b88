package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mailminder/internal/model"
	"mailminder/pkg/circuitbreaker"
)

// HTTPFetcher talks to the mail fetch gateway. A circuit breaker guards
// the call so a down gateway fails fast instead of tying up sync
// requests in timeouts.
type HTTPFetcher struct {
	baseURL    string
	httpClient *http.Client
	breaker    *circuitbreaker.CircuitBreaker
}

func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPFetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
	}
}

type fetchRequest struct {
	AccountID    int    `json:"account_id"`
	EmailAddress string `json:"email_address"`
	Folder       string `json:"folder"`
}

func (f *HTTPFetcher) Fetch(ctx context.Context, account *model.Account, folder string) (*FetchResult, error) {
	var result *FetchResult
	err := f.breaker.Execute(func() error {
		var callErr error
		result, callErr = f.fetch(ctx, account, folder)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *HTTPFetcher) fetch(ctx context.Context, account *model.Account, folder string) (*FetchResult, error) {
	body, err := json.Marshal(fetchRequest{
		AccountID:    account.ID,
		EmailAddress: account.EmailAddress,
		Folder:       folder,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/fetch", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch gateway unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch gateway returned %d: %s", resp.StatusCode, string(raw))
	}

	var result FetchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode fetch response: %w", err)
	}
	if result.Status == "error" {
		return nil, fmt.Errorf("fetch failed: %s", result.Error)
	}
	return &result, nil
}
