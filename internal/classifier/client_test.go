package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyDecodesResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/classify", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req classifyRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Contains(t, req.Prompt, "Subject: hello")

		json.NewEncoder(w).Encode(Result{Label: "SPAM", Confidence: 0.9, Rationale: "bulk marketing"})
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL, APIKey: "sk-test"})
	res, err := c.Classify(context.Background(), "gpt-4o-mini", "Subject: hello")
	require.NoError(t, err)
	assert.Equal(t, "SPAM", res.Label)
	assert.Equal(t, 0.9, res.Confidence)
}

func TestClassifyMapsServerErrorsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL})
	_, err := c.Classify(context.Background(), "gpt-4o-mini", "x")
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestClassifyMapsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := c.Classify(context.Background(), "gpt-4o-mini", "x")
	assert.True(t, errors.Is(err, ErrTimeout), "got %v", err)
}

func TestClassifyRejectsEmptyLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{Label: "  "})
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL})
	_, err := c.Classify(context.Background(), "gpt-4o-mini", "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnavailable))
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]string{"models": {"gpt-4o-mini", "qwen2.5"}})
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL})
	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o-mini", "qwen2.5"}, models)
}
