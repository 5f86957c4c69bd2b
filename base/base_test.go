package base

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoth-station/source-management/logging"
)

func TestTransportLogsRequests(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Limit", "5000")
		w.Header().Set("X-RateLimit-Remaining", "4999")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer ts.Close()

	logs := bytes.NewBuffer(nil)
	logger, err := logging.New(logging.WithSoleWriter(logs), logging.WithLevel("trace"))
	require.NoError(t, err)

	client := NewClient("test-component", WithLogger(logger))
	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, logs.String(), "HTTP client request")
	assert.Contains(t, logs.String(), "HTTP client response")
	assert.Contains(t, logs.String(), `"component":"test-component"`)
}

func TestTransportWarnsNearRateLimit(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "2")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	logs := bytes.NewBuffer(nil)
	logger, err := logging.New(logging.WithSoleWriter(logs), logging.WithLevel("trace"))
	require.NoError(t, err)

	client := NewClient("test-component", WithLogger(logger))
	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Contains(t, logs.String(), RateLimitWarningMsg)
}

func TestTransportRequestHeaders(t *testing.T) {
	t.Parallel()

	var gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAccept = r.Header.Get("Accept")
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := NewClient(
		"test-component",
		WithRequestHeaders(http.Header{"Accept": []string{"application/vnd.github+json"}}),
	)
	resp, err := client.Get(ts.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "application/vnd.github+json", gotAccept)
}
