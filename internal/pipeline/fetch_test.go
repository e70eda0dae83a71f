package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcherSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4 content"))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 1024)

	data, err := fetcher.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 content", string(data))
}

func TestHTTPFetcherRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 1024)

	_, err := fetcher.Fetch(context.Background(), server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestHTTPFetcherEnforcesSizeCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 2048)))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 1024)

	_, err := fetcher.Fetch(context.Background(), server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 1024 bytes")
}

func TestHTTPFetcherAllowsBodyAtCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("a", 1024)))
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(5*time.Second, 1024)

	data, err := fetcher.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Len(t, data, 1024)
}
