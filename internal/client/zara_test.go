package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zara/scraper/internal/config"
)

func testConfig(baseURL string) config.ZaraConfig {
	return config.ZaraConfig{
		BaseURL:             baseURL,
		CategoriesPath:      "/az/ru/categories?ajax=true",
		Timeout:             5,
		MaxRetries:          0,
		CircuitBreakerDelay: 60,
		UserAgent:           "test-agent",
		Accept:              "application/json",
		AcceptLanguage:      "az,en;q=0.9",
	}
}

type staticProxies []string

func (p staticProxies) Get() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

func (p staticProxies) Len() int { return len(p) }

func TestFetchCategories_SendsBrowserHeaders(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/az/ru/categories", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("ajax"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "az,en;q=0.9", r.Header.Get("Accept-Language"))
		assert.Equal(t, "XMLHttpRequest", r.Header.Get("X-Requested-With"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"categories":[{"name":"Women"}]}`))
	}))
	defer srv.Close()

	c := NewZaraClient(testConfig(srv.URL), nil)
	defer c.Close()

	doc, err := c.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, doc.StatusCode)
	assert.JSONEq(t, `{"categories":[{"name":"Women"}]}`, doc.Content)
	assert.Equal(t, "application/json", doc.Headers["Content-Type"])
	assert.False(t, doc.FetchedAt.IsZero())
}

func TestFetchCategories_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewZaraClient(testConfig(srv.URL), nil)
	defer c.Close()

	doc, err := c.FetchCategories(context.Background())
	require.Error(t, err)
	assert.Nil(t, doc)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "403")
}

func TestFetchRaw_PassesThroughAnyStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Add("X-Multi", "a")
		w.Header().Add("X-Multi", "b")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	}))
	defer srv.Close()

	c := NewZaraClient(testConfig(srv.URL), nil)
	defer c.Close()

	doc, err := c.FetchRaw(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, doc.StatusCode)
	assert.Equal(t, "maintenance", doc.Content)
	assert.Equal(t, "a,b", doc.Headers["X-Multi"])
}

func TestFetchCategories_UnwrapsEmbeddedPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><script type="application/json">[{"name":"Kids"}]</script></body></html>`))
	}))
	defer srv.Close()

	c := NewZaraClient(testConfig(srv.URL), nil)
	defer c.Close()

	doc, err := c.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Kids"}]`, doc.Content)
}

func TestFetchCategories_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewZaraClient(testConfig(url), nil)
	defer c.Close()

	_, err := c.FetchCategories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch URL")

	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestFetchCategories_RateLimitedOpensCircuitBreaker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewZaraClient(testConfig(srv.URL), staticProxies{})
	defer c.Close()

	_, err := c.FetchCategories(context.Background())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)

	_, err = c.FetchCategories(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCategories_RateLimitedRetriesThroughNextProxy(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	// Plain-HTTP forward proxy that answers on behalf of the upstream.
	fakeProxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"Via proxy"}]`))
	}))
	defer fakeProxy.Close()

	c := NewZaraClient(testConfig(upstream.URL), nil).(*zaraClient)
	defer c.Close()
	c.proxySupplier = staticProxies{fakeProxy.URL}

	doc, err := c.FetchCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Via proxy"}]`, doc.Content)
	assert.False(t, c.isCircuitBreakerOpen())
}

func TestFetchCategories_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewZaraClient(testConfig(srv.URL), nil)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FetchCategories(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
