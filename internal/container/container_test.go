package container

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zara/scraper/internal/config"
)

func testConfig(t *testing.T, upstream string) *config.Config {
	t.Helper()

	return &config.Config{
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: freePort(t), RequestTimeout: 5},
		Zara:      config.ZaraConfig{BaseURL: upstream, CategoriesPath: "/categories", Timeout: 5},
		Extractor: config.ExtractorConfig{MaxDepth: 64},
		Refresh:   config.RefreshConfig{Workers: 1},
		Log:       config.LogConfig{Level: "info", Format: "text"},
	}
}

func freePort(t *testing.T) int {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNew_WithoutOptionalBackends(t *testing.T) {
	t.Parallel()

	c, err := New(context.Background(), testConfig(t, "http://127.0.0.1:1"))
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Cache)
	assert.Nil(t, c.Queue)
	assert.Nil(t, c.Repository)

	rec := httptest.NewRecorder()
	c.Server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/zara/refresh", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNew_WithRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Redis = config.RedisConfig{
		Enabled:       true,
		Host:          mr.Host(),
		Port:          port,
		CacheTTL:      60,
		ConsumerGroup: "zara_consumer",
		MinIdleTime:   60,
	}

	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	require.NotNil(t, c.Cache)
	require.NotNil(t, c.Queue)
	assert.True(t, mr.Exists("zara:stream:RefreshTask"))
}

func TestNew_RedisUnavailable(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.Redis = config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	_, err := New(context.Background(), cfg)
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	t.Parallel()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":1,"name":"Women"}]`))
	}))
	defer upstream.Close()

	cfg := testConfig(t, upstream.URL)
	c, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	url := "http://" + cfg.Server.Address() + "/api/zara/categories"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("container did not shut down")
	}
}

func TestClose_NilSafe(t *testing.T) {
	t.Parallel()

	assert.NoError(t, (&Container{}).Close())
}
