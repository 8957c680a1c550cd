package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func upstream(t *testing.T, handler http.HandlerFunc) (baseURL string, calls *int32) {
	t.Helper()
	calls = new(int32)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv.URL + "/json/", calls
}

func TestLookupCountrySuccess(t *testing.T) {
	baseURL, _ := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/203.0.113.7", r.URL.Path)
		assert.Equal(t, "status,countryCode", r.URL.Query().Get("fields"))
		w.Write([]byte(`{"status":"success","countryCode":"AT"}`))
	})

	code := NewClient(baseURL, time.Second).LookupCountry(context.Background(), "203.0.113.7")
	assert.Equal(t, "AT", code)
}

func TestLookupCountryDegradesToUnknown(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"fail status": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"fail","message":"private range"}`))
		},
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		},
		"malformed code": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"success","countryCode":"Austria"}`))
		},
		"missing code": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"status":"success"}`))
		},
	} {
		t.Run(name, func(t *testing.T) {
			baseURL, _ := upstream(t, handler)
			code := NewClient(baseURL, time.Second).LookupCountry(context.Background(), "203.0.113.7")
			assert.Equal(t, Unknown, code)
		})
	}
}

func TestLookupCountryTimeout(t *testing.T) {
	release := make(chan struct{})
	baseURL, _ := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	start := time.Now()
	code := NewClient(baseURL, 50*time.Millisecond).LookupCountry(context.Background(), "203.0.113.7")
	assert.Equal(t, Unknown, code)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLookupCountryUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL + "/json/"
	srv.Close()

	code := NewClient(baseURL, time.Second).LookupCountry(context.Background(), "203.0.113.7")
	assert.Equal(t, Unknown, code)
}

func TestLookupCountryEmptyIP(t *testing.T) {
	baseURL, calls := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","countryCode":"AT"}`))
	})

	code := NewClient(baseURL, time.Second).LookupCountry(context.Background(), "")
	assert.Equal(t, Unknown, code)
	assert.Zero(t, atomic.LoadInt32(calls))
}

type mapCache struct {
	mu    sync.Mutex
	codes map[string]string
}

func (c *mapCache) Get(_ context.Context, ip string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.codes[ip]
	return code, ok
}

func (c *mapCache) Set(_ context.Context, ip, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[ip] = code
}

func TestLookupCountryUsesCache(t *testing.T) {
	baseURL, calls := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","countryCode":"DE"}`))
	})
	cache := &mapCache{codes: map[string]string{"198.51.100.1": "FI"}}
	client := NewClient(baseURL, time.Second, WithCache(cache))

	assert.Equal(t, "FI", client.LookupCountry(context.Background(), "198.51.100.1"))
	assert.Zero(t, atomic.LoadInt32(calls))

	assert.Equal(t, "DE", client.LookupCountry(context.Background(), "203.0.113.7"))
	assert.Equal(t, "DE", client.LookupCountry(context.Background(), "203.0.113.7"))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestLookupCountryDoesNotCacheFailures(t *testing.T) {
	baseURL, calls := upstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	cache := &mapCache{codes: map[string]string{}}
	client := NewClient(baseURL, time.Second, WithCache(cache))

	assert.Equal(t, Unknown, client.LookupCountry(context.Background(), "203.0.113.7"))
	assert.Equal(t, Unknown, client.LookupCountry(context.Background(), "203.0.113.7"))
	assert.Empty(t, cache.codes)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestRedisCacheUnavailableIsAMiss(t *testing.T) {
	cache := NewRedisCache("127.0.0.1:1", "", 0, time.Minute)
	defer cache.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cache.Set(ctx, "203.0.113.7", "AT")
	_, ok := cache.Get(ctx, "203.0.113.7")
	assert.False(t, ok)
}

func TestRedisCacheIntegration(t *testing.T) {
	if os.Getenv("SCANNER_INTEGRATION") != "1" {
		t.Skip("set SCANNER_INTEGRATION=1 to run against a Redis container")
	}
	ctx := context.Background()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, redisC.Terminate(ctx)) }()

	endpoint, err := redisC.Endpoint(ctx, "")
	require.NoError(t, err)

	cache := NewRedisCache(endpoint, "", 0, time.Minute)
	defer cache.Close()
	require.NoError(t, cache.Ping(ctx))

	_, ok := cache.Get(ctx, "203.0.113.7")
	assert.False(t, ok)

	cache.Set(ctx, "203.0.113.7", "AT")
	code, ok := cache.Get(ctx, "203.0.113.7")
	assert.True(t, ok)
	assert.Equal(t, "AT", code)
}
