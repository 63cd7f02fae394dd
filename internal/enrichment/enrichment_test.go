package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	JSONRPC string                 `json:"jsonrpc"`
	Method  string                 `json:"method"`
	Params  map[string]interface{} `json:"params"`
	ID      int64                  `json:"id"`
}

// newRPCServer serves a fixed result for every call and counts hits.
func newRPCServer(t *testing.T, result interface{}, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/mcp", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "2.0", req.JSONRPC)
		require.NotZero(t, req.ID)

		hits.Add(1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

func TestResources(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, map[string]interface{}{
		"resources": []map[string]string{
			{"name": "Dengue", "uri": "kb://dengue", "description": "manejo clínico"},
		},
	}, &hits)
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL}, nil, nil)
	require.NoError(t, err)

	resources := c.Resources(context.Background(), "dengue")
	require.Len(t, resources, 1)
	assert.Equal(t, "Dengue", resources[0].Name)
	assert.Equal(t, "kb://dengue", resources[0].URI)
}

func TestToolCallsCarryLanguage(t *testing.T) {
	var captured rpcRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": captured.ID,
			"result": map[string]interface{}{"protocol": "ABCDE"},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL}, nil, nil)
	require.NoError(t, err)

	result := c.EmergencyProtocols(context.Background(), []string{"dor no peito"})
	assert.Equal(t, "ABCDE", result["protocol"])

	assert.Equal(t, "tools/call", captured.Method)
	assert.Equal(t, "emergency_protocols", captured.Params["name"])
	args, ok := captured.Params["arguments"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "pt-BR", args["language"])
}

func TestBearerAuthHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0", "id": 1, "result": map[string]interface{}{},
		})
	}))
	defer srv.Close()

	c, err := NewClient(Config{URL: srv.URL, APIKey: "secret"}, nil, nil)
	require.NoError(t, err)

	c.Guidelines(context.Background(), "asma")
	assert.Equal(t, "Bearer secret", auth)
}

func TestFailuresDegradeToEmpty(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c, err := NewClient(Config{URL: srv.URL}, nil, nil)
		require.NoError(t, err)

		assert.Empty(t, c.Resources(context.Background(), "dengue"))
		assert.Empty(t, c.DrugInteractions(context.Background(), []string{"dipirona"}))
	})

	t.Run("rpc error object", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"jsonrpc": "2.0", "id": 1,
				"error": map[string]interface{}{"code": -32601, "message": "method not found"},
			})
		}))
		defer srv.Close()

		c, err := NewClient(Config{URL: srv.URL}, nil, nil)
		require.NoError(t, err)

		assert.Empty(t, c.Guidelines(context.Background(), "asma"))
	})

	t.Run("server unreachable", func(t *testing.T) {
		c, err := NewClient(Config{URL: "http://127.0.0.1:1"}, nil, nil)
		require.NoError(t, err)

		assert.Empty(t, c.EmergencyProtocols(context.Background(), []string{"desmaio"}))
	})
}

func TestCacheHitSkipsHTTP(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, map[string]interface{}{"resources": []map[string]string{}}, &hits)
	defer srv.Close()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c, err := NewClient(Config{URL: srv.URL}, cache, nil)
	require.NoError(t, err)

	ctx := context.Background()
	c.Resources(ctx, "dengue")
	c.Resources(ctx, "dengue")
	assert.Equal(t, int64(1), hits.Load(), "second lookup must be served from cache")

	c.Resources(ctx, "gripe")
	assert.Equal(t, int64(2), hits.Load(), "different query is a different cache key")
}

func TestCacheEntryExpires(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, map[string]interface{}{"resources": []map[string]string{}}, &hits)
	defer srv.Close()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c, err := NewClient(Config{URL: srv.URL, CacheTTL: time.Minute}, cache, nil)
	require.NoError(t, err)

	ctx := context.Background()
	c.Resources(ctx, "dengue")
	mr.FastForward(2 * time.Minute)
	c.Resources(ctx, "dengue")
	assert.Equal(t, int64(2), hits.Load())
}

func TestRedisOutageFallsBackToHTTP(t *testing.T) {
	var hits atomic.Int64
	srv := newRPCServer(t, map[string]interface{}{"resources": []map[string]string{}}, &hits)
	defer srv.Close()

	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	c, err := NewClient(Config{URL: srv.URL}, cache, nil)
	require.NoError(t, err)

	resources := c.Resources(context.Background(), "dengue")
	assert.NotNil(t, resources)
	assert.Equal(t, int64(1), hits.Load())
}
