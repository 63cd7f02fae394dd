// Package enrichment talks to the optional medical-knowledge service over
// JSON-RPC 2.0. Lookups feed supplementary context into replies; the
// service is best-effort, so every failure degrades to empty results and
// never reaches the user.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pocketmedic/triage-gateway/internal/metrics"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultCacheTTL = 15 * time.Minute
)

// Config holds enrichment client configuration.
type Config struct {
	URL      string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// Resource is one knowledge-base entry returned by resources/list.
type Resource struct {
	Name        string `json:"name"`
	URI         string `json:"uri"`
	Description string `json:"description"`
}

// Client is the JSON-RPC enrichment client with an optional Redis result
// cache. A nil redis client disables caching entirely.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     *slog.Logger
	nextID     atomic.Int64
}

// NewClient creates an enrichment client. cache may be nil.
func NewClient(cfg Config, cache *redis.Client, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("enrichment URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger,
	}, nil
}

// Resources looks up knowledge-base entries matching the query.
func (c *Client) Resources(ctx context.Context, query string) []Resource {
	raw, ok := c.lookup(ctx, "resources/list", map[string]interface{}{
		"query": query,
		"type":  "medical",
	})
	if !ok {
		return nil
	}

	var result struct {
		Resources []Resource `json:"resources"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("enrichment resources decode failed", "error", err)
		return nil
	}
	return result.Resources
}

// DrugInteractions checks the given medication list for known interactions.
func (c *Client) DrugInteractions(ctx context.Context, medications []string) map[string]interface{} {
	return c.toolCall(ctx, "check_drug_interactions", map[string]interface{}{
		"medications": medications,
	})
}

// Guidelines fetches clinical guidelines for a condition.
func (c *Client) Guidelines(ctx context.Context, condition string) map[string]interface{} {
	return c.toolCall(ctx, "get_medical_guidelines", map[string]interface{}{
		"condition": condition,
		"language":  "pt-BR",
	})
}

// EmergencyProtocols fetches emergency handling protocols for symptoms.
func (c *Client) EmergencyProtocols(ctx context.Context, symptoms []string) map[string]interface{} {
	return c.toolCall(ctx, "emergency_protocols", map[string]interface{}{
		"symptoms": symptoms,
		"language": "pt-BR",
	})
}

func (c *Client) toolCall(ctx context.Context, name string, arguments map[string]interface{}) map[string]interface{} {
	raw, ok := c.lookup(ctx, "tools/call", map[string]interface{}{
		"name":      name,
		"arguments": arguments,
	})
	if !ok {
		return map[string]interface{}{}
	}

	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("enrichment tool decode failed", "tool", name, "error", err)
		return map[string]interface{}{}
	}
	return result
}

// lookup resolves one method call, consulting the cache first. Cache errors
// fall through to the HTTP call; lookup errors produce (nil, false).
func (c *Client) lookup(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, bool) {
	key, keyOK := cacheKey(method, params)

	if c.cache != nil && keyOK {
		cached, err := c.cache.Get(ctx, key).Bytes()
		if err == nil {
			metrics.EnrichmentLookupsTotal.WithLabelValues("hit").Inc()
			return cached, true
		}
		if err != redis.Nil {
			c.logger.Warn("enrichment cache read failed", "error", err)
		}
	}

	raw, err := c.call(ctx, method, params)
	if err != nil {
		metrics.EnrichmentLookupsTotal.WithLabelValues("error").Inc()
		c.logger.Warn("enrichment lookup failed", "method", method, "error", err)
		return nil, false
	}
	metrics.EnrichmentLookupsTotal.WithLabelValues("miss").Inc()

	if c.cache != nil && keyOK {
		if err := c.cache.Set(ctx, key, []byte(raw), c.cacheTTL).Err(); err != nil {
			c.logger.Warn("enrichment cache write failed", "error", err)
		}
	}
	return raw, true
}

func (c *Client) call(ctx context.Context, method string, params map[string]interface{}) (json.RawMessage, error) {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      c.nextID.Add(1),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/mcp", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("enrichment returned status %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("enrichment error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	if rpcResp.Result == nil {
		return nil, fmt.Errorf("enrichment returned empty result")
	}
	return rpcResp.Result, nil
}

// cacheKey derives a stable key from the method and its parameters.
func cacheKey(method string, params map[string]interface{}) (string, bool) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", false
	}
	return "enrichment:" + method + ":" + string(encoded), true
}
