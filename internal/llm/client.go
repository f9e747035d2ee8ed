// Package llm provides a resilient completion client. Requests walk a chain
// of providers (hosted endpoints first, a deterministic rule-based synthesiser
// last) with per-provider rate limiting, retries, and circuit breaking, plus
// an optional response cache in front of the whole chain.
package llm

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/mindwell-health/assessment-engine/internal/cache"
	"github.com/mindwell-health/assessment-engine/internal/config"
	"github.com/mindwell-health/assessment-engine/internal/metrics"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

// Response is the outcome of one Generate call.
type Response struct {
	Content  string `json:"content"`
	Provider string `json:"provider"`
	Cached   bool   `json:"cached"`
}

// ProviderStats reports one provider's runtime condition.
type ProviderStats struct {
	Name         string `json:"name"`
	BreakerState string `json:"breaker_state"`
	Requests     uint64 `json:"requests"`
	Failures     uint64 `json:"failures"`
}

type providerRuntime struct {
	provider Provider
	cfg      config.ProviderConfig
	limiter  *rate.Limiter
	breaker  *Breaker

	requests atomic.Uint64
	failures atomic.Uint64
}

// Client walks the provider chain for each request. Safe for concurrent use.
type Client struct {
	chain    []*providerRuntime
	cache    cache.Provider
	cacheTTL time.Duration
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewClient builds the provider chain from configuration. Unconfigured hosted
// providers are left out; the rule-based provider is always the terminal
// entry, so Generate cannot run out of providers.
func NewClient(cfg config.CompletionConfig, cacheProvider cache.Provider, cacheTTL time.Duration, logger *slog.Logger) *Client {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := &Client{
		cache:    cacheProvider,
		cacheTTL: cacheTTL,
		logger:   logger,
		sleep:    sleepCtx,
	}

	if cfg.Groq.Configured() {
		client.chain = append(client.chain, newRuntime(newAPIProvider("groq", cfg.Groq), cfg.Groq))
	}
	if cfg.OpenRouter.Configured() {
		client.chain = append(client.chain, newRuntime(newAPIProvider("openrouter", cfg.OpenRouter), cfg.OpenRouter))
	}
	client.chain = append(client.chain, newRuntime(ruleProvider{}, config.ProviderConfig{}))

	return client
}

func newRuntime(p Provider, cfg config.ProviderConfig) *providerRuntime {
	rt := &providerRuntime{provider: p, cfg: cfg}
	if cfg.RateLimitPerMinute > 0 {
		rt.limiter = rate.NewLimiter(rate.Limit(float64(cfg.RateLimitPerMinute)/60), cfg.RateLimitPerMinute)
	}
	if p.Name() != RuleBasedName {
		rt.breaker = NewBreaker(5, 60*time.Second)
	}
	return rt
}

// Generate produces a completion for the request, consulting the cache first
// and then walking the provider chain. Only a cancelled context can make it
// fail; every other failure mode lands on the rule-based provider.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	key := cacheKey(req)
	if cached, err := c.cache.Get(ctx, key); err == nil {
		var resp Response
		if err := json.Unmarshal(cached, &resp); err == nil {
			resp.Cached = true
			metrics.ObserveCacheHit()
			return resp, nil
		}
	}

	var lastErr error
	for _, rt := range c.chain {
		name := rt.provider.Name()

		if rt.breaker != nil && !rt.breaker.Allow() {
			c.logger.Warn("provider circuit open, skipping", "provider", name)
			continue
		}

		content, err := c.tryProvider(ctx, rt, req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return Response{}, ctx.Err()
			}
			c.logger.Warn("provider exhausted, falling through", "provider", name, "error", err)
			continue
		}

		resp := Response{Content: utils.SanitizeCompletion(content), Provider: name}
		if name != RuleBasedName {
			if payload, err := json.Marshal(resp); err == nil {
				if err := c.cache.Set(ctx, key, payload, c.cacheTTL); err != nil {
					c.logger.Debug("response cache write failed", "error", err)
				}
			}
		}
		return resp, nil
	}

	if lastErr == nil {
		lastErr = utils.NewAppError("llm.Generate", "no providers available", utils.ErrProvider)
	}
	return Response{}, lastErr
}

// tryProvider runs one provider with its rate limiter, retry budget, and
// breaker accounting. Retries back off linearly.
func (c *Client) tryProvider(ctx context.Context, rt *providerRuntime, req Request) (string, error) {
	name := rt.provider.Name()

	if rt.limiter != nil {
		if err := rt.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	var lastErr error
	for attempt := 0; attempt <= rt.cfg.MaxRetries; attempt++ {
		rt.requests.Add(1)
		content, err := rt.provider.Complete(ctx, req)
		if err == nil {
			if rt.breaker != nil {
				rt.breaker.RecordSuccess()
			}
			metrics.ObserveCompletion(name, "success")
			return content, nil
		}

		rt.failures.Add(1)
		metrics.ObserveCompletion(name, "error")
		lastErr = err

		if errors.Is(err, utils.ErrProviderUnconfigured) {
			return "", err
		}
		if rt.breaker != nil {
			rt.breaker.RecordFailure()
		}
		if attempt < rt.cfg.MaxRetries && rt.cfg.RetryDelay > 0 {
			if err := c.sleep(ctx, rt.cfg.RetryDelay*time.Duration(attempt+1)); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}

// ExtractStructured generates a completion and parses a JSON object out of
// it. Parse failures surface as utils.ErrParse so callers can take their next
// fallback tier.
func (c *Client) ExtractStructured(ctx context.Context, req Request) (map[string]any, error) {
	resp, err := c.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	obj, err := utils.ExtractObject(resp.Content)
	if err != nil {
		return nil, err
	}
	return obj, nil
}

// HasLiveProvider reports whether any hosted provider is in the chain. When
// false, structured output comes only from the rule-based synthesiser and
// callers may prefer their deterministic paths.
func (c *Client) HasLiveProvider() bool {
	for _, rt := range c.chain {
		if rt.provider.Name() != RuleBasedName {
			return true
		}
	}
	return false
}

// Stats returns per-provider request accounting in chain order.
func (c *Client) Stats() []ProviderStats {
	out := make([]ProviderStats, 0, len(c.chain))
	for _, rt := range c.chain {
		stats := ProviderStats{
			Name:     rt.provider.Name(),
			Requests: rt.requests.Load(),
			Failures: rt.failures.Load(),
		}
		if rt.breaker != nil {
			stats.BreakerState = rt.breaker.State()
		}
		out = append(out, stats)
	}
	return out
}

func cacheKey(req Request) string {
	sum := md5.Sum(fmt.Appendf(nil, "%s:%s:%d:%.2f", req.Prompt, req.System, req.MaxTokens, req.Temperature))
	return "completion/" + hex.EncodeToString(sum[:])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
