package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mindwell-health/assessment-engine/internal/cache"
	"github.com/mindwell-health/assessment-engine/internal/config"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

type fakeProvider struct {
	name     string
	response string
	err      error
	failures int // fail this many calls before succeeding
	calls    int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Complete(context.Context, Request) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.calls <= f.failures {
		return "", utils.NewAppError("llm."+f.name, "transient", utils.ErrProvider)
	}
	return f.response, nil
}

func newTestClient(cacheProvider cache.Provider, providers ...Provider) *Client {
	c := &Client{
		cache:    cacheProvider,
		cacheTTL: time.Minute,
		logger:   utils.NewLogger("error", false),
		sleep:    func(context.Context, time.Duration) error { return nil },
	}
	if c.cache == nil {
		c.cache = cache.NoopProvider{}
	}
	for _, p := range providers {
		c.chain = append(c.chain, newRuntime(p, config.ProviderConfig{MaxRetries: 2}))
	}
	return c
}

func TestGenerateFallsThroughToNextProvider(t *testing.T) {
	primary := &fakeProvider{name: "groq", err: utils.NewAppError("llm.groq", "down", utils.ErrProvider)}
	secondary := &fakeProvider{name: "openrouter", response: "all good"}
	c := newTestClient(cache.NoopProvider{}, primary, secondary)

	resp, err := c.Generate(context.Background(), Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Provider != "openrouter" || resp.Content != "all good" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if primary.calls != 3 {
		t.Fatalf("primary retried %d times, want 3 attempts", primary.calls)
	}
}

func TestGenerateSkipsUnconfiguredWithoutRetry(t *testing.T) {
	primary := &fakeProvider{name: "groq", err: utils.NewAppError("llm.groq", "bad key", utils.ErrProviderUnconfigured)}
	secondary := &fakeProvider{name: "openrouter", response: "ok"}
	c := newTestClient(cache.NoopProvider{}, primary, secondary)

	resp, err := c.Generate(context.Background(), Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Provider != "openrouter" {
		t.Fatalf("unexpected provider: %s", resp.Provider)
	}
	if primary.calls != 1 {
		t.Fatalf("unconfigured provider called %d times, want 1", primary.calls)
	}
}

func TestGenerateRetriesThenSucceeds(t *testing.T) {
	flaky := &fakeProvider{name: "groq", response: "recovered", failures: 2}
	c := newTestClient(cache.NoopProvider{}, flaky)

	resp, err := c.Generate(context.Background(), Request{Prompt: "hello"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if resp.Content != "recovered" {
		t.Fatalf("unexpected content: %q", resp.Content)
	}
	if flaky.calls != 3 {
		t.Fatalf("calls = %d, want 3", flaky.calls)
	}
}

func TestGenerateCachesHostedResponses(t *testing.T) {
	provider := &fakeProvider{name: "groq", response: "cached content"}
	c := newTestClient(cache.NewMemoryProvider(10), provider)

	first, err := c.Generate(context.Background(), Request{Prompt: "repeat me"})
	if err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	if first.Cached {
		t.Fatal("first response must not be cached")
	}

	second, err := c.Generate(context.Background(), Request{Prompt: "repeat me"})
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if !second.Cached || second.Content != "cached content" {
		t.Fatalf("expected cache hit, got %+v", second)
	}
	if provider.calls != 1 {
		t.Fatalf("provider called %d times, want 1", provider.calls)
	}
}

func TestGenerateNeverCachesRuleBased(t *testing.T) {
	c := newTestClient(cache.NewMemoryProvider(10), ruleProvider{})

	for i := 0; i < 2; i++ {
		resp, err := c.Generate(context.Background(), Request{Prompt: "I feel sad and hopeless and worthless"})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if resp.Cached {
			t.Fatal("rule-based response must not be served from cache")
		}
		if resp.Provider != RuleBasedName {
			t.Fatalf("unexpected provider: %s", resp.Provider)
		}
	}
}

func TestRuleProviderKeywordScoring(t *testing.T) {
	c := newTestClient(cache.NoopProvider{}, ruleProvider{})

	resp, err := c.Generate(context.Background(), Request{
		Prompt: "Patient reports feeling sad, hopeless, tired, and worthless most days.",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var out struct {
		PrimaryDiagnosis struct {
			Name       string  `json:"name"`
			DSM5Code   string  `json:"dsm5_code"`
			Severity   string  `json:"severity"`
			Confidence float64 `json:"confidence"`
		} `json:"primary_diagnosis"`
	}
	if err := json.Unmarshal([]byte(resp.Content), &out); err != nil {
		t.Fatalf("rule output not valid JSON: %v", err)
	}
	if out.PrimaryDiagnosis.Name != "Depressive Disorder" || out.PrimaryDiagnosis.DSM5Code != "296.3" {
		t.Fatalf("unexpected diagnosis: %+v", out.PrimaryDiagnosis)
	}
	if out.PrimaryDiagnosis.Severity != "moderate" {
		t.Fatalf("severity = %q, want moderate for 4 matches", out.PrimaryDiagnosis.Severity)
	}
	if out.PrimaryDiagnosis.Confidence > 0.7 {
		t.Fatalf("confidence %v exceeds cap", out.PrimaryDiagnosis.Confidence)
	}
}

func TestRuleProviderLowSignal(t *testing.T) {
	c := newTestClient(cache.NoopProvider{}, ruleProvider{})

	resp, err := c.Generate(context.Background(), Request{Prompt: "The weather is fine today."})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(resp.Content, "Mental Health Assessment Completed") {
		t.Fatalf("expected generic assessment, got %q", resp.Content)
	}
}

func TestExtractStructuredParseFailure(t *testing.T) {
	provider := &fakeProvider{name: "groq", response: "sorry, I cannot answer in JSON"}
	c := newTestClient(cache.NoopProvider{}, provider)

	if _, err := c.ExtractStructured(context.Background(), Request{Prompt: "extract"}); !errors.Is(err, utils.ErrParse) {
		t.Fatalf("expected ErrParse, got %v", err)
	}
}

func TestExtractStructuredStripsReasoningTags(t *testing.T) {
	provider := &fakeProvider{
		name:     "groq",
		response: "<think>let me work this out</think>```json\n{\"primary_diagnosis\": {\"name\": \"Generalized Anxiety Disorder\"}}\n```",
	}
	c := newTestClient(cache.NoopProvider{}, provider)

	obj, err := c.ExtractStructured(context.Background(), Request{Prompt: "extract"})
	if err != nil {
		t.Fatalf("ExtractStructured failed: %v", err)
	}
	primary, ok := obj["primary_diagnosis"].(map[string]any)
	if !ok || primary["name"] != "Generalized Anxiety Disorder" {
		t.Fatalf("unexpected object: %v", obj)
	}
}

func TestStatsReportsChain(t *testing.T) {
	primary := &fakeProvider{name: "groq", err: utils.NewAppError("llm.groq", "down", utils.ErrProvider)}
	secondary := &fakeProvider{name: "openrouter", response: "ok"}
	c := newTestClient(cache.NoopProvider{}, primary, secondary)

	if _, err := c.Generate(context.Background(), Request{Prompt: "x"}); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	stats := c.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(stats))
	}
	if stats[0].Failures != 3 || stats[1].Requests != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestNewClientChainComposition(t *testing.T) {
	cfg := config.CompletionConfig{
		Groq: config.ProviderConfig{APIKey: "k", Model: "m", RateLimitPerMinute: 20},
	}
	c := NewClient(cfg, nil, time.Minute, nil)

	stats := c.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected groq + rule_based, got %d entries", len(stats))
	}
	if stats[len(stats)-1].Name != RuleBasedName {
		t.Fatalf("terminal provider = %s, want %s", stats[len(stats)-1].Name, RuleBasedName)
	}
	if !c.HasLiveProvider() {
		t.Fatal("expected a live provider")
	}

	bare := NewClient(config.CompletionConfig{}, nil, time.Minute, nil)
	if bare.HasLiveProvider() {
		t.Fatal("unconfigured chain must report no live provider")
	}
}
