package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mindwell-health/assessment-engine/internal/config"
	"github.com/mindwell-health/assessment-engine/internal/utils"
)

// Request is one completion request. Zero MaxTokens and Temperature defer to
// the provider's configured defaults.
type Request struct {
	Prompt      string
	System      string
	MaxTokens   int
	Temperature float32
}

// Provider produces a completion for a request. Implementations classify
// failures as utils.ErrProvider (transient, retryable) or
// utils.ErrProviderUnconfigured (skip to the next provider).
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// apiProvider talks to an OpenAI-compatible chat completion endpoint.
type apiProvider struct {
	name   string
	client *openai.Client
	cfg    config.ProviderConfig
}

func newAPIProvider(name string, cfg config.ProviderConfig) *apiProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &apiProvider{
		name:   name,
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

func (p *apiProvider) Name() string { return p.name }

func (p *apiProvider) Complete(ctx context.Context, req Request) (string, error) {
	if !p.cfg.Configured() {
		return "", utils.NewAppError("llm."+p.name, "missing api key", utils.ErrProviderUnconfigured)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.cfg.MaxTokens
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = p.cfg.Temperature
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	callCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	resp, err := p.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", p.classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", utils.NewAppError("llm."+p.name, "empty completion", utils.ErrProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps transport errors onto the named error kinds. Auth failures
// mark the provider unconfigured so the chain stops retrying it; everything
// else is transient.
func (p *apiProvider) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return utils.NewAppError("llm."+p.name, "authentication rejected", utils.ErrProviderUnconfigured)
		case apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500:
			return utils.NewAppError("llm."+p.name, fmt.Sprintf("upstream status %d", apiErr.HTTPStatusCode), utils.ErrProvider)
		}
	}
	return utils.NewAppError("llm."+p.name, "request failed", fmt.Errorf("%w: %w", utils.ErrProvider, err))
}

// RuleBasedName identifies the deterministic terminal provider.
const RuleBasedName = "rule_based"

// ruleProvider is the terminal provider in the fallback chain. It scores the
// prompt against fixed keyword sets and synthesises a conservative structured
// assessment. It never fails and its output is never cached.
type ruleProvider struct{}

func (ruleProvider) Name() string { return RuleBasedName }

var ruleConditions = []struct {
	name     string
	dsm5Code string
	keywords []string
}{
	{
		name:     "Depressive Disorder",
		dsm5Code: "296.3",
		keywords: []string{
			"sad", "depressed", "hopeless", "worthless", "suicidal",
			"tired", "fatigue", "no energy", "no motivation", "can't sleep",
			"oversleep", "appetite change", "weight loss", "concentration",
			"decision making",
		},
	},
	{
		name:     "Anxiety Disorder",
		dsm5Code: "300.02",
		keywords: []string{
			"anxious", "worried", "panic", "fear", "nervous", "restless",
			"tense", "racing heart", "sweating", "trembling", "avoid", "phobia",
		},
	},
	{
		name:     "Trauma-Related Disorder",
		dsm5Code: "309.81",
		keywords: []string{
			"trauma", "ptsd", "flashback", "nightmare", "trigger",
			"avoidance", "hypervigilant", "startle", "emotional numb",
		},
	},
}

type ruleAssessment struct {
	PrimaryDiagnosis struct {
		Name       string  `json:"name"`
		DSM5Code   string  `json:"dsm5_code"`
		Severity   string  `json:"severity"`
		Confidence float64 `json:"confidence"`
	} `json:"primary_diagnosis"`
	Reasoning string `json:"reasoning"`
}

func (ruleProvider) Complete(_ context.Context, req Request) (string, error) {
	text := strings.ToLower(req.Prompt + " " + req.System)

	bestIdx := -1
	bestScore := 0
	for i, condition := range ruleConditions {
		score := 0
		for _, keyword := range condition.keywords {
			if strings.Contains(text, keyword) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	var out ruleAssessment
	if bestIdx >= 0 && bestScore >= 2 {
		condition := ruleConditions[bestIdx]
		out.PrimaryDiagnosis.Name = condition.name
		out.PrimaryDiagnosis.DSM5Code = condition.dsm5Code
		if bestScore >= 3 {
			out.PrimaryDiagnosis.Severity = "moderate"
		} else {
			out.PrimaryDiagnosis.Severity = "mild"
		}
		confidence := float64(bestScore) / 5
		if confidence > 0.7 {
			confidence = 0.7
		}
		out.PrimaryDiagnosis.Confidence = confidence
		out.Reasoning = fmt.Sprintf("Keyword screening matched %d indicators consistent with %s.", bestScore, condition.name)
	} else {
		out.PrimaryDiagnosis.Name = "Mental Health Assessment Completed"
		out.PrimaryDiagnosis.DSM5Code = "Pending"
		out.PrimaryDiagnosis.Severity = "mild"
		out.PrimaryDiagnosis.Confidence = 0.2
		out.Reasoning = "Insufficient keyword signal for a specific condition."
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return "", utils.NewAppError("llm.rule_based", "encode assessment", err)
	}
	return string(payload), nil
}
