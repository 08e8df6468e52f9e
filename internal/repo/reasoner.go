package repo

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ariastack/aria-engine/internal/models"
	"github.com/ariastack/aria-engine/internal/utils"
)

const triageSystemPrompt = `You are an incident triage specialist.
Analyze the alert context and respond ONLY with valid JSON (no markdown):
{
  "severity": "sev0" | "sev1" | "sev2" | "sev3",
  "affectedService": "<service name>",
  "urgencyReason": "<1 sentence>",
  "investigationWindowMinutes": <15-60>,
  "confidence": <0-1>,
  "escalateImmediately": <bool>,
  "likelyCause": "recent_deploy" | "dependency_failure" | "load_spike" | "unknown"
}
Severity rules: sev1 = errorRatePct >= 10 OR p99LatencyMs >= 3000; sev2 = >= 5 OR >= 2000; else sev3.
When refining with evidence, never lower severity without stating the justification in urgencyReason.`

const rcaSystemPrompt = `You are a production incident root-cause analyst.
Respond ONLY with strict JSON:
{"narrative": string, "confidence": float 0-1,
 "hypotheses": [{"title": str, "probability": float, "evidence": [str], "remediation": [str]}],
 "recommendedPlan": [str]}.
Each hypothesis must cite specific evidence signals, not generic statements.
Rank hypotheses by probability descending.`

// AnthropicReasoner invokes the Claude API for triage and RCA synthesis.
// Output is decoded strictly; anything that fails the schema is discarded and
// reported as a KindInvalid error so callers take their fallback path.
type AnthropicReasoner struct {
	client    anthropic.Client
	model     string
	maxTokens int
	timeout   time.Duration
}

// ReasonerConfig collects reasoning connector settings.
type ReasonerConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewAnthropicReasoner constructs the live reasoning connector.
func NewAnthropicReasoner(cfg ReasonerConfig) *AnthropicReasoner {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &AnthropicReasoner{
		client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		timeout:   cfg.Timeout,
	}
}

// SynthesizeTriage asks the model for a triage classification. Returns a
// fully-validated result or an error; never a partially-shaped one.
func (r *AnthropicReasoner) SynthesizeTriage(ctx context.Context, tc models.TriageContext) (*models.TriageResult, error) {
	const op = "reasoner.SynthesizeTriage"

	prompt, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		return nil, utils.NewAppError(op, utils.KindInternal, "marshal triage context", err)
	}
	verb := "Triage this incident"
	if tc.Prior != nil {
		verb = "Refine the triage for this incident given the collected evidence"
	}

	raw, err := r.invoke(ctx, triageSystemPrompt, verb+":\n"+string(prompt))
	if err != nil {
		return nil, err
	}

	doc := extractJSON(raw)
	if doc == "" {
		return nil, utils.NewAppError(op, utils.KindInvalid, "no JSON object in reasoner output", nil)
	}

	var result models.TriageResult
	if err := json.Unmarshal([]byte(doc), &result); err != nil {
		return nil, utils.NewAppError(op, utils.KindInvalid, "decode triage output", err)
	}
	if !result.Severity.Valid() {
		return nil, utils.NewAppError(op, utils.KindInvalid, "unknown severity "+string(result.Severity), nil)
	}
	if result.AffectedService == "" || result.UrgencyReason == "" {
		return nil, utils.NewAppError(op, utils.KindInvalid, "missing required triage fields", nil)
	}
	result.InvestigationWindowMinutes = utils.ClampWindowMinutes(result.InvestigationWindowMinutes, 15, 60, 30)
	result.Confidence = clamp01(result.Confidence)
	if result.LikelyCause == "" {
		result.LikelyCause = models.CauseUnknown
	}
	return &result, nil
}

// SynthesizeRCA asks the model to turn the evidence package into ranked
// hypotheses. Returns a validated draft or an error.
func (r *AnthropicReasoner) SynthesizeRCA(ctx context.Context, rc models.RCAContext) (*models.RCADraft, error) {
	const op = "reasoner.SynthesizeRCA"

	prompt, err := json.MarshalIndent(rc, "", "  ")
	if err != nil {
		return nil, utils.NewAppError(op, utils.KindInternal, "marshal rca context", err)
	}

	raw, err := r.invoke(ctx, rcaSystemPrompt, "Incident context:\n"+string(prompt))
	if err != nil {
		return nil, err
	}

	doc := extractJSON(raw)
	if doc == "" {
		return nil, utils.NewAppError(op, utils.KindInvalid, "no JSON object in reasoner output", nil)
	}

	var draft models.RCADraft
	if err := json.Unmarshal([]byte(doc), &draft); err != nil {
		return nil, utils.NewAppError(op, utils.KindInvalid, "decode rca output", err)
	}
	if draft.Narrative == "" || len(draft.Hypotheses) == 0 {
		return nil, utils.NewAppError(op, utils.KindInvalid, "missing narrative or hypotheses", nil)
	}
	for _, h := range draft.Hypotheses {
		if h.Title == "" {
			return nil, utils.NewAppError(op, utils.KindInvalid, "hypothesis missing title", nil)
		}
	}
	draft.Confidence = clamp01(draft.Confidence)
	for i := range draft.Hypotheses {
		draft.Hypotheses[i].Probability = clamp01(draft.Hypotheses[i].Probability)
	}
	return &draft, nil
}

func (r *AnthropicReasoner) invoke(ctx context.Context, system, prompt string) (string, error) {
	const op = "reasoner.invoke"

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(r.model),
		MaxTokens: int64(r.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", utils.NewAppError(op, utils.KindUnavailable, "anthropic call failed", err)
	}

	var parts []string
	for i := range resp.Content {
		if resp.Content[i].Type == "text" {
			parts = append(parts, resp.Content[i].Text)
		}
	}
	text := strings.Join(parts, "")
	if text == "" {
		return "", utils.NewAppError(op, utils.KindInvalid, "empty reasoner response", nil)
	}
	return text, nil
}

// extractJSON returns the outermost {...} slice of text, or "".
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// DisabledReasoner is the degraded reasoning connector: every call reports
// unavailability so stages always take their deterministic fallback.
type DisabledReasoner struct{}

// NewDisabledReasoner constructs the degraded reasoning connector.
func NewDisabledReasoner() *DisabledReasoner { return &DisabledReasoner{} }

// SynthesizeTriage always reports unavailability.
func (DisabledReasoner) SynthesizeTriage(context.Context, models.TriageContext) (*models.TriageResult, error) {
	return nil, utils.NewAppError("reasoner.SynthesizeTriage", utils.KindUnavailable, "reasoning connector disabled", nil)
}

// SynthesizeRCA always reports unavailability.
func (DisabledReasoner) SynthesizeRCA(context.Context, models.RCAContext) (*models.RCADraft, error) {
	return nil, utils.NewAppError("reasoner.SynthesizeRCA", utils.KindUnavailable, "reasoning connector disabled", nil)
}
