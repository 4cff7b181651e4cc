package openrouter

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"siteqa/internal/application/port/output"
	"siteqa/internal/domain/entity"
	"siteqa/internal/infrastructure/prompts"

	"github.com/sashabaranov/go-openai"
)

var _ output.AdvisoryPort = (*OpenRouterAdapter)(nil)

// maxCallTimeout caps every advisory call regardless of the caller's
// context. A hung model must never stall a scan.
const maxCallTimeout = 25 * time.Second

// OpenRouterAdapter consults a model behind the OpenRouter gateway using
// the OpenAI-compatible chat API. All calls run at zero temperature and
// every response is validated against the task contract before anything
// reaches the engine.
type OpenRouterAdapter struct {
	client *openai.Client
	model  string
	logger output.LoggerPort
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Logger  output.LoggerPort
}

func DefaultConfig(apiKey, model string) Config {
	return Config{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://openrouter.ai/api/v1",
	}
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.logger != nil {
		var bodyBytes []byte
		if req.Body != nil {
			bodyBytes, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		t.logger.Debug("HTTP Request",
			"method", req.Method,
			"url", req.URL.String(),
			"bodyBytes", len(bodyBytes),
		)
	}

	resp, err := t.base.RoundTrip(req)

	if t.logger != nil && resp != nil {
		t.logger.Debug("HTTP Response",
			"status", resp.Status,
			"statusCode", resp.StatusCode,
		)
	}

	return resp, err
}

func NewOpenRouterAdapter(cfg Config) *OpenRouterAdapter {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	if cfg.Logger != nil {
		transport := &loggingTransport{
			base:   http.DefaultTransport,
			logger: cfg.Logger,
		}
		config.HTTPClient = &http.Client{
			Transport: transport,
		}
	}

	return &OpenRouterAdapter{
		client: openai.NewClientWithConfig(config),
		model:  cfg.Model,
		logger: cfg.Logger,
	}
}

func (a *OpenRouterAdapter) Decide(ctx context.Context, req output.AdvisoryRequest) (*output.AdvisoryResponse, error) {
	prompt, err := prompts.Build(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, maxCallTimeout)
	defer cancel()

	message := openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	}
	if req.Task == output.TaskReviewPage && req.Screenshot != nil {
		message.Content = ""
		message.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:image/%s;base64,%s",
						req.Screenshot.Format,
						base64.StdEncoding.EncodeToString(req.Screenshot.Data)),
				},
			},
		}
	}

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    []openai.ChatCompletionMessage{message},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("advisory call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	if a.logger != nil {
		a.logger.Debug("advisory call completed",
			"task", string(req.Task),
			"durationMs", time.Since(start).Milliseconds(),
		)
	}

	return ParseResponse(req, resp.Choices[0].Message.Content)
}

// ParseResponse validates raw model output against the task contract.
// Anything out of contract is an error; callers fall back to heuristics.
func ParseResponse(req output.AdvisoryRequest, raw string) (*output.AdvisoryResponse, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	switch req.Task {
	case output.TaskIdentifyFlows:
		return parseFlows(payload)
	case output.TaskResolveElement:
		return parseElementChoice(payload, len(req.Candidates))
	case output.TaskVerifyOutcome:
		return parseOutcome(payload)
	case output.TaskClassifyField:
		return parseFieldKind(payload)
	case output.TaskReviewPage:
		return parseSuspicions(payload)
	default:
		return nil, fmt.Errorf("unknown advisory task: %s", req.Task)
	}
}

// extractJSON pulls the JSON object out of a response that may carry
// prose or markdown fences around it.
func extractJSON(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}
	return raw[start : end+1], nil
}

func parseFlows(payload string) (*output.AdvisoryResponse, error) {
	var parsed struct {
		Flows []entity.Flow `json:"flows"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("decode flows: %w", err)
	}
	if len(parsed.Flows) == 0 {
		return nil, fmt.Errorf("empty flow list")
	}

	for i, flow := range parsed.Flows {
		if strings.TrimSpace(flow.Name) == "" {
			return nil, fmt.Errorf("flow %d has no name", i)
		}
		if flow.Priority < 1 || flow.Priority > 5 {
			return nil, fmt.Errorf("flow %q priority %d out of range", flow.Name, flow.Priority)
		}
		if len(flow.Steps) < 2 {
			return nil, fmt.Errorf("flow %q has %d steps, need at least 2", flow.Name, len(flow.Steps))
		}
		for j, step := range flow.Steps {
			if !entity.KnownAction(step.Action) {
				return nil, fmt.Errorf("flow %q step %d: unknown action %q", flow.Name, j, step.Action)
			}
			if strings.TrimSpace(step.Target) == "" && step.Action != entity.ActionVerify {
				return nil, fmt.Errorf("flow %q step %d: empty target", flow.Name, j)
			}
			if looksLikeSelector(step.Target) {
				return nil, fmt.Errorf("flow %q step %d: target %q looks like a selector", flow.Name, j, step.Target)
			}
			// a step that revisits an earlier step's target and page is a
			// cycle the executor would walk forever
			for k := 0; k < j; k++ {
				prev := flow.Steps[k]
				if prev.URLHint != "" && strings.EqualFold(prev.Target, step.Target) && strings.EqualFold(prev.URLHint, step.URLHint) {
					return nil, fmt.Errorf("flow %q step %d repeats step %d", flow.Name, j, k)
				}
			}
		}
	}

	return &output.AdvisoryResponse{Flows: parsed.Flows}, nil
}

// looksLikeSelector catches models that leak CSS/XPath into targets that
// must stay in natural language.
func looksLikeSelector(target string) bool {
	t := strings.TrimSpace(target)
	if t == "" {
		return false
	}
	if strings.HasPrefix(t, "#") || strings.HasPrefix(t, "//") || strings.HasPrefix(t, "[") {
		return true
	}
	if strings.HasPrefix(t, ".") && !strings.Contains(t, " ") {
		return true
	}
	return strings.Contains(t, " > ") || strings.Contains(t, "nth-of-type")
}

func parseElementChoice(payload string, candidateCount int) (*output.AdvisoryResponse, error) {
	var parsed struct {
		Index  *int   `json:"index"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("decode element choice: %w", err)
	}
	if parsed.Index == nil {
		return nil, fmt.Errorf("missing index")
	}
	idx := *parsed.Index
	if idx < -1 || idx >= candidateCount {
		return nil, fmt.Errorf("index %d out of range (%d candidates)", idx, candidateCount)
	}
	return &output.AdvisoryResponse{CandidateIndex: idx, OutcomeReason: parsed.Reason}, nil
}

func parseOutcome(payload string) (*output.AdvisoryResponse, error) {
	var parsed struct {
		OutcomeMet *bool  `json:"outcome_met"`
		Reason     string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("decode outcome: %w", err)
	}
	if parsed.OutcomeMet == nil {
		return nil, fmt.Errorf("missing outcome_met")
	}
	return &output.AdvisoryResponse{OutcomeMet: *parsed.OutcomeMet, OutcomeReason: parsed.Reason}, nil
}

var fieldKinds = map[string]struct{}{
	"email": {}, "password": {}, "name": {}, "first_name": {}, "last_name": {},
	"phone": {}, "address": {}, "city": {}, "zip": {}, "country": {},
	"company": {}, "url": {}, "date": {}, "number": {}, "search": {},
	"message": {}, "other": {},
}

func parseFieldKind(payload string) (*output.AdvisoryResponse, error) {
	var parsed struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("decode field kind: %w", err)
	}
	kind := strings.ToLower(strings.TrimSpace(parsed.Kind))
	if _, ok := fieldKinds[kind]; !ok {
		return nil, fmt.Errorf("unknown field kind %q", parsed.Kind)
	}
	return &output.AdvisoryResponse{FieldKind: kind}, nil
}

func parseSuspicions(payload string) (*output.AdvisoryResponse, error) {
	var parsed struct {
		Suspicions []output.PageSuspicion `json:"suspicions"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("decode suspicions: %w", err)
	}
	kept := parsed.Suspicions[:0]
	for _, s := range parsed.Suspicions {
		if strings.TrimSpace(s.Title) == "" {
			continue
		}
		if s.Category == "" {
			s.Category = "visual"
		}
		kept = append(kept, s)
	}
	return &output.AdvisoryResponse{Suspicions: kept}, nil
}
