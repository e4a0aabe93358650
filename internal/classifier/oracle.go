package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/competitor-watch/internal/watch"
)

// Default bounds for the oracle call.
const (
	DefaultMaxDiffChars = 8000
	DefaultTimeout      = 15 * time.Second

	truncationMarker = "\n... (truncated)"
	summarySentinel  = "Unable to generate summary"
	maxKeyPoints     = 5
)

// OracleConfig controls the summarization oracle client. The endpoint speaks
// the OpenAI /v1/chat/completions wire format, which covers OpenAI itself
// plus vLLM, Ollama and similar gateways.
type OracleConfig struct {
	Endpoint     string
	APIKey       string
	Model        string
	Timeout      time.Duration
	MaxDiffChars int
}

// Oracle classifies diffs via the external summarization oracle and resolves
// every oracle failure through the deterministic fallback, so Classify never
// surfaces an error.
type Oracle struct {
	cfg      OracleConfig
	client   *http.Client
	fallback *Fallback
	logger   *zap.Logger
}

// NewOracle creates an oracle-backed classifier.
func NewOracle(cfg OracleConfig, logger *zap.Logger) *Oracle {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxDiffChars <= 0 {
		cfg.MaxDiffChars = DefaultMaxDiffChars
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Oracle{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		fallback: NewFallback(),
		logger:   logger,
	}
}

// Classify asks the oracle for a structured judgment of the diff. Malformed
// fields in an otherwise usable response are coerced to safe defaults; any
// transport, status or decode failure falls back to the heuristic grading.
func (o *Oracle) Classify(ctx context.Context, entityName string, category watch.EntityCategory, renderedDiff string) watch.Judgment {
	judgment, err := o.summarize(ctx, entityName, category, renderedDiff)
	if err != nil {
		o.logger.Warn("oracle classification failed, using fallback",
			zap.String("entity", entityName),
			zap.Error(err),
		)
		return o.fallback.Classify(ctx, entityName, category, renderedDiff)
	}
	return judgment
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *responseFmt  `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFmt struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// oracleVerdict is the structured payload the oracle is instructed to emit.
type oracleVerdict struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"keyPoints"`
	Severity    string   `json:"severity"`
	IsImportant bool     `json:"isImportant"`
}

func (o *Oracle) summarize(ctx context.Context, entityName string, category watch.EntityCategory, renderedDiff string) (watch.Judgment, error) {
	diff := renderedDiff
	if len(diff) > o.cfg.MaxDiffChars {
		cut := o.cfg.MaxDiffChars
		// Back up to a rune boundary so the cut never splits a multibyte
		// character.
		for cut > 0 && !utf8.RuneStart(diff[cut]) {
			cut--
		}
		diff = diff[:cut] + truncationMarker
	}

	body, err := json.Marshal(chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{
				Role: "system",
				Content: "You are a competitive intelligence analyst. Analyze website changes " +
					"and provide actionable insights. Always respond with valid JSON.",
			},
			{
				Role:    "user",
				Content: buildPrompt(entityName, category, diff),
			},
		},
		Temperature:    0.3,
		MaxTokens:      1000,
		ResponseFormat: &responseFmt{Type: "json_object"},
	})
	if err != nil {
		return watch.Judgment{}, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(o.cfg.Endpoint, "/") + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return watch.Judgment{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return watch.Judgment{}, fmt.Errorf("HTTP POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return watch.Judgment{}, fmt.Errorf("HTTP %d from %s: %s", resp.StatusCode, url, string(respBody))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return watch.Judgment{}, fmt.Errorf("decode response: %w", err)
	}
	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return watch.Judgment{}, fmt.Errorf("empty completion from %s", url)
	}

	var verdict oracleVerdict
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &verdict); err != nil {
		return watch.Judgment{}, fmt.Errorf("parse verdict JSON: %w", err)
	}
	return coerceVerdict(verdict), nil
}

// coerceVerdict maps a raw oracle verdict onto the judgment enum, replacing
// anything missing or out-of-enum with a safe default instead of failing.
func coerceVerdict(v oracleVerdict) watch.Judgment {
	summary := strings.TrimSpace(v.Summary)
	if summary == "" {
		summary = summarySentinel
	}
	keyPoints := v.KeyPoints
	if keyPoints == nil {
		keyPoints = []string{}
	}
	if len(keyPoints) > maxKeyPoints {
		keyPoints = keyPoints[:maxKeyPoints]
	}
	severity := watch.Severity(v.Severity)
	if !watch.ValidSeverity(severity) {
		severity = watch.SeverityMinor
	}
	return watch.Judgment{
		Summary:     summary,
		KeyPoints:   keyPoints,
		Severity:    severity,
		IsImportant: v.IsImportant,
	}
}

func buildPrompt(entityName string, category watch.EntityCategory, diff string) string {
	return fmt.Sprintf(`You are analyzing changes detected on a competitor's %s page.
Competitor: %s

Here is the diff of changes (lines starting with + are additions, - are removals):

%s

Please provide:
1. A concise summary (2-3 sentences) of the key changes
2. A list of the most important changes (max 5) with brief explanations
3. Severity assessment: "major" (significant pricing/feature changes), "minor" (small updates), or "cosmetic" (formatting only)
4. Whether these changes are business-important (true/false)

Respond in JSON format:
{
  "summary": "...",
  "keyPoints": ["change 1", "change 2"],
  "severity": "major|minor|cosmetic",
  "isImportant": true|false
}`, category, entityName, diff)
}
