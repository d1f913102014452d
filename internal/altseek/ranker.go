package altseek

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/costest-cli/pkg/anthropic"
)

// Ranker weighs candidates for a target item. Implementations must treat
// every failure as recoverable; the selector falls back to local ranking.
type Ranker interface {
	Rank(ctx context.Context, target Target, candidates []Candidate) (*RankOutcome, error)
}

// Disabled is a Ranker that deterministically declines without any network
// access, forcing the local fallback.
type Disabled struct{}

func (Disabled) Rank(context.Context, Target, []Candidate) (*RankOutcome, error) {
	return nil, eris.New("altseek: remote ranking disabled")
}

const (
	defaultRankModel   = "claude-sonnet-4-5"
	defaultRankTimeout = 60 * time.Second
	rankMaxTokens      = 2048
)

// ClaudeRanker asks the Anthropic API to pick and weight candidates.
type ClaudeRanker struct {
	client  anthropic.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// NewClaudeRanker builds a ranker with a bounded call timeout and a
// steady-state limit of one ranking call per second.
func NewClaudeRanker(client anthropic.Client, model string) *ClaudeRanker {
	if model == "" {
		model = defaultRankModel
	}
	return &ClaudeRanker{
		client:  client,
		model:   model,
		timeout: defaultRankTimeout,
		limiter: rate.NewLimiter(1, 2),
	}
}

const rankSystemPrompt = `You are a highway construction cost estimator. You will receive a target pay item with no usable bid history and a list of candidate substitute items, each with similarity scores, bid-history depth, and an area-adjusted unit price. Select up to 3 candidates whose prices best predict the target's unit price and assign each a blending weight.

Respond with ONLY a JSON object:
{
  "selected": [{"item_code": "...", "weight": 0.0, "reason": "..."}],
  "notes": "...",
  "system_overview": "...",
  "system_steps": ["..."],
  "system_validation": "...",
  "show_work_method": "...",
  "process_improvements": "..."
}`

type rankTargetPayload struct {
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description,omitempty"`
	Shape       string  `json:"shape,omitempty"`
	AreaSqft    float64 `json:"area_sqft"`
	SpecSection string  `json:"spec_section,omitempty"`
	SpecExcerpt string  `json:"spec_excerpt,omitempty"`
}

type rankCandidatePayload struct {
	ItemCode      string             `json:"item_code"`
	Description   string             `json:"description,omitempty"`
	Source        string             `json:"source"`
	AreaSqft      float64            `json:"area_sqft"`
	AdjustedPrice float64            `json:"adjusted_price"`
	Ratio         float64            `json:"area_ratio"`
	DataPoints    int                `json:"data_points"`
	SpecSection   string             `json:"spec_section,omitempty"`
	Scores        map[string]float64 `json:"scores"`
	Notes         []string           `json:"notes,omitempty"`
}

// Rank sends the target and candidates to the model and parses the
// selections. Any transport or parse failure is returned as an error for
// the caller to absorb.
func (r *ClaudeRanker) Rank(ctx context.Context, target Target, candidates []Candidate) (*RankOutcome, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "altseek: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prompt, err := r.buildPrompt(target, candidates)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     r.model,
		MaxTokens: rankMaxTokens,
		System:    rankSystemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "altseek: ranking call")
	}
	resp.Usage.LogUsage(r.model, "altseek-rank")

	var outcome RankOutcome
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text)), &outcome); err != nil {
		return nil, eris.Wrap(err, "altseek: parse ranking response")
	}
	if len(outcome.Selections) == 0 {
		return nil, eris.New("altseek: ranking returned no selections")
	}

	zap.L().Debug("remote ranking accepted",
		zap.String("item", target.ItemCode),
		zap.Int("selections", len(outcome.Selections)))
	return &outcome, nil
}

func (r *ClaudeRanker) buildPrompt(target Target, candidates []Candidate) (string, error) {
	tp := rankTargetPayload{
		ItemCode:    target.ItemCode,
		Description: target.Description,
		Shape:       target.Shape,
		AreaSqft:    target.AreaSqft,
		SpecSection: target.Bundle.SectionID(),
	}
	if target.Bundle != nil {
		tp.SpecExcerpt = truncate(target.Bundle.SpecText, 2000)
	}

	cps := make([]rankCandidatePayload, 0, len(candidates))
	for _, c := range candidates {
		cps = append(cps, rankCandidatePayload{
			ItemCode:      c.ItemCode,
			Description:   c.Description,
			Source:        c.Source,
			AreaSqft:      c.AreaSqft,
			AdjustedPrice: c.AdjustedPrice,
			Ratio:         c.Ratio,
			DataPoints:    c.DataPoints,
			SpecSection:   c.SpecSection,
			Scores:        c.Similarity,
			Notes:         c.Notes,
		})
	}

	payload, err := json.MarshalIndent(struct {
		Target     rankTargetPayload      `json:"target"`
		Candidates []rankCandidatePayload `json:"candidates"`
	}{tp, cps}, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "altseek: marshal ranking payload")
	}

	return fmt.Sprintf("Target item and candidates:\n\n%s\n\nSelect and weight the best substitutes.", payload), nil
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
