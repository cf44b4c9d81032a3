package stylist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/styloglo/styloglo/internal/assets"
	"github.com/styloglo/styloglo/internal/jsonutil"
)

// PlanDay is one entry of the weekly style plan.
type PlanDay struct {
	Day      string `json:"day"`
	Outfit   string `json:"outfit"`
	Occasion string `json:"occasion"`
}

// Plan is a lazy, finite, non-restartable sequence of plan days. The
// underlying service call happens on the first Next; after the sequence is
// drained it cannot be rewound. Callers wanting a fresh plan request a new
// one.
type Plan struct {
	fetch func() ([]PlanDay, error)

	fetched bool
	days    []PlanDay
	idx     int
	err     error
}

// NewPlan builds a Plan around a deferred fetch. Exposed for tests and for
// fakes; production plans come from Client.WeeklyPlan.
func NewPlan(fetch func() ([]PlanDay, error)) *Plan {
	return &Plan{fetch: fetch}
}

// Next returns the next day of the plan. ok is false once the sequence is
// exhausted or the fetch failed; Err distinguishes the two.
func (p *Plan) Next() (PlanDay, bool) {
	if !p.fetched {
		p.fetched = true
		p.days, p.err = p.fetch()
	}
	if p.err != nil || p.idx >= len(p.days) {
		return PlanDay{}, false
	}
	day := p.days[p.idx]
	p.idx++
	return day, true
}

// Err returns the fetch error, if any. Valid after Next has returned false.
func (p *Plan) Err() error {
	return p.err
}

// WeeklyPlan returns the lazy weekly outfit plan for a profile. The Gemini
// call is deferred until the plan is first consumed and is never cached
// across plans.
func (c *Client) WeeklyPlan(ctx context.Context, profile *StyleProfile) *Plan {
	return NewPlan(func() ([]PlanDay, error) {
		return c.fetchWeeklyPlan(ctx, profile)
	})
}

func (c *Client) fetchWeeklyPlan(ctx context.Context, profile *StyleProfile) ([]PlanDay, error) {
	start := time.Now()
	log.Info().
		Str("model", c.model).
		Str("gender", profile.Gender).
		Str("undertone", profile.Undertone).
		Msg("Requesting weekly style plan from Gemini")

	prompt, err := assets.RenderWeeklyPlanPrompt(profile)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, genai.Text(prompt), config)
	elapsed := time.Since(start)
	emitCallMetrics("weeklyPlan", elapsed, resp, err)

	if err != nil {
		log.Error().Err(err).Msg("Failed to generate weekly plan")
		return nil, fmt.Errorf("failed to generate weekly plan: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("received empty response from Gemini API")
	}

	days, err := jsonutil.Parse[[]PlanDay](resp.Text())
	if err != nil {
		return nil, fmt.Errorf("failed to parse weekly plan: %w", err)
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("weekly plan came back empty")
	}

	log.Info().
		Int("days", len(days)).
		Dur("duration", elapsed).
		Msg("Weekly style plan ready")

	return days, nil
}
