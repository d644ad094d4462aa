// Package planning turns a request into a list of proposed tool calls with a
// single analyze+plan model call, robust reply parsing and a keyword-based
// fallback.
package planning

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codefionn/concierge/internal/artifacts"
	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/llm"
	"github.com/codefionn/concierge/internal/logger"
	"github.com/codefionn/concierge/internal/tools"
)

// Source says where a plan's steps came from.
type Source string

const (
	SourceModel     Source = "model"
	SourceHeuristic Source = "heuristic"
	SourceNone      Source = "none"
)

// Input is everything the planner sees for one call.
type Input struct {
	Request           string
	Tools             []tools.Info
	Artifacts         []artifacts.Artifact
	ToolHistory       string
	ContextDigest     string
	KnowledgeIndexIDs []string
	Model             string
	Provider          llm.ProviderConfig
	// Replan is set when the queue ran dry mid-run. The heuristic fallback
	// is skipped so a replan cannot repeat the initial scaffold forever.
	Replan bool
	// FirstStepNumber seeds generated step ids ("step-<n>").
	FirstStepNumber int
	Now             time.Time
}

// Plan is the planner's output.
type Plan struct {
	AnalysisContent string
	Steps           []PlannedStep
	Source          Source
	// Dropped lists tool names the model proposed that are not available.
	Dropped []string
	// ParseFailure is set when the reply held no readable plan.
	ParseFailure string
}

// Planner proposes tool calls for a request.
type Planner struct {
	gen   llm.Generator
	now   func() time.Time
	debug bool
}

// Option configures a Planner.
type Option func(*Planner)

// WithClock overrides the clock used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(p *Planner) { p.now = now }
}

// NewPlanner creates a planner backed by gen.
func NewPlanner(gen llm.Generator, opts ...Option) *Planner {
	p := &Planner{gen: gen, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan runs one analyze+plan call. It never returns an error: a failed
// provider call yields an empty plan with the error in AnalysisContent.
func (p *Planner) Plan(ctx context.Context, in Input) *Plan {
	if in.Now.IsZero() {
		in.Now = p.now()
	}
	if in.FirstStepNumber <= 0 {
		in.FirstStepNumber = 1
	}

	valid := ValidToolNames(in.Tools, in.KnowledgeIndexIDs)
	logger.Debug("planner: %d valid tools %v (replan=%t)", len(valid), sortedNames(valid), in.Replan)

	gen, err := p.gen.Generate(ctx, buildPrompt(in, valid), in.Provider, llm.GenerateOptions{
		Model:     in.Model,
		MaxTokens: consts.PlanningMaxTokens,
	})
	if err != nil {
		logger.Warn("planner: provider call failed: %v", err)
		return &Plan{
			AnalysisContent: fmt.Sprintf("Planning failed: %v", err),
			Source:          SourceNone,
		}
	}

	reply := gen.Text
	plan := &Plan{AnalysisContent: ExtractAnalysis(reply), Source: SourceModel}

	switch res := ParsePlan(reply).(type) {
	case ParseSuccess:
		plan.Steps, plan.Dropped = Normalize(res.Steps, valid, in.FirstStepNumber)
		logger.Debug("planner: parsed %d raw steps via %s, kept %d", len(res.Steps), res.Strategy, len(plan.Steps))
		for _, name := range plan.Dropped {
			logger.Warn("planner: dropping step for unavailable tool %q", name)
		}
	case ParseFailure:
		plan.ParseFailure = res.Reason
		logger.Debug("planner: %s", res.Reason)
	}

	if len(plan.Steps) > 0 {
		return plan
	}
	if in.Replan {
		plan.Source = SourceNone
		return plan
	}

	plan.Steps = HeuristicPlan(in.Request, in.Tools, valid, in.Now)
	if len(plan.Steps) == 0 {
		plan.Source = SourceNone
		return plan
	}
	plan.Source = SourceHeuristic
	for i := range plan.Steps {
		plan.Steps[i].ID = fmt.Sprintf("step-%d", in.FirstStepNumber+i)
	}
	logger.Info("planner: using heuristic plan with %s", strings.Join(stepTools(plan.Steps), ", "))
	return plan
}

func stepTools(steps []PlannedStep) []string {
	names := make([]string, len(steps))
	for i, s := range steps {
		names[i] = s.Tool
	}
	return names
}
