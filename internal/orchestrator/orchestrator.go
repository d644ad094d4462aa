package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/codefionn/concierge/internal/artifacts"
	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/knowledge"
	"github.com/codefionn/concierge/internal/llm"
	"github.com/codefionn/concierge/internal/logger"
	"github.com/codefionn/concierge/internal/orchestrator/loop"
	"github.com/codefionn/concierge/internal/planning"
	"github.com/codefionn/concierge/internal/progress"
	"github.com/codefionn/concierge/internal/tools"
)

const (
	tracerName = "concierge/orchestrator"

	failureAnswer = "I'm sorry, something went wrong while handling your request. Please try again."
)

// Dependencies are the collaborators of an Orchestrator. Registry, Generator
// and Resolver are required.
type Dependencies struct {
	Registry  ToolRegistry
	Generator llm.Generator
	Resolver  ProviderResolver
	// Knowledge lists the knowledge indexes; nil means none.
	Knowledge knowledge.Loader
	// Signatures remembers initialized artifact sets; nil keeps them in memory.
	Signatures artifacts.SignatureStore
	// Metrics defaults to unregistered collectors.
	Metrics *Metrics
	// Tracer defaults to the global otel tracer.
	Tracer trace.Tracer
	Logger *logger.Logger
	Clock  func() time.Time
}

// Orchestrator turns one request into a bounded sequence of tool calls and
// a composed answer. It is safe for concurrent runs: all per-run state lives
// in the run, and only the knowledge index ids are shared.
type Orchestrator struct {
	registry   ToolRegistry
	gen        llm.Generator
	resolver   ProviderResolver
	knowledge  knowledge.Loader
	signatures artifacts.SignatureStore
	metrics    *Metrics
	tracer     trace.Tracer
	log        *logger.Logger
	now        func() time.Time

	cfg         Config
	loopCfg     loop.Config
	planner     *planning.Planner
	evaluator   *Evaluator
	synthesizer *Synthesizer
	contextB    *ContextBuilder

	knowledgeOnce sync.Once
	knowledgeIDs  []string
}

// New creates an Orchestrator.
func New(deps Dependencies, cfg Config) (*Orchestrator, error) {
	if deps.Registry == nil {
		return nil, errors.New("orchestrator: tool registry is required")
	}
	if deps.Generator == nil {
		return nil, errors.New("orchestrator: generator is required")
	}
	if deps.Resolver == nil {
		return nil, errors.New("orchestrator: provider resolver is required")
	}

	o := &Orchestrator{
		registry:   deps.Registry,
		gen:        deps.Generator,
		resolver:   deps.Resolver,
		knowledge:  deps.Knowledge,
		signatures: deps.Signatures,
		metrics:    deps.Metrics,
		tracer:     deps.Tracer,
		log:        deps.Logger,
		now:        deps.Clock,
		cfg:        cfg,
	}
	if o.signatures == nil {
		o.signatures = artifacts.NewMemoryStore()
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	if o.log == nil {
		o.log = logger.Global().WithPrefix("orchestrator")
	}
	if o.now == nil {
		o.now = time.Now
	}

	o.loopCfg = loop.Config{
		MaxSteps:     cfg.MaxSteps,
		MaxToolCalls: cfg.MaxToolCalls,
		MaxBatchSize: cfg.MaxBatchSize,
	}.WithDefaults()
	o.planner = planning.NewPlanner(o.gen, planning.WithClock(o.now))
	o.evaluator = NewEvaluator(o.gen)
	o.synthesizer = NewSynthesizer(o.gen)
	o.contextB = NewContextBuilder(NewTokenCounter(cfg.Tokenizer), cfg.ContextTokenBudget)

	logger.Debug("orchestrator: max_steps=%d max_tool_calls=%d max_batch=%d dev=%t",
		o.loopCfg.MaxSteps, o.loopCfg.MaxToolCalls, o.loopCfg.MaxBatchSize, cfg.DevelopmentMode)
	return o, nil
}

// KnowledgeIndexIDs returns the configured knowledge index ids. They are
// loaded once per orchestrator; any failure yields an empty list.
func (o *Orchestrator) KnowledgeIndexIDs(ctx context.Context) []string {
	o.knowledgeOnce.Do(func() {
		if o.knowledge == nil {
			return
		}
		indexes, err := o.knowledge.Load(ctx)
		if err != nil {
			o.log.Warn("knowledge index configuration unavailable: %v", err)
			return
		}
		o.knowledgeIDs = knowledge.IDs(indexes)
	})
	out := make([]string, len(o.knowledgeIDs))
	copy(out, o.knowledgeIDs)
	return out
}

// Run handles one request. It never returns an error: every failure is
// folded into the result.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Result {
	runID := uuid.NewString()
	started := time.Now()

	ctx, span := o.tracer.Start(ctx, "orchestrator.run", trace.WithAttributes(
		attribute.String("run.id", runID),
		attribute.Int("request.artifacts", len(req.Artifacts)),
	))
	defer span.End()

	r := o.newRun(runID, req)
	result, err := r.execute(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.log.Error("run failed: %v", err)
		result = r.failure(err)
		o.metrics.RunsTotal.WithLabelValues("failure").Inc()
	} else {
		o.metrics.RunsTotal.WithLabelValues("success").Inc()
	}

	span.SetAttributes(
		attribute.Int("run.steps", len(result.Steps)),
		attribute.Int("run.tool_calls", len(result.ToolCalls)),
	)
	o.metrics.RunDuration.Observe(time.Since(started).Seconds())
	return result
}

// phaseModel returns the model for a phase. A model named on the request
// applies to every phase.
func (o *Orchestrator) phaseModel(req Request, phase string) string {
	if req.Model != "" {
		return req.Model
	}
	var m string
	switch phase {
	case "planning":
		m = o.cfg.Models.Planning
	case "evaluation":
		m = o.cfg.Models.Evaluation
	case "synthesis":
		m = o.cfg.Models.Synthesis
	case "validation":
		m = o.cfg.Models.Validation
	}
	if m == "" {
		m = o.cfg.Models.Default
	}
	return m
}

type phaseTarget struct {
	model    string
	provider llm.ProviderConfig
}

// run is the state of a single request.
type run struct {
	o   *Orchestrator
	id  string
	req Request
	rc  RunContext
	log *logger.Logger

	budget     *loop.Budget
	steps      []OrchestrationStep
	toolLog    []ToolExecution
	synthesis  *ToolExecution
	transcript *Transcript
	needMore   bool
	digest     string

	targets      map[string]phaseTarget
	plannedSteps int
	replans      int
}

func (o *Orchestrator) newRun(id string, req Request) *run {
	cfg := o.loopCfg
	r := &run{
		o:       o,
		id:      id,
		req:     req,
		log:     o.log.WithFields("run_id", id),
		budget:  loop.NewBudget(&cfg),
		targets: make(map[string]phaseTarget),
	}
	r.rc = RunContext{
		Log:                   r.logLine,
		ResolveProviderConfig: o.resolver.Resolve,
	}
	return r
}

func (r *run) logLine(msg string) {
	r.log.Info("%s", msg)
	if err := progress.Dispatch(r.req.Progress, progress.Update{Message: msg, Kind: progress.KindLog}); err != nil {
		r.log.Debug("progress callback error: %v", err)
	}
}

func (r *run) execute(ctx context.Context) (result *Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("orchestration panicked: %v", rec)
		}
	}()

	if strings.TrimSpace(r.req.Text) == "" {
		return nil, ErrEmptyRequest
	}

	r.rc.KnowledgeIndexIDs = r.o.KnowledgeIndexIDs(ctx)

	for _, phase := range []string{"planning", "evaluation", "synthesis", "validation"} {
		model := r.o.phaseModel(r.req, phase)
		cfg, err := r.rc.ResolveProviderConfig(model)
		if err != nil {
			return nil, fmt.Errorf("resolve provider for %s model %q: %w", phase, model, err)
		}
		r.targets[phase] = phaseTarget{model: model, provider: cfg}
	}

	r.transcript = NewTranscript(r.req.History, r.req.Text)

	if len(r.req.Artifacts) > 0 {
		r.initializeArtifacts(ctx)
	}

	r.digest = r.buildContext()
	plan := r.plan(ctx, false)
	r.needMore = len(plan.Steps) > 0
	if !r.needMore {
		r.rc.Log("No tool calls planned, composing the answer directly")
	}

	seq := loop.NewSequence(plan.Steps, r.replan)
	for r.budget.CanIterate(r.needMore) {
		if !seq.Pull(ctx) {
			r.rc.Log("Plan exhausted")
			break
		}

		batch := r.validateBatch(seq.NextBatch(r.budget.BatchCap(), consts.IsReadOnly))
		if len(batch) == 0 {
			continue
		}
		if len(batch) > 1 && allReadOnly(batch) {
			r.dispatchBatch(ctx, batch)
		} else {
			seq.Requeue(batch[1:])
			r.dispatchBatch(ctx, batch[:1])
		}

		r.evaluate(ctx)
	}

	if r.needMore {
		r.log.Info("stopping with work left: steps=%d/%d tool_calls=%d/%d",
			r.budget.Steps(), r.loopCfg().MaxSteps, r.budget.ToolCalls(), r.loopCfg().MaxToolCalls)
	}

	answer := r.synthesize(ctx)
	r.validateAnswer(ctx, answer)

	toolCalls := make([]ToolExecution, 0, len(r.toolLog)+1)
	toolCalls = append(toolCalls, r.toolLog...)
	toolCalls = append(toolCalls, *r.synthesis)

	return &Result{
		RunID:       r.id,
		Success:     true,
		FinalAnswer: answer,
		Steps:       r.steps,
		ToolCalls:   toolCalls,
	}, nil
}

func (r *run) loopCfg() loop.Config {
	return r.budget.Config()
}

func (r *run) failure(err error) *Result {
	res := &Result{
		RunID:       r.id,
		Success:     false,
		FinalAnswer: failureAnswer,
		Steps:       []OrchestrationStep{},
		ToolCalls:   []ToolExecution{},
		Error:       err.Error(),
	}
	if r.o.cfg.DevelopmentMode {
		res.Steps = append(res.Steps, r.steps...)
		res.ToolCalls = append(res.ToolCalls, r.toolLog...)
	}
	return res
}

// recordStep appends a step unless the step budget is used up. The
// synthesis step uses the slot reserved for it.
func (r *run) recordStep(kind StepType, content, reasoning string, exec *ToolExecution) bool {
	var ok bool
	if kind == StepSynthesis {
		ok = r.budget.RecordTerminalStep()
	} else {
		ok = r.budget.TryRecordStep()
	}
	if !ok {
		r.log.Debug("step budget reached, not recording %s step", kind)
		return false
	}

	step := OrchestrationStep{
		ID:            uuid.NewString(),
		Type:          kind,
		Timestamp:     r.o.now(),
		Content:       content,
		ToolExecution: exec,
		Reasoning:     reasoning,
	}
	r.steps = append(r.steps, step)

	if err := progress.Dispatch(r.req.Progress, progress.Update{
		Message: content,
		Kind:    progress.Kind(kind),
		StepID:  step.ID,
	}); err != nil {
		r.log.Debug("progress callback error: %v", err)
	}
	return true
}

func (r *run) buildContext() string {
	return r.o.contextB.Build(ContextInput{
		Tools:             r.o.registry.ListAvailable(),
		Artifacts:         r.req.Artifacts,
		ToolLog:           r.toolLog,
		KnowledgeIndexIDs: r.rc.KnowledgeIndexIDs,
	})
}

func (r *run) plan(ctx context.Context, replan bool) *planning.Plan {
	ctx, span := r.o.tracer.Start(ctx, "orchestrator.plan", trace.WithAttributes(attribute.Bool("plan.replan", replan)))
	defer span.End()

	target := r.targets["planning"]
	plan := r.o.planner.Plan(ctx, planning.Input{
		Request:           r.req.Text,
		Tools:             r.o.registry.ListAvailable(),
		Artifacts:         r.req.Artifacts,
		ToolHistory:       formatToolHistory(r.toolLog),
		ContextDigest:     r.digest,
		KnowledgeIndexIDs: r.rc.KnowledgeIndexIDs,
		Model:             target.model,
		Provider:          target.provider,
		Replan:            replan,
		FirstStepNumber:   r.plannedSteps + 1,
		Now:               r.o.now(),
	})
	r.plannedSteps += len(plan.Steps)
	if n := len(plan.Dropped); n > 0 {
		r.o.metrics.DroppedStepsTotal.Add(float64(n))
		r.rc.Log(fmt.Sprintf("Dropped planned steps for unavailable tools: %s", strings.Join(plan.Dropped, ", ")))
	}
	span.SetAttributes(attribute.Int("plan.steps", len(plan.Steps)), attribute.String("plan.source", string(plan.Source)))

	summary := "Plan: no tool calls"
	if len(plan.Steps) > 0 {
		names := make([]string, len(plan.Steps))
		for i, s := range plan.Steps {
			names[i] = s.Tool
		}
		summary = "Plan: " + strings.Join(names, ", ")
	}
	r.recordStep(StepAnalysis, plan.AnalysisContent, fmt.Sprintf("%s (source: %s)", summary, plan.Source), nil)
	r.transcript.Add(RoleAssistant, summary)
	return plan
}

// replan is the continuation the plan sequence runs when it is empty.
// Replans are capped by the tool-call budget so a planner that keeps
// proposing unavailable tools cannot stall the loop.
func (r *run) replan(ctx context.Context) []planning.PlannedStep {
	if r.replans >= r.loopCfg().MaxToolCalls {
		return nil
	}
	r.replans++
	return r.plan(ctx, true).Steps
}

// validateBatch re-checks tool names against the live registry.
func (r *run) validateBatch(batch []planning.PlannedStep) []planning.PlannedStep {
	valid := batch[:0:0]
	for _, step := range batch {
		if consts.IsReserved(step.Tool) || !r.o.registry.Has(step.Tool) {
			r.o.metrics.DroppedStepsTotal.Inc()
			r.log.Warn("dropping step %s: tool %q is not available", step.ID, step.Tool)
			r.rc.Log(fmt.Sprintf("Skipped %s: tool is no longer available", step.Tool))
			continue
		}
		valid = append(valid, step)
	}
	return valid
}

func allReadOnly(batch []planning.PlannedStep) bool {
	for _, step := range batch {
		if !consts.IsReadOnly(step.Tool) {
			return false
		}
	}
	return true
}

func (r *run) mutationAvailable() bool {
	for _, info := range r.o.registry.ListAvailable() {
		if consts.IsMutating(info.Name) {
			return true
		}
	}
	return false
}

func (r *run) evaluate(ctx context.Context) {
	ctx, span := r.o.tracer.Start(ctx, "orchestrator.evaluate")
	defer span.End()

	target := r.targets["evaluation"]
	v := r.o.evaluator.Evaluate(ctx, EvalInput{
		Request:           r.req.Text,
		ContextDigest:     r.digest,
		ToolLog:           r.toolLog,
		Steps:             r.steps,
		Transcript:        r.transcript.Format(),
		Model:             target.model,
		Provider:          target.provider,
		MutationAvailable: r.mutationAvailable(),
	})
	span.SetAttributes(attribute.Bool("evaluation.need_more", v.NeedMore), attribute.String("evaluation.source", v.Source))

	content := v.Content
	if content == "" {
		content = "DONE"
		if v.NeedMore {
			content = "CONTINUE"
		}
	}
	r.recordStep(StepEvaluation, content, v.Reasoning, nil)
	r.needMore = v.NeedMore
	r.digest = r.buildContext()
}

func (r *run) synthesize(ctx context.Context) string {
	ctx, span := r.o.tracer.Start(ctx, "orchestrator.synthesize")
	defer span.End()

	target := r.targets["synthesis"]
	started := r.o.now()
	syn, err := r.o.synthesizer.Synthesize(ctx, SynthesisInput{
		Request:       r.req.Text,
		Transcript:    r.transcript.Format(),
		ToolLog:       r.toolLog,
		Steps:         r.steps,
		ContextDigest: r.buildContext(),
		Model:         target.model,
		Provider:      target.provider,
	})
	ended := r.o.now()

	var answer, reasoning string
	var result *tools.Result
	if err != nil {
		span.RecordError(err)
		r.log.Warn("synthesis failed, using fallback answer: %v", err)
		r.o.metrics.SynthesisFallbacksTotal.Inc()
		answer = FallbackAnswer(r.toolLog)
		reasoning = fmt.Sprintf("Synthesis failed: %v", err)
		result = &tools.Result{Success: false, Data: map[string]interface{}{"content": answer}, Error: err.Error()}
	} else {
		answer, reasoning = syn.Content, syn.Reasoning
		result = tools.OK(map[string]interface{}{"content": answer, "reasoning": reasoning}, "Response composed")
	}

	r.synthesis = &ToolExecution{
		Tool: consts.ToolNameComposeResponse,
		Parameters: map[string]interface{}{
			"model":      target.model,
			"tool_calls": len(r.toolLog),
		},
		Result:    result,
		StartTime: started,
		EndTime:   ended,
		Duration:  ended.Sub(started),
	}
	r.recordStep(StepSynthesis, answer, reasoning, r.synthesis)
	r.transcript.Add(RoleAssistant, answer)
	return answer
}

// validateAnswer runs the post-synthesis check. A negative verdict is only
// logged.
func (r *run) validateAnswer(ctx context.Context, answer string) {
	if !r.o.cfg.ValidateAnswers || len(r.toolLog) == 0 || !r.toolLog[len(r.toolLog)-1].Succeeded() {
		return
	}
	target := r.targets["validation"]
	check, err := checkAnswer(ctx, r.o.gen, r.req.Text, answer, target.model, target.provider)
	if err != nil {
		r.log.Debug("answer check skipped: %v", err)
		return
	}
	if !check.Matches {
		r.rc.Log(fmt.Sprintf("Answer check: the answer may not match the request (%s)", check.Reason))
	}
}
