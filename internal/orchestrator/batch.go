package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/planning"
	"github.com/codefionn/concierge/internal/schedule"
	"github.com/codefionn/concierge/internal/tools"
)

// dispatchBatch executes a validated batch. Batches of more than one step
// are read-only and run concurrently; results are recorded in plan order.
func (r *run) dispatchBatch(ctx context.Context, batch []planning.PlannedStep) {
	ctx, span := r.o.tracer.Start(ctx, "orchestrator.batch", trace.WithAttributes(attribute.Int("batch.size", len(batch))))
	defer span.End()

	execs := make([]ToolExecution, len(batch))
	if len(batch) == 1 {
		execs[0] = r.callTool(ctx, batch[0])
	} else {
		names := make([]string, len(batch))
		for i, step := range batch {
			names[i] = step.Tool
		}
		r.rc.Log(fmt.Sprintf("Running %d lookups in parallel: %s", len(batch), strings.Join(names, ", ")))

		var g errgroup.Group
		g.SetLimit(len(batch))
		for i, step := range batch {
			g.Go(func() error {
				execs[i] = r.callTool(ctx, step)
				return nil
			})
		}
		_ = g.Wait()
	}

	r.budget.RecordToolCalls(len(batch))
	r.o.metrics.BatchSize.Observe(float64(len(batch)))
	for i, exec := range execs {
		r.recordExecution(exec, batch[i].Goal)
	}
}

// callTool prepares the parameters of one step and dispatches it. It only
// reads run state, so concurrent calls are safe.
func (r *run) callTool(ctx context.Context, step planning.PlannedStep) ToolExecution {
	params := tools.CloneParams(step.Parameters)

	if step.Tool == consts.ToolNameKnowledgeSearch && len(r.rc.KnowledgeIndexIDs) > 0 && missingIndexIDs(params) {
		ids := make([]string, len(r.rc.KnowledgeIndexIDs))
		copy(ids, r.rc.KnowledgeIndexIDs)
		params["index_ids"] = ids
	}
	if consts.IsScheduleMutation(step.Tool) {
		params = schedule.SanitizeEventPayload(params, r.req.Text)
	}

	ctx, span := r.o.tracer.Start(ctx, "orchestrator.tool", trace.WithAttributes(attribute.String("tool.name", step.Tool)))
	defer span.End()

	started := r.o.now()
	result := r.o.registry.Execute(ctx, step.Tool, params)
	ended := r.o.now()
	if result == nil {
		result = tools.Failed("tool %s returned no result", step.Tool)
	}
	if !result.Success {
		span.SetAttributes(attribute.String("tool.error", result.Error))
	}

	return ToolExecution{
		Tool:       step.Tool,
		Parameters: params,
		Result:     result,
		StartTime:  started,
		EndTime:    ended,
		Duration:   ended.Sub(started),
	}
}

func missingIndexIDs(params map[string]interface{}) bool {
	v, ok := params["index_ids"]
	if !ok || v == nil {
		return true
	}
	switch ids := v.(type) {
	case string:
		return strings.TrimSpace(ids) == ""
	case []string:
		return len(ids) == 0
	case []interface{}:
		return len(ids) == 0
	}
	return false
}

// recordExecution appends a finished call to the tool log, the steps and
// the transcript.
func (r *run) recordExecution(exec ToolExecution, goal string) {
	r.toolLog = append(r.toolLog, exec)
	r.o.metrics.observeToolCall(exec)

	content := fmt.Sprintf("%s %s", exec.Tool, statusWord(exec))
	if exec.Result != nil {
		if exec.Result.Success && exec.Result.Message != "" {
			content += ": " + exec.Result.Message
		} else if !exec.Result.Success && exec.Result.Error != "" {
			content += ": " + exec.Result.Error
		}
	}
	if !exec.Succeeded() {
		r.log.Warn("tool %s failed: %s", exec.Tool, resultError(exec))
	}

	recorded := exec
	r.recordStep(StepToolCall, content, goal, &recorded)
	r.transcript.AddToolResult(exec)
}

func resultError(exec ToolExecution) string {
	if exec.Result == nil {
		return "no result"
	}
	return exec.Result.Error
}
