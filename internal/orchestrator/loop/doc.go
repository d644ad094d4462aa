// Package loop provides the bookkeeping for the orchestrator's bounded
// tool loop.
//
// # Overview
//
//   - Config: the hard budgets of a run (steps, tool calls, batch size)
//   - Budget: step and tool-call counters with one step slot reserved for
//     the terminal synthesis step
//   - Sequence: the pull-based plan queue with an explicit
//     "exhausted -> replan" continuation
//
// # Usage
//
//	budget := loop.NewBudget(&loop.Config{MaxSteps: 24, MaxToolCalls: 12})
//	seq := loop.NewSequence(plan.Steps, func(ctx context.Context) []planning.PlannedStep {
//	    return planner.Plan(ctx, replanInput).Steps
//	})
//
//	for budget.CanIterate(needMore) {
//	    if !seq.Pull(ctx) {
//	        break
//	    }
//	    batch := seq.NextBatch(budget.BatchCap(), consts.IsReadOnly)
//	    // validate, dispatch, evaluate ...
//	}
//
// The triple bound (verdict flag, step budget, tool-call budget) guarantees
// the loop halts regardless of what the models reply.
package loop
