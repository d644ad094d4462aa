package orchestrator

import (
	"context"
	"fmt"

	"github.com/codefionn/concierge/internal/artifacts"
	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/planning"
)

// initializeArtifacts prepares the uploaded artifacts once per distinct
// set. The signature is stored only after the initialization tool
// succeeded, so a failed attempt is retried by the next run.
func (r *run) initializeArtifacts(ctx context.Context) {
	key := r.req.SessionKey
	if key == "" {
		key = artifacts.DefaultSessionKey
	}
	signature := artifacts.Signature(r.req.Artifacts)

	previous, ok, err := r.o.signatures.Get(ctx, key)
	if err != nil {
		r.log.Warn("artifact signature lookup failed: %v", err)
	} else if ok && previous == signature {
		r.log.Debug("artifacts unchanged for session %s", key)
		return
	}

	if !r.o.registry.Has(consts.ToolNameInitializeArtifacts) {
		r.log.Debug("no %s tool registered, skipping artifact initialization", consts.ToolNameInitializeArtifacts)
		return
	}

	r.rc.Log(fmt.Sprintf("Preparing %d uploaded artifact(s)", len(r.req.Artifacts)))
	exec := r.callTool(ctx, planning.PlannedStep{
		ID:   "artifacts",
		Goal: "Initialize uploaded artifacts",
		Tool: consts.ToolNameInitializeArtifacts,
		Parameters: map[string]interface{}{
			"artifacts": artifactParams(r.req.Artifacts),
			"signature": signature,
		},
	})
	r.budget.RecordToolCalls(1)
	r.recordExecution(exec, "Initialize uploaded artifacts")

	if !exec.Succeeded() {
		r.rc.Log("Artifact initialization failed, continuing without it")
		return
	}
	if err := r.o.signatures.Put(ctx, key, signature); err != nil {
		r.log.Warn("failed to store artifact signature: %v", err)
	}
}

func artifactParams(set []artifacts.Artifact) []interface{} {
	out := make([]interface{}, 0, len(set))
	for _, a := range set {
		entry := map[string]interface{}{
			"id":   a.ID,
			"name": a.Name,
		}
		if a.MediaType != "" {
			entry["media_type"] = a.MediaType
		}
		if a.Size > 0 {
			entry["size"] = a.Size
		}
		if a.Pages > 0 {
			entry["pages"] = a.Pages
		}
		out = append(out, entry)
	}
	return out
}
