package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/llm"
	"github.com/codefionn/concierge/internal/tools"
)

func replyWith(text string, err error) llm.Generator {
	return llm.GeneratorFunc(func(ctx context.Context, prompt string, cfg llm.ProviderConfig, opts llm.GenerateOptions) (*llm.Generation, error) {
		if err != nil {
			return nil, err
		}
		return &llm.Generation{Text: text, Model: opts.Model}, nil
	})
}

func execOf(tool string, ok bool) ToolExecution {
	res := tools.OK(map[string]interface{}{"tool": tool}, tool+" done")
	if !ok {
		res = tools.Failed("%s broke", tool)
	}
	return ToolExecution{Tool: tool, Parameters: map[string]interface{}{}, Result: res}
}

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		needMore bool
		source   string
	}{
		{"continue marker", "CONTINUE\nStill need the attendee list.", true, VerdictMarker},
		{"done marker", "DONE\nEverything was found.", false, VerdictMarker},
		{"decorated marker", "**Verdict: continue**", true, VerdictMarker},
		{"complete marker", "Complete. The meetings were listed.", false, VerdictMarker},
		{"continue phrase", "The event has not been created yet.", true, VerdictPhrase},
		{"insufficient data", "The retrieved data is insufficient.", true, VerdictPhrase},
		{"not done", "NOT DONE yet, the reminder was never sent.", true, VerdictPhrase},
		{"not finished", "The task is not finished.", true, VerdictPhrase},
		{"stop phrase", "The request is fully satisfied by the search.", false, VerdictPhrase},
		{"mixed cues", "Nothing more to fetch, but the event has not been created.", false, VerdictDefault},
		{"ambiguous", "Hmm.", false, VerdictDefault},
		{"empty", "", false, VerdictDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			needMore, source := ParseVerdict(tt.text)
			if needMore != tt.needMore || source != tt.source {
				t.Errorf("ParseVerdict(%q) = (%t, %s), want (%t, %s)", tt.text, needMore, source, tt.needMore, tt.source)
			}
		})
	}
}

func TestEvaluatorMutationGuard(t *testing.T) {
	request := "Delete the dentist appointment on Friday"

	tests := []struct {
		name              string
		reply             string
		err               error
		log               []ToolExecution
		mutationAvailable bool
		wantNeedMore      bool
		wantSource        string
	}{
		{
			name:              "inferred stop overridden without successful mutation",
			reply:             "The appointment was found on Friday.",
			log:               []ToolExecution{execOf(consts.ToolNameSearchEvents, true)},
			mutationAvailable: true,
			wantNeedMore:      true,
			wantSource:        VerdictMutationGuard,
		},
		{
			name:              "phrase stop overridden without successful mutation",
			reply:             "The request is satisfied.",
			log:               []ToolExecution{execOf(consts.ToolNameSearchEvents, true)},
			mutationAvailable: true,
			wantNeedMore:      true,
			wantSource:        VerdictMutationGuard,
		},
		{
			name:              "failed mutation does not count",
			reply:             "Looks fine.",
			log:               []ToolExecution{execOf(consts.ToolNameDeleteEvent, false)},
			mutationAvailable: true,
			wantNeedMore:      true,
			wantSource:        VerdictMutationGuard,
		},
		{
			name:              "explicit done marker is respected",
			reply:             "DONE\nThe appointment was found.",
			log:               []ToolExecution{execOf(consts.ToolNameSearchEvents, true)},
			mutationAvailable: true,
			wantNeedMore:      false,
			wantSource:        VerdictMarker,
		},
		{
			name:              "successful external tool counts",
			reply:             "Looks fine.",
			log:               []ToolExecution{execOf("calendar"+consts.ExternalToolSeparator+"remove_entry", true)},
			mutationAvailable: true,
			wantNeedMore:      false,
			wantSource:        VerdictDefault,
		},
		{
			name:              "successful mutation allows stop",
			reply:             "DONE\nDeleted.",
			log:               []ToolExecution{execOf(consts.ToolNameSearchEvents, true), execOf(consts.ToolNameDeleteEvent, true)},
			mutationAvailable: true,
			wantNeedMore:      false,
			wantSource:        VerdictMarker,
		},
		{
			name:              "no mutating tool available",
			reply:             "DONE",
			log:               []ToolExecution{execOf(consts.ToolNameSearchEvents, true)},
			mutationAvailable: false,
			wantNeedMore:      false,
			wantSource:        VerdictMarker,
		},
		{
			name:              "provider failure still guarded",
			err:               errors.New("timeout"),
			mutationAvailable: true,
			wantNeedMore:      true,
			wantSource:        VerdictMutationGuard,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEvaluator(replyWith(tt.reply, tt.err))
			v := e.Evaluate(context.Background(), EvalInput{
				Request:           request,
				ToolLog:           tt.log,
				MutationAvailable: tt.mutationAvailable,
			})
			assert.Equal(t, tt.wantNeedMore, v.NeedMore)
			assert.Equal(t, tt.wantSource, v.Source)
		})
	}
}

func TestEvaluatorReadOnlyQuestionWithChangeVerb(t *testing.T) {
	requests := []string{
		"Which meetings did I cancel last week?",
		"find the email where Sam asked me to send the invoice",
	}
	for _, request := range requests {
		t.Run(request, func(t *testing.T) {
			for _, reply := range []string{"DONE\nThe results were listed.", "The results were listed."} {
				v := NewEvaluator(replyWith(reply, nil)).Evaluate(context.Background(), EvalInput{
					Request:           request,
					ToolLog:           []ToolExecution{execOf(consts.ToolNameSearchEvents, true)},
					MutationAvailable: true,
				})
				assert.False(t, v.NeedMore, reply)
				assert.NotEqual(t, VerdictMutationGuard, v.Source, reply)
			}
		})
	}
}

func TestEvaluatorProviderFailureStops(t *testing.T) {
	e := NewEvaluator(replyWith("", errors.New("rate limited")))
	v := e.Evaluate(context.Background(), EvalInput{Request: "what's on my calendar today?"})

	assert.False(t, v.NeedMore)
	assert.Equal(t, VerdictDefault, v.Source)
	assert.Contains(t, v.Content, "rate limited")
}

func TestEvaluatorStripsThinking(t *testing.T) {
	e := NewEvaluator(replyWith("<think>maybe CONTINUE?</think>\nDONE\nAll found.", nil))
	v := e.Evaluate(context.Background(), EvalInput{Request: "list my meetings"})

	assert.False(t, v.NeedMore)
	assert.Equal(t, "All found.", v.Reasoning)
}

func TestParseAnswerCheck(t *testing.T) {
	assert.True(t, parseAnswerCheck("YES\nMatches.").Matches)
	assert.False(t, parseAnswerCheck("No\nThe user asked for a table.").Matches)
	assert.Equal(t, "The user asked for a table.", parseAnswerCheck("NO\nThe user asked for a table.").Reason)
	assert.True(t, parseAnswerCheck("Nothing wrong here").Matches)
}
