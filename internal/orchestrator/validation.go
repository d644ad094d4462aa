package orchestrator

import (
	"context"
	"regexp"
	"strings"

	"github.com/codefionn/concierge/internal/consts"
	"github.com/codefionn/concierge/internal/llm"
)

// AnswerCheck is the outcome of the post-synthesis check.
type AnswerCheck struct {
	Matches bool
	Reason  string
}

// checkAnswer asks whether the composed answer matches what the user asked
// for. Its verdict is informational only.
func checkAnswer(ctx context.Context, gen llm.Generator, request, answer, model string, cfg llm.ProviderConfig) (AnswerCheck, error) {
	var prompt strings.Builder
	prompt.WriteString("Does the answer below match the intent and the requested format of the user's request?\n")
	prompt.WriteString("Reply with YES or NO on the first line, then a short reason.\n\n")
	prompt.WriteString("Request:\n")
	prompt.WriteString(request)
	prompt.WriteString("\n\nAnswer:\n")
	prompt.WriteString(answer)
	prompt.WriteString("\n")

	ctx, cancel := context.WithTimeout(ctx, consts.Timeout30Seconds)
	defer cancel()

	out, err := gen.Generate(ctx, prompt.String(), cfg, llm.GenerateOptions{
		Model:     model,
		MaxTokens: consts.ValidationMaxTokens,
	})
	if err != nil {
		return AnswerCheck{}, err
	}
	return parseAnswerCheck(stripThinkTags(out.Text)), nil
}

var negativeCheck = regexp.MustCompile(`^NO\b`)

func parseAnswerCheck(text string) AnswerCheck {
	text = strings.TrimSpace(text)
	first := strings.ToUpper(strings.TrimLeft(firstLine(text), " *#>`\"'"))
	check := AnswerCheck{Matches: !negativeCheck.MatchString(first), Reason: text}
	if lines := strings.SplitN(text, "\n", 2); len(lines) == 2 {
		check.Reason = strings.TrimSpace(lines[1])
	}
	return check
}
