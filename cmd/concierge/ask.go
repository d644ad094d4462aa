package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codefionn/concierge/internal/artifacts"
	"github.com/codefionn/concierge/internal/config"
	"github.com/codefionn/concierge/internal/orchestrator"
	"github.com/codefionn/concierge/internal/progress"
)

var (
	askModel        string
	askMaxSteps     int
	askMaxToolCalls int
	askDev          bool
	askArtifacts    []string
	askSession      string
	askJSON         bool
	askQuiet        bool
)

var askCmd = &cobra.Command{
	Use:   "ask [request]",
	Short: "Answer a single request",
	Long: `Ask runs one request through the orchestrator and prints the answer.

The request is taken from the arguments, or from stdin when no arguments
are given. Progress is printed to stderr unless --quiet or --json is set.`,
	Example: `  concierge ask "What meetings do I have tomorrow?"
  concierge ask --artifact doc-1:contract.pdf:application/pdf "Summarize the contract"
  echo "Move my 3pm call to Friday" | concierge ask --json`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askModel, "model", "", "Model id for every phase of this request")
	askCmd.Flags().IntVar(&askMaxSteps, "max-steps", 0, "Override the step budget")
	askCmd.Flags().IntVar(&askMaxToolCalls, "max-tool-calls", 0, "Override the tool call budget")
	askCmd.Flags().BoolVar(&askDev, "dev", false, "Include steps and tool calls in failed results")
	askCmd.Flags().StringArrayVar(&askArtifacts, "artifact", nil, "Uploaded artifact as id:name[:media-type] (repeatable)")
	askCmd.Flags().StringVar(&askSession, "session", "", "Session key for artifact initialization")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "Print the full result as JSON")
	askCmd.Flags().BoolVarP(&askQuiet, "quiet", "q", false, "Do not print progress")
}

func runAsk(cmd *cobra.Command, args []string) error {
	text, err := requestText(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	set, err := parseArtifacts(askArtifacts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newApp(ctx, appOptions{
		connectServers: true,
		override: func(cfg *config.Config) {
			if askMaxSteps > 0 {
				cfg.Orchestrator.MaxSteps = askMaxSteps
			}
			if askMaxToolCalls > 0 {
				cfg.Orchestrator.MaxToolCalls = askMaxToolCalls
			}
			if askDev {
				cfg.Orchestrator.DevelopmentMode = true
			}
		},
	})
	if err != nil {
		return err
	}
	defer rt.close()

	req := orchestrator.Request{
		Text:       text,
		Model:      askModel,
		Artifacts:  set,
		SessionKey: askSession,
	}
	if !askQuiet && !askJSON {
		req.Progress = progressPrinter(cmd.ErrOrStderr())
	}

	result := rt.orch.Run(ctx, req)
	return printResult(cmd.OutOrStdout(), result, askJSON)
}

func requestText(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(bufio.NewReader(stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read request from stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no request given")
	}
	return text, nil
}

// parseArtifacts reads id:name[:media-type] values.
func parseArtifacts(values []string) ([]artifacts.Artifact, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]artifacts.Artifact, 0, len(values))
	for _, v := range values {
		parts := strings.SplitN(v, ":", 3)
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return nil, fmt.Errorf("invalid artifact %q, expected id:name[:media-type]", v)
		}
		a := artifacts.Artifact{ID: strings.TrimSpace(parts[0]), Name: strings.TrimSpace(parts[1])}
		if len(parts) == 3 {
			a.MediaType = strings.TrimSpace(parts[2])
		}
		out = append(out, a)
	}
	return out, nil
}

func progressPrinter(w io.Writer) progress.Callback {
	return func(u progress.Update) error {
		msg := strings.TrimRight(u.Message, "\n")
		if msg == "" || u.Kind == progress.KindSynthesis {
			return nil
		}
		prefix := "  "
		if u.IsStep() {
			prefix = "• "
		}
		_, err := fmt.Fprintf(w, "%s%s\n", prefix, msg)
		return err
	}
}

func printResult(w io.Writer, result *orchestrator.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if _, err := io.WriteString(w, renderMarkdown(result.FinalAnswer, w)); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("request failed: %s", result.Error)
	}
	return nil
}
