package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/furrow"
	"github.com/aretw0/furrow/internal/presentation/tui"
	"github.com/aretw0/furrow/pkg/domain"
)

// AskOptions carries the ask command's flags and output sinks.
type AskOptions struct {
	Workflow  string
	Query     string
	Overrides []string // raw step.field=value pairs
	JSON      bool
	TTY       bool // glamour-render the answer

	Out    io.Writer
	ErrOut io.Writer
}

// RunAsk executes one query against the engine and writes the outcome. A
// degraded run still prints its answer; a note on ErrOut says what happened.
func RunAsk(ctx context.Context, engine *furrow.Engine, opts AskOptions) error {
	overrides, err := ParseOverrides(opts.Overrides)
	if err != nil {
		return err
	}

	name := opts.Workflow
	if name == "" {
		name = furrow.DefaultWorkflowName
	}

	result := engine.Run(ctx, name, domain.TriggerData{Query: opts.Query}, overrides)

	if opts.JSON {
		enc := json.NewEncoder(opts.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if !result.Success {
		return fmt.Errorf("run failed: %s", result.Error)
	}

	answer := result.Answer()
	if opts.TTY {
		fmt.Fprint(opts.Out, tui.RenderMarkdown(answer))
	} else {
		fmt.Fprintln(opts.Out, answer)
	}

	if result.Degraded() {
		fmt.Fprintf(opts.ErrOut, ">>> degraded: %s\n", degradationSummary(result))
	}
	return nil
}

// degradationSummary names the steps that fell back and why.
func degradationSummary(result domain.RunResult) string {
	var parts []string
	for _, report := range result.Steps {
		if report.Status == domain.StepDegraded {
			parts = append(parts, fmt.Sprintf("%s (%s)", report.StepID, report.Reason))
		}
	}
	if len(parts) == 0 {
		return "fallback output"
	}
	return strings.Join(parts, ", ")
}

// ParseOverrides turns step.field=value pairs into per-step values.
func ParseOverrides(pairs []string) (map[string]domain.Values, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]domain.Values, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("override %q must be step.field=value", pair)
		}
		stepID, field, found := strings.Cut(key, ".")
		if !found || stepID == "" || field == "" {
			return nil, fmt.Errorf("override key %q must be step.field", key)
		}
		if out[stepID] == nil {
			out[stepID] = domain.Values{}
		}
		out[stepID][field] = value
	}
	return out, nil
}
