package steps

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/furrow/pkg/domain"
	"github.com/aretw0/furrow/pkg/ports"
	"github.com/aretw0/furrow/pkg/schema"
	"github.com/aretw0/furrow/pkg/workflow"
)

// Canonical step ids of the ask pipeline.
const (
	PrepareQueryID   = "prepare-query"
	GenerateAnswerID = "generate-answer"
)

// GeneratorSource supplies the generator at execution time rather than at
// workflow build time, so construction can stay lazy (and single-flight)
// behind the engine facade. Returning ports.ErrUnconfigured selects the
// canned-answer fallback; any other error is folded into the degraded
// agent-failure answer.
type GeneratorSource func(ctx context.Context) (ports.Generator, error)

// StaticGenerator adapts an already-constructed generator to a source.
func StaticGenerator(gen ports.Generator) GeneratorSource {
	return func(context.Context) (ports.Generator, error) {
		if gen == nil {
			return nil, ports.ErrUnconfigured
		}
		return gen, nil
	}
}

// PrepareQuery returns the pipeline's first step. It resolves the query from
// the layered context and normalizes it: a resolvable, non-blank query
// passes through completed; anything else degrades to the fixed fallback
// query so downstream steps always find the field populated.
func PrepareQuery() workflow.Step {
	return workflow.Step{
		ID:    PrepareQueryID,
		Input: schema.Schema{domain.FieldQuery: schema.String()},
		Run: func(ctx context.Context, store *domain.ContextStore) (domain.StepOutput, error) {
			query, src := store.ResolveString(PrepareQueryID, domain.FieldQuery)
			if src == domain.SourceNone || strings.TrimSpace(query) == "" {
				return domain.FallbackQueryOutput(), nil
			}
			return domain.CompletedOutput(domain.Values{domain.FieldQuery: query}), nil
		},
	}
}

type answerConfig struct {
	logger      *slog.Logger
	callTimeout time.Duration
}

// AnswerOption configures the generate-answer step.
type AnswerOption func(*answerConfig)

// WithLogger sets a structured logger for the step's fallback decisions.
func WithLogger(logger *slog.Logger) AnswerOption {
	return func(c *answerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCallTimeout bounds the generator call. There is no default timeout;
// this is the explicit hardening knob for deployments that want one.
func WithCallTimeout(d time.Duration) AnswerOption {
	return func(c *answerConfig) {
		c.callTimeout = d
	}
}

// GenerateAnswer returns the pipeline's answer step. Its fallback ladder,
// checked in order:
//
//  1. No usable query (sentinel, blank, or the propagated fallback query):
//     degrade to the fixed missing-query answer without touching the
//     generator.
//  2. Generator unconfigured (ports.ErrUnconfigured from the source):
//     degrade to the canned answer instead of attempting a call known to
//     fail.
//  3. Call the generator with a single user-role message.
//  4. Any error from acquisition or generation: degrade to an answer
//     embedding the error text. Errors never propagate to the driver.
func GenerateAnswer(source GeneratorSource, opts ...AnswerOption) workflow.Step {
	cfg := answerConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&cfg)
	}

	return workflow.Step{
		ID:    GenerateAnswerID,
		Input: schema.Schema{domain.FieldQuery: schema.String()},
		Run: func(ctx context.Context, store *domain.ContextStore) (domain.StepOutput, error) {
			query, src := store.ResolveString(GenerateAnswerID, domain.FieldQuery)
			if src == domain.SourceNone || strings.TrimSpace(query) == "" || query == domain.FallbackQuery {
				cfg.logger.Debug("no usable query, skipping generator", "source", src)
				return domain.MissingQueryOutput(), nil
			}

			if source == nil {
				cfg.logger.Info("no generator source configured, using canned answer")
				return domain.UnconfiguredAgentOutput(), nil
			}
			gen, err := source(ctx)
			if err != nil {
				if errors.Is(err, ports.ErrUnconfigured) {
					cfg.logger.Info("generator unconfigured, using canned answer")
					return domain.UnconfiguredAgentOutput(), nil
				}
				cfg.logger.Warn("generator acquisition failed", "err", err)
				return domain.AgentFailureOutput(err), nil
			}

			callCtx := ctx
			if cfg.callTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(ctx, cfg.callTimeout)
				defer cancel()
			}

			reply, err := gen.Generate(callCtx, []ports.Message{ports.UserMessage(query)})
			if err != nil {
				cfg.logger.Warn("generation failed", "err", err)
				return domain.AgentFailureOutput(err), nil
			}
			return domain.CompletedOutput(domain.Values{domain.FieldAnswer: reply.Text}), nil
		},
	}
}
