package domain

import "fmt"

// Degradation reason codes. The set is closed: every fallback path in the
// canonical pipeline maps to exactly one of these.
const (
	ReasonMissingInput      = "missing_input"
	ReasonUnconfiguredAgent = "unconfigured_agent"
	ReasonAgentError        = "agent_error"
)

// Fixed fallback strings. These are contractual output, not presentation:
// callers and tests match on them.
const (
	// FallbackQuery is the substitute query produced when no usable query
	// can be resolved from any context layer.
	FallbackQuery = "No query provided, using default search"

	// AnswerMissingQuery is the placeholder answer returned when the
	// pipeline never had a query to work with.
	AnswerMissingQuery = "No query was provided, so there is nothing to search for. Please ask a question to get an answer."

	// AnswerUnconfigured is the canned answer returned instead of calling a
	// generator that is known to be unconfigured.
	AnswerUnconfigured = "Tokyo is the capital of Japan. It is the seat of the Japanese government and one of the most populous metropolitan areas in the world. (This is a canned answer: no model credential is configured.)"
)

// AnswerAgentFailure renders the degraded answer for a failed generation.
// The error's message is embedded verbatim so callers can see what happened.
func AnswerAgentFailure(err error) string {
	return fmt.Sprintf("The agent could not complete the request: %v. The answer above is a fallback.", err)
}

// StepOutput is the result a step hands back to the run driver: the values
// to record in the context store, plus whether they were produced by a
// fallback path and why.
type StepOutput struct {
	Values   Values `json:"values"`
	Degraded bool   `json:"degraded,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Status maps the output onto the step state machine's terminal status.
func (o StepOutput) Status() StepStatus {
	if o.Degraded {
		return StepDegraded
	}
	return StepCompleted
}

// CompletedOutput wraps values as a normal, non-degraded step result.
func CompletedOutput(values Values) StepOutput {
	return StepOutput{Values: values}
}

// FallbackQueryOutput is the degraded result of the query-preparation step
// when no layer supplied a usable query.
func FallbackQueryOutput() StepOutput {
	return StepOutput{
		Values:   Values{FieldQuery: FallbackQuery},
		Degraded: true,
		Reason:   ReasonMissingInput,
	}
}

// MissingQueryOutput is the degraded result of the answer step when the
// pipeline never had a query; the generator is not called.
func MissingQueryOutput() StepOutput {
	return StepOutput{
		Values:   Values{FieldAnswer: AnswerMissingQuery},
		Degraded: true,
		Reason:   ReasonMissingInput,
	}
}

// UnconfiguredAgentOutput is the degraded result used instead of calling an
// unconfigured generator.
func UnconfiguredAgentOutput() StepOutput {
	return StepOutput{
		Values:   Values{FieldAnswer: AnswerUnconfigured},
		Degraded: true,
		Reason:   ReasonUnconfiguredAgent,
	}
}

// AgentFailureOutput converts a generation error into a degraded result.
// The error never propagates past the step.
func AgentFailureOutput(err error) StepOutput {
	return StepOutput{
		Values:   Values{FieldAnswer: AnswerAgentFailure(err)},
		Degraded: true,
		Reason:   ReasonAgentError,
	}
}
