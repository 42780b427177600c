package domain

import "time"

// RunRecord is the archived summary of one run, as kept by a RunStore.
type RunRecord struct {
	ID         string       `json:"id"`
	Workflow   string       `json:"workflow"`
	Query      string       `json:"query"`
	Answer     string       `json:"answer,omitempty"`
	Success    bool         `json:"success"`
	Degraded   bool         `json:"degraded,omitempty"`
	Error      string       `json:"error,omitempty"`
	Steps      []StepReport `json:"steps,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// NewRunRecord assembles a record from a finished run.
func NewRunRecord(workflow string, trigger TriggerData, result RunResult, startedAt, finishedAt time.Time) RunRecord {
	return RunRecord{
		ID:         result.RunID,
		Workflow:   workflow,
		Query:      trigger.Query,
		Answer:     result.Answer(),
		Success:    result.Success,
		Degraded:   result.Degraded(),
		Error:      result.Error,
		Steps:      result.Steps,
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
}
