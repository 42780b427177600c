/*
Package workflow provides the building blocks for defining linear pipelines:
named steps with declared input shapes, assembled in order and frozen with
Commit before execution.

A workflow is append-only until committed:

	wf := workflow.New("ask", schema.Schema{"query": schema.String()})
	_ = wf.AddStep(workflow.Step{
		ID:    "prepare-query",
		Input: schema.Schema{"query": schema.String()},
		Run:   prepare,
	})
	_ = wf.AddStep(workflow.Step{
		ID:    "generate-answer",
		Input: schema.Schema{"query": schema.String()},
		Run:   answer,
	})
	wf.Commit()

After Commit the step sequence is immutable and the workflow may be shared
across concurrent runs; each run owns its own context store. AddStep rejects
duplicate ids, empty ids, nil run functions, and any append after Commit.
*/
package workflow
