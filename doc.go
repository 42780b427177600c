/*
Package furrow is a fail-soft step-orchestration engine. It threads a user
query through a linear pipeline of named steps to an agent-backed answer,
degrading to fixed fallback answers instead of failing when input is missing,
the agent is unconfigured, or the agent errors.

# Concept

A Workflow is an ordered list of steps committed before use. Each run owns a
layered ContextStore; a step resolves its input by checking per-step
overrides, then the previous step's output, then the trigger data. Steps
report degraded outputs for every anticipated problem, so a run that starts
always finishes with an answer. Only structural defects (an uncommitted
workflow, a panicking step) fail a run.

# Key Properties

  - Fail-soft: missing input, an unconfigured agent, and agent errors each
    map to a fixed fallback answer with a machine-readable reason code.
  - Layered input resolution: override > previous step output > trigger.
  - Hexagonal: the generator, tool source, and run archive are ports;
    adapters (OpenAI-compatible HTTP, MCP, and the memory, Redis and file
    archives) plug in from the outside.
  - Lazy agent construction: the generator is built on the first run that
    needs it, at most once concurrently.

# Usage

The zero-configuration engine answers with canned fallbacks; wire a
generator factory for real answers.

	package main

	import (
		"context"
		"fmt"

		"github.com/aretw0/furrow"
	)

	func main() {
		eng := furrow.New()

		result := eng.Ask(context.Background(), "What is the capital of Japan?")
		if !result.Success {
			fmt.Println("run failed:", result.Error)
			return
		}
		fmt.Println(result.Answer())
	}
*/
package furrow
