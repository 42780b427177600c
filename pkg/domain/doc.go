/*
Package domain contains the core domain models for the Furrow pipeline engine.

It defines the entities a run is made of: the trigger data a caller supplies,
the layered context store each step resolves its input from, step outputs with
their degradation markers, and the run result handed back to the caller. This
package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - TriggerData: The caller's initial input, immutable for the run.
  - ContextStore: Per-run aggregate of trigger data, per-step overrides and
    ordered step outputs; resolution checks those layers in fixed precedence.
  - StepOutput: A step's recorded values plus whether a fallback produced them.
  - RunResult: Success flag with the final values, or a structural error.
  - RunRecord: The archived summary of a finished run.

# Fail-soft contract

Every anticipated runtime condition (missing query, unconfigured generator,
generation failure) degrades to a substitute output built by the closed set of
constructors in this package; RunResult.Success stays true. Success false is
reserved for structural mistakes such as running an uncommitted workflow.
*/
package domain
