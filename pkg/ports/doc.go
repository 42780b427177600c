/*
Package ports defines the driven ports (interfaces) for the Furrow engine.

These interfaces decouple the pipeline core from external implementations,
allowing the engine to work with different generators, tool backends, and
archival stores.

# Key Interfaces

  - Generator: The agent facade; turns conversational content into text.
  - ToolSource: Supplies callable tools consumed during agent construction.
  - RunStore: Persists finished run records for later inspection.

RunStoreContract is a shared test suite every RunStore implementation is
expected to pass.
*/
package ports
