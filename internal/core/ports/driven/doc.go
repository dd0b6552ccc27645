// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Turns text into vectors. The fallback composition never fails.
//   - VectorStore: Similarity search over embedded chunks (remote, in-process, or failover).
//   - DocumentStore: Document and chunk persistence
//   - HistoryStore: Query history persistence
//   - SyncStateStore: Aggregation progress persistence
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - LLMService: Answer generation. Without it, answers are extractive.
//   - ToolCaller: Supervised tool workers. Without it, live context and sync are disabled.
//   - PromptStore: Customisable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or worker package
package driven
