// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The query path degrades rather than fails: embedding, search, live tool
// items and generation each have a fallback, and only invalid input or
// cancellation is returned to the caller.
package services
