// Package resilience groups the building blocks that keep outbound calls
// to flaky dependencies from cascading into whole-batch failures.
//
// Subpackages:
//   - classify: splits errors into transient and permanent classes
//   - retry: bounded retry with exponential backoff for transient errors
//   - circuitbreaker: per-service breakers that shed load while a
//     dependency is down and probe it with limited trial calls
//   - health: background probing that resets breakers once a dependency
//     is confirmed healthy again
//
// The packages are composed by internal/usecase/call, which consults the
// breaker before every operation and reports the outcome back to it.
package resilience
