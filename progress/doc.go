// Package progress keeps aggregated landing counters (received, rejected,
// landed, held, ...) for a running service. The tracker can travel in the
// context so that intake, workers and the reporter update the same instance
// without a global registry.
package progress
