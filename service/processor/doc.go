// Package processor hosts the fixed pool of workers that perform landings.
// Every worker takes one task at a time, acquires a runway from the allocator,
// holds it for the occupancy period and emits exactly one outcome per task on
// the outcome channel read by the reporter.
package processor
