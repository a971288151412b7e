// Package batch runs ordered collections of deferred tasks in fixed-size windows.
//
// A run partitions its tasks into contiguous windows of batchSize tasks (the last
// window may be shorter). Every task in a window is started concurrently, the
// window is joined, and only then is the next window dispatched. Key properties:
//   - Results come back in submission order, independent of completion timing
//   - The first task failure in a window aborts the run and is returned unchanged
//   - Progress is reported once before any work and once after every window
//   - Which outputs are kept is an explicit policy (ResultFilter, Optional)
//
// Concurrency is bounded by the window size: at most batchSize tasks are in
// flight at any moment.
package batch
