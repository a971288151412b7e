// Package logging builds the zerolog loggers used across batchrun and carries
// run-scoped values (logger, run ID, audit logger) through context.Context.
package logging
