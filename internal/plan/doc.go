// Package plan loads YAML task plans and turns them into executor tasks.
//
// A plan is an ordered list of task specs. Each spec produces exactly one
// outcome: a literal value, an explicit "no result", a failure, or the trimmed
// stdout of an external command. Any spec may add a delay before its outcome,
// which makes plans useful for exercising window timing as well as real work.
//
// Example:
//
//	version: "1.0.0"
//	name: release-checks
//	batch_size: 2
//	tasks:
//	  - name: head
//	    command: ["git", "rev-parse", "HEAD"]
//	  - name: warmup
//	    delay: 200ms
//	    empty: true
package plan
