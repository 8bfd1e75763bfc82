// Package engine is the front door for workflow changes.
//
// Engine serializes calls per episode with a keyed mutex, runs each advance
// as one atomic store transaction, retries when another process changed the
// workflow first, and publishes the resulting events without waiting on
// their subscribers. Different episodes never contend on engine locks.
package engine
