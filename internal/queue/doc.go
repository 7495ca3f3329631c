// Package queue serializes automation commands against a single live
// browser session.
//
// A Manager accepts items at any time (staging before a session is
// ready is allowed) but executes them only after processing has been
// explicitly enabled. Exactly one consumer goroutine drains the FIFO;
// commands run strictly in enqueue order, one at a time. A failed
// execute item never halts the queue; command-level failure semantics
// belong to the session. Completed items move into a bounded history
// (oldest evicted first) that status endpoints read.
package queue
