// Package stability decides when the visible page has stopped changing.
//
// A Detector owns a periodic capture loop that feeds downscaled frames
// into a ring buffer, and a WaitForStability call that compares the two
// most recent frames until enough consecutive comparisons come back
// unchanged. The detector is tuned for liveness over strictness: the
// hard timeout and the stall watchdog both resolve as "assume stable
// and proceed" rather than as errors, because a hung detector would
// deadlock every subsequent command. The only blocking failure is an
// explicit external Stop while a wait is in flight.
package stability
