// Package ws streams live queue status to dashboard clients over
// WebSocket. The stream is push-only: one status snapshot per second
// until the client disconnects. Clients that need a single snapshot
// should poll GET /status instead.
package ws
