// Package api exposes the runner's REST surface: session lifecycle
// (/start, /execute, /end), the pollable /status snapshot, and the
// Prometheus /metrics endpoint. Handlers only translate HTTP to queue
// operations; all sequencing lives in the queue itself.
package api
