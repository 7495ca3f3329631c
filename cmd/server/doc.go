// Package main is the entry point for the browser automation runner.
//
// The runner drives a single Chromium page through a strict FIFO
// command queue, waits for visual stability between commands, and
// records screenshots and DOM snapshots for each step.
//
// The server provides:
//   - REST API for session lifecycle (/start, /execute, /end)
//   - Pollable status snapshot (/status)
//   - WebSocket status stream (/ws/status)
//   - Prometheus metrics (/metrics) and a JSON summary
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 3000
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown, ending any active session
package main
