// Package monitoring provides Prometheus metrics for the automation
// runner: HTTP traffic, command execution, frame capture, and stability
// wait outcomes. A JSON snapshot of headline numbers is kept alongside
// the registry for the dashboard's status endpoint.
//
// All Record helpers are nil-receiver safe so components can run
// unmetered in tests.
package monitoring
