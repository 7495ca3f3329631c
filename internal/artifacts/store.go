// Package artifacts persists per-session evidence: numbered
// screenshots with a latest.jpg convenience copy, and gzipped DOM
// snapshots. The directory layout runs/<clientId>/<testId>/<sessionId>/
// is what external dashboards and the MCP front-end read.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"

	"github.com/rabbitize/rabbitize/internal/logging"
)

// Store writes artifacts for one session.
type Store struct {
	dir string
	log *logging.Logger
}

// NewStore creates the session directory tree under baseDir.
func NewStore(baseDir, clientID, testID, sessionID string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.NewNop()
	}
	dir := filepath.Join(baseDir, clientID, testID, sessionID)
	for _, sub := range []string{"screenshots", "dom"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create artifact dir: %w", err)
		}
	}
	return &Store{dir: dir, log: log.Named("artifacts")}, nil
}

// Dir returns the session's artifact directory.
func (s *Store) Dir() string { return s.dir }

// SaveScreenshot writes a numbered JPEG and refreshes latest.jpg.
func (s *Store) SaveScreenshot(index int, data []byte) (string, error) {
	path := filepath.Join(s.dir, "screenshots", fmt.Sprintf("%04d.jpg", index))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	// latest.jpg is a convenience copy for pollers that only want the
	// newest frame.
	latest := filepath.Join(s.dir, "latest.jpg")
	if err := os.WriteFile(latest, data, 0o644); err != nil {
		return "", fmt.Errorf("write latest screenshot: %w", err)
	}
	return path, nil
}

// LatestScreenshot reads latest.jpg, or returns an error if no
// screenshot has been written yet.
func (s *Store) LatestScreenshot() ([]byte, error) {
	return os.ReadFile(filepath.Join(s.dir, "latest.jpg"))
}

// SaveDOM writes a gzipped DOM snapshot for the given command index.
func (s *Store) SaveDOM(index int, html string) (string, error) {
	path := filepath.Join(s.dir, "dom", fmt.Sprintf("%04d.html.gz", index))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create dom snapshot: %w", err)
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(html)); err != nil {
		zw.Close()
		return "", fmt.Errorf("write dom snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("flush dom snapshot: %w", err)
	}
	return path, nil
}
