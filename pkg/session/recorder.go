package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Recorder writes end-of-call records to disk, one JSON file per call.
type Recorder struct {
	dir string
}

// NewRecorder creates a recorder writing under dir. The directory is
// created on first save.
func NewRecorder(dir string) *Recorder {
	return &Recorder{dir: dir}
}

// Save writes the session's snapshot. The filename combines caller
// number, call SID, and start time so repeat calls never collide.
func (r *Recorder) Save(s *CallSession) (string, error) {
	record := s.Snapshot()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create profiles dir: %w", err)
	}

	name := fmt.Sprintf("%s_profile_%s_%s.json",
		record.CallerNumber, record.CallSID, record.StartTime.Format("20060102_150405"))
	path := filepath.Join(r.dir, name)

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write record: %w", err)
	}
	return path, nil
}
