package repository

import (
	"fmt"
	"os"
	"sync"
)

// RawTrail appends every telemetry line verbatim to a text file for forensic replay.
type RawTrail struct {
	mu sync.Mutex
	f  *os.File
}

func OpenRawTrail(path string) (*RawTrail, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open raw trail %q: %w", path, err)
	}
	return &RawTrail{f: f}, nil
}

// Record writes line followed by a newline.
func (t *RawTrail) Record(line string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("append raw trail: %w", err)
	}
	return nil
}

func (t *RawTrail) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.f.Close()
}
