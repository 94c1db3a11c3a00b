// Package store persists the comfort thresholds across restarts.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sweeney/temp-controller/internal/logic"
)

type fileFormat struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Store is a JSON file holding the thresholds. Writes go to a temporary
// file renamed over the target, and only happen when the value changed.
type Store struct {
	path string

	mu   sync.Mutex
	last logic.Thresholds
	have bool
}

// New returns a store for path. The file is not touched until Load or Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the thresholds. A missing file yields the defaults; values out
// of range are replaced with DefaultThreshold.
func (s *Store) Load() (logic.Thresholds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return logic.DefaultThresholds(), nil
	}
	if err != nil {
		return logic.DefaultThresholds(), fmt.Errorf("read thresholds: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return logic.DefaultThresholds(), fmt.Errorf("parse thresholds %s: %w", s.path, err)
	}
	th := logic.Thresholds{Low: f.Low, High: f.High}.Sanitize()
	s.last, s.have = th, true
	return th, nil
}

// Save writes th if it differs from what was last loaded or saved.
func (s *Store) Save(th logic.Thresholds) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.have && th == s.last {
		return nil
	}

	data, err := json.MarshalIndent(fileFormat{Low: th.Low, High: th.High}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode thresholds: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".thresholds-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write thresholds: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("rename thresholds: %w", err)
	}

	s.last, s.have = th, true
	return nil
}
