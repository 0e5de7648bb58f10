package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ftchann/clmm-simulator/lib/events"
)

// JsonlStorage appends event records to a JSONL file and writes results as a
// single JSON document next to it.
type JsonlStorage struct {
	path       string
	resultPath string
	mu         sync.Mutex
}

func NewJsonlStorage(path, resultPath string) *JsonlStorage {
	return &JsonlStorage{path: path, resultPath: resultPath}
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}

// PutEvents appends a batch of event records as JSON lines.
func (s *JsonlStorage) PutEvents(records []events.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ensureDir(s.path); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal event record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write event record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

// PutResult replaces the result file with v. It does nothing when no result
// path was configured.
func (s *JsonlStorage) PutResult(v any) error {
	if s.resultPath == "" {
		return nil
	}
	if err := ensureDir(s.resultPath); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.WriteFile(s.resultPath, data, 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
