package checkpoint

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists checkpoint records as a JSON Lines log per run id.
// Every write rewrites the log through a temporary file committed with an
// atomic rename, so a crash mid-write never corrupts the readable state.
type FileStore struct {
	basePath string
	mutex    sync.Mutex
}

var _ Store = &FileStore{}

// NewFileStore creates a file-based checkpoint store rooted at basePath.
func NewFileStore(basePath string) *FileStore {
	return &FileStore{basePath: basePath}
}

func (f *FileStore) logPath(runID string) string {
	return filepath.Join(f.basePath, runID, "checkpoints.jsonl")
}

// Write appends one record to the run's log. Writes are serialized so
// concurrent node completions never interleave into a corrupt record.
func (f *FileStore) Write(ctx context.Context, record *Record) error {
	if record.RunID == "" {
		return fmt.Errorf("checkpoint record requires a run id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	logPath := f.logPath(record.RunID)
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return &PersistenceError{Op: "write", Path: logPath, Err: err}
	}

	existing, err := os.ReadFile(logPath)
	if err != nil && !os.IsNotExist(err) {
		return &PersistenceError{Op: "write", Path: logPath, Err: err}
	}

	line, err := json.Marshal(record)
	if err != nil {
		return &PersistenceError{Op: "write", Path: logPath, Err: err}
	}

	var buf bytes.Buffer
	buf.Write(existing)
	buf.Write(line)
	buf.WriteByte('\n')

	tempPath := logPath + ".tmp"
	if err := os.WriteFile(tempPath, buf.Bytes(), 0644); err != nil {
		return &PersistenceError{Op: "write", Path: logPath, Err: err}
	}
	if err := os.Rename(tempPath, logPath); err != nil {
		os.Remove(tempPath)
		return &PersistenceError{Op: "write", Path: logPath, Err: err}
	}
	return nil
}

// Records reads all persisted records for a run, in write order.
func (f *FileStore) Records(ctx context.Context, runID string) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mutex.Lock()
	defer f.mutex.Unlock()

	logPath := f.logPath(runID)
	file, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Record{}, nil
		}
		return nil, &PersistenceError{Op: "read", Path: logPath, Err: err}
	}
	defer file.Close()

	var records []*Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, &PersistenceError{Op: "read", Path: logPath, Err: err}
		}
		records = append(records, &record)
	}
	if err := scanner.Err(); err != nil {
		return nil, &PersistenceError{Op: "read", Path: logPath, Err: err}
	}
	return records, nil
}

// Load folds the run's records into its current state.
func (f *FileStore) Load(ctx context.Context, runID string) (*State, error) {
	records, err := f.Records(ctx, runID)
	if err != nil {
		return nil, err
	}
	return Fold(runID, records), nil
}
