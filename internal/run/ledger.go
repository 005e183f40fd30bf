package run

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// Ledger is the append-only rows.jsonl file plus the in-memory row
// list used for final aggregation. Appends are serialized and flushed
// immediately so a partial run stays inspectable on disk.
type Ledger struct {
	mu   sync.Mutex
	file *os.File
	rows []Row
}

// OpenLedger creates (truncating) the ledger file.
func OpenLedger(path string) (*Ledger, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger %s: %w", path, err)
	}
	return &Ledger{file: file}, nil
}

// Append writes one row as a JSON line and records it in memory.
func (l *Ledger) Append(row Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encoding ledger row: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("appending ledger row: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("flushing ledger: %w", err)
	}
	l.rows = append(l.rows, row)
	return nil
}

// Rows returns the rows appended so far, in append order.
func (l *Ledger) Rows() []Row {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Row, len(l.rows))
	copy(out, l.rows)
	return out
}

// Close closes the underlying file.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
