package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrLogClosed = errors.New("audit log closed")
)

// LogConfig configures the append-only run log.
type LogConfig struct {
	// Path of the JSONL file. Empty keeps the chain in memory only.
	Path string `yaml:"path"`

	// RotateBytes rotates the file once it grows past this size.
	RotateBytes int64 `yaml:"rotate_bytes"`
}

// DefaultLogConfig returns the standard log settings.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		RotateBytes: 10 * 1024 * 1024,
	}
}

// Log is an append-only JSONL file where each record carries the SHA-256
// of its predecessor. Any edit to a past line breaks the chain.
type Log struct {
	mu sync.Mutex

	file         *os.File
	path         string
	sequence     uint64
	previousHash string

	config LogConfig
	closed bool
}

// NewLog opens (or creates) the run log and resumes the chain from the
// last intact line.
func NewLog(cfg LogConfig) (*Log, error) {
	if cfg.RotateBytes == 0 {
		cfg.RotateBytes = DefaultLogConfig().RotateBytes
	}

	l := &Log{
		config: cfg,
		path:   cfg.Path,
	}
	if err := l.openLogFile(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Log) openLogFile() error {
	if l.path == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0600)
	if err != nil {
		return err
	}
	l.file = f

	return l.initializeFromExisting()
}

// initializeFromExisting resumes sequence and chain head from the file.
// Unparseable lines (a torn write from a crash) are skipped rather than
// rejected; the chain resumes from the last good line.
func (l *Log) initializeFromExisting() error {
	scanner := bufio.NewScanner(l.file)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		l.sequence = rec.Sequence
		l.previousHash = rec.EntryHash
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return l.repairTrailingNewline()
}

// repairTrailingNewline terminates a torn final line so the next append
// starts on its own line instead of merging into the fragment.
func (l *Log) repairTrailingNewline() error {
	info, err := l.file.Stat()
	if err != nil || info.Size() == 0 {
		return nil
	}
	buf := make([]byte, 1)
	if _, err := l.file.ReadAt(buf, info.Size()-1); err != nil {
		return nil
	}
	if buf[0] == '\n' {
		return nil
	}
	_, err = l.file.Write([]byte("\n"))
	return err
}

// Append assigns the record its place in the chain and writes it.
// ID, TestID and Timestamp are backfilled only when the caller left
// them empty, so store keys assigned upstream survive.
func (l *Log) Append(rec *Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}

	l.prepare(rec)

	if l.file == nil {
		return nil
	}
	return l.write(*rec)
}

func (l *Log) prepare(rec *Record) {
	l.sequence++
	rec.Sequence = l.sequence
	rec.PreviousHash = l.previousHash
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.TestID == "" {
		rec.TestID = NewTestID()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.EntryHash = computeEntryHash(*rec)
	l.previousHash = rec.EntryHash
}

func (l *Log) write(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return err
	}
	return l.checkRotation()
}

// computeEntryHash covers every field a reader would trust. The result
// payload is hashed through its canonical JSON form, which encoding/json
// keeps stable across marshal cycles.
func computeEntryHash(rec Record) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d", rec.Sequence)
	h.Write([]byte(rec.PreviousHash))
	h.Write([]byte(rec.Timestamp.Format(time.RFC3339Nano)))
	h.Write([]byte(rec.TestID))
	h.Write([]byte(rec.Model))
	h.Write([]byte(rec.Provider))
	h.Write([]byte(rec.PromptHash))

	resultJSON, _ := json.Marshal(rec.Result)
	h.Write(resultJSON)

	return hex.EncodeToString(h.Sum(nil))
}

func (l *Log) checkRotation() error {
	info, err := l.file.Stat()
	if err != nil {
		return nil
	}
	if info.Size() < l.config.RotateBytes {
		return nil
	}
	return l.rotate()
}

// rotate renames the full file aside and reopens a fresh one. Sequence
// and chain head carry over, so the first record of the new file links
// back into the rotated one. Nanosecond suffix keeps back-to-back
// rotations from clobbering each other.
func (l *Log) rotate() error {
	oldPath := l.path
	newPath := fmt.Sprintf("%s.%d", oldPath, time.Now().UnixNano())

	if err := l.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		return err
	}
	return l.openLogFile()
}

// IntegrityReport summarizes a verification pass over the log file.
type IntegrityReport struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	EntriesVerified int       `json:"entries_verified"`
	Errors          []string  `json:"errors,omitempty"`
	Valid           bool      `json:"valid"`
}

// VerifyIntegrity rescans the log and checks every record's hash, its
// link to the predecessor, and sequence continuity. The first record's
// PreviousHash seeds the chain, so a file that starts mid-chain after
// rotation still verifies.
func (l *Log) VerifyIntegrity() (*IntegrityReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	report := &IntegrityReport{StartTime: time.Now()}

	if l.path == "" {
		report.EndTime = time.Now()
		report.Valid = true
		return report, nil
	}

	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var (
		prevHash string
		lastSeq  uint64
		seeded   bool
	)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("parse error after seq %d", lastSeq))
			continue
		}

		if !seeded {
			prevHash = rec.PreviousHash
			seeded = true
		}

		if rec.PreviousHash != prevHash {
			report.Errors = append(report.Errors, fmt.Sprintf("chain break at seq %d", rec.Sequence))
		}
		if computeEntryHash(rec) != rec.EntryHash {
			report.Errors = append(report.Errors, fmt.Sprintf("hash mismatch at seq %d", rec.Sequence))
		}
		if lastSeq > 0 && rec.Sequence != lastSeq+1 {
			report.Errors = append(report.Errors, fmt.Sprintf("sequence gap: %d to %d", lastSeq, rec.Sequence))
		}

		prevHash = rec.EntryHash
		lastSeq = rec.Sequence
		report.EntriesVerified++
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	report.EndTime = time.Now()
	report.Valid = len(report.Errors) == 0
	return report, nil
}

// ReadRecords loads every parseable record from a log file, oldest
// first. Torn trailing lines are skipped.
func ReadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}

// Sequence returns the sequence number of the last appended record.
func (l *Log) Sequence() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sequence
}

// Close finishes the log. Further appends return ErrLogClosed.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
