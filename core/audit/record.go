// Package audit persists scored runs: a hash-chained JSONL trail for
// tamper evidence and a tiered store for queries and reports.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/rand"
	"time"

	"github.com/perihelion-labs/ldsi/core/scoring"
)

// Record is one scored run in the audit trail. The chain fields are
// filled in by Log.Append.
type Record struct {
	ID        string    `json:"id"`
	TestID    string    `json:"test_id"`
	Timestamp time.Time `json:"timestamp"`
	Sequence  uint64    `json:"sequence"`

	Model      string `json:"model"`
	Provider   string `json:"provider,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	PromptHash string `json:"prompt_hash,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`

	Result scoring.Result `json:"result"`

	PreviousHash string `json:"previous_hash"`
	EntryHash    string `json:"entry_hash"`
}

// Cost estimates the record's memory footprint for the hot cache.
func (r *Record) Cost() int64 {
	cost := int64(600)
	cost += int64(len(r.ID) + len(r.TestID) + len(r.Model) + len(r.Provider) + len(r.PromptHash))
	return cost
}

// NewTestID returns a fresh run identifier, unique enough to key the
// result store.
func NewTestID() string {
	return fmt.Sprintf("LDSI_%d_%08X", time.Now().Unix(), rand.Uint32())
}

// HashText returns the hex SHA-256 of a text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// HashPair digests a prompt pair into one value. The separator byte
// keeps ("ab","c") and ("a","bc") distinct.
func HashPair(a, b string) string {
	h := sha256.New()
	h.Write([]byte(a))
	h.Write([]byte{0})
	h.Write([]byte(b))
	return hex.EncodeToString(h.Sum(nil))
}
