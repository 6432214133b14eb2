package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/perihelion-labs/ldsi/core/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult(lambda float64, verdict scoring.Verdict) scoring.Result {
	return scoring.Result{
		SchemaVersion: "2",
		Lambda:        lambda,
		Verdict:       verdict,
		VerdictClass:  verdict.Class(),
	}
}

func openTestLog(t *testing.T, dir string) *Log {
	t.Helper()
	l, err := NewLog(LogConfig{Path: filepath.Join(dir, "runs.jsonl")})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLog_AppendAssignsChainFields(t *testing.T) {
	l := openTestLog(t, t.TempDir())

	rec := &Record{Model: "anthropic/claude-opus-4.5", Result: testResult(0.42, scoring.VerdictRebel)}
	require.NoError(t, l.Append(rec))

	assert.Equal(t, uint64(1), rec.Sequence)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, strings.HasPrefix(rec.TestID, "LDSI_"))
	assert.Empty(t, rec.PreviousHash)
	assert.NotEmpty(t, rec.EntryHash)
	assert.False(t, rec.Timestamp.IsZero())
}

func TestLog_AppendKeepsCallerAssignedIDs(t *testing.T) {
	l := openTestLog(t, t.TempDir())

	rec := &Record{TestID: "LDSI_1756100000_DEADBEEF", Model: "m", Result: testResult(0, scoring.VerdictZombie)}
	require.NoError(t, l.Append(rec))
	assert.Equal(t, "LDSI_1756100000_DEADBEEF", rec.TestID)
}

func TestLog_HashChain(t *testing.T) {
	l := openTestLog(t, t.TempDir())

	first := &Record{Model: "m", Result: testResult(0.1, scoring.VerdictZombie)}
	second := &Record{Model: "m", Result: testResult(0.5, scoring.VerdictRebel)}
	require.NoError(t, l.Append(first))
	require.NoError(t, l.Append(second))

	assert.Equal(t, first.EntryHash, second.PreviousHash)
	assert.NotEqual(t, first.EntryHash, second.EntryHash)
	assert.Equal(t, uint64(2), l.Sequence())
}

func TestLog_VerifyIntegrity(t *testing.T) {
	l := openTestLog(t, t.TempDir())
	for i := 0; i < 5; i++ {
		rec := &Record{Model: "m", Result: testResult(float64(i)/10, scoring.VerdictZombie)}
		require.NoError(t, l.Append(rec))
	}

	report, err := l.VerifyIntegrity()
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 5, report.EntriesVerified)
	assert.Empty(t, report.Errors)
}

func TestLog_DetectsTampering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")

	l, err := NewLog(LogConfig{Path: path})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Append(&Record{Model: "m", Result: testResult(0.2, scoring.VerdictZombie)}))
	}
	require.NoError(t, l.Close())

	// Rewrite the middle line with a doctored lambda, keeping its
	// recorded hash.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)

	var rec Record
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	rec.Result.Lambda = 9.9
	doctored, err := json.Marshal(rec)
	require.NoError(t, err)
	lines[1] = string(doctored)
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0600))

	reopened, err := NewLog(LogConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	report, err := reopened.VerifyIntegrity()
	require.NoError(t, err)
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	assert.Contains(t, report.Errors[0], "hash mismatch")
}

func TestLog_ResumesChainAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")

	l, err := NewLog(LogConfig{Path: path})
	require.NoError(t, err)
	first := &Record{Model: "m", Result: testResult(0.1, scoring.VerdictZombie)}
	require.NoError(t, l.Append(first))
	require.NoError(t, l.Close())

	reopened, err := NewLog(LogConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	second := &Record{Model: "m", Result: testResult(0.8, scoring.VerdictArchitect)}
	require.NoError(t, reopened.Append(second))
	assert.Equal(t, uint64(2), second.Sequence)
	assert.Equal(t, first.EntryHash, second.PreviousHash)

	report, err := reopened.VerifyIntegrity()
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 2, report.EntriesVerified)
}

func TestLog_ToleratesTornTrailingLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")

	l, err := NewLog(LogConfig{Path: path})
	require.NoError(t, err)
	first := &Record{Model: "m", Result: testResult(0.3, scoring.VerdictRebel)}
	require.NoError(t, l.Append(first))
	require.NoError(t, l.Close())

	// Simulate a crash mid-write: a fragment with no newline.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString(`{"id":"trunc`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened, err := NewLog(LogConfig{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	next := &Record{Model: "m", Result: testResult(0.4, scoring.VerdictRebel)}
	require.NoError(t, reopened.Append(next))
	assert.Equal(t, uint64(2), next.Sequence)
	assert.Equal(t, first.EntryHash, next.PreviousHash)

	// The fragment stays in the file, so verification flags it while
	// the surviving records still chain.
	report, err := reopened.VerifyIntegrity()
	require.NoError(t, err)
	assert.Equal(t, 2, report.EntriesVerified)
	assert.False(t, report.Valid)
}

func TestLog_RotatesBySize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")

	l, err := NewLog(LogConfig{Path: path, RotateBytes: 512})
	require.NoError(t, err)
	defer l.Close()

	for i := 0; i < 8; i++ {
		require.NoError(t, l.Append(&Record{Model: "m", Result: testResult(0.1, scoring.VerdictZombie)}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Greater(t, len(entries), 1, "rotation should leave archived segments")

	report, err := l.VerifyIntegrity()
	require.NoError(t, err)
	assert.True(t, report.Valid)
}

func TestLog_CloseStopsAppends(t *testing.T) {
	l := openTestLog(t, t.TempDir())
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	err := l.Append(&Record{Model: "m", Result: testResult(0, scoring.VerdictZombie)})
	assert.ErrorIs(t, err, ErrLogClosed)
}

func TestReadRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "runs.jsonl")

	l, err := NewLog(LogConfig{Path: path})
	require.NoError(t, err)
	models := []string{"alpha", "beta", "gamma"}
	for _, m := range models {
		require.NoError(t, l.Append(&Record{Model: m, Result: testResult(0.2, scoring.VerdictZombie)}))
	}
	require.NoError(t, l.Close())

	records, err := ReadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, m := range models {
		assert.Equal(t, m, records[i].Model)
	}
}
