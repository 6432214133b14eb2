package audit

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/perihelion-labs/ldsi/core/scoring"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	cfg := DefaultStoreConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "results.db")
	cfg.NumCounters = 1000
	cfg.MaxCost = 1 << 20
	cfg.EvictionBatchSize = 4

	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRecord(testID, model string, lambda float64, verdict scoring.Verdict) *Record {
	return &Record{
		ID:        testID + "-entry",
		TestID:    testID,
		Timestamp: time.Now().UTC(),
		Model:     model,
		Result:    testResult(lambda, verdict),
	}
}

func TestStorePutGet(t *testing.T) {
	store := setupTestStore(t)

	rec := testRecord("LDSI_1_00000001", "anthropic/claude-opus-4.5", 0.42, scoring.VerdictRebel)
	if err := store.Put(rec); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := store.Get("LDSI_1_00000001")
	if !ok {
		t.Fatal("expected hit for stored record")
	}
	if got.Model != rec.Model {
		t.Fatalf("model = %q, want %q", got.Model, rec.Model)
	}
	if got.Result.Lambda != rec.Result.Lambda {
		t.Fatalf("lambda = %v, want %v", got.Result.Lambda, rec.Result.Lambda)
	}

	if _, ok := store.Get("LDSI_MISSING"); ok {
		t.Fatal("expected miss for unknown test ID")
	}
}

func TestStoreRejectsEmptyTestID(t *testing.T) {
	store := setupTestStore(t)
	if err := store.Put(&Record{Model: "m"}); err == nil {
		t.Fatal("expected error for record without test ID")
	}
}

func TestStoreColdLookupAfterReopen(t *testing.T) {
	cfg := DefaultStoreConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "results.db")

	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	rec := testRecord("LDSI_2_00000002", "openai/gpt-5.2", 0.9, scoring.VerdictArchitect)
	if err := store.Put(rec); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	got, ok := reopened.Get("LDSI_2_00000002")
	if !ok {
		t.Fatal("expected cold hit after reopen")
	}
	if got.Result.Verdict != scoring.VerdictArchitect {
		t.Fatalf("verdict = %q", got.Result.Verdict)
	}

	stats := reopened.Stats()
	if stats.ColdHits != 1 {
		t.Fatalf("cold hits = %d, want 1", stats.ColdHits)
	}
}

func TestStoreQueries(t *testing.T) {
	store := setupTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	seed := []struct {
		id      string
		model   string
		lambda  float64
		verdict scoring.Verdict
		at      time.Time
	}{
		{"LDSI_10_0000000A", "claude-opus-4.5", 0.05, scoring.VerdictZombie, base},
		{"LDSI_11_0000000B", "claude-opus-4.5", 0.45, scoring.VerdictRebel, base.Add(10 * time.Minute)},
		{"LDSI_12_0000000C", "gpt-5.2", 0.50, scoring.VerdictRebel, base.Add(20 * time.Minute)},
		{"LDSI_13_0000000D", "gpt-5.2", 1.30, scoring.VerdictFool, base.Add(30 * time.Minute)},
	}
	for _, s := range seed {
		rec := testRecord(s.id, s.model, s.lambda, s.verdict)
		rec.Timestamp = s.at
		if err := store.Put(rec); err != nil {
			t.Fatalf("put %s: %v", s.id, err)
		}
	}

	rebels, err := store.QueryByVerdict(scoring.VerdictRebel, 0)
	if err != nil {
		t.Fatalf("query by verdict: %v", err)
	}
	if len(rebels) != 2 {
		t.Fatalf("rebels = %d, want 2", len(rebels))
	}
	if rebels[0].TestID != "LDSI_12_0000000C" {
		t.Fatalf("want newest first, got %s", rebels[0].TestID)
	}

	recent, err := store.QuerySince(base.Add(15*time.Minute), 0)
	if err != nil {
		t.Fatalf("query since: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d, want 2", len(recent))
	}

	limited, err := store.QueryByVerdict(scoring.VerdictRebel, 1)
	if err != nil {
		t.Fatalf("limited query: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("limited = %d, want 1", len(limited))
	}

	byModel, err := store.QueryByModel("gpt-5.2", 0)
	if err != nil {
		t.Fatalf("query by model: %v", err)
	}
	if len(byModel) != 2 {
		t.Fatalf("byModel = %d, want 2", len(byModel))
	}
}

func TestStoreSummary(t *testing.T) {
	store := setupTestStore(t)

	seed := []struct {
		id      string
		model   string
		lambda  float64
		verdict scoring.Verdict
	}{
		{"LDSI_20_00000014", "claude-opus-4.5", 0.02, scoring.VerdictZombie},
		{"LDSI_21_00000015", "claude-opus-4.5", 0.06, scoring.VerdictZombie},
		{"LDSI_22_00000016", "gpt-5.2", 1.40, scoring.VerdictFool},
	}
	for _, s := range seed {
		if err := store.Put(testRecord(s.id, s.model, s.lambda, s.verdict)); err != nil {
			t.Fatalf("put %s: %v", s.id, err)
		}
	}

	report, err := store.Summary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("total = %d, want 3", report.Total)
	}
	if len(report.ByVerdict) != 2 {
		t.Fatalf("verdict groups = %d, want 2", len(report.ByVerdict))
	}

	// Sorted by verdict name: FOOL before ZOMBIE.
	if report.ByVerdict[0].Verdict != "FOOL" {
		t.Fatalf("first verdict = %q", report.ByVerdict[0].Verdict)
	}
	zombie := report.ByVerdict[1]
	if zombie.Count != 2 {
		t.Fatalf("zombie count = %d, want 2", zombie.Count)
	}
	if math.Abs(zombie.MeanLambda-0.04) > 1e-9 {
		t.Fatalf("zombie mean = %v, want 0.04", zombie.MeanLambda)
	}
	if zombie.MinLambda != 0.02 || zombie.MaxLambda != 0.06 {
		t.Fatalf("zombie min/max = %v/%v", zombie.MinLambda, zombie.MaxLambda)
	}

	if len(report.ByModel) != 2 {
		t.Fatalf("model groups = %d, want 2", len(report.ByModel))
	}
	claude := report.ByModel[0]
	if claude.Model != "claude-opus-4.5" {
		t.Fatalf("first model = %q", claude.Model)
	}
	if claude.Verdicts["ZOMBIE"] != 2 {
		t.Fatalf("claude zombie count = %d, want 2", claude.Verdicts["ZOMBIE"])
	}
}

func TestStoreCleanup(t *testing.T) {
	cfg := DefaultStoreConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "results.db")
	cfg.ColdTTL = time.Hour

	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	old := testRecord("LDSI_30_0000001E", "m", 0.1, scoring.VerdictZombie)
	old.Timestamp = time.Now().UTC().Add(-2 * time.Hour)
	fresh := testRecord("LDSI_31_0000001F", "m", 0.1, scoring.VerdictZombie)
	if err := store.Put(old); err != nil {
		t.Fatalf("put old: %v", err)
	}
	if err := store.Put(fresh); err != nil {
		t.Fatalf("put fresh: %v", err)
	}

	removed, err := store.Cleanup()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}

	remaining, err := store.QueryByModel("m", 0)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(remaining) != 1 || remaining[0].TestID != "LDSI_31_0000001F" {
		t.Fatalf("remaining = %+v", remaining)
	}
}

func TestStoreCleanupDisabledByDefault(t *testing.T) {
	store := setupTestStore(t)

	old := testRecord("LDSI_32_00000020", "m", 0.1, scoring.VerdictZombie)
	old.Timestamp = time.Now().UTC().Add(-48 * time.Hour)
	if err := store.Put(old); err != nil {
		t.Fatalf("put: %v", err)
	}

	removed, err := store.Cleanup()
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d, want 0 with zero TTL", removed)
	}
}
