package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/perihelion-labs/ldsi/core/scoring"
	_ "modernc.org/sqlite"
)

// =============================================================================
// Result Store - Tiered Scored-Run Storage
// =============================================================================
//
// Store keeps scored runs in two tiers:
// - Hot (L1): Ristretto cache for the runs a session is actively reading
// - Cold (L2): SQLite for durable storage and verdict/model/time queries
//
// Every Put writes through to SQLite; the hot tier only changes lookup
// latency. Evicted hot entries are re-archived in batches.

const (
	// DefaultStorePath is the default SQLite database location.
	DefaultStorePath = ".ldsi/results.db"

	defaultNumCounters = 1e5
	defaultMaxCost     = 1e7
	defaultBufferItems = 64
)

// StoreConfig configures the result store.
type StoreConfig struct {
	// SQLite path (empty = default).
	DBPath string

	// Ristretto configuration.
	NumCounters int64
	MaxCost     int64
	BufferItems int64

	// Eviction batch size (flush to SQLite when reached).
	EvictionBatchSize int

	// ColdTTL expires runs from cold storage. Zero keeps them forever,
	// the audit default.
	ColdTTL time.Duration
}

// DefaultStoreConfig returns sensible defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		DBPath:            DefaultStorePath,
		NumCounters:       int64(defaultNumCounters),
		MaxCost:           int64(defaultMaxCost),
		BufferItems:       defaultBufferItems,
		EvictionBatchSize: 32,
	}
}

// StoreMetrics is returned by Stats().
type StoreMetrics struct {
	HotHits       int64 `json:"hot_hits"`
	HotMisses     int64 `json:"hot_misses"`
	ColdHits      int64 `json:"cold_hits"`
	ColdMisses    int64 `json:"cold_misses"`
	Evictions     int64 `json:"evictions"`
	TotalStored   int64 `json:"total_stored"`
	TotalArchived int64 `json:"total_archived"`
}

type storeMetrics struct {
	mu            sync.RWMutex
	HotHits       int64
	HotMisses     int64
	ColdHits      int64
	ColdMisses    int64
	Evictions     int64
	TotalStored   int64
	TotalArchived int64
}

// Store provides tiered storage for scored runs, keyed by test ID.
type Store struct {
	cache *ristretto.Cache

	db   *sql.DB
	path string

	evictionMu sync.Mutex
	evictions  []*Record

	config  StoreConfig
	metrics storeMetrics
}

// NewStore opens the tiered store, creating the database as needed.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultStorePath
	}
	if cfg.NumCounters == 0 {
		cfg.NumCounters = int64(defaultNumCounters)
	}
	if cfg.MaxCost == 0 {
		cfg.MaxCost = int64(defaultMaxCost)
	}
	if cfg.BufferItems == 0 {
		cfg.BufferItems = defaultBufferItems
	}
	if cfg.EvictionBatchSize == 0 {
		cfg.EvictionBatchSize = 32
	}

	store := &Store{
		config:    cfg,
		evictions: make([]*Record, 0, cfg.EvictionBatchSize),
	}

	if err := store.initSQLite(cfg.DBPath); err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite: %w", err)
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		OnEvict:     store.onEvict,
		OnReject:    store.onReject,
	})
	if err != nil {
		store.db.Close()
		return nil, fmt.Errorf("failed to initialize Ristretto cache: %w", err)
	}
	store.cache = cache

	return store, nil
}

func (s *Store) initSQLite(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return fmt.Errorf("failed to enable WAL: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS results (
		test_id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		provider TEXT,
		verdict TEXT NOT NULL,
		lambda REAL NOT NULL,
		created_at TIMESTAMP NOT NULL,
		archived_at TIMESTAMP,
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_results_verdict ON results(verdict);
	CREATE INDEX IF NOT EXISTS idx_results_model ON results(model);
	CREATE INDEX IF NOT EXISTS idx_results_created ON results(created_at);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// onEvict moves a hot entry to the eviction buffer, flushing the batch
// to SQLite once full.
func (s *Store) onEvict(item *ristretto.Item) {
	record, ok := item.Value.(*Record)
	if !ok {
		return
	}

	s.evictionMu.Lock()
	s.evictions = append(s.evictions, record)

	if len(s.evictions) >= s.config.EvictionBatchSize {
		batch := s.evictions
		s.evictions = make([]*Record, 0, s.config.EvictionBatchSize)
		s.evictionMu.Unlock()

		go s.flushEvictions(batch)
	} else {
		s.evictionMu.Unlock()
	}

	s.metrics.mu.Lock()
	s.metrics.Evictions++
	s.metrics.mu.Unlock()
}

func (s *Store) onReject(item *ristretto.Item) {
	record, ok := item.Value.(*Record)
	if !ok {
		return
	}
	go s.archiveRecord(record)
}

func (s *Store) flushEvictions(records []*Record) {
	if len(records) == 0 {
		return
	}

	tx, err := s.db.Begin()
	if err != nil {
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO results
		(test_id, model, provider, verdict, lambda, created_at, archived_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return
	}
	defer stmt.Close()

	now := time.Now()
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			continue
		}
		if _, err := stmt.Exec(
			record.TestID, record.Model, record.Provider,
			string(record.Result.Verdict), record.Result.Lambda,
			record.Timestamp, now, string(payload),
		); err != nil {
			continue
		}
	}

	tx.Commit()

	s.metrics.mu.Lock()
	s.metrics.TotalArchived += int64(len(records))
	s.metrics.mu.Unlock()
}

func (s *Store) archiveRecord(record *Record) {
	s.flushEvictions([]*Record{record})
}

// =============================================================================
// Public API
// =============================================================================

// Put stores a scored run. The cold write is synchronous; the run is
// durable when Put returns.
func (s *Store) Put(record *Record) error {
	if record.TestID == "" {
		return fmt.Errorf("record has no test ID")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(`
		INSERT OR REPLACE INTO results
		(test_id, model, provider, verdict, lambda, created_at, archived_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?)
	`,
		record.TestID, record.Model, record.Provider,
		string(record.Result.Verdict), record.Result.Lambda,
		record.Timestamp, string(payload),
	); err != nil {
		return err
	}

	s.cache.Set(record.TestID, record, record.Cost())

	s.metrics.mu.Lock()
	s.metrics.TotalStored++
	s.metrics.mu.Unlock()
	return nil
}

// Ping verifies the cold tier is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get retrieves a run by test ID, hot tier first. Cold hits are
// promoted back into the hot tier.
func (s *Store) Get(testID string) (*Record, bool) {
	if val, ok := s.cache.Get(testID); ok {
		s.metrics.mu.Lock()
		s.metrics.HotHits++
		s.metrics.mu.Unlock()
		return val.(*Record), true
	}

	s.metrics.mu.Lock()
	s.metrics.HotMisses++
	s.metrics.mu.Unlock()

	record, err := s.getFromCold(testID)
	if err == nil && record != nil {
		s.metrics.mu.Lock()
		s.metrics.ColdHits++
		s.metrics.mu.Unlock()

		s.cache.Set(testID, record, record.Cost())
		return record, true
	}

	s.metrics.mu.Lock()
	s.metrics.ColdMisses++
	s.metrics.mu.Unlock()
	return nil, false
}

func (s *Store) getFromCold(testID string) (*Record, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM results WHERE test_id = ?`, testID).Scan(&payload)
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal([]byte(payload), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// QueryByVerdict returns runs with the given verdict, newest first.
func (s *Store) QueryByVerdict(verdict scoring.Verdict, limit int) ([]*Record, error) {
	query := `SELECT payload FROM results WHERE verdict = ? ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.queryPayloads(query, string(verdict))
}

// QuerySince returns runs created at or after the cutoff, newest first.
func (s *Store) QuerySince(since time.Time, limit int) ([]*Record, error) {
	query := `SELECT payload FROM results WHERE created_at >= ? ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.queryPayloads(query, since)
}

// QueryByModel returns runs for one model, newest first.
func (s *Store) QueryByModel(model string, limit int) ([]*Record, error) {
	query := `SELECT payload FROM results WHERE model = ? ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	return s.queryPayloads(query, model)
}

func (s *Store) queryPayloads(query string, args ...interface{}) ([]*Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			continue
		}
		var record Record
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			continue
		}
		records = append(records, &record)
	}
	return records, rows.Err()
}

// Cleanup removes runs older than ColdTTL from cold storage.
func (s *Store) Cleanup() (int64, error) {
	if s.config.ColdTTL == 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-s.config.ColdTTL)
	result, err := s.db.Exec(`DELETE FROM results WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Flush forces all pending evictions to be written to SQLite.
func (s *Store) Flush() error {
	s.evictionMu.Lock()
	batch := s.evictions
	s.evictions = make([]*Record, 0, s.config.EvictionBatchSize)
	s.evictionMu.Unlock()

	if len(batch) > 0 {
		s.flushEvictions(batch)
	}
	return nil
}

// Close flushes pending writes and closes the store.
func (s *Store) Close() error {
	s.Flush()
	s.cache.Close()
	return s.db.Close()
}

// Stats returns a snapshot of current store statistics.
func (s *Store) Stats() StoreMetrics {
	s.metrics.mu.RLock()
	defer s.metrics.mu.RUnlock()
	return StoreMetrics{
		HotHits:       s.metrics.HotHits,
		HotMisses:     s.metrics.HotMisses,
		ColdHits:      s.metrics.ColdHits,
		ColdMisses:    s.metrics.ColdMisses,
		Evictions:     s.metrics.Evictions,
		TotalStored:   s.metrics.TotalStored,
		TotalArchived: s.metrics.TotalArchived,
	}
}
