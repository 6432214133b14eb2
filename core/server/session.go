package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/perihelion-labs/ldsi/core/scoring"
	"github.com/perihelion-labs/ldsi/core/semgraph"
)

// SessionStatus is a benchmark session's lifecycle state.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// ModelSpec names one model to benchmark. Provider may be empty to let
// the registry route by model ID prefix.
type ModelSpec struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// BenchmarkRequest is the POST /api/v1/benchmark body: one prompt pair
// fanned across a set of models.
type BenchmarkRequest struct {
	PromptA string      `json:"prompt_a"`
	PromptB string      `json:"prompt_b"`
	Models  []ModelSpec `json:"models"`
}

// ModelRun is one model's outcome inside a session.
type ModelRun struct {
	Model       string          `json:"model"`
	DisplayName string          `json:"display_name"`
	Provider    string          `json:"provider,omitempty"`
	Status      string          `json:"status"`
	ResponseA   string          `json:"response_a,omitempty"`
	ResponseB   string          `json:"response_b,omitempty"`
	Result      *scoring.Result `json:"result,omitempty"`
	Topology    *TopologyView   `json:"topology,omitempty"`
	Error       string          `json:"error,omitempty"`
	DurationMS  int64           `json:"duration_ms,omitempty"`
}

const (
	runSuccess = "success"
	runFailed  = "failed"
)

// TopologyView is the graph payload a visualization needs: labeled
// nodes sized by incident weight, the weighted edge list, and the
// structural metrics of the test sample.
type TopologyView struct {
	Nodes   []GraphNode      `json:"nodes"`
	Edges   []semgraph.Edge  `json:"edges"`
	Metrics semgraph.Metrics `json:"metrics"`
}

// GraphNode is one token node in the view.
type GraphNode struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Size  float64 `json:"size"`
}

// Session is one benchmark run, from acceptance to completion.
type Session struct {
	ID          string           `json:"id"`
	Status      SessionStatus    `json:"status"`
	Request     BenchmarkRequest `json:"request"`
	Results     []ModelRun       `json:"results"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// sessionStore keeps sessions in memory. Completed sessions also land
// in the audit store, so restarts lose only the in-flight ones.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func newSessionStore() *sessionStore {
	return &sessionStore{sessions: make(map[string]*Session)}
}

func (st *sessionStore) create(request BenchmarkRequest) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		Status:    SessionPending,
		Request:   request,
		CreatedAt: time.Now().UTC(),
	}
	st.mu.Lock()
	st.sessions[session.ID] = session
	st.mu.Unlock()
	return session
}

// get returns a snapshot copy. Results entries share their Result and
// Topology pointers, which are write-once before publication.
func (st *sessionStore) get(id string) (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	session, ok := st.sessions[id]
	if !ok {
		return Session{}, false
	}
	snapshot := *session
	snapshot.Results = make([]ModelRun, len(session.Results))
	copy(snapshot.Results, session.Results)
	return snapshot, true
}

func (st *sessionStore) update(id string, fn func(*Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if session, ok := st.sessions[id]; ok {
		fn(session)
	}
}

func (st *sessionStore) len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
