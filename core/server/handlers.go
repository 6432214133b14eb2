package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/perihelion-labs/ldsi/core/audit"
	"github.com/perihelion-labs/ldsi/core/config"
	"github.com/perihelion-labs/ldsi/core/errors"
	"github.com/perihelion-labs/ldsi/core/probe"
	"github.com/perihelion-labs/ldsi/core/scoring"
	"github.com/perihelion-labs/ldsi/core/semgraph"
)

// AnalyzeRequest is the POST /api/v1/analyze body. Coefficients and
// Thresholds are sparse overrides onto the server's configuration;
// omitted fields keep their configured values.
type AnalyzeRequest struct {
	TextA        string                `json:"text_a"`
	TextB        string                `json:"text_b"`
	Coefficients *scoring.Coefficients `json:"coefficients,omitempty"`
	Thresholds   *scoring.Thresholds   `json:"thresholds,omitempty"`
}

// ModelsResponse lists registered providers and the advisory catalog.
type ModelsResponse struct {
	Providers       []string      `json:"providers"`
	DefaultProvider string        `json:"default_provider,omitempty"`
	Catalog         probe.Catalog `json:"catalog"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	a, err := scoring.NewSample(req.TextA)
	if err != nil {
		s.writeTiered(w, err)
		return
	}
	b, err := scoring.NewSample(req.TextB)
	if err != nil {
		s.writeTiered(w, err)
		return
	}

	engine := s.engine
	if req.Coefficients != nil || req.Thresholds != nil {
		engine, err = s.overrideEngine(req.Coefficients, req.Thresholds)
		if err != nil {
			s.writeTiered(w, err)
			return
		}
	}

	result, err := engine.Score(a, b)
	if err != nil {
		s.logger.Error("analyze failed", "error", err, "request_id", GetRequestID(r.Context()))
		s.writeTiered(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// overrideEngine builds a one-request engine with the sparse overrides
// merged onto the configured scoring settings. Validation happens in
// the engine constructor.
func (s *Server) overrideEngine(coeffs *scoring.Coefficients, thresholds *scoring.Thresholds) (*scoring.Engine, error) {
	mergedC := s.scoringCfg.Coefficients
	if coeffs != nil {
		config.DeepMerge(&mergedC, coeffs)
	}
	mergedT := s.scoringCfg.Thresholds
	if thresholds != nil {
		config.DeepMerge(&mergedT, thresholds)
	}
	return scoring.NewEngine(
		scoring.WithCoefficients(mergedC),
		scoring.WithThresholds(mergedT),
		scoring.WithCleaner(s.cleaner),
	)
}

func (s *Server) handleBenchmarkStart(w http.ResponseWriter, r *http.Request) {
	if s.registry == nil {
		s.writeError(w, http.StatusServiceUnavailable, "no providers configured")
		return
	}

	var req BenchmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.PromptA == "" || req.PromptB == "" {
		s.writeError(w, http.StatusBadRequest, "prompt_a and prompt_b are required")
		return
	}
	if len(req.Models) == 0 {
		s.writeError(w, http.StatusBadRequest, "at least one model is required")
		return
	}
	for _, spec := range req.Models {
		if spec.ID == "" {
			s.writeError(w, http.StatusBadRequest, "every model needs an id")
			return
		}
	}

	session := s.sessions.create(req)
	s.wg.Add(1)
	go s.runBenchmark(session.ID, req)

	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"id":     session.ID,
		"status": string(SessionPending),
	})
}

func (s *Server) handleBenchmarkStatus(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "benchmark not found")
		return
	}
	s.writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.get(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "benchmark not found")
		return
	}

	model := r.PathValue("model")
	for _, run := range session.Results {
		if (run.Model == model || run.DisplayName == model) && run.Topology != nil {
			s.writeJSON(w, http.StatusOK, run.Topology)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "topology not found")
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	resp := ModelsResponse{
		Providers: make([]string, 0),
		Catalog:   s.catalog,
	}
	if s.registry != nil {
		for _, p := range s.registry.Available() {
			resp.Providers = append(resp.Providers, string(p))
		}
		if def, err := s.registry.Default(); err == nil {
			resp.DefaultProvider = def.Name()
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// benchTarget pairs a resolved provider with the model spec that asked
// for it.
type benchTarget struct {
	spec     ModelSpec
	provider string
}

func (s *Server) runBenchmark(id string, req BenchmarkRequest) {
	defer s.wg.Done()
	ctx := s.baseCtx

	s.sessions.update(id, func(ses *Session) { ses.Status = SessionRunning })

	multi := probe.NewMultiInjector()
	var targets []benchTarget
	var failed []ModelRun
	for _, spec := range req.Models {
		provider, err := s.resolveProvider(spec)
		if err != nil {
			failed = append(failed, ModelRun{
				Model:       spec.ID,
				DisplayName: s.displayName(spec),
				Status:      runFailed,
				Error:       err.Error(),
			})
			continue
		}
		multi.Add(s.displayName(spec), spec.ID, provider)
		targets = append(targets, benchTarget{spec: spec, provider: provider.Name()})
	}

	runs := multi.InjectPairAll(ctx, req.PromptA, req.PromptB, s.scoringCfg.BatchWorkers)

	results := make([]ModelRun, 0, len(runs)+len(failed))
	for i, run := range runs {
		results = append(results, s.scoreRun(targets[i], run))
	}
	results = append(results, failed...)

	status := SessionCompleted
	var sessionErr string
	if err := ctx.Err(); err != nil {
		status = SessionFailed
		sessionErr = err.Error()
	} else if len(results) > 0 && allFailed(results) {
		status = SessionFailed
		sessionErr = "every model failed"
	}

	now := time.Now().UTC()
	s.sessions.update(id, func(ses *Session) {
		ses.Results = results
		ses.Status = status
		ses.Error = sessionErr
		ses.CompletedAt = &now
	})

	if status == SessionCompleted {
		s.persistSession(id, req, results)
	}
	s.logger.Info("benchmark finished",
		"session", id,
		"status", status,
		"models", len(results),
	)
}

func (s *Server) resolveProvider(spec ModelSpec) (probe.Provider, error) {
	if spec.Provider != "" {
		return s.registry.Get(probe.ProviderType(spec.Provider))
	}
	return s.registry.GetForModel(spec.ID)
}

func (s *Server) displayName(spec ModelSpec) string {
	if spec.DisplayName != "" {
		return spec.DisplayName
	}
	if info, ok := s.catalog.Find(spec.ID); ok {
		return info.Name
	}
	return probe.ShortName(spec.ID)
}

func (s *Server) scoreRun(target benchTarget, run probe.PairRun) ModelRun {
	out := ModelRun{
		Model:       run.Model,
		DisplayName: run.Name,
		Provider:    target.provider,
		DurationMS:  run.Elapsed.Milliseconds(),
	}
	if run.Err != nil {
		out.Status = runFailed
		out.Error = run.Err.Error()
		return out
	}

	a, err := scoring.NewSample(run.ResponseA.Content)
	if err == nil {
		var b scoring.TextSample
		b, err = scoring.NewSample(run.ResponseB.Content)
		if err == nil {
			var result scoring.Result
			result, err = s.engine.Score(a, b)
			if err == nil {
				out.Status = runSuccess
				out.ResponseA = run.ResponseA.Content
				out.ResponseB = run.ResponseB.Content
				out.Result = &result
				out.Topology = s.topologyView(run.ResponseB.Content, result.Topology.B)
				return out
			}
		}
	}

	out.Status = runFailed
	out.Error = err.Error()
	return out
}

// topologyView rebuilds the test sample's graph for visualization.
// Node size is the summed weight of incident edges.
func (s *Server) topologyView(text string, metrics semgraph.Metrics) *TopologyView {
	g := semgraph.Build(s.cleaner.Clean(text))
	edges := g.Edges()

	size := make(map[string]float64, g.NodeCount())
	for _, e := range edges {
		size[e.Source] += e.Weight
		size[e.Target] += e.Weight
	}

	tokens := g.Tokens()
	nodes := make([]GraphNode, len(tokens))
	for i, tok := range tokens {
		nodes[i] = GraphNode{ID: tok, Label: tok, Size: size[tok]}
	}

	return &TopologyView{Nodes: nodes, Edges: edges, Metrics: metrics}
}

// persistSession writes each successful run to the audit trail and the
// result store. Append goes first so the stored payload carries the
// chain fields.
func (s *Server) persistSession(id string, req BenchmarkRequest, results []ModelRun) {
	if s.store == nil && s.auditLog == nil {
		return
	}

	promptHash := audit.HashPair(req.PromptA, req.PromptB)
	for _, run := range results {
		if run.Status != runSuccess || run.Result == nil {
			continue
		}
		record := &audit.Record{
			TestID:     audit.NewTestID(),
			Timestamp:  time.Now().UTC(),
			Model:      run.Model,
			Provider:   run.Provider,
			SessionID:  id,
			PromptHash: promptHash,
			DurationMS: run.DurationMS,
			Result:     *run.Result,
		}
		if s.auditLog != nil {
			if err := s.auditLog.Append(record); err != nil {
				s.logger.Error("audit append failed", "session", id, "model", run.Model, "error", err)
			}
		}
		if s.store != nil {
			if err := s.store.Put(record); err != nil {
				s.logger.Error("result store write failed", "session", id, "model", run.Model, "error", err)
			}
		}
	}
}

func allFailed(results []ModelRun) bool {
	for _, run := range results {
		if run.Status == runSuccess {
			return false
		}
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeTiered maps the error taxonomy onto HTTP statuses.
func (s *Server) writeTiered(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch errors.GetTier(err) {
	case errors.TierUserFixable:
		status = http.StatusBadRequest
	case errors.TierExternalRateLimit:
		status = http.StatusTooManyRequests
	case errors.TierExternalDegrading:
		status = http.StatusBadGateway
	case errors.TierTransient:
		status = http.StatusServiceUnavailable
	}
	s.writeError(w, status, err.Error())
}
