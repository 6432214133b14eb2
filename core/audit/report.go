package audit

import (
	"time"
)

// VerdictStats aggregates runs sharing one verdict.
type VerdictStats struct {
	Verdict    string  `json:"verdict"`
	Count      int     `json:"count"`
	MeanLambda float64 `json:"mean_lambda"`
	MinLambda  float64 `json:"min_lambda"`
	MaxLambda  float64 `json:"max_lambda"`
}

// ModelStats aggregates runs against one model.
type ModelStats struct {
	Model      string         `json:"model"`
	Count      int            `json:"count"`
	MeanLambda float64        `json:"mean_lambda"`
	MinLambda  float64        `json:"min_lambda"`
	MaxLambda  float64        `json:"max_lambda"`
	Verdicts   map[string]int `json:"verdicts"`
}

// Report is the store-wide aggregate view of scored runs.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Total       int            `json:"total"`
	ByVerdict   []VerdictStats `json:"by_verdict"`
	ByModel     []ModelStats   `json:"by_model"`
}

// Summary aggregates the cold tier per verdict and per model. Rows are
// sorted by verdict and model name so output is stable.
func (s *Store) Summary() (*Report, error) {
	report := &Report{GeneratedAt: time.Now()}

	if err := s.summarizeVerdicts(report); err != nil {
		return nil, err
	}
	if err := s.summarizeModels(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *Store) summarizeVerdicts(report *Report) error {
	rows, err := s.db.Query(`
		SELECT verdict, COUNT(*), AVG(lambda), MIN(lambda), MAX(lambda)
		FROM results
		GROUP BY verdict
		ORDER BY verdict
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var stats VerdictStats
		if err := rows.Scan(&stats.Verdict, &stats.Count, &stats.MeanLambda, &stats.MinLambda, &stats.MaxLambda); err != nil {
			return err
		}
		report.ByVerdict = append(report.ByVerdict, stats)
		report.Total += stats.Count
	}
	return rows.Err()
}

func (s *Store) summarizeModels(report *Report) error {
	rows, err := s.db.Query(`
		SELECT model, COUNT(*), AVG(lambda), MIN(lambda), MAX(lambda)
		FROM results
		GROUP BY model
		ORDER BY model
	`)
	if err != nil {
		return err
	}

	var order []string
	byModel := make(map[string]*ModelStats)
	for rows.Next() {
		stats := &ModelStats{Verdicts: make(map[string]int)}
		if err := rows.Scan(&stats.Model, &stats.Count, &stats.MeanLambda, &stats.MinLambda, &stats.MaxLambda); err != nil {
			rows.Close()
			return err
		}
		byModel[stats.Model] = stats
		order = append(order, stats.Model)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	verdictRows, err := s.db.Query(`
		SELECT model, verdict, COUNT(*)
		FROM results
		GROUP BY model, verdict
	`)
	if err != nil {
		return err
	}
	defer verdictRows.Close()

	for verdictRows.Next() {
		var model, verdict string
		var count int
		if err := verdictRows.Scan(&model, &verdict, &count); err != nil {
			return err
		}
		if stats, ok := byModel[model]; ok {
			stats.Verdicts[verdict] = count
		}
	}
	if err := verdictRows.Err(); err != nil {
		return err
	}

	for _, model := range order {
		report.ByModel = append(report.ByModel, *byModel[model])
	}
	return nil
}
