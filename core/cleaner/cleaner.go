// Package cleaner normalizes raw model output into the token sequence the
// scoring metrics consume. The chain tokenizes on Unicode word boundaries,
// NFC-normalizes, lowercases, strips static French and English stopwords,
// drops short and numeric tokens, then applies a dynamic Zipf cut for
// tokens that dominate the sample.
package cleaner

import (
	"math"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	"github.com/blevesearch/bleve/v2/analysis/token/unicodenorm"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"

	"github.com/perihelion-labs/ldsi/core/errors"
)

// Config controls the cleaning chain.
type Config struct {
	// MinTokenLength drops tokens shorter than this many runes.
	MinTokenLength int `json:"min_token_length" yaml:"min_token_length"`

	// RemoveNumbers drops tokens consisting entirely of digits.
	RemoveNumbers bool `json:"remove_numbers" yaml:"remove_numbers"`

	// DynamicThreshold is the Zipf cut ratio. Tokens whose count reaches
	// max(ceil(total*threshold), 3) are treated as sample-local stopwords.
	// Zero disables the cut.
	DynamicThreshold float64 `json:"dynamic_threshold" yaml:"dynamic_threshold"`

	// Languages selects the static stopword lists. Supported: "en", "fr".
	Languages []string `json:"languages" yaml:"languages"`
}

// DefaultConfig returns the cleaning configuration used by the scoring
// pipeline.
func DefaultConfig() Config {
	return Config{
		MinTokenLength:   2,
		RemoveNumbers:    true,
		DynamicThreshold: 0.01,
		Languages:        []string{"en", "fr"},
	}
}

// Stats counts token removals per stage of one cleaning run.
type Stats struct {
	RawTokens   int `json:"raw_tokens"`
	Stopped     int `json:"stopped"`
	Shaped      int `json:"shaped"`
	ZipfDropped int `json:"zipf_dropped"`
	Kept        int `json:"kept"`
}

// Cleaner runs the cleaning chain. Safe for concurrent use.
type Cleaner struct {
	cfg        Config
	analyzer   *analysis.DefaultAnalyzer
	stopFilter *stop.StopTokensFilter
	shape      *shapeFilter
}

var stopWordSources = map[string][]byte{
	"en": en.EnglishStopWords,
	"fr": fr.FrenchStopWords,
}

// New builds a cleaner from config. Unknown languages are rejected.
func New(cfg Config) (*Cleaner, error) {
	stopMap := analysis.NewTokenMap()
	for _, lang := range cfg.Languages {
		source, ok := stopWordSources[lang]
		if !ok {
			return nil, errors.InvalidInputf("unsupported stopword language %q", lang)
		}
		if err := stopMap.LoadBytes(source); err != nil {
			return nil, errors.WrapWithTier(err, errors.TierPermanent, "loading stopwords")
		}
	}

	return &Cleaner{
		cfg: cfg,
		analyzer: &analysis.DefaultAnalyzer{
			Tokenizer: bleveunicode.NewUnicodeTokenizer(),
			TokenFilters: []analysis.TokenFilter{
				unicodenorm.MustNewUnicodeNormalizeFilter(unicodenorm.NFC),
				lowercase.NewLowerCaseFilter(),
			},
		},
		stopFilter: stop.NewStopTokensFilter(stopMap),
		shape:      newShapeFilter(cfg.MinTokenLength, cfg.RemoveNumbers),
	}, nil
}

// Clean returns the cleaned token sequence for a text.
func (c *Cleaner) Clean(text string) []string {
	tokens, _ := c.CleanDetailed(text)
	return tokens
}

// CleanDetailed returns the cleaned tokens along with per-stage removal
// counts.
func (c *Cleaner) CleanDetailed(text string) ([]string, Stats) {
	var stats Stats

	stream := c.analyzer.Analyze([]byte(text))
	stats.RawTokens = len(stream)

	stream = c.stopFilter.Filter(stream)
	stats.Stopped = stats.RawTokens - len(stream)

	stream = c.shape.Filter(stream)
	stats.Shaped = stats.RawTokens - stats.Stopped - len(stream)

	tokens := make([]string, 0, len(stream))
	for _, tok := range stream {
		tokens = append(tokens, string(tok.Term))
	}

	kept := c.zipfCut(tokens)
	stats.ZipfDropped = len(tokens) - len(kept)
	stats.Kept = len(kept)
	return kept, stats
}

// zipfCut removes tokens that saturate the sample. The cut point scales
// with sample size but never drops below three occurrences, so short
// texts keep their full vocabulary.
func (c *Cleaner) zipfCut(tokens []string) []string {
	if c.cfg.DynamicThreshold <= 0 || len(tokens) == 0 {
		return tokens
	}

	cutoff := int(math.Ceil(float64(len(tokens)) * c.cfg.DynamicThreshold))
	if cutoff < 3 {
		cutoff = 3
	}

	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}

	kept := tokens[:0:0]
	for _, tok := range tokens {
		if counts[tok] >= cutoff {
			continue
		}
		kept = append(kept, tok)
	}
	return kept
}
