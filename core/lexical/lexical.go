// Package lexical measures lexical diversity of a token sequence: Shannon
// entropy over the token frequency distribution, type-token ratio, and the
// hapax legomenon ratio. All functions are total; degenerate inputs
// produce zeros rather than errors.
package lexical

import (
	"math"
	"strings"
)

// Measurement holds the diversity breakdown for one token sequence.
type Measurement struct {
	Shannon      float64 `json:"shannon"`
	TTR          float64 `json:"ttr"`
	HapaxRatio   float64 `json:"hapax_ratio"`
	TotalTokens  int     `json:"total_tokens"`
	UniqueTokens int     `json:"unique_tokens"`
}

// Ratio sentinels for the degenerate reference cases. A silent reference
// with a non-silent test saturates the composite's entropy term while
// keeping every serialized value finite.
const (
	ratioBothSilent      = 1.0
	ratioSilentReference = 3.0
)

// Analyze computes the diversity measurement for a token sequence.
func Analyze(tokens []string) Measurement {
	if len(tokens) == 0 {
		return Measurement{}
	}

	freqs := frequencies(tokens)
	m := Measurement{
		TotalTokens:  len(tokens),
		UniqueTokens: len(freqs),
	}
	m.Shannon = shannon(freqs, len(tokens))
	m.TTR = float64(m.UniqueTokens) / float64(m.TotalTokens)
	m.HapaxRatio = hapaxRatio(freqs)
	return m
}

// NGramEntropy computes Shannon entropy over the sequence's n-grams.
// Windows shorter than n yield 0.
func NGramEntropy(tokens []string, n int) float64 {
	if n < 1 || len(tokens) < n {
		return 0
	}
	total := len(tokens) - n + 1
	freqs := make(map[string]int, total)
	for i := 0; i < total; i++ {
		freqs[strings.Join(tokens[i:i+n], " ")]++
	}
	return shannon(freqs, total)
}

// Ratio computes H(B)/H(A) under the degenerate-reference policy: both
// silent reads as parity, a silent reference against a speaking test
// reads as maximal divergence.
func Ratio(shannonA, shannonB float64) float64 {
	switch {
	case shannonA > 0:
		return shannonB / shannonA
	case shannonB > 0:
		return ratioSilentReference
	default:
		return ratioBothSilent
	}
}

func frequencies(tokens []string) map[string]int {
	freqs := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freqs[tok]++
	}
	return freqs
}

func shannon(freqs map[string]int, total int) float64 {
	if total == 0 {
		return 0
	}
	h := 0.0
	n := float64(total)
	for _, count := range freqs {
		p := float64(count) / n
		h -= p * math.Log2(p)
	}
	return h
}

func hapaxRatio(freqs map[string]int) float64 {
	if len(freqs) == 0 {
		return 0
	}
	hapax := 0
	for _, count := range freqs {
		if count == 1 {
			hapax++
		}
	}
	return float64(hapax) / float64(len(freqs))
}
