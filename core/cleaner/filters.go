package cleaner

import (
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2/analysis"
)

// shapeFilter drops tokens below a minimum rune length and, optionally,
// tokens consisting entirely of digits. Numeric literals carry no lexical
// signal and would otherwise inflate the graph with throwaway nodes.
type shapeFilter struct {
	minLength     int
	removeNumbers bool
}

func newShapeFilter(minLength int, removeNumbers bool) *shapeFilter {
	return &shapeFilter{
		minLength:     minLength,
		removeNumbers: removeNumbers,
	}
}

// Filter processes the input stream, keeping only tokens that pass the
// shape checks.
func (f *shapeFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if f.keep(token) {
			result = append(result, token)
		}
	}
	return result
}

func (f *shapeFilter) keep(token *analysis.Token) bool {
	if utf8.RuneCount(token.Term) < f.minLength {
		return false
	}
	if f.removeNumbers && isNumeric(token.Term) {
		return false
	}
	return true
}

func isNumeric(term []byte) bool {
	if len(term) == 0 {
		return false
	}
	for i := 0; i < len(term); {
		r, size := utf8.DecodeRune(term[i:])
		if !unicode.IsDigit(r) {
			return false
		}
		i += size
	}
	return true
}
