package cleaner

import (
	"crypto/sha256"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memoized wraps a Cleaner with an LRU memo of cleaned token sequences.
// The server pipeline cleans the same response once for scoring and again
// for the topology view; the memo makes the second pass free.
type Memoized struct {
	cleaner *Cleaner
	cache   *lru.Cache[[32]byte, []string]
}

// NewMemoized builds a memoizing wrapper holding at most size entries.
func NewMemoized(cleaner *Cleaner, size int) (*Memoized, error) {
	cache, err := lru.New[[32]byte, []string](size)
	if err != nil {
		return nil, err
	}
	return &Memoized{cleaner: cleaner, cache: cache}, nil
}

// Clean returns the cleaned token sequence, serving repeats from the memo.
// Callers receive a fresh copy each time so cached entries stay immutable.
func (m *Memoized) Clean(text string) []string {
	key := sha256.Sum256([]byte(text))
	if tokens, ok := m.cache.Get(key); ok {
		return cloneTokens(tokens)
	}

	tokens := m.cleaner.Clean(text)
	m.cache.Add(key, cloneTokens(tokens))
	return tokens
}

// Len reports the number of memoized sequences.
func (m *Memoized) Len() int {
	return m.cache.Len()
}

func cloneTokens(tokens []string) []string {
	out := make([]string, len(tokens))
	copy(out, tokens)
	return out
}
