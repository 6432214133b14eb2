package audit

import (
	"regexp"
	"testing"
)

func TestNewTestID(t *testing.T) {
	id := NewTestID()
	matched, err := regexp.MatchString(`^LDSI_\d+_[0-9A-F]{8}$`, id)
	if err != nil {
		t.Fatal(err)
	}
	if !matched {
		t.Fatalf("unexpected test ID format: %s", id)
	}
}

func TestHashText(t *testing.T) {
	h := HashText("la temperature est de vingt-cinq degres")
	if len(h) != 64 {
		t.Fatalf("want 64 hex chars, got %d", len(h))
	}
	if h != HashText("la temperature est de vingt-cinq degres") {
		t.Fatal("hash must be deterministic")
	}
	if h == HashText("la temperature est de 25 degres") {
		t.Fatal("distinct texts must hash differently")
	}
}

func TestHashPairBoundaries(t *testing.T) {
	if HashPair("ab", "c") == HashPair("a", "bc") {
		t.Fatal("pair hash must separate the two texts")
	}
	if HashPair("a", "b") != HashPair("a", "b") {
		t.Fatal("pair hash must be deterministic")
	}
}
