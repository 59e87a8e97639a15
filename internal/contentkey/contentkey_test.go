package contentkey_test

import (
	"testing"

	"bindery/internal/contentkey"
)

func TestKeyIsOrderIndependent(t *testing.T) {
	a := contentkey.Key([]string{"f1", "f2", "f3"})
	b := contentkey.Key([]string{"f3", "f1", "f2"})
	if a == "" {
		t.Fatal("expected non-empty key")
	}
	if a != b {
		t.Fatalf("permutations produced different keys: %s vs %s", a, b)
	}
}

func TestKeyIgnoresDuplicates(t *testing.T) {
	a := contentkey.Key([]string{"f1", "f2"})
	b := contentkey.Key([]string{"f2", "f1", "f2", "f1"})
	if a != b {
		t.Fatalf("duplicates changed the key: %s vs %s", a, b)
	}
}

func TestKeyLength(t *testing.T) {
	key := contentkey.Key([]string{"f1"})
	if len(key) != contentkey.KeyLength {
		t.Fatalf("expected %d-char key, got %d (%s)", contentkey.KeyLength, len(key), key)
	}
}

func TestKeyDistinguishesSets(t *testing.T) {
	a := contentkey.Key([]string{"f1", "f2"})
	b := contentkey.Key([]string{"f1", "f3"})
	if a == b {
		t.Fatalf("different file sets produced the same key: %s", a)
	}
}

func TestKeyEmptySet(t *testing.T) {
	if key := contentkey.Key(nil); key != "" {
		t.Fatalf("expected empty key for empty set, got %q", key)
	}
}
