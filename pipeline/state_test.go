// ABOUTME: Tests for State snapshot semantics: clone isolation, merge, and typed accessors.
package pipeline

import (
	"reflect"
	"testing"
)

func TestCloneIsIndependent(t *testing.T) {
	s := State{"a": 1.0, "b": "x"}
	c := s.Clone()

	c["a"] = 2.0
	c["c"] = "new"

	if s["a"] != 1.0 {
		t.Errorf("mutating clone changed original: a = %v", s["a"])
	}
	if _, ok := s["c"]; ok {
		t.Error("key added to clone leaked into original")
	}
}

func TestMergeReturnsNewSnapshot(t *testing.T) {
	s := State{"a": 1.0}
	m := s.Merge(map[string]any{"a": 2.0, "b": 3.0})

	if s["a"] != 1.0 {
		t.Errorf("Merge mutated receiver: a = %v", s["a"])
	}
	if m["a"] != 2.0 || m["b"] != 3.0 {
		t.Errorf("merged snapshot wrong: %v", m)
	}
}

func TestMissingKeys(t *testing.T) {
	s := State{"present": 1.0}

	missing := s.MissingKeys([]string{"present", "absent_1", "absent_2"})
	want := []string{"absent_1", "absent_2"}
	if !reflect.DeepEqual(missing, want) {
		t.Errorf("MissingKeys = %v, want %v", missing, want)
	}

	if s.MissingKeys([]string{"present"}) != nil {
		t.Error("expected nil for fully present key set")
	}
	if !s.Has("present") {
		t.Error("Has(present) = false")
	}
	if s.Has("present", "absent_1") {
		t.Error("Has with an absent key = true")
	}
}

func TestRows(t *testing.T) {
	table := []map[string]any{{"x": 1.0}}
	s := State{"table": table, "scalar": 5.0}

	if got := s.Rows("table"); !reflect.DeepEqual(got, table) {
		t.Errorf("Rows(table) = %v", got)
	}
	if s.Rows("scalar") != nil {
		t.Error("Rows on a scalar value should be nil")
	}
	if s.Rows("absent") != nil {
		t.Error("Rows on an absent key should be nil")
	}
}

func TestFloatAccessor(t *testing.T) {
	s := State{"f": 1.5, "i": 7, "str": "nope"}

	if got := s.Float("f", 0); got != 1.5 {
		t.Errorf("Float(f) = %v", got)
	}
	if got := s.Float("i", 0); got != 7.0 {
		t.Errorf("Float(i) = %v", got)
	}
	if got := s.Float("str", 42); got != 42 {
		t.Errorf("Float on non-numeric should use default, got %v", got)
	}
	if got := s.Float("absent", 42); got != 42 {
		t.Errorf("Float on absent key should use default, got %v", got)
	}
}

func TestKeysSorted(t *testing.T) {
	s := State{"c": 1, "a": 2, "b": 3}
	want := []string{"a", "b", "c"}
	if got := s.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys = %v, want %v", got, want)
	}
}
