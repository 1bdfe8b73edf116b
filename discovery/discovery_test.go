/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package discovery

import (
	"strings"
	"testing"
)

func TestParseAndInternalNames(t *testing.T) {
	raw := `{
		"main": {
			"java": ["org.example.Calculator", "org.example.util.Helper"]
		},
		"test": {
			"java": ["org.example.CalculatorTest.java"]
		}
	}`

	doc, err := Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	names := doc.InternalNames()
	want := []string{
		"org/example/Calculator",
		"org/example/CalculatorTest",
		"org/example/util/Helper",
	}
	if len(names) != len(want) {
		t.Fatalf("InternalNames() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("InternalNames()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestInternalNamesDeduplicatesAcrossSourceSets(t *testing.T) {
	doc := Document{
		"main": SourceSet{"java": []string{"a.B"}},
		"test": SourceSet{"java": []string{"a.B"}},
	}
	names := doc.InternalNames()
	if len(names) != 1 || names[0] != "a/B" {
		t.Errorf("InternalNames() = %v, want [a/B]", names)
	}
}

func TestParseInvalidJSON(t *testing.T) {
	if _, err := Parse(strings.NewReader("not json")); err == nil {
		t.Error("Parse of invalid JSON should have failed")
	}
}
