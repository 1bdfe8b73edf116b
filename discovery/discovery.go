/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package discovery is the thin collaborator spec §6 calls peripheral: a
// reader for the JSON document that enumerates the submission source set
// ("mapping source-set name -> map from language to list of fully-qualified
// source names"). It has no opinion on where that JSON comes from (a build
// tool's task output, a fixed path, stdin) and no opinion on the class-file
// layout downstream of it -- context.New's enumeratedSubmissionNames
// parameter is the only thing this package feeds.
package discovery

import (
	"encoding/json"
	"io"
	"sort"
	"strings"
)

// SourceSet is one entry of the discovery document: language ("java",
// "kotlin") to fully-qualified source names (dotted, optionally with a
// language-appropriate file extension, e.g. "org.example.Calculator.java").
type SourceSet map[string][]string

// Document is the full discovery JSON: source-set name (e.g. "main",
// "test") -> SourceSet entry.
type Document map[string]SourceSet

// knownExtensions strips a language-appropriate suffix before normalizing to
// an internal name. Only "java" is named in spec §6 ("strips the .java
// suffix"); other languages compiling to the same class-file format keep
// their own source extension stripped the same way, since the internal
// name this system binds to is always the compiled class's name, never the
// source file's.
var knownExtensions = map[string]string{
	"java":   ".java",
	"kotlin": ".kt",
	"groovy": ".groovy",
	"scala":  ".scala",
}

// Parse decodes a discovery document from r.
func Parse(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// InternalNames returns every source name across every source-set and
// language in doc, normalized to bytecode internal form (dotted -> slash,
// source extension stripped), deduplicated and sorted for deterministic
// downstream iteration (spec §5 "Determinism" applies to anything the
// fuzzy mapper consumes, and enumeratedSubmissionNames feeds directly into
// it via context.New).
func (doc Document) InternalNames() []string {
	seen := map[string]bool{}
	for _, sourceSet := range doc {
		for lang, names := range sourceSet {
			ext := knownExtensions[lang]
			for _, name := range names {
				seen[toInternalName(name, ext)] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// toInternalName strips the language's file extension (if present) and
// converts a dotted fully-qualified source name to bytecode internal form.
// An unrecognized language has no known extension to strip; its name is
// converted as-is, leaving any stray extension for the caller to catch at
// class-load time rather than silently mangling it.
func toInternalName(name, ext string) string {
	if ext != "" {
		name = strings.TrimSuffix(name, ext)
	}
	return strings.ReplaceAll(name, ".", "/")
}
