/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

// Package refclass loads reference (a.k.a. "solution") class-files (spec
// §4.4): a read-only resource tree under a distinct extension so the host's
// class loader never resolves them as ordinary classes, plus an optional
// bundled zip archive. Each reference class's header, field descriptors, and
// full method bodies are retained for later replay by the transform package.
package refclass

import (
	"sort"

	"github.com/tudalgo/classmerge/classfile"
)

// Extension is the file suffix reference class-files carry on disk instead
// of ".class" (spec §4.4, §6 "an alternate extension to avoid being picked
// up by a standard class loader").
const Extension = ".bin"

// ReferenceClass holds a reference's parsed header plus name-indexed field
// and (name,descriptor)-indexed method maps (spec §3 "Reference class
// object"), so submission analysis and the method transformer can look a
// member up without re-scanning the ClassFile on every access.
type ReferenceClass struct {
	File *classfile.ClassFile

	FieldsByName  map[string]*classfile.FieldInfo
	MethodsByName map[MethodKey]*classfile.MethodInfo
}

// MethodKey is the (name, descriptor) identity a MethodHeader also uses.
type MethodKey struct {
	Name       string
	Descriptor string
}

// FromClassFile indexes cf's fields and methods into a ReferenceClass. Method
// bodies (cf.Methods[i].Code) are kept exactly as classfile.Parse produced
// them -- a replayable instruction sequence including try/catch regions,
// frames, line tables, and local variable tables (spec §3 "Method bodies are
// retained in full as a replayable instruction sequence").
func FromClassFile(cf *classfile.ClassFile) *ReferenceClass {
	rc := &ReferenceClass{
		File:          cf,
		FieldsByName:  map[string]*classfile.FieldInfo{},
		MethodsByName: map[MethodKey]*classfile.MethodInfo{},
	}
	for _, f := range cf.Fields {
		rc.FieldsByName[f.Name] = f
	}
	for _, m := range cf.Methods {
		rc.MethodsByName[MethodKey{Name: m.Name, Descriptor: m.Descriptor}] = m
	}
	return rc
}

// Field looks up a declared field by name.
func (rc *ReferenceClass) Field(name string) (*classfile.FieldInfo, bool) {
	f, ok := rc.FieldsByName[name]
	return f, ok
}

// Method looks up a declared method by (name, descriptor).
func (rc *ReferenceClass) Method(name, descriptor string) (*classfile.MethodInfo, bool) {
	m, ok := rc.MethodsByName[MethodKey{Name: name, Descriptor: descriptor}]
	return m, ok
}

// FieldNames returns every declared field name, sorted, used by
// similarity.Match as the column set when binding a submission's fields
// against this reference (spec §4.5). FieldsByName is a Go map, so
// returning its iteration order directly
// would make emission order -- and therefore the emitted class-file's bytes
// -- nondeterministic across runs, violating spec §5's "emitted bytecode for
// the same inputs must be byte-identical across runs".
func (rc *ReferenceClass) FieldNames() []string {
	names := make([]string, 0, len(rc.FieldsByName))
	for n := range rc.FieldsByName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (rc *ReferenceClass) MethodKeys() []MethodKey {
	keys := make([]MethodKey, 0, len(rc.MethodsByName))
	for k := range rc.MethodsByName {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Name != keys[j].Name {
			return keys[i].Name < keys[j].Name
		}
		return keys[i].Descriptor < keys[j].Descriptor
	})
	return keys
}
