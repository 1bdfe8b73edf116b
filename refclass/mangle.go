/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package refclass

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tudalgo/classmerge/classfile"
)

// newMangleSuffix derives the suffix appended, separated by "$", to every
// synthetic lambda helper retained from a reference class (spec §4.4). It is
// a name-based (SHA-1) UUID of the reference class's internal name: the same
// class always gets the same suffix, so the emitted bytes do not vary across
// runs, while two reference classes that both declare a helper of the same
// name still get distinct suffixes.
func newMangleSuffix(className string) string {
	return "ref$" + strings.ReplaceAll(uuid.NewSHA1(uuid.NameSpaceURL, []byte(className)).String(), "-", "")
}

// MangleLambdaHelpers renames every synthetic lambda helper method in cf and
// rewrites both direct invocations and invokedynamic bootstrap handles
// inside cf to the renamed target (spec §4.4). It mutates cf in place.
func MangleLambdaHelpers(cf *classfile.ClassFile) error {
	suffix := newMangleSuffix(cf.ThisClass)
	renamed := map[string]string{} // old name -> new name, methods only

	for _, m := range cf.Methods {
		if !m.IsLambdaHelper() {
			continue
		}
		newName := m.Name + "$" + suffix
		renamed[m.Name] = newName
		m.Name = newName
	}
	if len(renamed) == 0 {
		return nil
	}

	// Direct call sites: any invokestatic/invokespecial/invokevirtual inside
	// this same class naming the old helper.
	for _, m := range cf.Methods {
		if m.Code == nil {
			continue
		}
		for i, insn := range m.Code.Instructions {
			mi, ok := insn.(classfile.MethodInstruction)
			if !ok || mi.Owner != cf.ThisClass {
				continue
			}
			if newName, ok := renamed[mi.Name]; ok {
				mi.Name = newName
				m.Code.Instructions[i] = mi
			}
		}
	}

	// Dynamic-invocation bootstrap handles: a lambda helper is referenced
	// indirectly through a CONSTANT_MethodHandle entry that a bootstrap
	// argument (or the bootstrap method reference itself) points at, not
	// through the invokedynamic instruction's own (call-site) name -- that
	// name is the functional interface's single abstract method (e.g.
	// "run"), never the synthetic helper's. Retargeting the call site
	// therefore means repointing every CONSTANT_MethodHandle whose
	// Methodref names a renamed helper at a freshly added Methodref for the
	// renamed name (spec §4.4: "rewrite... dynamic-invocation bootstrap
	// handles").
	for i, e := range cf.CP.Entries {
		mh, ok := e.(classfile.CPMethodHandle)
		if !ok {
			continue
		}
		target, err := cf.CP.At(mh.ReferenceIndex)
		if err != nil {
			continue
		}
		var classIdx, ntIdx int
		iface := false
		switch t := target.(type) {
		case classfile.CPMethodref:
			classIdx, ntIdx = t.ClassIndex, t.NameAndTypeIndex
		case classfile.CPInterfaceMethodref:
			classIdx, ntIdx = t.ClassIndex, t.NameAndTypeIndex
			iface = true
		default:
			continue
		}
		owner, err := cf.CP.ClassName(classIdx)
		if err != nil || owner != cf.ThisClass {
			continue
		}
		name, desc, err := cf.CP.NameAndType(ntIdx)
		if err != nil {
			continue
		}
		newName, ok := renamed[name]
		if !ok {
			continue
		}
		newRefIdx := cf.CP.MethodrefIndex(owner, newName, desc, iface)
		mh.ReferenceIndex = newRefIdx
		cf.CP.Entries[i] = mh
	}

	return nil
}
