/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package transform

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/tudalgo/classmerge/header"
)

// SignatureMismatchError is spec §7's non-fatal kind: a student member's
// type disagrees with the bound reference in a way name-translation cannot
// bridge. The class still emits (methodTransformer.Transform never returns
// this as an error to its caller), and no code path in this package
// constructs one: trapped methods are counted in
// ClassTransformer.MismatchCount instead, which feeds the metrics package's
// "signature mismatches trapped" counter.
type SignatureMismatchError struct {
	Declared, Computed header.MethodHeader
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("transform: %s.%s%s disagrees with bound reference %s.%s%s beyond name-translation",
		e.Declared.Owner, e.Declared.Name, e.Declared.Descriptor,
		e.Computed.Owner, e.Computed.Name, e.Computed.Descriptor)
}

// transformErrf attaches the detecting call's file/line, the same shape as
// classfile.cfe/context.configErrf throughout this repo.
func transformErrf(format string, args ...interface{}) error {
	loc := ""
	if pc, _, _, ok := runtime.Caller(1); ok {
		fn := runtime.FuncForPC(pc)
		file, line := fn.FileLine(pc)
		loc = filepath.Base(file) + ":" + strconv.Itoa(line)
	}
	return fmt.Errorf("transform (%s): %s", loc, fmt.Sprintf(format, args...))
}
