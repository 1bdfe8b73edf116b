/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
)

// ClassFormatError is raised by Parse for any malformed input. It mirrors
// the teacher's cfe() helper in classloader.go: a fixed prefix plus the
// file/line of the call site that detected the problem, which in practice is
// what makes a malformed-class bug report actionable.
type ClassFormatError struct {
	Msg      string
	Location string
}

func (e *ClassFormatError) Error() string {
	if e.Location == "" {
		return "classfile: class format error: " + e.Msg
	}
	return "classfile: class format error: " + e.Msg + "\n  detected at: " + e.Location
}

// cfe builds a ClassFormatError with the caller's file/line attached, same
// shape as classloader.go's cfe().
func cfe(msg string) error {
	loc := ""
	if pc, _, _, ok := runtime.Caller(1); ok {
		fn := runtime.FuncForPC(pc)
		file, line := fn.FileLine(pc)
		loc = filepath.Base(file) + ":" + strconv.Itoa(line)
	}
	return &ClassFormatError{Msg: msg, Location: loc}
}

func cfef(format string, args ...interface{}) error {
	return cfe(fmt.Sprintf(format, args...))
}

// Errorf is cfef exported for other packages (forcedsig, refclass) that parse
// their own class-file-adjacent byte structures (annotation element values,
// archive entries) and want the same located ClassFormatError shape.
func Errorf(format string, args ...interface{}) error {
	loc := ""
	if pc, _, _, ok := runtime.Caller(1); ok {
		fn := runtime.FuncForPC(pc)
		file, line := fn.FileLine(pc)
		loc = filepath.Base(file) + ":" + strconv.Itoa(line)
	}
	return &ClassFormatError{Msg: fmt.Sprintf(format, args...), Location: loc}
}
