/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package context

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
)

// ConfigError is spec §7's fatal-at-configure-time kind: a pinned-mapping
// collision, a non-static method replacement, or an unreadable reference
// resource. Carries the detecting call's file/line the way the teacher's
// classloader.cfe() does.
type ConfigError struct {
	Msg      string
	Location string
}

func (e *ConfigError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("classmerge config error (%s): %s", e.Location, e.Msg)
	}
	return "classmerge config error: " + e.Msg
}

func configErrf(format string, args ...interface{}) error {
	loc := ""
	if pc, _, _, ok := runtime.Caller(1); ok {
		fn := runtime.FuncForPC(pc)
		file, line := fn.FileLine(pc)
		loc = filepath.Base(file) + ":" + strconv.Itoa(line)
	}
	return &ConfigError{Msg: fmt.Sprintf(format, args...), Location: loc}
}
