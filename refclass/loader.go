/*
 * classmerge - a JVM class-merging grading harness transformer
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package refclass

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/klauspost/compress/zip"

	"github.com/tudalgo/classmerge/classfile"
	"github.com/tudalgo/classmerge/internal/obslog"
)

// Loader reads reference class-files from a resource tree rooted at Dir
// (internalName + Extension, mirroring package structure) and, as a
// fallback, from a zip Archive bundling the same tree (spec §4.4, §6).
// Reading the loose-file tree via a read-only memory map instead of a full
// ReadFile mirrors saferwall-pe's PE-file mapping strategy for the same
// reason it uses there: reference class-files are read once, never
// written, and may be read repeatedly across a batch run.
type Loader struct {
	Dir     string
	Archive string // path to a bundling zip, "" if none
}

// Load reads and parses the reference class for internalName, or an error
// if it exists in neither the loose tree nor the archive. Lambda helper
// methods inside the parsed class are renamed and their call sites/bootstrap
// handles rewritten before the result is returned (see mangle.go).
func (l Loader) Load(internalName string) (*classfile.ClassFile, error) {
	raw, err := l.readBytes(internalName)
	if err != nil {
		return nil, err
	}
	cf, err := classfile.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("refclass: parsing %s: %w", internalName, err)
	}
	if err := MangleLambdaHelpers(cf); err != nil {
		return nil, fmt.Errorf("refclass: mangling lambda helpers in %s: %w", internalName, err)
	}
	obslog.L().Infow("loaded reference class", "name", internalName)
	return cf, nil
}

func (l Loader) readBytes(internalName string) ([]byte, error) {
	if l.Dir != "" {
		path := filepath.Join(l.Dir, internalName+Extension)
		if b, err := readMapped(path); err == nil {
			return b, nil
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if l.Archive != "" {
		b, err := readFromZip(l.Archive, internalName+Extension)
		if err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("refclass: no reference resource for %s under %s", internalName, l.Dir)
}

// readMapped memory-maps path read-only and copies its contents out; the
// mapping is unmapped before returning since the caller only needs the bytes
// transiently to feed classfile.Parse, not a live mapping to hold open.
func readMapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return nil, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer m.Unmap()

	out := make([]byte, len(m))
	copy(out, m)
	return out, nil
}

func readFromZip(archivePath, entryName string) ([]byte, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	entryName = strings.TrimPrefix(entryName, "/")
	for _, f := range r.File {
		if f.Name != entryName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		buf := make([]byte, f.UncompressedSize64)
		if _, err := io.ReadFull(rc, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}
	return nil, fmt.Errorf("refclass: %s not found in archive %s", entryName, archivePath)
}
