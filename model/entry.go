package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// EntryKind classifies a path visited by the walker.
type EntryKind int

const (
	EntryUnsupported = EntryKind(iota)
	EntryTemplate    // rendered into the build tree
	EntryPlainFile   // copied or linked verbatim
	EntryDirectory   // mirrored and descended into
)

// ErrUnsupportedEntry is returned by Classify for entries that are neither
// directories nor regular files.
var ErrUnsupportedEntry = errors.New("unsupported file type")

func (k EntryKind) String() string {
	switch k {
	case EntryUnsupported:
		return "unsupported"
	case EntryTemplate:
		return "template"
	case EntryPlainFile:
		return "file"
	case EntryDirectory:
		return "directory"
	default:
		return "<invalid>"
	}
}

// Classify stats fn (following symlinks) and decides how it is processed.
// Regular files with one of srcExts are templates, other regular files are
// plain files. Sockets, devices and the like are rejected.
func Classify(fn string, srcExts []string) (EntryKind, error) {
	stat, err := os.Stat(fn)
	if err != nil {
		return EntryUnsupported, err
	}
	switch {
	case stat.Mode().IsRegular():
		if HasExt(srcExts, filepath.Ext(fn)) {
			return EntryTemplate, nil
		}
		return EntryPlainFile, nil
	case stat.IsDir():
		return EntryDirectory, nil
	}
	return EntryUnsupported, fmt.Errorf("%s: %w", fn, ErrUnsupportedEntry)
}
