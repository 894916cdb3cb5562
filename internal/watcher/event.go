package watcher

import (
	"path/filepath"
	"time"
)

// Op is what happened to a watched file.
type Op uint8

const (
	// Changed means the file was written, created or replaced and has settled.
	Changed Op = iota
	// Removed means the file is gone.
	Removed
)

var opNames = [...]string{Changed: "changed", Removed: "removed"}

func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return "unknown"
}

// Event is a settled change to a watched file. Size and ModTime are zero for
// removals.
type Event struct {
	Op      Op
	Path    string
	Size    int64
	ModTime time.Time
}

// DefaultSettle is how long a file must stay unchanged before it is reported.
const DefaultSettle = 250 * time.Millisecond

// editorFiles covers hidden files plus the backup and scratch files editors
// write next to a config file while saving it.
var editorFiles = []string{".*", "*~", "*.tmp", "*.bak", "4913"}

// Options tunes a Watcher. The zero value is ready to use.
type Options struct {
	// Settle defaults to DefaultSettle.
	Settle time.Duration
	// Ignore holds base name patterns skipped inside watched directories.
	// nil selects editorFiles; an empty slice ignores nothing. Explicitly
	// watched files are never ignored.
	Ignore []string
}

func (o Options) withDefaults() Options {
	if o.Settle <= 0 {
		o.Settle = DefaultSettle
	}
	if o.Ignore == nil {
		o.Ignore = editorFiles
	}
	return o
}

func (o Options) ignored(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range o.Ignore {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}
