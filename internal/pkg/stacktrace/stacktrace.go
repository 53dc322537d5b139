// Package stacktrace trims runtime stack dumps down to this module's frames.
package stacktrace

import (
	"bytes"
	"strings"
)

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" entries for every
// frame of stack (as produced by runtime/debug.Stack) that lives under an
// internal/ directory, innermost first.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range bytes.Lines(stack) {
		// file lines are tab-indented: "\t/abs/path/file.go:123 +0x1d"
		if len(line) == 0 || line[0] != '\t' {
			continue
		}
		loc := strings.TrimSpace(string(line))
		if sp := strings.IndexByte(loc, ' '); sp >= 0 {
			loc = loc[:sp]
		}
		idx := strings.Index(loc, "/internal/")
		if idx < 0 || !strings.Contains(loc, ".go:") {
			continue
		}
		paths = append(paths, loc[idx+1:])
	}
	return paths
}
