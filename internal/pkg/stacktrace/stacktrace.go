// Package stacktrace trims runtime stack dumps down to this module's frames.
package stacktrace

import "strings"

// InternalPaths returns the "internal/...go:line" locations found in a raw
// debug.Stack dump, in call order.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.Lines(string(stack)) {
		line = strings.TrimSpace(line)

		file, _, _ := strings.Cut(line, " ")
		if !strings.Contains(file, ".go:") {
			continue
		}

		_, rel, ok := strings.Cut(file, "/internal/")
		if !ok {
			continue
		}
		paths = append(paths, "internal/"+rel)
	}
	return paths
}
