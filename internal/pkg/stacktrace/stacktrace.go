package stacktrace

import "strings"

// InternalPaths extracts the "internal/<pkg>/<file>.go:<line>" frames from a
// raw debug.Stack() dump, outermost call last.
func InternalPaths(stack []byte) []string {
	var paths []string
	for _, line := range strings.Split(string(stack), "\n") {
		line = strings.TrimSpace(line)

		_, rest, ok := strings.Cut(line, "/internal/")
		if !ok || !strings.Contains(rest, ".go:") {
			continue
		}

		frame, _, _ := strings.Cut(rest, " ")
		paths = append(paths, "internal/"+frame)
	}
	return paths
}
