package mount

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal indicates an attempted path traversal attack.
var ErrPathTraversal = fmt.Errorf("path traversal detected")

// ValidatePluginPath checks that a plugin path is safe and doesn't attempt
// path traversal, grounded on the teacher's internal/plugins/discovery.go
// ValidatePluginPath. Returns the cleaned absolute path or an error. This
// is carried over unchanged from the teacher: it is a correctness property
// of any plugin-directory scanner, not a feature any Non-goal excludes.
func ValidatePluginPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("plugin path is empty")
	}

	cleaned := filepath.Clean(path)
	if containsPathTraversalSegment(cleaned) {
		return "", fmt.Errorf("%w: path contains '..' after cleaning: %s", ErrPathTraversal, path)
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	if containsPathTraversalSegment(absPath) {
		return "", fmt.Errorf("%w: absolute path contains '..': %s", ErrPathTraversal, absPath)
	}

	return absPath, nil
}

func containsPathTraversalSegment(path string) bool {
	for _, seg := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if seg == ".." {
			return true
		}
	}
	return false
}
