package shader

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// DefaultDirName is where compiled shaders are looked up, relative to the parent of the executable's directory.
const DefaultDirName = "shaders"

// ParentDirectory returns the directory containing path. Trailing separators are ignored, so the parent of
// "a/b/" is "a".
func ParentDirectory(path string) string {
	path = strings.TrimRight(filepath.ToSlash(path), "/")
	if path == "" {
		return "/"
	}
	return filepath.Dir(filepath.FromSlash(path))
}

// JoinPaths joins the elements with the OS separator after turning backslashes into slashes, so configuration
// written on one platform resolves on the other.
func JoinPaths(elem ...string) string {
	sanitized := make([]string, len(elem))
	for i, e := range elem {
		sanitized[i] = filepath.FromSlash(strings.ReplaceAll(e, "\\", "/"))
	}
	return filepath.Join(sanitized...)
}

// ResolveDir returns dir if it is absolute. A relative dir is resolved against the parent of the directory
// containing the executable, an empty dir selects DefaultDirName there.
func ResolveDir(dir string) (string, error) {
	if dir != "" && filepath.IsAbs(dir) {
		return filepath.Clean(dir), nil
	}
	if dir == "" {
		dir = DefaultDirName
	}
	exe, err := os.Executable()
	if err != nil {
		return "", errors.Wrap(err, "locate executable")
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return JoinPaths(ParentDirectory(filepath.Dir(exe)), dir), nil
}
