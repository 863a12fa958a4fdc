package flatfs

import (
	"path"
	"strings"

	"github.com/mwantia/flatfs/data"
)

// SplitPath cleans a slash separated path and returns its names.
// The root ("/") has no names. Relative paths are resolved from the root.
func SplitPath(p string) ([]string, error) {
	if len(p) == 0 {
		return nil, data.InvalidArgument("path", p, nil)
	}

	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return nil, nil
	}

	return strings.Split(cleaned[1:], "/"), nil
}

// splitParent returns the parent path and the last name of p.
func splitParent(p string) (string, string, error) {
	if len(p) == 0 {
		return "", "", data.InvalidArgument("path", p, nil)
	}

	cleaned := path.Clean("/" + p)
	if cleaned == "/" {
		return "", "", data.InvalidArgument("path", p, nil)
	}

	return path.Dir(cleaned), path.Base(cleaned), nil
}
