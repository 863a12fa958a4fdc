package data

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

const (
	// Delimiter separates the segments of a real path.
	Delimiter = "_"
	// RootPath is the real path of the mount root.
	RootPath = Delimiter
)

// EncodePath converts a real path into the key used by the object store.
// Every byte becomes two lowercase hex characters, so the encoded form of a
// prefix is always a prefix of the encoded form.
func EncodePath(path string) string {
	return hex.EncodeToString([]byte(path))
}

// DecodeKey reverses EncodePath.
// Returns ErrInvalid if key was not produced by EncodePath.
func DecodeKey(key string) (string, error) {
	if len(key)%2 != 0 {
		return "", InvalidArgument("decode", key, nil)
	}

	raw, err := hex.DecodeString(key)
	if err != nil {
		return "", InvalidArgument("decode", key, err)
	}
	// Uppercase hex decodes fine but is never produced by EncodePath
	if hex.EncodeToString(raw) != key {
		return "", InvalidArgument("decode", key, nil)
	}

	if !utf8.Valid(raw) {
		return "", InvalidArgument("decode", key, nil)
	}

	return string(raw), nil
}

// DirectoryPath ensures path ends with a path delimiter.
//
// Example:
//   - DirectoryPath("_dir") = "_dir_"
//   - DirectoryPath("_dir_") = "_dir_"
func DirectoryPath(path string) string {
	if strings.HasSuffix(path, Delimiter) {
		return path
	}

	return path + Delimiter
}

// JoinPaths concatenates two path fragments with exactly one delimiter between them.
func JoinPaths(a, b string) string {
	switch {
	case strings.HasSuffix(a, Delimiter) && strings.HasPrefix(b, Delimiter):
		return a + b[len(Delimiter):]
	case strings.HasSuffix(a, Delimiter) || strings.HasPrefix(b, Delimiter):
		return a + b
	default:
		return a + Delimiter + b
	}
}

// ExtractFilename strips the parent path and drops everything after the next delimiter.
//
// Example:
//   - ExtractFilename("_dir", "_dir_myfile") = "myfile"
//   - ExtractFilename("_dir", "_dir_mydir_myfile") = "mydir"
func ExtractFilename(parent, path string) string {
	parent = DirectoryPath(parent)
	if !strings.HasPrefix(path, parent) {
		return ""
	}

	name := path[len(parent):]
	if index := strings.Index(name, Delimiter); index >= 0 {
		return name[:index]
	}

	return name
}

// ValidName reports whether name can be used as a single path segment.
func ValidName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return InvalidArgument("name", name, nil)
	case strings.Contains(name, Delimiter), strings.Contains(name, "/"):
		return InvalidArgument("name", name, nil)
	case !utf8.ValidString(name):
		return InvalidArgument("name", name, nil)
	}

	return nil
}
