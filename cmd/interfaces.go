package cmd

import (
	"context"
	"io"

	"github.com/mwantia/flatfs"
	"github.com/mwantia/flatfs/data"
)

// API is the part of flatfs.FileSystem used by commands.
type API interface {
	// Stat returns file information for the given path.
	Stat(ctx context.Context, path string) (*flatfs.FileInfo, error)

	// ReadDir returns the entries of the directory at path, sorted by name.
	ReadDir(ctx context.Context, path string) ([]*flatfs.FileInfo, error)

	// Mkdir creates a directory. It is only persisted once a file is created below it.
	Mkdir(ctx context.Context, path string, perm data.FileMode) error

	// OpenFile opens a file with the specified access mode flags.
	// The returned File must be closed by the caller.
	OpenFile(ctx context.Context, path string, flags data.AccessMode, perm data.FileMode) (*flatfs.File, error)

	ReadFile(ctx context.Context, path string) ([]byte, error)

	WriteFile(ctx context.Context, path string, content []byte, perm data.FileMode) error

	Truncate(ctx context.Context, path string, size int64) error

	// Remove deletes a file. Open files fail with ErrBusy.
	Remove(ctx context.Context, path string) error

	// Rename moves a file or directory.
	Rename(ctx context.Context, oldPath, newPath string) error
}

var _ API = (*flatfs.FileSystem)(nil)

// Command represents an executable command within the filesystem.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "ls -l [path]")
	Usage() string

	// Execute runs the command with parsed arguments
	// The writer parameter is where command output should be written
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, api API, args *CommandArgs, writer io.Writer) (int, error)

	// GetFlags returns the flag set for this command (this is optional)
	GetFlags() *CommandFlagSet
}
