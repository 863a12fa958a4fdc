package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/flatfs/cmd"
)

type LsCommand struct {
}

// Name returns the command identifier
func (ls *LsCommand) Name() string {
	return "ls"
}

// Description returns human-readable help text
func (ls *LsCommand) Description() string {
	return "List directory contents"
}

// Usage returns a usage string for help (e.g. "ls -l [path]")
func (ls *LsCommand) Usage() string {
	return "ls [-l] [path]"
}

// Execute runs the command with parsed arguments
// Returns exit code (0 = success) and error message
func (ls *LsCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	path := args.Arg(0, "/")

	info, err := api.Stat(ctx, path)
	if err != nil {
		return 1, err
	}

	entries := []*fileInfo{{info}}
	if info.IsDir {
		children, err := api.ReadDir(ctx, path)
		if err != nil {
			return 1, err
		}

		entries = entries[:0]
		for _, child := range children {
			entries = append(entries, &fileInfo{child})
		}
	}

	for _, entry := range entries {
		if args.Bool("long") {
			fmt.Fprintln(writer, entry.long())
		} else {
			fmt.Fprintln(writer, entry.short())
		}
	}

	return 0, nil
}

// GetFlags returns the flag set for this command (this is optional)
func (ls *LsCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"long": {
				Name:        "long",
				Short:       "l",
				Type:        "bool",
				Description: "Use a long listing format",
			},
		},
	}
}
