package builtin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/mwantia/flatfs"
	"github.com/mwantia/flatfs/cmd"
)

type MkdirCommand struct {
}

func (m *MkdirCommand) Name() string {
	return "mkdir"
}

func (m *MkdirCommand) Description() string {
	return "Create directories"
}

func (m *MkdirCommand) Usage() string {
	return "mkdir [-p] <path>..."
}

func (m *MkdirCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return 2, fmt.Errorf("usage: %s", m.Usage())
	}

	for _, dir := range args.Args {
		if !args.Bool("parents") {
			if err := api.Mkdir(ctx, dir, 0o755); err != nil {
				return 1, err
			}
			continue
		}

		names, err := flatfs.SplitPath(dir)
		if err != nil {
			return 1, err
		}

		current := "/"
		for _, name := range names {
			current = path.Join(current, name)
			if err := api.Mkdir(ctx, current, 0o755); err != nil && !errors.Is(err, flatfs.ErrExist) {
				return 1, err
			}
		}
	}

	return 0, nil
}

func (m *MkdirCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"parents": {
				Name:        "parents",
				Short:       "p",
				Type:        "bool",
				Description: "Create parent directories as needed, no error if existing",
			},
		},
	}
}
