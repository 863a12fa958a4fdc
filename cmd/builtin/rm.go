package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/flatfs/cmd"
)

type RmCommand struct {
}

func (r *RmCommand) Name() string {
	return "rm"
}

func (r *RmCommand) Description() string {
	return "Remove files"
}

func (r *RmCommand) Usage() string {
	return "rm <path>..."
}

func (r *RmCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return 2, fmt.Errorf("usage: %s", r.Usage())
	}

	for _, path := range args.Args {
		if err := api.Remove(ctx, path); err != nil {
			return 1, err
		}
	}

	return 0, nil
}

func (r *RmCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
