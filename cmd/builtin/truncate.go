package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/flatfs/cmd"
)

type TruncateCommand struct {
}

func (t *TruncateCommand) Name() string {
	return "truncate"
}

func (t *TruncateCommand) Description() string {
	return "Shrink or extend the size of files"
}

func (t *TruncateCommand) Usage() string {
	return "truncate -s <size> <path>..."
}

func (t *TruncateCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) == 0 {
		return 2, fmt.Errorf("usage: %s", t.Usage())
	}

	size := args.Int("size")
	for _, path := range args.Args {
		if err := api.Truncate(ctx, path, size); err != nil {
			return 1, err
		}
	}

	return 0, nil
}

func (t *TruncateCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"size": {
				Name:        "size",
				Short:       "s",
				Type:        "int",
				Required:    true,
				Description: "Set the size of the file to this many bytes",
			},
		},
	}
}
