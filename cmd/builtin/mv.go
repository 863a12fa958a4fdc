package builtin

import (
	"context"
	"fmt"
	"io"

	"github.com/mwantia/flatfs/cmd"
)

type MvCommand struct {
}

func (m *MvCommand) Name() string {
	return "mv"
}

func (m *MvCommand) Description() string {
	return "Move or rename a file or directory"
}

func (m *MvCommand) Usage() string {
	return "mv <source> <destination>"
}

func (m *MvCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) != 2 {
		return 2, fmt.Errorf("usage: %s", m.Usage())
	}

	if err := api.Rename(ctx, args.Args[0], args.Args[1]); err != nil {
		return 1, err
	}

	return 0, nil
}

func (m *MvCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
