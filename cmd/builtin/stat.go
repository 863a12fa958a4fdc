package builtin

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/mwantia/flatfs/cmd"
	"github.com/mwantia/flatfs/data"
)

type StatCommand struct {
}

func (s *StatCommand) Name() string {
	return "stat"
}

func (s *StatCommand) Description() string {
	return "Display file status"
}

func (s *StatCommand) Usage() string {
	return "stat <path>"
}

func (s *StatCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) != 1 {
		return 2, fmt.Errorf("usage: %s", s.Usage())
	}

	info, err := api.Stat(ctx, args.Args[0])
	if err != nil {
		return 1, err
	}

	kind := "regular file"
	if info.IsDir {
		kind = "directory"
	}

	fmt.Fprintf(writer, "  File: %s\n", info.Path)
	fmt.Fprintf(writer, "  Size: %-10d Blocks: %-6d IO Block: %d  %s\n", info.Size, info.Blocks, data.BlockSize, kind)
	fmt.Fprintf(writer, " Inode: %-10d Mode: %s\n", info.Ino, info.Mode)
	fmt.Fprintf(writer, "Modify: %s\n", info.ModTime.Format(time.RFC3339))

	return 0, nil
}

func (s *StatCommand) GetFlags() *cmd.CommandFlagSet {
	return nil
}
