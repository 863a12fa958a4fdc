package builtin

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mwantia/flatfs/cmd"
	"github.com/mwantia/flatfs/data"
)

type WriteCommand struct {
}

func (w *WriteCommand) Name() string {
	return "write"
}

func (w *WriteCommand) Description() string {
	return "Write text into a file, creating it if needed"
}

func (w *WriteCommand) Usage() string {
	return "write [-a] <path> <text>..."
}

func (w *WriteCommand) Execute(ctx context.Context, api cmd.API, args *cmd.CommandArgs, writer io.Writer) (int, error) {
	if len(args.Args) < 2 {
		return 2, fmt.Errorf("usage: %s", w.Usage())
	}

	path := args.Args[0]
	content := []byte(strings.Join(args.Args[1:], " "))
	if args.Bool("newline") {
		content = append(content, '\n')
	}

	if !args.Bool("append") {
		if err := api.WriteFile(ctx, path, content, 0o644); err != nil {
			return 1, err
		}
		return 0, nil
	}

	file, err := api.OpenFile(ctx, path, data.AccessModeWrite|data.AccessModeAppend|data.AccessModeCreate, 0o644)
	if err != nil {
		return 1, err
	}

	if _, err := file.Write(content); err != nil {
		file.Close()
		return 1, err
	}
	if err := file.Close(); err != nil {
		return 1, err
	}

	return 0, nil
}

func (w *WriteCommand) GetFlags() *cmd.CommandFlagSet {
	return &cmd.CommandFlagSet{
		Flags: map[string]*cmd.CommandFlag{
			"append": {
				Name:        "append",
				Short:       "a",
				Type:        "bool",
				Description: "Append to the end of the file instead of replacing it",
			},
			"newline": {
				Name:        "newline",
				Short:       "n",
				Type:        "bool",
				Description: "Terminate the text with a newline",
			},
		},
	}
}
