package builtin

import "github.com/mwantia/flatfs/cmd"

// Register adds every builtin command to manager.
func Register(manager *cmd.Manager) error {
	commands := []cmd.Command{
		&LsCommand{},
		&CatCommand{},
		&WriteCommand{},
		&RmCommand{},
		&MvCommand{},
		&StatCommand{},
		&MkdirCommand{},
		&TruncateCommand{},
	}

	for _, command := range commands {
		if err := manager.Register(command); err != nil {
			return err
		}
	}

	return nil
}
