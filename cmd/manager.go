package cmd

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/mwantia/flatfs/log"
)

// Manager handles command registration, parsing, and execution
type Manager struct {
	mu   sync.RWMutex
	api  API
	log  *log.Logger
	cmds map[string]Command
}

func NewManager(api API, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}

	return &Manager{
		api:  api,
		log:  logger,
		cmds: make(map[string]Command),
	}
}

// Register registers a custom command
func (cm *Manager) Register(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}

	name := cmd.Name()
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.cmds[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}

	cm.cmds[name] = cmd
	return nil
}

// Unregister removes a registered command
func (cm *Manager) Unregister(name string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.cmds[name]; !exists {
		return fmt.Errorf("command not found: %s", name)
	}

	delete(cm.cmds, name)
	return nil
}

// Get returns a command by name
func (cm *Manager) Get(name string) (Command, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	cmd, exists := cm.cmds[name]
	if !exists {
		return nil, fmt.Errorf("command not found: %s", name)
	}

	return cmd, nil
}

// List returns all registered commands sorted by name
func (cm *Manager) List() []Command {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	commands := make([]Command, 0, len(cm.cmds))
	for _, cmd := range cm.cmds {
		commands = append(commands, cmd)
	}

	slices.SortFunc(commands, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return commands
}

// Execute parses and executes a command, writing its output to writer.
func (cm *Manager) Execute(ctx context.Context, writer io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		return 1, fmt.Errorf("no command specified")
	}

	cmd, err := cm.Get(args[0])
	if err != nil {
		return 1, err
	}

	parser := NewParser(cmd.Name(), cmd.GetFlags())
	parsed, err := parser.Parse(args[1:])
	if err != nil {
		return 1, fmt.Errorf("parse error: %w", err)
	}

	cm.log.Debug("Execute: '%s' with %d arguments", cmd.Name(), len(parsed.Args))

	code, err := cmd.Execute(ctx, cm.api, parsed, writer)
	if err != nil {
		cm.log.Debug("Execute: '%s' failed with code %d: %v", cmd.Name(), code, err)
	}

	return code, err
}

// Help writes the usage of every registered command.
func (cm *Manager) Help(writer io.Writer) {
	for _, cmd := range cm.List() {
		fmt.Fprintf(writer, "  %-10s %s\n", cmd.Name(), cmd.Description())
		if usage := cmd.Usage(); usage != "" {
			fmt.Fprintf(writer, "  %-10s usage: %s\n", "", usage)
		}
	}
}
