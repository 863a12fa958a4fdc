package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mwantia/flatfs"
	"github.com/mwantia/flatfs/cmd"
	"github.com/mwantia/flatfs/cmd/builtin"
	"github.com/mwantia/flatfs/config"
	"github.com/spf13/pflag"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, arguments []string, stdin io.Reader, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("flatfs", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.SetInterspersed(false)

	configFile := flags.StringP("config", "c", "", "Path to the configuration file (default: $FLATFS_CONFIG)")
	address := flags.StringP("backend", "b", "", "Backend address, overrides the configuration file")
	level := flags.String("log-level", "", "Log level, overrides the configuration file")
	verbose := flags.BoolP("verbose", "v", false, "Write log messages to the terminal")
	readOnly := flags.Bool("read-only", false, "Reject every modification of the backend")
	namespace := flags.StringP("namespace", "n", "", "Only use the backend keys of this namespace")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: flatfs [flags] [command [args...]]\n\n")
		fmt.Fprintf(stderr, "Without a command, commands are read line by line from stdin.\n\n")
		fmt.Fprint(stderr, flags.FlagUsages())
	}

	if err := flags.Parse(arguments); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *address != "" {
		cfg.Backend = *address
	}
	if *level != "" {
		cfg.Log.Level = *level
	}
	if *namespace != "" {
		cfg.Mount.Namespace = *namespace
	}
	cfg.Mount.ReadOnly = cfg.Mount.ReadOnly || *readOnly
	cfg.Log.Quiet = cfg.Log.Quiet || !*verbose
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid config: %v\n", err)
		return 1
	}

	store, err := cfg.Store(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create backend: %v\n", err)
		return 1
	}

	opts, err := cfg.Options()
	if err != nil {
		fmt.Fprintf(stderr, "Invalid config: %v\n", err)
		return 1
	}

	fs, err := flatfs.New(store, opts...)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to setup flatfs: %v\n", err)
		return 1
	}
	if err := fs.Mount(ctx); err != nil {
		fmt.Fprintf(stderr, "Failed to mount: %v\n", err)
		return 1
	}
	defer func() {
		if err := fs.Unmount(context.WithoutCancel(ctx), true); err != nil {
			fmt.Fprintf(stderr, "Failed to unmount: %v\n", err)
		}
	}()

	manager := cmd.NewManager(fs, fs.Logger().Named("cmd"))
	if err := builtin.Register(manager); err != nil {
		fmt.Fprintf(stderr, "Failed to setup commands: %v\n", err)
		return 1
	}

	if flags.NArg() > 0 {
		return execute(ctx, manager, flags.Args(), stdout, stderr)
	}

	return shell(ctx, manager, stdin, stdout, stderr)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func execute(ctx context.Context, manager *cmd.Manager, args []string, stdout, stderr io.Writer) int {
	if args[0] == "help" {
		manager.Help(stdout)
		return 0
	}

	code, err := manager.Execute(ctx, stdout, args...)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", args[0], err)
	}

	return code
}

// shell executes one command per line until stdin is exhausted or "exit" is read.
// The exit code is the one of the last command.
func shell(ctx context.Context, manager *cmd.Manager, stdin io.Reader, stdout, stderr io.Writer) int {
	scanner := bufio.NewScanner(stdin)
	code := 0

	for {
		fmt.Fprint(stdout, "flatfs> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdout)
			break
		}

		args := strings.Fields(scanner.Text())
		if len(args) == 0 || strings.HasPrefix(args[0], "#") {
			continue
		}
		if args[0] == "exit" {
			break
		}

		code = execute(ctx, manager, args, stdout, stderr)
		if ctx.Err() != nil {
			return 130
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(stderr, "Failed to read input: %v\n", err)
		return 1
	}

	return code
}
