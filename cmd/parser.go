package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/pflag"
)

// Parser parses user-defined arguments into flags
type Parser struct {
	name    string
	flagSet *CommandFlagSet
}

func NewParser(name string, flagSet *CommandFlagSet) *Parser {
	if flagSet == nil {
		flagSet = &CommandFlagSet{Flags: make(map[string]*CommandFlag)}
	}

	return &Parser{
		name:    name,
		flagSet: flagSet,
	}
}

// FlagSet translates the declared flags into a pflag set.
func (cp *Parser) FlagSet() (*pflag.FlagSet, error) {
	fs := pflag.NewFlagSet(cp.name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	for _, name := range cp.names() {
		flag := cp.flagSet.Flags[name]

		switch flag.Type {
		case "bool":
			def, _ := flag.Default.(bool)
			fs.BoolP(flag.Name, flag.Short, def, flag.Description)
		case "int":
			fs.Int64P(flag.Name, flag.Short, toInt64(flag.Default), flag.Description)
		case "string", "":
			def, _ := flag.Default.(string)
			fs.StringP(flag.Name, flag.Short, def, flag.Description)
		case "stringSlice":
			def, _ := flag.Default.([]string)
			fs.StringSliceP(flag.Name, flag.Short, def, flag.Description)
		default:
			return nil, fmt.Errorf("flag --%s has unknown type '%s'", flag.Name, flag.Type)
		}
	}

	return fs, nil
}

func (cp *Parser) Parse(raw []string) (*CommandArgs, error) {
	fs, err := cp.FlagSet()
	if err != nil {
		return nil, err
	}

	if err := fs.Parse(raw); err != nil {
		return nil, err
	}

	args := &CommandArgs{
		Args:  fs.Args(),
		Flags: make(map[string]any),
		Raw:   raw,
	}

	for _, name := range cp.names() {
		flag := cp.flagSet.Flags[name]

		if flag.Required && !fs.Changed(flag.Name) {
			if flag.Short != "" {
				return nil, fmt.Errorf("required flag: -%s / --%s", flag.Short, flag.Name)
			}
			return nil, fmt.Errorf("required flag: --%s", flag.Name)
		}

		var value any
		switch flag.Type {
		case "bool":
			value, err = fs.GetBool(flag.Name)
		case "int":
			value, err = fs.GetInt64(flag.Name)
		case "stringSlice":
			value, err = fs.GetStringSlice(flag.Name)
		default:
			value, err = fs.GetString(flag.Name)
		}
		if err != nil {
			return nil, err
		}

		args.Flags[name] = value
	}

	return args, nil
}

// Usage returns the flag help of the command.
func (cp *Parser) Usage() string {
	fs, err := cp.FlagSet()
	if err != nil {
		return ""
	}

	return fs.FlagUsages()
}

func (cp *Parser) names() []string {
	names := make([]string, 0, len(cp.flagSet.Flags))
	for name := range cp.flagSet.Flags {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

func toInt64(value any) int64 {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	default:
		return 0
	}
}
