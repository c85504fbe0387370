package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

type command interface {
	Name() string
	Help() string
	Run() error
	Register(*flag.FlagSet)
}

type app struct {
	args     []string
	out      io.Writer
	commands []command
}

const (
	successExitCode = 0
	errorExitCode   = 1
)

func main() {
	a := app{
		args:     os.Args,
		out:      os.Stdout,
		commands: commands(),
	}
	os.Exit(a.run())
}

func commands() []command {
	return []command{
		&renderCommand{},
		&convolveCommand{},
	}
}

func (a *app) run() int {
	name, args := parseArgs(a.args)
	if name == "" {
		a.printUsage()
		return errorExitCode
	}
	for _, cmd := range a.commands {
		if cmd.Name() != name {
			continue
		}
		flags := flag.NewFlagSet(name, flag.ContinueOnError)
		flags.SetOutput(a.out)
		cmd.Register(flags)
		if err := flags.Parse(args); err != nil {
			return errorExitCode
		}
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(a.out, "Command failed: %v\n", err)
			return errorExitCode
		}
		return successExitCode
	}
	fmt.Fprintf(a.out, "Unknown command: %s\n", name)
	a.printUsage()
	return errorExitCode
}

func parseArgs(args []string) (string, []string) {
	if len(args) < 2 {
		return "", nil
	}
	return args[1], args[2:]
}

func (a *app) printUsage() {
	fmt.Fprintln(a.out, "graph renders audio graphs offline")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Usage: graph <command> [flags]")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Commands:")
	for _, cmd := range a.commands {
		fmt.Fprintf(a.out, "\t%s\t%s\n", cmd.Name(), cmd.Help())
	}
}
