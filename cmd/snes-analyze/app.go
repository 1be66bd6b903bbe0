package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/kballard/go-shellquote"
	"github.com/reeflective/readline"

	snesanalyze "snes-analyze"
)

// App is the interactive prompt session: one ROM, one analysis registry, one
// command hierarchy, and the subroutine currently under inspection.
type App struct {
	Analysis *snesanalyze.Analysis
	Out      io.Writer
	Input    io.Reader

	commands *Command
	exit     bool

	currentSubroutine    int
	hasCurrentSubroutine bool
}

// NewApp builds a prompt session over analysis, writing to stdout and
// reading confirmation prompts from stdin.
func NewApp(analysis *snesanalyze.Analysis) *App {
	return &App{
		Analysis: analysis,
		Out:      os.Stdout,
		Input:    os.Stdin,
		commands: buildCommands(),
	}
}

// In returns the reader confirmation prompts should read from.
func (a *App) In() io.Reader {
	return a.Input
}

// Run drives the read-eval-print loop until the user quits (quit command,
// Ctrl-D) or an unrecoverable read error occurs.
func (a *App) Run() {
	shell := readline.NewShell()
	shell.Prompt.Primary(a.prompt)

	for !a.exit {
		line, err := shell.Readline()
		if err != nil {
			return
		}
		if line == "" {
			continue
		}
		a.handleLine(line)
	}
}

func (a *App) prompt() string {
	if a.hasCurrentSubroutine {
		label, _ := a.Analysis.Label(a.currentSubroutine, a.currentSubroutine)
		return color.YellowString("[%s]> ", label)
	}
	return color.YellowString("> ")
}

// getSubroutine returns the selected subroutine's pc, or an error if none is
// selected.
func (a *App) getSubroutine() (int, error) {
	if !a.hasCurrentSubroutine {
		return 0, snesanalyze.NewError(snesanalyze.ErrNoSelectedSubroutine, "")
	}
	return a.currentSubroutine, nil
}

// handleLine tokenizes, dispatches, and reports errors from a single input
// line, matching the propagation policy: command errors print in-band and
// the session continues.
func (a *App) handleLine(line string) {
	parts, err := shellquote.Split(line)
	if err != nil || len(parts) == 0 {
		return
	}

	cmd, i := dig(a.commands, parts)
	if cmd.Function == nil {
		a.printHelp(parts[:i], cmd, i == 0)
		return
	}

	if err := cmd.Function(a, parts[i:]); err != nil {
		if e, ok := err.(*snesanalyze.Error); ok && e.Kind == snesanalyze.ErrMissingArg {
			a.printHelp(parts[:i], cmd, i == 0)
		}
		fmt.Fprintf(a.Out, "%s\n\n", color.RedString(err.Error()))
	}
}

// printHelp renders a command's usage line, its own help text, and (for a
// container) the list of its subcommands.
func (a *App) printHelp(parts []string, cmd *Command, root bool) {
	if !root {
		fmt.Fprintf(a.Out, "%s %s%s\n\n", color.YellowString("Usage:"), color.GreenString(joinTokens(parts)), color.GreenString(cmd.Usage))
		fmt.Fprintf(a.Out, "%s\n", cmd.Help)
	}
	if len(cmd.Subcommands) > 0 {
		if root {
			fmt.Fprintf(a.Out, "%s\n", color.YellowString("Commands:"))
		} else {
			fmt.Fprintf(a.Out, "\n%s\n", color.YellowString("Subcommands:"))
		}
		for _, name := range sortedKeys(cmd.Subcommands) {
			fmt.Fprintf(a.Out, "  %-15s%s\n", color.GreenString(name), cmd.Subcommands[name].Help)
		}
	}
	fmt.Fprintln(a.Out)
}

func joinTokens(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
