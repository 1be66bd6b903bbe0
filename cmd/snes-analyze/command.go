package main

// commandFunc is a leaf command's implementation: given the tokens past the
// command's own name, perform the effect and report any error.
type commandFunc func(app *App, args []string) error

// Command is one node in the REPL's command hierarchy: either a leaf (has a
// function) or a container (has subcommands and no function of its own).
type Command struct {
	Function    commandFunc
	Help        string
	Usage       string
	Subcommands map[string]*Command
}

// leaf builds a runnable command.
func leaf(help, usage string, fn commandFunc) *Command {
	return &Command{Function: fn, Help: help, Usage: usage}
}

// container builds a command that only groups subcommands.
func container(help string, subs map[string]*Command) *Command {
	return &Command{Help: help, Usage: " SUBCOMMAND", Subcommands: subs}
}

// dig walks parts against the command hierarchy as far as it matches,
// returning the deepest command found and how many leading tokens it
// consumed.
func dig(root *Command, parts []string) (*Command, int) {
	cmd := root
	i := 0
	for i < len(parts) {
		next, ok := cmd.Subcommands[parts[i]]
		if !ok {
			break
		}
		cmd = next
		i++
	}
	return cmd, i
}
