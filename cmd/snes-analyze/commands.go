package main

import (
	"fmt"

	"github.com/fatih/color"

	snesanalyze "snes-analyze"
)

// buildCommands returns the REPL's command hierarchy.
func buildCommands() *Command {
	return container("", map[string]*Command{
		"analyze":     leaf("Run the analysis on the ROM.", "", cmdAnalyze),
		"autoanalyze": leaf("Run the auto-analyzer fixpoint.", "", cmdAutoanalyze),
		"assert": container("Define known processor states for instructions, subroutines, and jumps.", map[string]*Command{
			"entrypoint": leaf("Add a new entry point.", " PC NAME STATE_EXPR", cmdAssertEntrypoint),
			"instruction": leaf("Define how the processor state changes after an instruction's execution.", " PC STATE_EXPR", cmdAssertInstruction),
			"subroutine":  leaf("Define a known processor return state for a subroutine.", " PC STATE_EXPR", cmdAssertSubroutine),
			"jump":        leaf("Add a single jump-target assertion.", " CALLER TARGET", cmdAssertJump),
			"jumptable":   leaf("Derive jump-table entries from ROM words in range.", " CALLER RANGE", cmdAssertJumptable),
		}),
		"deassert": container("Remove previously defined assertions.", map[string]*Command{
			"instruction": leaf("Remove an instruction assertion.", " PC", cmdDeassertInstruction),
			"subroutine":  leaf("Remove a subroutine assertion.", " PC", cmdDeassertSubroutine),
			"jump":        leaf("Remove a jump assertion.", " CALLER", cmdDeassertJump),
		}),
		"comment":     leaf("Set or clear the comment at an address.", " PC COMMENT", cmdComment),
		"describe":    leaf("Describe an opcode.", " OPCODE", cmdDescribe),
		"disassembly": leaf("Show disassembly of the selected subroutine.", "", cmdDisassembly),
		"list": container("List various kinds of entities.", map[string]*Command{
			"assertions":  leaf("List active assertions.", "", cmdListAssertions),
			"jumps":       leaf("List asserted jump tables.", "", cmdListJumps),
			"subroutines": leaf("List subroutines.", "", cmdListSubroutines),
		}),
		"memory":    leaf("Hex-dump ROM memory.", " ADDR SIZE STEP", cmdMemory),
		"query": container("Query entities for detail.", map[string]*Command{
			"subroutine": leaf("Show a subroutine's stack traces and return changes.", " ?LABEL", cmdQuerySubroutine),
		}),
		"rename": leaf("Rename a label.", " OLD NEW", cmdRename),
		"reset":  leaf("Discard the current analysis.", "", cmdReset),
		"rom":    leaf("Show a summary of the ROM header.", "", cmdRom),
		"save":   leaf("Save the session to a JSON file.", " PATH", cmdSave),
		"load":   leaf("Load a session from a JSON file.", " PATH", cmdLoad),
		"subroutine": leaf("Select which subroutine to inspect.", " LABEL", cmdSubroutine),
		"translate":  leaf("Translate a SNES address to a file offset.", " ADDR", cmdTranslate),
		"help":       leaf("Show help about commands.", " ?COMMAND...", cmdHelp),
		"quit":       leaf("Quit the application.", "", cmdQuit),
	})
}

func cmdAnalyze(a *App, args []string) error {
	a.Analysis.Run()
	return nil
}

func cmdAutoanalyze(a *App, args []string) error {
	snesanalyze.RunAutoAnalyzer(a.Analysis)
	return nil
}

func cmdAssertEntrypoint(a *App, args []string) error {
	pc, err := integerArg(args, 0, "pc")
	if err != nil {
		return err
	}
	name, err := stringArg(args, 1, "name")
	if err != nil {
		return err
	}
	stateExpr, err := stringArg(args, 2, "state_expr")
	if err != nil {
		return err
	}
	state, err := snesanalyze.StateFromExpr(stateExpr)
	if err != nil {
		return err
	}
	return a.Analysis.AddEntryPoint(snesanalyze.EntryPoint{Name: name, PC: pc, P: state.P()})
}

func cmdAssertInstruction(a *App, args []string) error {
	pc, err := integerArg(args, 0, "pc")
	if err != nil {
		return err
	}
	expr, err := stringArg(args, 1, "state_change")
	if err != nil {
		return err
	}
	change, err := snesanalyze.StateChangeFromExpr(expr)
	if err != nil {
		return err
	}
	a.Analysis.AddInstructionAssertion(pc, change)
	return nil
}

func cmdAssertSubroutine(a *App, args []string) error {
	pc, err := integerArg(args, 0, "pc")
	if err != nil {
		return err
	}
	expr, err := stringArg(args, 1, "state_change")
	if err != nil {
		return err
	}
	change, err := snesanalyze.StateChangeFromExpr(expr)
	if err != nil {
		return err
	}
	sub, err := a.getSubroutine()
	if err != nil {
		return err
	}
	a.Analysis.AddSubroutineAssertion(sub, pc, change)
	return nil
}

func cmdAssertJump(a *App, args []string) error {
	caller, err := integerArg(args, 0, "caller")
	if err != nil {
		return err
	}
	target, err := integerArg(args, 1, "target")
	if err != nil {
		return err
	}
	a.Analysis.AddJumpAssertion(caller, target)
	return nil
}

func cmdAssertJumptable(a *App, args []string) error {
	caller, err := integerArg(args, 0, "caller")
	if err != nil {
		return err
	}
	lo, hi, err := rangeArg(args, 1, "range")
	if err != nil {
		return err
	}

	bank := caller & 0xFF0000
	var entries []snesanalyze.JumpTableEntry
	x := 0
	for addr := lo; addr < hi; addr += 2 {
		word := a.Analysis.ROM.ReadWord(addr)
		idx := x
		entries = append(entries, snesanalyze.JumpTableEntry{X: &idx, Target: bank | word})
		x++
	}
	a.Analysis.SetJumpTableAssertion(caller, entries)
	return nil
}

func cmdDeassertInstruction(a *App, args []string) error {
	pc, err := integerArg(args, 0, "pc")
	if err != nil {
		return err
	}
	a.Analysis.RemoveInstructionAssertion(pc)
	return nil
}

func cmdDeassertSubroutine(a *App, args []string) error {
	pc, err := integerArg(args, 0, "pc")
	if err != nil {
		return err
	}
	sub, err := a.getSubroutine()
	if err != nil {
		return err
	}
	a.Analysis.RemoveSubroutineAssertion(sub, pc)
	return nil
}

func cmdDeassertJump(a *App, args []string) error {
	caller, err := integerArg(args, 0, "caller")
	if err != nil {
		return err
	}
	a.Analysis.RemoveJumpAssertion(caller)
	return nil
}

func cmdComment(a *App, args []string) error {
	pc, err := integerArg(args, 0, "pc")
	if err != nil {
		return err
	}
	text := ""
	if len(args) > 1 {
		text = joinTokens(args[1:])
	}
	a.Analysis.SetComment(pc, text)
	return nil
}

func cmdDescribe(a *App, args []string) error {
	opcode, err := stringArg(args, 0, "opcode")
	if err != nil {
		return err
	}
	desc, ok := snesanalyze.Describe(snesanalyze.Op(opcode))
	if ok {
		fmt.Fprintf(a.Out, "%s\n\n", desc)
	}
	return nil
}

func cmdDisassembly(a *App, args []string) error {
	sub, err := a.getSubroutine()
	if err != nil {
		return err
	}
	d := snesanalyze.NewDisassembly(a.Analysis)
	text, err := d.Subroutine(sub)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.Out, text)
	return nil
}

func cmdListAssertions(a *App, args []string) error {
	fmt.Fprintf(a.Out, "%s\n", color.RedString("ASSERTED SUBROUTINE STATE CHANGES:"))
	for key, change := range a.Analysis.SubroutineAssertions() {
		label, _ := a.Analysis.Label(key[0], key[0])
		fmt.Fprintf(a.Out, "  %-18s$%06X  -> %s\n", color.MagentaString(label+":"), key[1], color.GreenString(change.String()))
	}
	fmt.Fprintln(a.Out)

	fmt.Fprintf(a.Out, "%s\n", color.RedString("ASSERTED INSTRUCTION STATE CHANGES:"))
	for pc, change := range a.Analysis.InstructionAssertions() {
		fmt.Fprintf(a.Out, "  %s  -> %s\n", color.MagentaString("$%06X", pc), color.GreenString(change.String()))
	}
	fmt.Fprintln(a.Out)
	return nil
}

func cmdListJumps(a *App, args []string) error {
	fmt.Fprintf(a.Out, "%s\n", color.RedString("ASSERTED JUMP TABLES:"))
	for caller, entries := range a.Analysis.AllJumpAssertions() {
		fmt.Fprintf(a.Out, "  %s\n", color.MagentaString("$%06X", caller))
		for _, e := range entries {
			fmt.Fprintf(a.Out, "    $%06X\n", e.Target)
		}
	}
	fmt.Fprintln(a.Out)
	return nil
}

func cmdListSubroutines(a *App, args []string) error {
	for _, pc := range a.Analysis.SubroutinePCs() {
		sub, _ := a.Analysis.Subroutine(pc)
		fmt.Fprintf(a.Out, "%s\n", formatSubroutine(sub))
	}
	fmt.Fprintln(a.Out)
	return nil
}

func formatSubroutine(sub *snesanalyze.Subroutine) string {
	if !sub.HasUnknownStateChange() {
		return color.GreenString(sub.Label)
	}
	s := color.RedString(sub.Label)
	switch {
	case sub.IsUnknownBecauseOf(snesanalyze.SuspectInstruction):
		s += " " + color.New(color.BgHiRed).Sprint("[!]")
	case sub.IsUnknownBecauseOf(snesanalyze.IndirectJump):
		s += " " + color.RedString("[*]")
	case sub.IsUnknownBecauseOf(snesanalyze.MultipleReturnStates):
		s += " " + color.RedString("[+]")
	}
	return s
}

func cmdMemory(a *App, args []string) error {
	addr, err := integerArg(args, 0, "addr")
	if err != nil {
		return err
	}
	size, err := integerArg(args, 1, "size")
	if err != nil {
		return err
	}
	step, err := integerArg(args, 2, "step")
	if err != nil {
		return err
	}
	if step <= 0 || step > 16 {
		return snesanalyze.NewError(snesanalyze.ErrInvalidStepSize, "")
	}

	for off := 0; off < size; off += step {
		fmt.Fprintf(a.Out, "$%06X  ", addr+off)
		for i := 0; i < step && off+i < size; i++ {
			fmt.Fprintf(a.Out, "%02X ", a.Analysis.ROM.ReadByte(addr+off+i))
		}
		fmt.Fprintln(a.Out)
	}
	fmt.Fprintln(a.Out)
	return nil
}

func cmdQuerySubroutine(a *App, args []string) error {
	pc, err := resolveSubroutineArg(a, args, 0)
	if err != nil {
		return err
	}
	sub, ok := a.Analysis.Subroutine(pc)
	if !ok {
		return snesanalyze.NewError(snesanalyze.ErrUnknownLabel, "")
	}

	fmt.Fprintf(a.Out, "%s\n", color.YellowString("Stack traces:"))
	for _, trace := range sub.StackTraces {
		fmt.Fprintf(a.Out, "  %v\n", trace)
	}
	fmt.Fprintf(a.Out, "\n%s\n", color.YellowString("Return changes:"))
	for _, c := range sub.DistinctStateChanges() {
		fmt.Fprintf(a.Out, "  %s\n", c.String())
	}
	for pc, c := range sub.UnknownStateChanges {
		fmt.Fprintf(a.Out, "  $%06X: %s\n", pc, color.RedString(c.UnknownReason.String()))
	}
	fmt.Fprintln(a.Out)
	return nil
}

// resolveSubroutineArg resolves an optional label argument to a pc, falling
// back to the currently selected subroutine.
func resolveSubroutineArg(a *App, args []string, i int) (int, error) {
	if i < len(args) {
		pc, ok := a.Analysis.LabelValue(args[i])
		if !ok {
			return 0, snesanalyze.NewError(snesanalyze.ErrUnknownLabel, args[i])
		}
		return pc, nil
	}
	return a.getSubroutine()
}

func cmdRename(a *App, args []string) error {
	old, err := stringArg(args, 0, "old")
	if err != nil {
		return err
	}
	newName, err := stringArg(args, 1, "new")
	if err != nil {
		return err
	}
	pc, ok := a.Analysis.LabelValue(old)
	if !ok {
		return snesanalyze.NewError(snesanalyze.ErrUnknownLabel, old)
	}
	if a.Analysis.IsSubroutine(pc) {
		return a.Analysis.RenameSubroutine(pc, newName)
	}
	sub, err := a.getSubroutine()
	if err != nil {
		return err
	}
	return a.Analysis.RenameLocalLabel(sub, pc, newName)
}

func cmdReset(a *App, args []string) error {
	if !confirm(a, "Discard the current analysis?") {
		return nil
	}
	a.Analysis.Reset()
	return nil
}

func confirm(a *App, prompt string) bool {
	fmt.Fprintf(a.Out, "%s [y/N] ", prompt)
	var answer string
	fmt.Fscanln(a.In(), &answer)
	return answer == "y" || answer == "Y"
}

func cmdRom(a *App, args []string) error {
	rom := a.Analysis.ROM
	fmt.Fprintf(a.Out, "%-10s%s\n", color.GreenString("Title:"), rom.Title())
	fmt.Fprintf(a.Out, "%-10s%s\n", color.GreenString("Type:"), rom.RomType.String())
	fmt.Fprintf(a.Out, "%-10s%d\n", color.GreenString("Size:"), rom.Size()/1024)
	fmt.Fprintf(a.Out, "%s\n", color.GreenString("Vectors:"))
	fmt.Fprintf(a.Out, "  %-8s$%06X\n", color.GreenString("RESET:"), rom.ResetVector())
	fmt.Fprintf(a.Out, "  %-8s$%06X\n", color.GreenString("NMI:"), rom.NMIVector())
	fmt.Fprintln(a.Out)
	return nil
}

func cmdSave(a *App, args []string) error {
	path, err := stringArg(args, 0, "path")
	if err != nil {
		return err
	}
	return snesanalyze.Save(a.Analysis, path)
}

func cmdLoad(a *App, args []string) error {
	path, err := stringArg(args, 0, "path")
	if err != nil {
		return err
	}
	if !confirm(a, "Discard the current analysis and load "+path+"?") {
		return nil
	}
	loaded, err := snesanalyze.Load(path)
	if err != nil {
		return err
	}
	a.Analysis = loaded
	a.hasCurrentSubroutine = false
	return nil
}

func cmdSubroutine(a *App, args []string) error {
	label, err := stringArg(args, 0, "label")
	if err != nil {
		return err
	}
	pc, ok := a.Analysis.LabelValue(label)
	if !ok {
		return snesanalyze.NewError(snesanalyze.ErrUnknownLabel, label)
	}
	a.currentSubroutine = pc
	a.hasCurrentSubroutine = true
	return nil
}

func cmdTranslate(a *App, args []string) error {
	addr, err := integerArg(args, 0, "snes_addr")
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "$%06X\n\n", a.Analysis.ROM.Translate(addr))
	return nil
}

func cmdHelp(a *App, args []string) error {
	cmd, i := dig(a.commands, args)
	a.printHelp(args[:i], cmd, i == 0)
	return nil
}

func cmdQuit(a *App, args []string) error {
	a.exit = true
	return nil
}
