package snesanalyze

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Disassembly renders a subroutine's recovered instructions as human-readable
// text: one line per label definition, one line per instruction (mnemonic,
// argument, trailing comment), and one line per unresolved state change.
type Disassembly struct {
	Analysis *Analysis
}

// NewDisassembly builds a renderer over analysis.
func NewDisassembly(analysis *Analysis) *Disassembly {
	return &Disassembly{Analysis: analysis}
}

// Subroutine renders every instruction belonging to sub, in PC order.
func (d *Disassembly) Subroutine(pc int) (string, error) {
	sub, ok := d.Analysis.Subroutine(pc)
	if !ok {
		return "", newError(ErrUnknownLabel, fmt.Sprintf("$%06X", pc))
	}

	var b strings.Builder
	for _, instr := range sub.Instructions() {
		b.WriteString(d.label(instr.PC, pc))
		b.WriteString(d.instruction(instr))
		b.WriteString(d.unknownState(instr.PC, sub))
	}
	return b.String(), nil
}

func (d *Disassembly) label(pc, subroutine int) string {
	label, ok := d.Analysis.Label(pc, subroutine)
	if !ok {
		return ""
	}
	return color.RedString(label+":") + "\n"
}

func (d *Disassembly) instruction(i Instruction) string {
	mnemonic := color.GreenString("%-4s", i.Name())
	arg := d.argumentString(i)
	comment := color.New(color.FgHiBlack).Sprintf("; $%06X", i.PC)
	if text, ok := d.Analysis.Comment(i.PC); ok && text != "" {
		comment = color.New(color.FgHiBlack).Sprintf("; $%06X | %s", i.PC, text)
	}
	return fmt.Sprintf("  %s%-25s%s\n", mnemonic, arg, comment)
}

func (d *Disassembly) unknownState(pc int, sub *Subroutine) string {
	change, ok := sub.UnknownStateChanges[pc]
	if !ok {
		return ""
	}
	return color.RedString("  ; %s", change.UnknownReason.String()) + "\n"
}

// argumentString formats an instruction's operand per its addressing mode,
// preferring a resolved subroutine/local label over a raw hex address when
// the argument names a known destination.
func (d *Disassembly) argumentString(i Instruction) string {
	if alias, ok := d.argumentAlias(i); ok {
		return color.RedString(alias)
	}

	arg, hasArg := i.Argument()
	if !hasArg {
		switch i.AddressMode() {
		case ImpliedAccumulator:
			return "a"
		default:
			return ""
		}
	}

	switch i.AddressMode() {
	case ImmediateM:
		if i.State.ASize() == 1 {
			return fmt.Sprintf("#$%02X", arg)
		}
		return fmt.Sprintf("#$%04X", arg)
	case ImmediateX:
		if i.State.XSize() == 1 {
			return fmt.Sprintf("#$%02X", arg)
		}
		return fmt.Sprintf("#$%04X", arg)
	case Immediate8:
		return fmt.Sprintf("#$%02X", arg)

	case Relative, RelativeLong:
		target, _ := i.AbsoluteArgument()
		return fmt.Sprintf("$%06X", target)

	case DirectPage:
		return fmt.Sprintf("$%02X", arg)
	case DirectPageIndexedX:
		return fmt.Sprintf("$%02X,x", arg)
	case DirectPageIndexedY:
		return fmt.Sprintf("$%02X,y", arg)
	case DirectPageIndirect:
		return fmt.Sprintf("($%02X)", arg)
	case DirectPageIndexedIndirect:
		return fmt.Sprintf("($%02X,x)", arg)
	case DirectPageIndirectIndexed:
		return fmt.Sprintf("($%02X),y", arg)
	case DirectPageIndirectLong:
		return fmt.Sprintf("[$%02X]", arg)
	case DirectPageIndirectIndexedLong:
		return fmt.Sprintf("[$%02X],y", arg)
	case PeiDirectPageIndirect:
		return fmt.Sprintf("($%02X)", arg)

	case Absolute:
		if target, ok := i.AbsoluteArgument(); ok {
			return fmt.Sprintf("$%06X", target)
		}
		return fmt.Sprintf("$%04X", arg)
	case AbsoluteIndexedX:
		return fmt.Sprintf("$%04X,x", arg)
	case AbsoluteIndexedY:
		return fmt.Sprintf("$%04X,y", arg)
	case AbsoluteLong:
		return fmt.Sprintf("$%06X", arg)
	case AbsoluteIndexedLong:
		return fmt.Sprintf("$%06X,x", arg)
	case AbsoluteIndirect:
		return fmt.Sprintf("($%04X)", arg)
	case AbsoluteIndirectLong:
		return fmt.Sprintf("[$%04X]", arg)
	case AbsoluteIndexedIndirect:
		return fmt.Sprintf("($%04X,x)", arg)
	case StackAbsolute:
		return fmt.Sprintf("$%04X", arg)

	case StackRelative:
		return fmt.Sprintf("$%02X,s", arg)
	case StackRelativeIndirectIndexed:
		return fmt.Sprintf("($%02X,s),y", arg)

	case Move:
		hi := (arg >> 8) & 0xFF
		lo := arg & 0xFF
		return fmt.Sprintf("$%02X,$%02X", hi, lo)

	default:
		return ""
	}
}

// argumentAlias returns the label naming the instruction's resolved target,
// when the target is a known subroutine or local label. Jump-table callers
// and unresolved indirect control instructions have no alias.
func (d *Disassembly) argumentAlias(i Instruction) (string, bool) {
	if !i.IsCall() && !i.IsJump() && !i.IsBranch() {
		return "", false
	}
	target, ok := i.AbsoluteArgument()
	if !ok {
		return "", false
	}
	return d.Analysis.Label(target, i.Subroutine)
}
