package snesanalyze

import "strings"

// InstructionID uniquely identifies an instruction executed in a specific
// subroutine and processor state: the visited-set key.
type InstructionID struct {
	PC         int
	Subroutine int
	P          byte
}

// Category classifies an instruction's effect on control flow.
type Category int

const (
	CategoryOther Category = iota
	CategoryBranch
	CategoryCall
	CategoryJump
	CategoryReturn
	CategoryInterrupt
	CategorySepRep
	CategoryPush
	CategoryPop
)

// Instruction is an immutable decoded instance at a specific
// (pc, subroutine, P) triple.
type Instruction struct {
	PC         int
	Subroutine int
	State      State
	Opcode     byte
	rawArg     int

	// StateChangeAtEntry is the accumulating subroutine delta as observed
	// when this instruction was decoded (used by the disassembler and by
	// assertion bookkeeping, not by decoding itself).
	StateChangeAtEntry StateChange
}

// NewInstruction decodes the instruction at pc within subroutine, under the
// given processor state, with the given raw (unmasked) argument bytes.
func NewInstruction(pc, subroutine int, state State, opcode byte, rawArg int, stateChange StateChange) Instruction {
	return Instruction{
		PC:                 pc,
		Subroutine:         subroutine,
		State:              state,
		Opcode:             opcode,
		rawArg:             rawArg,
		StateChangeAtEntry: stateChange,
	}
}

// ID returns the InstructionID used as the visited-set key.
func (i Instruction) ID() InstructionID {
	return InstructionID{PC: i.PC, Subroutine: i.Subroutine, P: i.State.P()}
}

// Op returns the instruction's operation.
func (i Instruction) Op() Op {
	return decodeOpcode(i.Opcode).Op
}

// Name returns the lowercase mnemonic, as rendered in disassembly.
func (i Instruction) Name() string {
	return strings.ToLower(string(i.Op()))
}

// AddressMode returns the instruction's addressing mode.
func (i Instruction) AddressMode() AddressMode {
	return decodeOpcode(i.Opcode).AddrMode
}

// Size returns the instruction's total size in bytes (opcode + argument).
func (i Instruction) Size() int {
	return i.ArgumentSize() + 1
}

// ArgumentSize returns the instruction's argument size in bytes, resolving
// ImmediateM/ImmediateX against the live processor state.
func (i Instruction) ArgumentSize() int {
	mode := i.AddressMode()
	size := argumentSizes[mode]
	if size != -1 {
		return size
	}
	switch mode {
	case ImmediateM:
		return i.State.ASize()
	case ImmediateX:
		return i.State.XSize()
	default:
		return 0
	}
}

// Argument returns the instruction's argument masked to its size, or false
// if the instruction takes no argument.
func (i Instruction) Argument() (int, bool) {
	switch i.ArgumentSize() {
	case 0:
		return 0, false
	case 1:
		return i.rawArg & 0xFF, true
	case 2:
		return i.rawArg & 0xFFFF, true
	case 3:
		return i.rawArg & 0xFFFFFF, true
	default:
		return 0, false
	}
}

// AbsoluteArgument returns the instruction's argument resolved to an
// absolute address when the addressing mode makes that possible.
func (i Instruction) AbsoluteArgument() (int, bool) {
	arg, ok := i.Argument()
	if !ok {
		return 0, false
	}
	pc, size := i.PC, i.Size()

	switch i.AddressMode() {
	case ImmediateM, ImmediateX, Immediate8, AbsoluteLong:
		return arg, true

	case Absolute:
		if i.IsControl() {
			return (pc & 0xFF0000) | arg, true
		}
		return 0, false

	case Relative:
		delta := int(int8(byte(arg)))
		return pc + size + delta, true

	case RelativeLong:
		delta := int(int16(uint16(arg)))
		return pc + size + delta, true

	default:
		return 0, false
	}
}

// IsBranch reports whether the instruction is a conditional branch.
func (i Instruction) IsBranch() bool {
	switch i.Op() {
	case BCC, BCS, BEQ, BMI, BNE, BPL, BVC, BVS:
		return true
	default:
		return false
	}
}

// IsCall reports whether the instruction calls a subroutine.
func (i Instruction) IsCall() bool {
	switch i.Op() {
	case JSR, JSL:
		return true
	default:
		return false
	}
}

// IsJump reports whether the instruction is an unconditional jump.
func (i Instruction) IsJump() bool {
	switch i.Op() {
	case BRA, BRL, JMP, JML:
		return true
	default:
		return false
	}
}

// IsReturn reports whether the instruction returns from a subroutine or
// interrupt.
func (i Instruction) IsReturn() bool {
	switch i.Op() {
	case RTS, RTL, RTI:
		return true
	default:
		return false
	}
}

// IsInterrupt reports whether the instruction handles/raises an interrupt.
func (i Instruction) IsInterrupt() bool {
	switch i.Op() {
	case BRK, RTI:
		return true
	default:
		return false
	}
}

// IsControl reports whether the instruction affects control flow.
func (i Instruction) IsControl() bool {
	return i.IsBranch() || i.IsCall() || i.IsJump() || i.IsReturn() || i.IsInterrupt()
}

// IsSepRep reports whether the instruction is SEP or REP.
func (i Instruction) IsSepRep() bool {
	switch i.Op() {
	case SEP, REP:
		return true
	default:
		return false
	}
}

// IsPop reports whether the instruction pulls a value from the stack.
func (i Instruction) IsPop() bool {
	switch i.Op() {
	case PLA, PLB, PLD, PLP, PLX, PLY:
		return true
	default:
		return false
	}
}

// IsPush reports whether the instruction pushes a value onto the stack.
func (i Instruction) IsPush() bool {
	switch i.Op() {
	case PEA, PEI, PER, PHA, PHB, PHD, PHK, PHP, PHX, PHY:
		return true
	default:
		return false
	}
}

// ChangesA reports whether the instruction may change the tracked
// accumulator shadow. TXA/TYA/XBA invalidate the shadow rather than
// modeling the transfer; only LDA/ADC/SBC (ImmediateM) and TSC are modeled
// precisely by the interpreter's changeA handler.
func (i Instruction) ChangesA() bool {
	switch i.Op() {
	case LDA, ADC, SBC, TSC, TXA, TYA, XBA, PLA:
		return true
	default:
		return false
	}
}

// ChangesStack reports whether the instruction may change the stack
// pointer directly (outside of ordinary push/pop bookkeeping).
func (i Instruction) ChangesStack() bool {
	switch i.Op() {
	case TCS, TXS:
		return true
	default:
		return false
	}
}

// Category classifies the instruction for CPU dispatch. The order matches
// the original interpreter's dispatch precedence: RTI is both a return and
// an interrupt, and is handled as an interrupt (unknown-state-change
// SuspectInstruction), never as an ordinary return.
func (i Instruction) Category() Category {
	switch {
	case i.IsBranch():
		return CategoryBranch
	case i.IsCall():
		return CategoryCall
	case i.IsInterrupt():
		return CategoryInterrupt
	case i.IsJump():
		return CategoryJump
	case i.IsReturn():
		return CategoryReturn
	case i.IsSepRep():
		return CategorySepRep
	case i.IsPop():
		return CategoryPop
	case i.IsPush():
		return CategoryPush
	default:
		return CategoryOther
	}
}
