package snesanalyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderedUnknownPCsOrdersByReasonThenPC(t *testing.T) {
	sub := NewSubroutine(0x8000)
	sub.AddStateChange(0x8020, NewUnknownStateChange(StackManipulation))
	sub.AddStateChange(0x8010, NewUnknownStateChange(IndirectJump))
	sub.AddStateChange(0x8030, NewUnknownStateChange(IndirectJump))

	pcs := orderedUnknownPCs(sub)
	require.Len(t, pcs, 3)
	assert.Equal(t, []int{0x8010, 0x8030, 0x8020}, pcs)
}

func TestSuggestIndirectCallProposesEmptyInstructionAssertion(t *testing.T) {
	instr := NewInstruction(0x8000, 0x8000, StateFromMX(true, true), 0x22, 0, NewEmptyStateChange()) // JSL
	sub := NewSubroutine(0x8000)

	s, ok := suggest(sub, instr, IndirectJump, IndirectJumpKindCall, false)
	require.True(t, ok)
	assert.True(t, s.instruction)
	assert.Equal(t, 0x8000, s.pc)
}

func TestSuggestReturnCallClassifiedIndirectJumpIsInstructionLevel(t *testing.T) {
	instr := NewInstruction(0x8000, 0x8000, StateFromMX(true, true), 0x7C, 0, NewEmptyStateChange()) // JMP (abs,X)
	sub := NewSubroutine(0x8000)

	s, ok := suggest(sub, instr, IndirectJump, IndirectJumpKindReturnCall, true)
	require.True(t, ok)
	assert.True(t, s.instruction)
}

func TestSuggestPlainIndirectJumpProposesSubroutineAssertion(t *testing.T) {
	instr := NewInstruction(0x8000, 0x8000, StateFromMX(true, true), 0x7C, 0, NewEmptyStateChange()) // JMP (abs,X)
	sub := NewSubroutine(0x8000)

	s, ok := suggest(sub, instr, IndirectJump, IndirectJumpKindJump, true)
	require.True(t, ok)
	assert.False(t, s.instruction)
	assert.Equal(t, sub.PC, s.subroutine)
}

func TestSuggestPLPStackManipulationIsInstructionLevel(t *testing.T) {
	instr := NewInstruction(0x8000, 0x8000, StateFromMX(true, true), 0x28, 0, NewEmptyStateChange()) // PLP
	sub := NewSubroutine(0x8000)

	s, ok := suggest(sub, instr, StackManipulation, IndirectJumpKindCall, false)
	require.True(t, ok)
	assert.True(t, s.instruction)
}

func TestSuggestNoRuleForSuspectInstruction(t *testing.T) {
	instr := NewInstruction(0x8000, 0x8000, StateFromMX(true, true), 0x00, 0, NewEmptyStateChange()) // BRK
	sub := NewSubroutine(0x8000)

	_, ok := suggest(sub, instr, SuspectInstruction, IndirectJumpKindCall, false)
	assert.False(t, ok)
}

func TestRunAutoAnalyzerResolvesIndirectJumpWithAssertion(t *testing.T) {
	a := newCPUTestAnalysis()
	asm(a.ROM, 0x8000, 0x7C, 0x00, 0x80) // JMP (abs,X), falls back to itself

	a.AddEntryPoint(EntryPoint{Name: "start", PC: 0x8000})

	RunAutoAnalyzer(a)

	// The lone instruction is itself an unresolvable jump, so no PHP saves
	// state first: the auto-analyzer proposes a subroutine-level assertion
	// rather than an instruction-level one.
	_, ok := a.SubroutineAssertion(0x8000, 0x8000)
	assert.True(t, ok)

	sub, ok := a.Subroutine(0x8000)
	require.True(t, ok)
	assert.False(t, sub.HasUnknownStateChange())
}
