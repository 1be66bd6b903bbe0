package snesanalyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalysisRunSeedsDefaultEntryPoints(t *testing.T) {
	data := make([]byte, 0x10000)
	rom := &ROM{Path: "t.sfc", data: data, RomType: HiROM}
	rom.data[rom.Translate(headerReset)] = 0x00
	rom.data[rom.Translate(headerReset)+1] = 0x80
	rom.data[rom.Translate(headerNMI)] = 0x10
	rom.data[rom.Translate(headerNMI)+1] = 0x80
	rom.data[rom.Translate(0x8000)] = 0x60
	rom.data[rom.Translate(0x8010)] = 0x60

	a := NewAnalysis(rom)
	eps := a.EntryPoints()
	require.Len(t, eps, 2)
	assert.Equal(t, "reset", eps[0].Name)
	assert.Equal(t, 0x8000, eps[0].PC)

	a.Run()
	assert.True(t, a.IsSubroutine(0x8000))
	assert.True(t, a.IsSubroutine(0x8010))
}

func TestAnalysisAddEntryPointRejectsDuplicate(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	require.NoError(t, a.AddEntryPoint(EntryPoint{Name: "a", PC: 0x8000}))

	err := a.AddEntryPoint(EntryPoint{Name: "b", PC: 0x8000})
	require.Error(t, err)
	kind, _ := AsKind(err)
	assert.Equal(t, ErrAlreadyAnalyzed, kind)
}

func TestAnalysisInstructionAssertionsRoundTrip(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	change := NewEmptyStateChange()
	a.AddInstructionAssertion(0x8000, change)

	got, ok := a.InstructionAssertion(0x8000)
	require.True(t, ok)
	assert.Equal(t, change, got)

	a.RemoveInstructionAssertion(0x8000)
	_, ok = a.InstructionAssertion(0x8000)
	assert.False(t, ok)
}

func TestAnalysisSubroutineAssertionsRoundTrip(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	m := true
	change := NewStateChange(&m, nil)
	a.AddSubroutineAssertion(0x8000, 0x8010, change)

	got, ok := a.SubroutineAssertion(0x8000, 0x8010)
	require.True(t, ok)
	assert.Equal(t, change, got)

	all := a.SubroutineAssertions()
	assert.Len(t, all, 1)

	a.RemoveSubroutineAssertion(0x8000, 0x8010)
	_, ok = a.SubroutineAssertion(0x8000, 0x8010)
	assert.False(t, ok)
}

func TestAnalysisJumpAssertionsRoundTrip(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	a.AddJumpAssertion(0x8000, 0x9000)
	a.AddJumpAssertion(0x8000, 0x9010)

	entries, ok := a.JumpAssertion(0x8000)
	require.True(t, ok)
	assert.Len(t, entries, 2)

	a.RemoveJumpAssertion(0x8000)
	_, ok = a.JumpAssertion(0x8000)
	assert.False(t, ok)
}

func TestAnalysisSetJumpTableAssertionReplacesEntries(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	a.AddJumpAssertion(0x8000, 0x9000)
	a.SetJumpTableAssertion(0x8000, []JumpTableEntry{{Target: 0xA000}, {Target: 0xA010}})

	entries, ok := a.JumpAssertion(0x8000)
	require.True(t, ok)
	require.Len(t, entries, 2)
	assert.Equal(t, 0xA000, entries[0].Target)
}

func TestAnalysisLabelAndLabelValue(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	a.AddSubroutine(0x8000)

	label, ok := a.Label(0x8000, 0x8000)
	require.True(t, ok)
	assert.Equal(t, "sub_008000", label)

	pc, ok := a.LabelValue("sub_008000")
	require.True(t, ok)
	assert.Equal(t, 0x8000, pc)
}

func TestAnalysisRenameSubroutine(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	a.AddSubroutine(0x8000)

	require.NoError(t, a.RenameSubroutine(0x8000, "main_loop"))
	label, _ := a.Label(0x8000, 0x8000)
	assert.Equal(t, "main_loop", label)

	err := a.RenameSubroutine(0x8000, "sub_000001")
	kind, _ := AsKind(err)
	assert.Equal(t, ErrReservedLabel, kind)
}

func TestAnalysisCommentsSetAndClear(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	a.SetComment(0x8000, "entry point")

	text, ok := a.Comment(0x8000)
	require.True(t, ok)
	assert.Equal(t, "entry point", text)

	a.SetComment(0x8000, "")
	_, ok = a.Comment(0x8000)
	assert.False(t, ok)
}

func TestAnalysisIndirectJumpKindRoundTrip(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	a.SetIndirectJumpKind(0x8000, IndirectJumpKindReturnCall)

	kind, ok := a.IndirectJumpKind(0x8000)
	require.True(t, ok)
	assert.Equal(t, IndirectJumpKindReturnCall, kind)
}

func TestAnalysisRunPicksUpAssertionAddedBetweenRuns(t *testing.T) {
	a := newCPUTestAnalysis()
	asm(a.ROM, 0x8000, 0x7C, 0x00, 0x80) // JMP (abs,X), unresolvable without an assertion
	require.NoError(t, a.AddEntryPoint(EntryPoint{Name: "start", PC: 0x8000}))

	a.Run()
	sub, ok := a.Subroutine(0x8000)
	require.True(t, ok)
	assert.True(t, sub.HasUnknownStateChange())

	a.AddSubroutineAssertion(0x8000, 0x8000, NewEmptyStateChange())

	// A second Run() must re-walk from scratch rather than short-circuit on
	// the instructions visited by the first run, or the new assertion would
	// never take effect.
	a.Run()
	sub, ok = a.Subroutine(0x8000)
	require.True(t, ok)
	assert.False(t, sub.HasUnknownStateChange())
}

func TestAnalysisResetPreservesAssertionsAndEntryPoints(t *testing.T) {
	a := NewAnalysis(&ROM{RomType: ROMUnknown})
	require.NoError(t, a.AddEntryPoint(EntryPoint{Name: "start", PC: 0x8000}))
	a.AddInstructionAssertion(0x8000, NewEmptyStateChange())
	a.AddSubroutine(0x8000)

	a.Reset()

	assert.False(t, a.IsSubroutine(0x8000))
	_, ok := a.InstructionAssertion(0x8000)
	assert.True(t, ok)
	assert.Len(t, a.EntryPoints(), 1)
}
