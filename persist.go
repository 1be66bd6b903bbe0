package snesanalyze

import (
	"encoding/json"
	"os"
)

// SavedState is the on-disk form of everything a session contributes beyond
// what a fresh run over the ROM recovers on its own: the ROM path, every
// entry point (Load skips those already present, such as the default
// reset/NMI pair), user labels, and every assertion table. Loading replays the analyzer over this state rather than
// storing derived instruction/subroutine data directly.
type SavedState struct {
	ROMPath     string             `json:"rom_path"`
	EntryPoints []EntryPoint       `json:"entry_points"`
	Labels      map[string]int     `json:"labels"`
	LocalLabels []LocalLabelRename `json:"local_labels"`
	Comments    map[int]string     `json:"comments"`

	InstructionAssertions map[int]StateChange       `json:"instruction_assertions"`
	SubroutineAssertions  []savedSubroutineAssertion `json:"subroutine_assertions"`
	JumpAssertions        map[int][]JumpTableEntry   `json:"jump_assertions"`
	IndirectJumpKinds     map[int]IndirectJumpKind   `json:"indirect_jump_kinds"`
}

type savedSubroutineAssertion struct {
	Subroutine  int         `json:"subroutine"`
	Instruction int         `json:"instruction"`
	Change      StateChange `json:"change"`
}

// Save serializes a's user-supplied state (not its derived analysis) to
// path as JSON.
func Save(a *Analysis, path string) error {
	saved := SavedState{
		ROMPath:               a.ROM.Path,
		EntryPoints:           a.EntryPoints(),
		Labels:                a.customLabels(),
		LocalLabels:           a.customLocalLabels(),
		Comments:              a.allComments(),
		InstructionAssertions: a.InstructionAssertions(),
		JumpAssertions:        a.allJumpAssertions(),
		IndirectJumpKinds:     a.allIndirectJumpKinds(),
	}
	for key, change := range a.SubroutineAssertions() {
		saved.SubroutineAssertions = append(saved.SubroutineAssertions, savedSubroutineAssertion{
			Subroutine:  key[0],
			Instruction: key[1],
			Change:      change,
		})
	}

	data, err := json.MarshalIndent(saved, "", "  ")
	if err != nil {
		return wrapError(ErrIO, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return wrapError(ErrIO, err)
	}
	return nil
}

// Load reads a saved session from path, rebuilds the ROM it names, restores
// every assertion and label, and runs the analyzer to repopulate derived
// state.
func Load(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(ErrIO, err)
	}

	var saved SavedState
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, wrapError(ErrIO, err)
	}

	rom, err := LoadROM(saved.ROMPath)
	if err != nil {
		return nil, err
	}

	a := NewAnalysis(rom)
	for _, ep := range saved.EntryPoints {
		if a.IsVisitedPC(ep.PC) {
			continue
		}
		found := false
		for _, existing := range a.EntryPoints() {
			if existing.PC == ep.PC {
				found = true
				break
			}
		}
		if !found {
			_ = a.AddEntryPoint(ep)
		}
	}

	for pc, change := range saved.InstructionAssertions {
		a.AddInstructionAssertion(pc, change)
	}
	for _, sa := range saved.SubroutineAssertions {
		a.AddSubroutineAssertion(sa.Subroutine, sa.Instruction, sa.Change)
	}
	for caller, entries := range saved.JumpAssertions {
		a.SetJumpTableAssertion(caller, entries)
	}
	for pc, kind := range saved.IndirectJumpKinds {
		a.SetIndirectJumpKind(pc, kind)
	}
	for pc, text := range saved.Comments {
		a.SetComment(pc, text)
	}

	a.Run()

	for label, pc := range saved.Labels {
		if a.IsSubroutine(pc) {
			_ = a.RenameSubroutine(pc, label)
		}
	}
	for _, ll := range saved.LocalLabels {
		sub := ll.Subroutine
		if !a.IsSubroutine(sub) {
			// Older saved sessions (or any entry whose subroutine key was
			// lost) carry no usable Subroutine: re-derive it from the
			// references table now that a.Run() has repopulated it.
			if found, ok := a.findContainingSubroutine(ll.PC); ok {
				sub = found
			}
		}
		_ = a.RenameLocalLabel(sub, ll.PC, ll.Label)
	}

	return a, nil
}
