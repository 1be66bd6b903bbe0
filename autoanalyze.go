package snesanalyze

import "sort"

// reasonPriority orders unknown reasons for the auto-analyzer's per-pass
// walk: resolving an indirect jump/call often unlocks a subroutine's other
// unknowns, so it is tried first.
var reasonPriority = map[UnknownReason]int{
	IndirectJump:         0,
	StackManipulation:    1,
	MultipleReturnStates: 2,
	Recursion:            3,
}

// assertionSuggestion is a candidate assertion to try: either an
// instruction assertion (keyed by pc alone) or a subroutine assertion
// (keyed by (subroutine, pc)).
type assertionSuggestion struct {
	instruction bool
	subroutine  int
	pc          int
	change      StateChange
}

// RunAutoAnalyzer iterates the fixpoint described for the auto-analyzer:
// run the interpreter, suggest assertions for every unknown state change a
// subroutine is itself responsible for, apply them, and repeat until a full
// pass applies nothing new.
func RunAutoAnalyzer(a *Analysis) {
	for {
		a.Run()

		applied := 0
		for _, pc := range a.SubroutinePCs() {
			sub, ok := a.Subroutine(pc)
			if !ok || !sub.IsResponsibleForUnknown() {
				continue
			}
			for _, instrPC := range orderedUnknownPCs(sub) {
				if applyOneSuggestion(a, sub, instrPC) {
					applied++
				}
			}
		}
		if applied == 0 {
			return
		}
	}
}

// orderedUnknownPCs returns sub's unknown-state instruction PCs, ordered by
// reason priority and then by ascending PC for determinism.
func orderedUnknownPCs(sub *Subroutine) []int {
	pcs := make([]int, 0, len(sub.UnknownStateChanges))
	for pc := range sub.UnknownStateChanges {
		pcs = append(pcs, pc)
	}
	sort.Slice(pcs, func(i, j int) bool {
		ri := reasonPriority[sub.UnknownStateChanges[pcs[i]].UnknownReason]
		rj := reasonPriority[sub.UnknownStateChanges[pcs[j]].UnknownReason]
		if ri != rj {
			return ri < rj
		}
		return pcs[i] < pcs[j]
	})
	return pcs
}

func applyOneSuggestion(a *Analysis, sub *Subroutine, instrPC int) bool {
	change, ok := sub.UnknownStateChanges[instrPC]
	if !ok {
		return false
	}
	instr, ok := sub.InstructionAt(instrPC)
	if !ok {
		return false
	}

	kind, hasKind := a.IndirectJumpKind(instrPC)
	suggestion, ok := suggest(sub, instr, change.UnknownReason, kind, hasKind)
	if !ok || suggestionAlreadyAsserted(a, suggestion) {
		return false
	}

	if suggestion.instruction {
		a.AddInstructionAssertion(suggestion.pc, suggestion.change)
	} else {
		a.AddSubroutineAssertion(suggestion.subroutine, suggestion.pc, suggestion.change)
	}
	return true
}

// suggest implements the suggestion rules: for an unknown instruction i in
// subroutine sub with the given reason, propose an assertion that would
// resolve it, or report that no rule applies.
func suggest(sub *Subroutine, instr Instruction, reason UnknownReason, kind IndirectJumpKind, hasKind bool) (assertionSuggestion, bool) {
	switch {
	case instr.Category() == CategoryCall && reason == IndirectJump:
		return assertionSuggestion{instruction: true, pc: instr.PC, change: NewEmptyStateChange()}, true

	case instr.Category() == CategoryCall && reason == MultipleReturnStates:
		return assertionSuggestion{instruction: true, pc: instr.PC, change: NewEmptyStateChange()}, true

	case instr.Category() == CategoryJump && reason == IndirectJump && hasKind && kind == IndirectJumpKindReturnCall:
		// The user has classified this indirect jump as behaving like a
		// call that returns immediately: treat it the way an unresolved
		// call is treated, an instruction-level no-op delta, rather than
		// guessing at a callee's state layout.
		return assertionSuggestion{instruction: true, pc: instr.PC, change: NewEmptyStateChange()}, true

	case instr.Category() == CategoryJump && reason == IndirectJump:
		if sub.SavesStateInIncipit() {
			return assertionSuggestion{subroutine: sub.PC, pc: instr.PC, change: NewEmptyStateChange()}, true
		}
		return assertionSuggestion{subroutine: sub.PC, pc: instr.PC, change: combinedOrFallback(sub, instr)}, true

	case instr.Category() == CategoryReturn && reason == StackManipulation:
		return assertionSuggestion{subroutine: sub.PC, pc: instr.PC, change: combinedOrFallback(sub, instr)}, true

	case instr.Op() == PLP && reason == StackManipulation:
		return assertionSuggestion{instruction: true, pc: instr.PC, change: NewEmptyStateChange()}, true

	case reason == Recursion:
		return assertionSuggestion{subroutine: sub.PC, pc: instr.PC, change: combinedOrFallback(sub, instr)}, true

	default:
		return assertionSuggestion{}, false
	}
}

// combinedOrFallback returns sub's combined return-state change, or (when
// that is contradictory) the instruction's own accumulated delta at the
// point it was decoded.
func combinedOrFallback(sub *Subroutine, instr Instruction) StateChange {
	if change, ok := sub.CombinedStateChange(); ok {
		return change
	}
	return instr.StateChangeAtEntry
}

func suggestionAlreadyAsserted(a *Analysis, s assertionSuggestion) bool {
	if s.instruction {
		_, ok := a.InstructionAssertion(s.pc)
		return ok
	}
	_, ok := a.SubroutineAssertion(s.subroutine, s.pc)
	return ok
}
