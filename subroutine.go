package snesanalyze

import "sort"

// Subroutine is a code region reached by a call (JSR/JSL) or declared as an
// entry point.
type Subroutine struct {
	PC    int
	Label string

	instructions map[int]Instruction

	// KnownStateChanges / UnknownStateChanges are keyed by the PC of the
	// instruction that produced them: the return, or the instruction at
	// which the change became unknown.
	KnownStateChanges   map[int]StateChange
	UnknownStateChanges map[int]StateChange

	// StackTraces holds, for every distinct caller chain that has reached
	// this subroutine, the ordered slice of caller PCs (outermost first).
	StackTraces [][]int

	ContainsIndirectJumps bool
	ContainsAssertions    bool
}

// NewSubroutine builds an empty subroutine record at pc, defaulting its
// label to the sub_XXXXXX form (see labels.go for user-visible synthesis).
func NewSubroutine(pc int) *Subroutine {
	return &Subroutine{
		PC:                  pc,
		Label:               defaultSubroutineLabel(pc),
		instructions:        make(map[int]Instruction),
		KnownStateChanges:   make(map[int]StateChange),
		UnknownStateChanges: make(map[int]StateChange),
	}
}

// AddInstruction records instr as belonging to this subroutine.
func (s *Subroutine) AddInstruction(instr Instruction) {
	s.instructions[instr.PC] = instr
}

// Instructions returns the subroutine's instructions ordered by ascending
// PC.
func (s *Subroutine) Instructions() []Instruction {
	pcs := make([]int, 0, len(s.instructions))
	for pc := range s.instructions {
		pcs = append(pcs, pc)
	}
	sort.Ints(pcs)
	out := make([]Instruction, len(pcs))
	for i, pc := range pcs {
		out[i] = s.instructions[pc]
	}
	return out
}

// InstructionAt returns the instruction recorded at pc, if any.
func (s *Subroutine) InstructionAt(pc int) (Instruction, bool) {
	instr, ok := s.instructions[pc]
	return instr, ok
}

// AddStackTrace records a caller chain that reached this subroutine.
func (s *Subroutine) AddStackTrace(trace []int) {
	for _, existing := range s.StackTraces {
		if len(existing) != len(trace) {
			continue
		}
		same := true
		for i := range trace {
			if existing[i] != trace[i] {
				same = false
				break
			}
		}
		if same {
			return
		}
	}
	cp := make([]int, len(trace))
	copy(cp, trace)
	s.StackTraces = append(s.StackTraces, cp)
}

// AddStateChange files a return state change under its originating PC, into
// the known or unknown map depending on whether it carries a reason.
func (s *Subroutine) AddStateChange(pc int, change StateChange) {
	if change.IsUnknown() {
		s.UnknownStateChanges[pc] = change
	} else {
		s.KnownStateChanges[pc] = change
	}
}

// HasUnknownStateChange reports whether this subroutine has any return site
// whose state change could not be determined.
func (s *Subroutine) HasUnknownStateChange() bool {
	return len(s.UnknownStateChanges) > 0
}

// IsUnknownBecauseOf reports whether any unknown state change carries the
// given reason.
func (s *Subroutine) IsUnknownBecauseOf(reason UnknownReason) bool {
	for _, c := range s.UnknownStateChanges {
		if c.UnknownReason == reason {
			return true
		}
	}
	return false
}

// IsResponsibleForUnknown reports whether this subroutine itself introduced
// an unknown state change, as opposed to merely propagating one from a
// callee (reason Unknown means "propagated, not originated here").
func (s *Subroutine) IsResponsibleForUnknown() bool {
	if len(s.UnknownStateChanges) == 0 {
		return false
	}
	for _, c := range s.UnknownStateChanges {
		if c.UnknownReason == Unknown {
			return false
		}
	}
	return true
}

// SavesStateInIncipit reports whether the first non-data instruction is
// PHP, read up to (but not past) the first SEP/REP or control instruction.
func (s *Subroutine) SavesStateInIncipit() bool {
	for _, instr := range s.Instructions() {
		if instr.Op() == PHP {
			return true
		}
		if instr.IsSepRep() || instr.IsControl() {
			return false
		}
	}
	return false
}

// CombinedStateChange deterministically merges every known return delta.
// It returns false if M or X are set to contradictory values across
// different return sites, or if more than one distinct unknown reason
// coexists (no single change can represent the subroutine's effect).
func (s *Subroutine) CombinedStateChange() (StateChange, bool) {
	if len(s.UnknownStateChanges) > 0 {
		reason := UnknownReason(-1)
		for _, c := range s.UnknownStateChanges {
			if reason == UnknownReason(-1) {
				reason = c.UnknownReason
			} else if reason != c.UnknownReason {
				return StateChange{}, false
			}
		}
	}

	var m, x *bool
	for _, c := range s.KnownStateChanges {
		if c.M != nil {
			if m != nil && *m != *c.M {
				return StateChange{}, false
			}
			m = c.M
		}
		if c.X != nil {
			if x != nil && *x != *c.X {
				return StateChange{}, false
			}
			x = c.X
		}
	}
	return NewStateChange(m, x), true
}

// SimplifiedStateChanges returns every known return delta simplified
// against the live state, deduplicated.
func (s *Subroutine) SimplifiedStateChanges(state State) []StateChange {
	var out []StateChange
	for _, c := range s.KnownStateChanges {
		simplified := c.Simplify(state)
		seen := false
		for _, o := range out {
			if o.Equal(simplified) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, simplified)
		}
	}
	return out
}

// StateChanges returns every known return delta (no simplification, no
// dedup beyond the map's own keying by return PC).
func (s *Subroutine) StateChanges() []StateChange {
	out := make([]StateChange, 0, len(s.KnownStateChanges))
	for _, c := range s.KnownStateChanges {
		out = append(out, c)
	}
	return out
}

// DistinctStateChanges returns the known return deltas deduplicated by
// value: multiple return sites producing the same effective change count
// once. Call propagation does not use this list; it deduplicates the
// changes after simplifying them against the caller's live state
// (SimplifiedStateChanges).
func (s *Subroutine) DistinctStateChanges() []StateChange {
	var out []StateChange
	for _, c := range s.KnownStateChanges {
		seen := false
		for _, o := range out {
			if o.Equal(c) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, c)
		}
	}
	return out
}
