package snesanalyze

import (
	"strconv"
	"strings"
)

const (
	mBit = 5
	xBit = 4
)

// State is the subset of the 65c816 P register this analyzer models: the M
// (accumulator width) and X (index width) bits.
type State struct {
	p byte
}

// NewState builds a State from the raw value of P. Only the M/X bits matter.
func NewState(p byte) State {
	return State{p: p}
}

// StateFromMX builds a State directly from the M and X bits.
func StateFromMX(m, x bool) State {
	var p byte
	if m {
		p |= 1 << mBit
	}
	if x {
		p |= 1 << xBit
	}
	return State{p: p}
}

// StateFromExpr parses "m=0,x=1" (or "x=..,m=..") into a State.
func StateFromExpr(expr string) (State, error) {
	parts := strings.Split(expr, ",")
	if len(parts) != 2 {
		return State{}, newError(ErrInvalidStateExpr, "")
	}
	var m, x bool
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return State{}, newError(ErrInvalidStateExpr, "")
		}
		v, err := strconv.ParseUint(kv[1], 10, 8)
		if err != nil {
			return State{}, newError(ErrParseInt, "")
		}
		switch kv[0] {
		case "m":
			m = v != 0
		case "x":
			x = v != 0
		default:
			return State{}, newError(ErrInvalidStateExpr, "")
		}
	}
	return StateFromMX(m, x), nil
}

// P returns the raw register value.
func (s State) P() byte { return s.p }

// M returns the accumulator-width bit.
func (s State) M() bool { return s.p&(1<<mBit) != 0 }

// X returns the index-width bit.
func (s State) X() bool { return s.p&(1<<xBit) != 0 }

// SetM sets the accumulator-width bit.
func (s *State) SetM(m bool) {
	if m {
		s.Set(1 << mBit)
	} else {
		s.Reset(1 << mBit)
	}
}

// SetX sets the index-width bit.
func (s *State) SetX(x bool) {
	if x {
		s.Set(1 << xBit)
	} else {
		s.Reset(1 << xBit)
	}
}

// Set sets the M/X bits present in p, ignoring all others.
func (s *State) Set(p byte) {
	p &= (1 << mBit) | (1 << xBit)
	s.p |= p
}

// Reset clears the M/X bits present in p, ignoring all others.
func (s *State) Reset(p byte) {
	p &= (1 << mBit) | (1 << xBit)
	s.p &^= p
}

// ASize returns the accumulator width in bytes (1 or 2).
func (s State) ASize() int {
	if s.M() {
		return 1
	}
	return 2
}

// XSize returns the index-register width in bytes (1 or 2).
func (s State) XSize() int {
	if s.X() {
		return 1
	}
	return 2
}

// UnknownReason classifies why a subroutine's state change could not be
// determined statically.
type UnknownReason int

const (
	// Known means the change is a concrete (possibly empty) delta.
	Known UnknownReason = iota
	Unknown
	IndirectJump
	MultipleReturnStates
	StackManipulation
	SuspectInstruction
	// Recursion covers a subroutine that calls back into one of its own
	// callers; MutableCode is reserved for self-modifying code detection
	// and is never currently emitted.
	Recursion
	MutableCode
)

func (r UnknownReason) String() string {
	switch r {
	case Known:
		return "known"
	case Unknown:
		return "unknown"
	case IndirectJump:
		return "indirect jump"
	case MultipleReturnStates:
		return "multiple return states"
	case StackManipulation:
		return "stack manipulation"
	case SuspectInstruction:
		return "suspect instruction"
	case Recursion:
		return "recursion"
	case MutableCode:
		return "mutable code"
	default:
		return "unknown"
	}
}

// StateChange is the net M/X delta a subroutine may impose between its entry
// and one of its return sites, or an opaque unknown change carrying a
// classified reason.
type StateChange struct {
	M, X          *bool
	UnknownReason UnknownReason
}

// NewStateChange builds a known state change from optional M/X deltas.
func NewStateChange(m, x *bool) StateChange {
	return StateChange{M: m, X: x, UnknownReason: Known}
}

// NewEmptyStateChange builds the empty known change ("none").
func NewEmptyStateChange() StateChange {
	return StateChange{UnknownReason: Known}
}

// NewUnknownStateChange builds an unknown change carrying reason.
func NewUnknownStateChange(reason UnknownReason) StateChange {
	return StateChange{UnknownReason: reason}
}

// StateChangeFromExpr parses "none", "unknown", or "m=0[,x=1]" (either order).
func StateChangeFromExpr(expr string) (StateChange, error) {
	switch expr {
	case "none":
		return NewEmptyStateChange(), nil
	case "unknown":
		return NewUnknownStateChange(Unknown), nil
	}

	parts := strings.Split(expr, ",")
	if len(parts) != 1 && len(parts) != 2 {
		return StateChange{}, newError(ErrInvalidStateExpr, "")
	}
	var m, x *bool
	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return StateChange{}, newError(ErrInvalidStateExpr, "")
		}
		v, err := strconv.ParseUint(kv[1], 10, 8)
		if err != nil {
			return StateChange{}, newError(ErrParseInt, "")
		}
		b := v != 0
		switch kv[0] {
		case "m":
			m = &b
		case "x":
			x = &b
		default:
			return StateChange{}, newError(ErrInvalidStateExpr, "")
		}
	}
	return NewStateChange(m, x), nil
}

// IsUnknown reports whether the change carries a reason other than Known.
func (c StateChange) IsUnknown() bool {
	return c.UnknownReason != Known
}

// SetM records a known M delta.
func (c *StateChange) SetM(m bool) { c.M = &m }

// SetX records a known X delta.
func (c *StateChange) SetX(x bool) { c.X = &x }

// Set applies the bits set to 1 in pChange (a SEP mask).
func (c *StateChange) Set(pChange byte) {
	change := NewState(pChange)
	if change.M() {
		t := true
		c.M = &t
	}
	if change.X() {
		t := true
		c.X = &t
	}
}

// Reset applies the bits set to 0 in pChange (a REP mask).
func (c *StateChange) Reset(pChange byte) {
	change := NewState(pChange)
	if change.M() {
		f := false
		c.M = &f
	}
	if change.X() {
		f := false
		c.X = &f
	}
}

// ApplyInference cancels a component of the change that matches an
// already-inferred value, preventing a spurious delta (e.g. "REP #$20" in an
// already-16-bit context producing an empty change rather than m=0).
func (c *StateChange) ApplyInference(inference StateChange) {
	if c.M != nil && boolPtrEqual(c.M, inference.M) {
		c.M = nil
	}
	if c.X != nil && boolPtrEqual(c.X, inference.X) {
		c.X = nil
	}
}

// Simplify returns a copy of c with any component that matches the live
// state's current bit cancelled out.
func (c StateChange) Simplify(state State) StateChange {
	change := c
	if change.M != nil && *change.M == state.M() {
		change.M = nil
	}
	if change.X != nil && *change.X == state.X() {
		change.X = nil
	}
	return change
}

// String renders the change as "unknown", "none", or comma-joined "m=0,x=1".
func (c StateChange) String() string {
	if c.IsUnknown() {
		return "unknown"
	}
	var parts []string
	if c.M != nil {
		parts = append(parts, "m="+boolDigit(*c.M))
	}
	if c.X != nil {
		parts = append(parts, "x="+boolDigit(*c.X))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ",")
}

// Equal reports whether two state changes carry the same M/X deltas and
// reason (used for subroutine state-change deduplication).
func (c StateChange) Equal(other StateChange) bool {
	return boolPtrEqual(c.M, other.M) && boolPtrEqual(c.X, other.X) && c.UnknownReason == other.UnknownReason
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func boolPtrEqual(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
