package snesanalyze

// Register is a shadow 8/16-bit value tracked by the interpreter: never an
// actual emulated value, only what can be proven about it from straight-line
// code. IsAccumulator selects whether its width follows M (true) or X
// (false).
type Register struct {
	IsAccumulator bool
	lo, hi        *uint16
}

// NewRegister builds an empty (fully unknown) shadow register.
func NewRegister(isAccumulator bool) Register {
	return Register{IsAccumulator: isAccumulator}
}

// Size returns the register's width in bytes under state.
func (r Register) Size(state State) int {
	if r.IsAccumulator {
		return state.ASize()
	}
	return state.XSize()
}

// Get returns the register's value at its current width under state, or
// false if any of the needed bytes are unknown.
func (r Register) Get(state State) (uint16, bool) {
	if r.Size(state) == 1 {
		if r.lo == nil {
			return 0, false
		}
		return *r.lo, true
	}
	return r.GetWhole()
}

// GetWhole returns the register's full 16-bit value, or false if either
// byte is unknown.
func (r Register) GetWhole() (uint16, bool) {
	if r.lo == nil || r.hi == nil {
		return 0, false
	}
	return (*r.hi << 8) | *r.lo, true
}

// Set assigns value at the register's current width under state, or clears
// it (and, in 8-bit width, only the low byte) when ok is false.
func (r *Register) Set(state State, value uint16, ok bool) {
	if !ok {
		if r.Size(state) == 1 {
			r.lo = nil
		} else {
			r.lo, r.hi = nil, nil
		}
		return
	}
	lo := value & 0xFF
	r.lo = &lo
	if r.Size(state) > 1 {
		hi := (value >> 8) & 0xFF
		r.hi = &hi
	}
}

// SetWhole assigns the register's full 16-bit value, or clears both bytes
// when ok is false.
func (r *Register) SetWhole(value uint16, ok bool) {
	if !ok {
		r.lo, r.hi = nil, nil
		return
	}
	lo, hi := value&0xFF, (value>>8)&0xFF
	r.lo, r.hi = &lo, &hi
}
