package snesanalyze

// CPU is a single symbolic execution thread: one depth-first walk of a
// subroutine's control flow under one entry processor state. Branches and
// calls fork a new CPU rather than mutating this one, so every reachable
// (pc, subroutine, P) combination gets its own walk.
type CPU struct {
	analysis *Analysis

	stop bool

	pc         int
	subroutine int
	state      State

	// subStateChange accumulates the net M/X delta this subroutine walk
	// has caused so far, to be filed against the subroutine on return.
	subStateChange StateChange

	// inference records, per bit, the value that was live the first time
	// an ImmediateM/ImmediateX instruction was decoded without the
	// subroutine delta yet touching that bit. It cancels a later SEP/REP
	// delta that turns out to restate the same bit rather than change it.
	inference StateChange

	stack *Stack
	a     Register

	// callChain holds the PCs of every call instruction that led to this
	// walk's subroutine, outermost first, recorded as the subroutine's
	// stack trace the first time it is reached along this path.
	callChain []int
}

// NewCPU builds a walk starting at pc, within subroutine, under P.
func NewCPU(analysis *Analysis, pc, subroutine int, state State) *CPU {
	return &CPU{
		analysis:       analysis,
		pc:             pc,
		subroutine:     subroutine,
		state:          state,
		subStateChange: NewEmptyStateChange(),
		stack:          NewStack(),
		a:              NewRegister(true),
	}
}

// clone forks an independent copy of the walk: a new stack (deep copied, so
// neither fork can observe the other's pushes) and its own copy of the call
// chain; everything else copies by value.
func (c *CPU) clone() *CPU {
	cp := *c
	cp.stack = c.stack.Clone()
	cp.callChain = append([]int(nil), c.callChain...)
	return &cp
}

// Run drives the walk to completion: fetch/execute until a return,
// unknown-state-change, or revisit stops it.
func (c *CPU) Run() {
	for !c.stop {
		c.step()
	}
}

func (c *CPU) step() {
	if IsRAM(c.pc) {
		c.stop = true
		return
	}

	opcode := c.analysis.ROM.ReadByte(c.pc)
	argument := c.analysis.ROM.ReadAddress(c.pc + 1)
	instr := NewInstruction(c.pc, c.subroutine, c.state, opcode, argument, c.subStateChange)

	if c.analysis.IsVisited(instr) {
		c.stop = true
		return
	}

	c.analysis.AddInstruction(instr)
	c.execute(instr)
}

// execute dispatches on the instruction's category, matching the original
// interpreter's precedence (see Instruction.Category): changeA/changeStack
// only apply to instructions that fall outside every control/stack/SEP-REP
// category.
func (c *CPU) execute(instr Instruction) {
	c.applyStateInference(instr)
	c.pc += instr.Size()

	switch instr.Category() {
	case CategoryBranch:
		c.branch(instr)
	case CategoryCall:
		c.call(instr)
	case CategoryInterrupt:
		c.interrupt(instr)
	case CategoryJump:
		c.jump(instr)
	case CategoryReturn:
		c.ret(instr)
	case CategorySepRep:
		c.sepRep(instr)
	case CategoryPop:
		c.pop(instr)
	case CategoryPush:
		c.push(instr)
	default:
		if instr.ChangesA() {
			c.changeA(instr)
		} else if instr.ChangesStack() {
			c.changeStack(instr)
		}
	}
}

// applyStateInference records, the first time an ImmediateM/ImmediateX
// instruction is reached without the accumulating delta yet touching that
// bit, what the live bit currently is — so a later SEP/REP that merely
// restates it produces an empty delta instead of a spurious one.
func (c *CPU) applyStateInference(instr Instruction) {
	switch instr.AddressMode() {
	case ImmediateM:
		if c.subStateChange.M == nil && c.inference.M == nil {
			c.inference.SetM(c.state.M())
		}
	case ImmediateX:
		if c.subStateChange.X == nil && c.inference.X == nil {
			c.inference.SetX(c.state.X())
		}
	}
}

// resolveTargets returns every target instr may transfer control to: the
// targets of an asserted jump table at instr's PC, if one exists, else the
// single absolute target decoded from the instruction itself.
func (c *CPU) resolveTargets(instr Instruction) ([]int, bool) {
	if entries, ok := c.analysis.JumpAssertion(instr.PC); ok && len(entries) > 0 {
		targets := make([]int, len(entries))
		for i, e := range entries {
			targets[i] = e.Target
		}
		return targets, true
	}
	if target, ok := instr.AbsoluteArgument(); ok {
		return []int{target}, true
	}
	return nil, false
}

// branch forks a parallel walk to cover the not-taken path, then takes the
// branch itself.
func (c *CPU) branch(instr Instruction) {
	fork := c.clone()
	fork.Run()

	target, _ := instr.AbsoluteArgument()
	c.analysis.AddReference(instr.PC, target, c.subroutine)
	c.pc = target
}

// call resolves every target (an asserted jump table, or a single decoded
// address), fully walks each as its own subroutine, then propagates their
// combined effect back onto this walk before resuming after the call.
func (c *CPU) call(instr Instruction) {
	targets, ok := c.resolveTargets(instr)
	if !ok {
		c.analysis.SetIndirectJumpKind(instr.PC, IndirectJumpKindCall)
		c.unknownStateChange(instr.PC, IndirectJump)
		return
	}

	callees := make([]*Subroutine, 0, len(targets))
	for _, target := range targets {
		c.analysis.AddSubroutine(target)
		c.analysis.AddReference(instr.PC, target, c.subroutine)

		fork := c.clone()
		fork.subStateChange = NewEmptyStateChange()
		fork.inference = StateChange{}
		fork.subroutine = target
		fork.pc = target
		fork.callChain = append(fork.callChain, instr.PC)

		if sub, ok := c.analysis.Subroutine(target); ok {
			sub.AddStackTrace(fork.callChain)
		}

		fork.Run()

		if sub, ok := c.analysis.Subroutine(target); ok {
			callees = append(callees, sub)
		}
	}

	c.propagateCallState(instr.PC, callees)
}

// jump resolves every target the same way as call, forks one walk per
// target within the same subroutine, and stops this instance: a jump never
// resumes the instance that issued it.
func (c *CPU) jump(instr Instruction) {
	targets, ok := c.resolveTargets(instr)
	if !ok {
		c.analysis.SetIndirectJumpKind(instr.PC, IndirectJumpKindJump)
		c.unknownStateChange(instr.PC, IndirectJump)
		if !c.stop {
			// An assertion stood in for the unresolved target: the jump
			// leaves the subroutine with the asserted state.
			c.ret(instr)
		}
		return
	}

	for _, target := range targets {
		c.analysis.AddReference(instr.PC, target, c.subroutine)
		fork := c.clone()
		fork.pc = target
		fork.Run()
	}
	c.stop = true
}

// changeA tracks what can be proven about the shadow accumulator across
// straight-line ALU and transfer instructions. Anything not explicitly
// modeled invalidates the shadow rather than guessing.
func (c *CPU) changeA(instr Instruction) {
	switch instr.AddressMode() {
	case ImmediateM:
		arg, _ := instr.Argument()
		a, aOK := c.a.Get(c.state)
		switch instr.Op() {
		case LDA:
			c.a.Set(c.state, uint16(arg), true)
		case ADC:
			if aOK {
				c.a.Set(c.state, a+uint16(arg), true)
			} else {
				c.a.Set(c.state, 0, false)
			}
		case SBC:
			if aOK {
				c.a.Set(c.state, a-uint16(arg), true)
			} else {
				c.a.Set(c.state, 0, false)
			}
		default:
			c.a.Set(c.state, 0, false)
		}
	default:
		switch instr.Op() {
		case TSC:
			c.a.SetWhole(uint16(c.stack.Pointer()), true)
		case PLA:
			c.stack.Pop(c.state.ASize())
			c.a.Set(c.state, 0, false)
		default:
			c.a.Set(c.state, 0, false)
		}
	}
}

// changeStack models TCS/TXS: only TCS is tracked, since it moves a value
// this walk may already know (from TSC); a TCS whose A value is unknown is
// a stack-manipulation stop. TXS leaves the modeled stack pointer as it is.
func (c *CPU) changeStack(instr Instruction) {
	if instr.Op() != TCS {
		return
	}
	a, ok := c.a.GetWhole()
	if !ok {
		c.unknownStateChange(instr.PC, StackManipulation)
		return
	}
	c.stack.SetPointer(instr, uint16(a))
}

// interrupt instructions (BRK, RTI) always make the subroutine's effect
// unknown: their entry/exit state depends on a handler this walk cannot
// see.
func (c *CPU) interrupt(instr Instruction) {
	c.unknownStateChange(instr.PC, SuspectInstruction)
}

func (c *CPU) ret(instr Instruction) {
	c.stop = true
	c.analysis.AddReturnStateChange(c.subroutine, instr.PC, c.subStateChange)
}

func (c *CPU) sepRep(instr Instruction) {
	arg, _ := instr.AbsoluteArgument()
	p := byte(arg)
	switch instr.Op() {
	case SEP:
		c.state.Set(p)
		c.subStateChange.Set(p)
	default: // REP
		c.state.Reset(p)
		c.subStateChange.Reset(p)
	}
	c.subStateChange.ApplyInference(c.inference)
}

func (c *CPU) push(instr Instruction) {
	switch instr.Op() {
	case PHP:
		c.stack.PushOne(instr, StackData{Kind: StackDataState, State: c.state, StateChange: c.subStateChange})
	default:
		// Other push operations carry no modeled payload; their bytes are
		// opaque to this walk.
	}
}

func (c *CPU) pop(instr Instruction) {
	switch instr.Op() {
	case PLP:
		entry := c.stack.PopOne()
		if entry.HasInstr && entry.Instruction.Op() == PHP && entry.Data.Kind == StackDataState {
			c.state = entry.Data.State
			c.subStateChange = entry.Data.StateChange
			return
		}
		c.unknownStateChange(instr.PC, StackManipulation)
	default:
	}
}

// applyStateChange folds change into both the live state and the
// accumulating subroutine delta.
func (c *CPU) applyStateChange(change StateChange) {
	if change.M != nil {
		c.state.SetM(*change.M)
		c.subStateChange.SetM(*change.M)
	}
	if change.X != nil {
		c.state.SetX(*change.X)
		c.subStateChange.SetX(*change.X)
	}
}

// propagateCallState implements the call return-state propagation
// algorithm: collect every callee's state changes simplified against the
// live state, union them, and either apply a single surviving change or
// escalate to an unknown reason.
func (c *CPU) propagateCallState(atPC int, callees []*Subroutine) {
	var union []StateChange
	sawUnresolved := false
	sawRecursion := false

	for _, sub := range callees {
		if len(sub.KnownStateChanges) == 0 && len(sub.UnknownStateChanges) == 0 {
			sawRecursion = true
			continue
		}
		if sub.HasUnknownStateChange() {
			sawUnresolved = true
			continue
		}
		for _, sc := range sub.SimplifiedStateChanges(c.state) {
			seen := false
			for _, u := range union {
				if u.Equal(sc) {
					seen = true
					break
				}
			}
			if !seen {
				union = append(union, sc)
			}
		}
	}

	switch {
	case sawRecursion:
		c.unknownStateChange(atPC, Recursion)
	case sawUnresolved:
		c.unknownStateChange(atPC, Unknown)
	case len(union) <= 1:
		if len(union) == 1 {
			c.applyStateChange(union[0])
		}
	default:
		c.unknownStateChange(atPC, MultipleReturnStates)
	}
}

// unknownStateChange resolves an unknown condition encountered at pc:
// an instruction assertion at pc, or else a subroutine assertion at
// (subroutine, pc), is applied in place of the unresolved change and the
// walk continues; only when neither exists does the change get filed as
// unknown and the walk stop.
func (c *CPU) unknownStateChange(pc int, reason UnknownReason) {
	if assertion, ok := c.analysis.InstructionAssertion(pc); ok {
		c.applyStateChange(assertion)
		return
	}
	if assertion, ok := c.analysis.SubroutineAssertion(c.subroutine, pc); ok {
		c.applyStateChange(assertion)
		return
	}
	c.stop = true
	c.analysis.AddReturnStateChange(c.subroutine, pc, NewUnknownStateChange(reason))
}
