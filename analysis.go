package snesanalyze

import (
	"sort"
	"sync"
)

// EntryPoint is one of the ROM's known entry points (reset and NMI are
// seeded from the ROM's vectors; users may assert additional ones).
type EntryPoint struct {
	Name string
	PC   int
	P    byte
}

// IndirectJumpKind classifies an instruction that transfers control via an
// opaque computation.
type IndirectJumpKind int

const (
	IndirectJumpKindCall IndirectJumpKind = iota
	IndirectJumpKindJump
	IndirectJumpKindReturnCall
	IndirectJumpKindReturnJump
)

// JumpTableEntry is one resolved target of an asserted jump table, ordered
// by X (the index register value that selects it) when known.
type JumpTableEntry struct {
	X      *int
	Target int
}

// Reference records that the instruction at Source transfers control to
// Target, within the subroutine ContainingSubroutine.
type Reference struct {
	Target               int
	ContainingSubroutine int
}

// Analysis is the single mutable owner of every indexed collection the
// analyzer produces: instructions, subroutines, references, labels,
// assertions, indirect-jump kinds, jump-table targets, and comments.
// Every other component accesses this state only through its methods,
// enforced here with a mutex even though the interpreter itself is
// single-threaded.
type Analysis struct {
	mu sync.Mutex

	ROM *ROM

	subroutines  map[int]*Subroutine
	instructions map[int]map[InstructionID]Instruction

	entryPoints []EntryPoint
	references  map[int][]Reference

	instructionAssertions map[int]StateChange
	subroutineAssertions  map[subAssertKey]StateChange
	jumpAssertions        map[int][]JumpTableEntry
	indirectJumpKinds     map[int]IndirectJumpKind
	jumpTableTargets      map[int]int

	comments map[int]string

	// localLabels maps a subroutine PC to its target-PC -> label table.
	localLabels map[int]map[int]string
}

type subAssertKey struct {
	Subroutine int
	Instr      int
}

// NewAnalysis builds a registry for rom, seeding default entry points from
// its reset/NMI vectors (skipped entirely when the ROM type is unknown).
func NewAnalysis(rom *ROM) *Analysis {
	a := &Analysis{
		ROM:                   rom,
		subroutines:           make(map[int]*Subroutine),
		instructions:          make(map[int]map[InstructionID]Instruction),
		references:            make(map[int][]Reference),
		instructionAssertions: make(map[int]StateChange),
		subroutineAssertions:  make(map[subAssertKey]StateChange),
		jumpAssertions:        make(map[int][]JumpTableEntry),
		indirectJumpKinds:     make(map[int]IndirectJumpKind),
		jumpTableTargets:      make(map[int]int),
		comments:              make(map[int]string),
		localLabels:           make(map[int]map[int]string),
	}
	a.entryPoints = defaultEntryPoints(rom)
	return a
}

func defaultEntryPoints(rom *ROM) []EntryPoint {
	if rom == nil || rom.RomType == ROMUnknown {
		return nil
	}
	const emulationP = 0b0011_0000
	return []EntryPoint{
		{Name: "reset", PC: rom.ResetVector(), P: emulationP},
		{Name: "nmi", PC: rom.NMIVector(), P: emulationP},
	}
}

// EntryPoints returns the registered entry points.
func (a *Analysis) EntryPoints() []EntryPoint {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]EntryPoint, len(a.entryPoints))
	copy(out, a.entryPoints)
	return out
}

// AddEntryPoint registers a new entry point, rejecting a duplicate PC.
func (a *Analysis) AddEntryPoint(ep EntryPoint) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, existing := range a.entryPoints {
		if existing.PC == ep.PC {
			return newError(ErrAlreadyAnalyzed, ep.Name)
		}
	}
	a.entryPoints = append(a.entryPoints, ep)
	return nil
}

// Reset clears every derived table, keeping entry points, assertions, and
// comments. Label renames live on the cleared subroutine and local-label
// records and are discarded with them; Run carries them across its own
// Reset.
func (a *Analysis) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.subroutines = make(map[int]*Subroutine)
	a.instructions = make(map[int]map[InstructionID]Instruction)
	a.references = make(map[int][]Reference)
	a.localLabels = make(map[int]map[int]string)
}

// Run analyzes the ROM once: every derived table (subroutines, instructions,
// references, local labels) is cleared first, so re-running after a new
// assertion actually re-walks the interpreter instead of short-circuiting on
// already-visited instructions. Entry points, assertions, and comments are
// untouched, and subroutine and local-label renames are reapplied to the
// subroutines found again.
func (a *Analysis) Run() {
	labels, localLabels := a.customLabels(), a.customLocalLabels()
	a.Reset()
	for _, ep := range a.EntryPoints() {
		a.AddSubroutine(ep.PC)
		cpu := NewCPU(a, ep.PC, ep.PC, NewState(ep.P))
		cpu.Run()
	}
	a.synthesizeLocalLabels()
	for label, pc := range labels {
		_ = a.RenameSubroutine(pc, label)
	}
	for _, ll := range localLabels {
		_ = a.RenameLocalLabel(ll.Subroutine, ll.PC, ll.Label)
	}
}

// Subroutines returns every analyzed subroutine.
func (a *Analysis) Subroutines() map[int]*Subroutine {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]*Subroutine, len(a.subroutines))
	for k, v := range a.subroutines {
		out[k] = v
	}
	return out
}

// SubroutinePCs returns every subroutine's PC, ascending.
func (a *Analysis) SubroutinePCs() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	pcs := make([]int, 0, len(a.subroutines))
	for pc := range a.subroutines {
		pcs = append(pcs, pc)
	}
	sort.Ints(pcs)
	return pcs
}

// Subroutine returns the subroutine record at pc, if analyzed.
func (a *Analysis) Subroutine(pc int) (*Subroutine, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.subroutines[pc]
	return s, ok
}

// IsSubroutine reports whether pc is a known subroutine entry.
func (a *Analysis) IsSubroutine(pc int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.subroutines[pc]
	return ok
}

// AddSubroutine registers a subroutine at pc, unless it is in RAM (not
// traced into) or already present.
func (a *Analysis) AddSubroutine(pc int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if IsRAM(pc) {
		return
	}
	if _, ok := a.subroutines[pc]; !ok {
		a.subroutines[pc] = NewSubroutine(pc)
	}
}

// IsVisited reports whether an instruction with the same identity
// (pc, subroutine, P) has already been analyzed.
func (a *Analysis) IsVisited(instr Instruction) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	set, ok := a.instructions[instr.PC]
	if !ok {
		return false
	}
	_, ok = set[instr.ID()]
	return ok
}

// IsVisitedPC reports whether any instruction has been recorded at pc.
func (a *Analysis) IsVisitedPC(pc int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.instructions[pc]
	return ok
}

// AddInstruction records instr globally and within its owning subroutine.
func (a *Analysis) AddInstruction(instr Instruction) Instruction {
	a.mu.Lock()
	set, ok := a.instructions[instr.PC]
	if !ok {
		set = make(map[InstructionID]Instruction)
		a.instructions[instr.PC] = set
	}
	set[instr.ID()] = instr
	sub := a.subroutines[instr.Subroutine]
	a.mu.Unlock()

	if sub != nil {
		sub.AddInstruction(instr)
	}
	return instr
}

// AddReturnStateChange files change into the subroutine at subroutinePC's
// return-change maps, keyed by atPC (the return or unknown-triggering
// instruction's own PC, not the subroutine's).
func (a *Analysis) AddReturnStateChange(subroutinePC, atPC int, change StateChange) {
	a.mu.Lock()
	sub := a.subroutines[subroutinePC]
	a.mu.Unlock()
	if sub != nil {
		sub.AddStateChange(atPC, change)
	}
}

// AddReference records that source transfers control to target, within
// containingSubroutine. References are multi-valued: an instruction under
// an asserted jump table may reference many targets.
func (a *Analysis) AddReference(source, target, containingSubroutine int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.references[source] {
		if r.Target == target && r.ContainingSubroutine == containingSubroutine {
			return
		}
	}
	a.references[source] = append(a.references[source], Reference{Target: target, ContainingSubroutine: containingSubroutine})
}

// References returns every reference recorded from source.
func (a *Analysis) References(source int) []Reference {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Reference, len(a.references[source]))
	copy(out, a.references[source])
	return out
}

// AllReferences returns the full source -> references table.
func (a *Analysis) AllReferences() map[int][]Reference {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int][]Reference, len(a.references))
	for k, v := range a.references {
		cp := make([]Reference, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// InstructionAssertion returns the instruction assertion at pc, if any.
func (a *Analysis) InstructionAssertion(pc int) (StateChange, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.instructionAssertions[pc]
	return c, ok
}

// AddInstructionAssertion records an instruction assertion, flagging its
// owning subroutine (if known) as containing assertions.
func (a *Analysis) AddInstructionAssertion(pc int, change StateChange) {
	a.mu.Lock()
	a.instructionAssertions[pc] = change
	sub := a.owningSubroutineLocked(pc)
	a.mu.Unlock()
	if sub != nil {
		sub.ContainsAssertions = true
	}
}

// owningSubroutineLocked looks up the subroutine that owns the instruction
// recorded at pc, by inspecting any one of its visited (pc, subroutine, P)
// entries. Callers must hold a.mu.
func (a *Analysis) owningSubroutineLocked(pc int) *Subroutine {
	for id := range a.instructions[pc] {
		return a.subroutines[id.Subroutine]
	}
	return nil
}

// RemoveInstructionAssertion removes an instruction assertion.
func (a *Analysis) RemoveInstructionAssertion(pc int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.instructionAssertions, pc)
}

// InstructionAssertions returns the full instruction-assertion table.
func (a *Analysis) InstructionAssertions() map[int]StateChange {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]StateChange, len(a.instructionAssertions))
	for k, v := range a.instructionAssertions {
		out[k] = v
	}
	return out
}

// SubroutineAssertion returns the subroutine assertion at (sub, instr), if any.
func (a *Analysis) SubroutineAssertion(sub, instr int) (StateChange, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.subroutineAssertions[subAssertKey{sub, instr}]
	return c, ok
}

// AddSubroutineAssertion records a subroutine assertion keyed by
// (subroutine, instruction), flagging sub as containing assertions.
func (a *Analysis) AddSubroutineAssertion(sub, instr int, change StateChange) {
	a.mu.Lock()
	a.subroutineAssertions[subAssertKey{sub, instr}] = change
	s := a.subroutines[sub]
	a.mu.Unlock()
	if s != nil {
		s.ContainsAssertions = true
	}
}

// RemoveSubroutineAssertion removes a subroutine assertion.
func (a *Analysis) RemoveSubroutineAssertion(sub, instr int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.subroutineAssertions, subAssertKey{sub, instr})
}

// SubroutineAssertions returns the full subroutine-assertion table.
func (a *Analysis) SubroutineAssertions() map[[2]int]StateChange {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[[2]int]StateChange, len(a.subroutineAssertions))
	for k, v := range a.subroutineAssertions {
		out[[2]int{k.Subroutine, k.Instr}] = v
	}
	return out
}

// JumpAssertion returns the jump-table entries asserted for caller, if any.
func (a *Analysis) JumpAssertion(caller int) ([]JumpTableEntry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entries, ok := a.jumpAssertions[caller]
	return entries, ok
}

// AddJumpAssertion asserts a single jump-target, appending to caller's
// jump-table entries and incrementing the target's refcount.
func (a *Analysis) AddJumpAssertion(caller, target int) {
	a.mu.Lock()
	a.jumpAssertions[caller] = append(a.jumpAssertions[caller], JumpTableEntry{Target: target})
	a.jumpTableTargets[target]++
	sub := a.owningSubroutineLocked(caller)
	a.mu.Unlock()
	if sub != nil {
		sub.ContainsAssertions = true
	}
}

// SetJumpTableAssertion replaces caller's full jump-table entry set,
// adjusting refcounts for the old and new target sets. The read of the
// previous entries is scoped to end before the refcount mutation begins,
// so no registry method holds the lock across a re-entrant call.
func (a *Analysis) SetJumpTableAssertion(caller int, entries []JumpTableEntry) {
	a.mu.Lock()
	old := a.jumpAssertions[caller]
	a.mu.Unlock()

	for _, e := range old {
		a.decrementJumpTableTarget(e.Target)
	}

	a.mu.Lock()
	a.jumpAssertions[caller] = entries
	for _, e := range entries {
		a.jumpTableTargets[e.Target]++
	}
	sub := a.owningSubroutineLocked(caller)
	a.mu.Unlock()
	if sub != nil {
		sub.ContainsAssertions = true
	}
}

// RemoveJumpAssertion removes caller's jump-table assertion entirely,
// decrementing every target's refcount.
func (a *Analysis) RemoveJumpAssertion(caller int) {
	a.mu.Lock()
	old := a.jumpAssertions[caller]
	delete(a.jumpAssertions, caller)
	a.mu.Unlock()

	for _, e := range old {
		a.decrementJumpTableTarget(e.Target)
	}
}

func (a *Analysis) decrementJumpTableTarget(target int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.jumpTableTargets[target] <= 1 {
		delete(a.jumpTableTargets, target)
	} else {
		a.jumpTableTargets[target]--
	}
}

// JumpTableTargetCount returns how many asserted jump-table entries, across
// all callers, name target. Entries are counted one by one: a caller whose
// table lists target more than once adds to the count once per entry.
func (a *Analysis) JumpTableTargetCount(target int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.jumpTableTargets[target]
}

// SetIndirectJumpKind classifies the indirect instruction at pc, flagging
// its owning subroutine as containing indirect jumps.
func (a *Analysis) SetIndirectJumpKind(pc int, kind IndirectJumpKind) {
	a.mu.Lock()
	a.indirectJumpKinds[pc] = kind
	sub := a.owningSubroutineLocked(pc)
	a.mu.Unlock()
	if sub != nil {
		sub.ContainsIndirectJumps = true
	}
}

// IndirectJumpKind returns the classification recorded at pc, if any.
func (a *Analysis) IndirectJumpKind(pc int) (IndirectJumpKind, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	k, ok := a.indirectJumpKinds[pc]
	return k, ok
}

// Comment returns the comment at pc, if any.
func (a *Analysis) Comment(pc int) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.comments[pc]
	return c, ok
}

// SetComment sets or clears (when text is empty) the comment at pc.
func (a *Analysis) SetComment(pc int, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if text == "" {
		delete(a.comments, pc)
	} else {
		a.comments[pc] = text
	}
}

// Label returns the label to render at pc within subroutine: the
// subroutine's own label if pc is itself a subroutine entry, else any
// synthesized or user-assigned local label scoped to subroutine.
func (a *Analysis) Label(pc, subroutine int) (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if sub, ok := a.subroutines[pc]; ok {
		return sub.Label, true
	}
	if locals, ok := a.localLabels[subroutine]; ok {
		if label, ok := locals[pc]; ok {
			return label, true
		}
	}
	return "", false
}

// LabelValue resolves a label name back to a PC: first checking subroutine
// labels, then every subroutine's local labels.
func (a *Analysis) LabelValue(label string) (int, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for pc, sub := range a.subroutines {
		if sub.Label == label {
			return pc, true
		}
	}
	for _, locals := range a.localLabels {
		for pc, l := range locals {
			if l == label {
				return pc, true
			}
		}
	}
	return 0, false
}

// customLabels returns every subroutine label that was renamed away from its
// default sub_XXXXXX form, keyed by label name, for persistence.
func (a *Analysis) customLabels() map[string]int {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]int)
	for pc, sub := range a.subroutines {
		if sub.Label != defaultSubroutineLabel(pc) {
			out[sub.Label] = pc
		}
	}
	return out
}

// LocalLabelRename is a local label renamed away from its default
// loc_XXXXXX form, scoped to the subroutine whose reference it is a target
// of (local labels are not unique by pc alone across subroutines).
type LocalLabelRename struct {
	Subroutine int
	PC         int
	Label      string
}

// customLocalLabels returns every local label renamed away from its default
// form, for persistence.
func (a *Analysis) customLocalLabels() []LocalLabelRename {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []LocalLabelRename
	for sub, locals := range a.localLabels {
		for pc, label := range locals {
			if label != defaultLocalLabel(pc) {
				out = append(out, LocalLabelRename{Subroutine: sub, PC: pc, Label: label})
			}
		}
	}
	return out
}

// findContainingSubroutine looks up the subroutine that references target,
// for callers that need to re-scope a local label whose subroutine wasn't
// recorded (e.g. a session saved before LocalLabelRename carried it).
func (a *Analysis) findContainingSubroutine(target int) (int, bool) {
	for _, refs := range a.AllReferences() {
		for _, ref := range refs {
			if ref.Target == target {
				return ref.ContainingSubroutine, true
			}
		}
	}
	return 0, false
}

// allComments returns a copy of every recorded comment, keyed by pc.
func (a *Analysis) allComments() map[int]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]string, len(a.comments))
	for pc, text := range a.comments {
		out[pc] = text
	}
	return out
}

// AllJumpAssertions returns a copy of every asserted jump table, keyed by
// caller pc.
func (a *Analysis) AllJumpAssertions() map[int][]JumpTableEntry {
	return a.allJumpAssertions()
}

func (a *Analysis) allJumpAssertions() map[int][]JumpTableEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int][]JumpTableEntry, len(a.jumpAssertions))
	for pc, entries := range a.jumpAssertions {
		cp := make([]JumpTableEntry, len(entries))
		copy(cp, entries)
		out[pc] = cp
	}
	return out
}

// allIndirectJumpKinds returns a copy of every recorded indirect-jump
// classification, keyed by pc.
func (a *Analysis) allIndirectJumpKinds() map[int]IndirectJumpKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[int]IndirectJumpKind, len(a.indirectJumpKinds))
	for pc, kind := range a.indirectJumpKinds {
		out[pc] = kind
	}
	return out
}

// RenameSubroutine renames the subroutine at pc, validating against the
// reserved-prefix/identifier/uniqueness rules.
func (a *Analysis) RenameSubroutine(pc int, newName string) error {
	a.mu.Lock()
	sub, ok := a.subroutines[pc]
	a.mu.Unlock()
	if !ok {
		return newError(ErrUnknownLabel, "")
	}
	name, err := validateLabelName(newName, func(n string) bool {
		_, taken := a.LabelValue(n)
		return taken
	})
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	sub.Label = name
	return nil
}

// RenameLocalLabel renames a local label at pc, scoped to subroutine.
func (a *Analysis) RenameLocalLabel(subroutine, pc int, newName string) error {
	name, err := validateLabelName(newName, func(n string) bool {
		_, taken := a.LabelValue(n)
		return taken
	})
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	locals, ok := a.localLabels[subroutine]
	if !ok {
		locals = make(map[int]string)
		a.localLabels[subroutine] = locals
	}
	locals[pc] = name
	return nil
}

// synthesizeLocalLabels attaches a default loc_XXXXXX local label, scoped
// to the referencing subroutine, to every reference target that is not
// itself a subroutine entry.
func (a *Analysis) synthesizeLocalLabels() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, refs := range a.references {
		for _, ref := range refs {
			if _, isSub := a.subroutines[ref.Target]; isSub {
				continue
			}
			locals, ok := a.localLabels[ref.ContainingSubroutine]
			if !ok {
				locals = make(map[int]string)
				a.localLabels[ref.ContainingSubroutine] = locals
			}
			if _, exists := locals[ref.Target]; !exists {
				locals[ref.Target] = defaultLocalLabel(ref.Target)
			}
		}
	}
}
