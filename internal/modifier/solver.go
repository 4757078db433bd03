package modifier

import (
	"fmt"
	"sort"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/formula"
	"github.com/zclconf/go-cty/cty"
)

// entry pairs a Modifier with the source that installed it (spec.md §4.6:
// "add_modifier(m, source)... rejects duplicates by (m, source) identity").
type entry struct {
	mod    Modifier
	source any
	seq    int // insertion order, for stable tie-breaking at equal priority
}

// Solver is the per-VID ordered modifier stack: a sorted sequence of
// (modifier, source) pairs over a single variable's format, plus the
// format's default value as the base the stack builds on (spec.md §4.6).
//
// Grounded on original_source/PCGen-Formula's pcgen.base.solver.Solver,
// generalized from PCGen's fixed modifier catalogue to the Modifier value
// type defined in this package.
type Solver struct {
	format  format.Format
	entries []entry
	nextSeq int
}

// NewSolver creates an empty Solver over the given format.
func NewSolver(f format.Format) *Solver {
	return &Solver{format: f}
}

// Format returns the format this solver's variable carries.
func (s *Solver) Format() format.Format { return s.format }

// AddModifier inserts m, installed by source, into priority order. It
// rejects a duplicate (m, source) pair and rejects m if its format is not a
// subformat of the solver's own format (spec.md §4.6).
func (s *Solver) AddModifier(m Modifier, source any) error {
	if m.Format == nil || !m.Format.IsSubformatOf(s.format) {
		return &InvariantViolationError{Reason: fmt.Sprintf("modifier format %s is not a subformat of %s", formatName(m.Format), s.format.Name())}
	}
	for _, e := range s.entries {
		if e.mod.Equal(m) && e.source == source {
			return &InvariantViolationError{Reason: "duplicate (modifier, source) pair"}
		}
	}
	e := entry{mod: m, source: source, seq: s.nextSeq}
	s.nextSeq++
	s.entries = append(s.entries, e)
	sort.SliceStable(s.entries, func(i, j int) bool {
		if s.entries[i].mod.Priority != s.entries[j].mod.Priority {
			return s.entries[i].mod.Priority < s.entries[j].mod.Priority
		}
		return s.entries[i].seq < s.entries[j].seq
	})
	return nil
}

// RemoveModifier removes the first (m, source) pair matching by equality.
// It is a no-op if no such pair is present (spec.md §4.6).
func (s *Solver) RemoveModifier(m Modifier, source any) {
	for i, e := range s.entries {
		if e.mod.Equal(m) && e.source == source {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return
		}
	}
}

// Len reports the number of modifiers currently on the stack.
func (s *Solver) Len() int { return len(s.entries) }

// Process evaluates the stack: starting from the format's default value,
// each modifier in priority order is applied, threading the running value
// as the input of the next step (spec.md §4.6). It returns the final value.
func (s *Solver) Process(ctx formula.EvalContext, ev *formula.EvalVisitor) (cty.Value, error) {
	running, ok := s.format.Default()
	if !ok {
		return cty.NilVal, &InvariantViolationError{Reason: fmt.Sprintf("format %s has no default to seed the modifier stack", s.format.Name())}
	}
	for _, e := range s.entries {
		next, err := e.mod.Apply(running, ctx, ev)
		if err != nil {
			return cty.NilVal, err
		}
		running = next
	}
	return running, nil
}

// DiagnosticStep records one step of a diagnosed Process run: the source
// that installed the modifier, the modifier's instruction text, and the
// value the running total held immediately after the step.
type DiagnosticStep struct {
	Source            any
	Instruction       string
	IntermediateValue cty.Value
}

// Diagnose runs the same sequence as Process but returns a per-step trace
// suitable for debugging (spec.md §4.6).
func (s *Solver) Diagnose(ctx formula.EvalContext, ev *formula.EvalVisitor) ([]DiagnosticStep, error) {
	running, ok := s.format.Default()
	if !ok {
		return nil, &InvariantViolationError{Reason: fmt.Sprintf("format %s has no default to seed the modifier stack", s.format.Name())}
	}
	steps := make([]DiagnosticStep, 0, len(s.entries))
	for _, e := range s.entries {
		next, err := e.mod.Apply(running, ctx, ev)
		if err != nil {
			return nil, err
		}
		running = next
		steps = append(steps, DiagnosticStep{Source: e.source, Instruction: e.mod.Instruction, IntermediateValue: running})
	}
	return steps, nil
}

func formatName(f format.Format) string {
	if f == nil {
		return "<nil>"
	}
	return f.Name()
}
