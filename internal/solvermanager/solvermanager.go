// Package solvermanager implements the solver manager (C7): the dependency
// graph between variables, modifier bookkeeping, and the propagation driver
// that keeps every variable's stored value consistent with its modifier
// stack (spec.md §4.7).
//
// Grounded on the teacher's internal/dag package for the graph-of-nodes
// shape (solvergraph, built alongside this package) and on
// internal/graph.Manager's intended role as a facade composing a topology
// store and a state store — that type was an unwired placeholder in the
// teacher (its methods log and return zero values); this package is its
// real implementation, specialized to VIDs, modifier solvers, and the
// recursion-stack propagation algorithm spec.md §4.7 describes.
package solvermanager

import (
	"context"
	"fmt"

	"github.com/vk/formulacore/internal/format"
	"github.com/vk/formulacore/internal/formula"
	"github.com/vk/formulacore/internal/modifier"
	"github.com/vk/formulacore/internal/solvergraph"
	"github.com/vk/formulacore/internal/store"
	"github.com/vk/formulacore/internal/varlib"
	"github.com/vk/formulacore/internal/vid"
	"github.com/zclconf/go-cty/cty"
)

// UnknownChannelError is raised by RemoveModifier and Diagnose when no
// solver has been created for the given VID (spec.md §7: UnknownChannel).
type UnknownChannelError struct {
	VID vid.ID
}

func (e *UnknownChannelError) Error() string {
	return fmt.Sprintf("solvermanager: no channel for %s", e.VID)
}

// DuplicateChannelError is raised by CreateChannel when a solver already
// exists for the given VID (spec.md §7: DuplicateChannel).
type DuplicateChannelError struct {
	VID vid.ID
}

func (e *DuplicateChannelError) Error() string {
	return fmt.Sprintf("solvermanager: channel already exists for %s", e.VID)
}

// CycleDetectedError is raised by the propagation algorithm when a
// dependency cycle fails to reach a fixed point on its first lap (spec.md
// §7: CycleDetected). Path lists the recursion stack at the point of
// detection, repeating the VID that closes the cycle.
type CycleDetectedError struct {
	Path []vid.ID
}

func (e *CycleDetectedError) Error() string {
	names := make([]string, len(e.Path))
	for i, id := range e.Path {
		names[i] = id.String()
	}
	return fmt.Sprintf("solvermanager: cycle detected: %v", names)
}

// InvariantViolationError signals a state the manager's own bookkeeping
// should have prevented from occurring (spec.md §9, resolution of the
// dependency/edge-mismatch open question below).
type InvariantViolationError struct {
	Reason string
}

func (e *InvariantViolationError) Error() string {
	return "solvermanager: invariant violation: " + e.Reason
}

// Manager is the solver manager (C7). It owns the dependency graph, the
// per-VID modifier solvers ("channels"), and the result store; it is the
// sole writer of the result store once variables are under its management.
type Manager struct {
	vars  *varlib.Library
	store *store.Store
	graph *solvergraph.Graph
	ev    *formula.EvalVisitor

	channels map[string]*modifier.Solver
}

// New creates a solver manager over the given variable library and result
// store, using ops/funcs/opts to build the evaluation visitor every channel
// shares.
func New(vars *varlib.Library, st *store.Store, ops formula.OperatorLibrary, funcs formula.FunctionLibrary, opts formula.EvalOptions) *Manager {
	return &Manager{
		vars:     vars,
		store:    st,
		graph:    solvergraph.New(),
		ev:       formula.NewEvalVisitor(st, vars, ops, funcs, opts),
		channels: make(map[string]*modifier.Solver),
	}
}

// Store returns the result store this manager writes to. Callers may read
// it directly; only the manager should write to it.
func (m *Manager) Store() *store.Store { return m.store }

func (m *Manager) hasChannel(id vid.ID) bool {
	_, ok := m.channels[id.Key()]
	return ok
}

func (m *Manager) newChannel(id vid.ID) {
	m.channels[id.Key()] = modifier.NewSolver(id.Format)
	m.graph.AddNode(id)
}

// CreateChannel builds an empty solver for id and runs solve_from(id),
// which computes and stores the format's default value. It fails with
// DuplicateChannelError if a solver for id already exists (spec.md §4.7).
func (m *Manager) CreateChannel(ctx context.Context, id vid.ID) (cty.Value, error) {
	if m.hasChannel(id) {
		return cty.NilVal, &DuplicateChannelError{VID: id}
	}
	m.newChannel(id)
	return m.solveFrom(ctx, id, nil)
}

// AddModifier validates id's legality, implicitly creates a channel for id
// (and, recursively, for each of the modifier's dependencies that lacks one
// yet) if absent, wires one DG edge per dependency, appends (m, source) to
// id's solver, and re-solves from id. It returns whether id's stored value
// changed (spec.md §4.7).
func (m *Manager) AddModifier(ctx context.Context, id vid.ID, mod modifier.Modifier, source any) (bool, error) {
	if !m.vars.IsLegal(id.Scope.Legal(), id.Name) {
		return false, &varlib.UnknownVariableError{Name: id.Name, Scope: id.Scope.Legal().Name()}
	}
	if !m.hasChannel(id) {
		m.newChannel(id)
	}

	for _, dep := range mod.Dependencies {
		if !m.hasChannel(dep) {
			if _, err := m.CreateChannel(ctx, dep); err != nil {
				return false, err
			}
		}
		m.graph.AddEdge(dep, id, edgeTag(mod, source))
	}

	ch := m.channels[id.Key()]
	prior, hadPrior := m.store.Get(id)
	if err := ch.AddModifier(mod, source); err != nil {
		return false, err
	}

	newVal, err := m.solveFrom(ctx, id, nil)
	if err != nil {
		return false, err
	}
	return !hadPrior || !newVal.RawEquals(prior), nil
}

// RemoveModifier removes exactly the DG edges the given modifier
// contributed (one per dependency, tagged by (mod, source)), removes the
// modifier from id's solver, and re-solves from id. It fails with
// UnknownChannelError if no solver exists for id (spec.md §4.7), and with
// InvariantViolationError if one of the modifier's declared dependencies
// has no matching edge to remove. AddModifier wires exactly one edge per
// dependency, so a missing edge here means the graph and the solver's
// modifier stack have fallen out of sync (spec.md §9's open question on
// this path).
func (m *Manager) RemoveModifier(ctx context.Context, id vid.ID, mod modifier.Modifier, source any) error {
	if !m.hasChannel(id) {
		return &UnknownChannelError{VID: id}
	}
	tag := edgeTag(mod, source)
	for _, dep := range mod.Dependencies {
		if !m.graph.HasEdge(dep, id, tag) {
			return &InvariantViolationError{Reason: fmt.Sprintf("removing modifier %q from %s: no edge from dependency %s", mod.Instruction, id, dep)}
		}
	}
	for _, dep := range mod.Dependencies {
		m.graph.RemoveEdge(dep, id, tag)
	}
	m.channels[id.Key()].RemoveModifier(mod, source)

	_, err := m.solveFrom(ctx, id, nil)
	return err
}

// Diagnose forwards to id's solver's Diagnose. It fails with
// UnknownChannelError if no solver exists for id (spec.md §4.7).
func (m *Manager) Diagnose(ctx context.Context, id vid.ID) ([]modifier.DiagnosticStep, error) {
	if !m.hasChannel(id) {
		return nil, &UnknownChannelError{VID: id}
	}
	evalCtx := formula.EvalContext{Ctx: ctx, Scope: id.Scope}
	return m.channels[id.Key()].Diagnose(evalCtx, m.ev)
}

// solveFrom implements the propagation algorithm of spec.md §4.7: push id
// onto the recursion stack, recompute its solver, write the result, and if
// the value changed, either fail with CycleDetectedError (if id was already
// on the stack — a diverging cycle) or recurse into every dependent.
func (m *Manager) solveFrom(ctx context.Context, id vid.ID, stack []vid.ID) (cty.Value, error) {
	warning := false
	for _, s := range stack {
		if s.Equal(id) {
			warning = true
			break
		}
	}
	nextStack := make([]vid.ID, len(stack)+1)
	copy(nextStack, stack)
	nextStack[len(stack)] = id

	evalCtx := formula.EvalContext{Ctx: ctx, Scope: id.Scope}
	newVal, err := m.channels[id.Key()].Process(evalCtx, m.ev)
	if err != nil {
		return cty.NilVal, err
	}

	prior, hadPrior := m.store.Get(id)
	if _, _, err := m.store.Put(id, newVal); err != nil {
		return cty.NilVal, err
	}

	changed := !hadPrior || !newVal.RawEquals(prior)
	if changed {
		if warning {
			return cty.NilVal, &CycleDetectedError{Path: nextStack}
		}
		for _, dep := range m.graph.Dependents(id) {
			if _, err := m.solveFrom(ctx, dep, nextStack); err != nil {
				return cty.NilVal, err
			}
		}
	}
	return newVal, nil
}

// GetDefault delegates to the format's own default value, the role
// spec.md §4.7 assigns to an injected SolverFactory; this engine has no
// separate per-format default override, so the format registry (via
// format.Format.Default) already serves that contract.
func (m *Manager) GetDefault(f format.Format) (cty.Value, bool) {
	return f.Default()
}

// edgeTag derives a stable identity for the DG edge a given (modifier,
// source) pair installs, so RemoveModifier can remove exactly its own
// edges without disturbing another modifier's edge between the same two
// VIDs. Solver.AddModifier already rejects exact (Priority, Instruction,
// Format, source) duplicates, and the tag is built from those same fields,
// so it is unique within one VID's dependency set.
func edgeTag(mod modifier.Modifier, source any) string {
	fname := "<nil>"
	if mod.Format != nil {
		fname = mod.Format.Name()
	}
	return fmt.Sprintf("%d/%s/%s@%v", mod.Priority, mod.Instruction, fname, source)
}
