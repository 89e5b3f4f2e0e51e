package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"draftforge.app/engine/common/logger"
)

// Terminal node names. Start is implicit; wiring an edge to End finishes
// the run.
const (
	Start = "__start__"
	End   = "__end__"
)

// Policy decides what a node failure does to the run.
type Policy int

const (
	// Fatal aborts the run; the job fails.
	Fatal Policy = iota
	// Degrade records the error on the state and continues to the next node.
	Degrade
)

// NodeFunc is one pipeline step. It reads the state and returns a partial
// update; it must not retain or mutate s.
type NodeFunc func(ctx context.Context, s State) (Update, error)

// NodeError wraps a fatal node failure with the node that raised it.
type NodeError struct {
	Node string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }

type nodeDef struct {
	fn     NodeFunc
	policy Policy
}

type fanDef struct {
	join  string
	spawn func(s State) []NodeFunc
}

// Engine executes a directed graph of nodes over a shared State. Nodes run
// one at a time except across a fan-out, where spawned units run with
// bounded parallelism and rejoin at a barrier before the join node.
type Engine struct {
	nodes       map[string]nodeDef
	edges       map[string]string
	conds       map[string]func(s State) string
	fans        map[string]fanDef
	maxParallel int
}

// New creates an engine. maxParallel bounds fan-out concurrency; values
// below 1 are raised to 1.
func New(maxParallel int) *Engine {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Engine{
		nodes:       make(map[string]nodeDef),
		edges:       make(map[string]string),
		conds:       make(map[string]func(s State) string),
		fans:        make(map[string]fanDef),
		maxParallel: maxParallel,
	}
}

// AddNode registers a named step.
func (e *Engine) AddNode(name string, fn NodeFunc, policy Policy) error {
	if name == Start || name == End {
		return fmt.Errorf("node name %q is reserved", name)
	}
	if _, ok := e.nodes[name]; ok {
		return fmt.Errorf("node %q already registered", name)
	}
	e.nodes[name] = nodeDef{fn: fn, policy: policy}
	return nil
}

// AddEdge wires from -> to. Use Start as from to set the entry node.
func (e *Engine) AddEdge(from, to string) error {
	if _, ok := e.edges[from]; ok {
		return fmt.Errorf("edge from %q already wired", from)
	}
	if _, ok := e.conds[from]; ok {
		return fmt.Errorf("node %q already has a conditional edge", from)
	}
	e.edges[from] = to
	return nil
}

// AddConditionalEdge wires a branch point: decide inspects the state after
// from has run and names the next node.
func (e *Engine) AddConditionalEdge(from string, decide func(s State) string) error {
	if _, ok := e.edges[from]; ok {
		return fmt.Errorf("edge from %q already wired", from)
	}
	if _, ok := e.conds[from]; ok {
		return fmt.Errorf("node %q already has a conditional edge", from)
	}
	e.conds[from] = decide
	return nil
}

// AddFanOut wires a dynamic parallel section after from: spawn derives the
// unit functions from the state, the engine runs them with bounded
// parallelism, and execution resumes at join once every unit has finished.
// A spawn returning zero units proceeds straight to join.
func (e *Engine) AddFanOut(from, join string, spawn func(s State) []NodeFunc) error {
	if _, ok := e.edges[from]; ok {
		return fmt.Errorf("edge from %q already wired", from)
	}
	if _, ok := e.conds[from]; ok {
		return fmt.Errorf("node %q already has a conditional edge", from)
	}
	e.fans[from] = fanDef{join: join, spawn: spawn}
	return nil
}

// Run executes the graph from Start until End and returns the final state.
// A Fatal node error aborts immediately with a *NodeError; Degrade errors
// are folded into State.Errors and the run continues.
func (e *Engine) Run(ctx context.Context, s State) (State, error) {
	cur, ok := e.edges[Start]
	if !ok {
		return s, fmt.Errorf("no entry edge from start")
	}

	for cur != End {
		if err := ctx.Err(); err != nil {
			return s, fmt.Errorf("run cancelled at %s: %w", cur, err)
		}

		def, ok := e.nodes[cur]
		if !ok {
			return s, fmt.Errorf("edge references unknown node %q", cur)
		}

		nodeCtx := logger.WithLogFields(ctx, logger.LogFields{Stage: logger.Ptr(cur)})
		start := time.Now()
		slog.InfoContext(nodeCtx, "node started")

		update, err := def.fn(nodeCtx, s)
		if err != nil {
			if def.policy == Fatal {
				slog.ErrorContext(nodeCtx, "node failed", "error", err)
				return s, &NodeError{Node: cur, Err: err}
			}
			slog.WarnContext(nodeCtx, "node degraded", "error", err)
			s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", cur, err))
		}
		s.Apply(update)

		slog.InfoContext(nodeCtx, "node finished", "duration_ms", time.Since(start).Milliseconds())

		next, err := e.next(nodeCtx, cur, &s)
		if err != nil {
			return s, err
		}
		cur = next
	}

	return s, nil
}

func (e *Engine) next(ctx context.Context, cur string, s *State) (string, error) {
	if fan, ok := e.fans[cur]; ok {
		if err := e.runFan(ctx, fan, s); err != nil {
			return "", err
		}
		return fan.join, nil
	}
	if decide, ok := e.conds[cur]; ok {
		return decide(*s), nil
	}
	if to, ok := e.edges[cur]; ok {
		return to, nil
	}
	return "", fmt.Errorf("node %q has no outgoing edge", cur)
}

// runFan executes the spawned units concurrently and applies their updates
// in unit order once all have completed. Unit failures degrade: the error
// lands on the state and the barrier still releases.
func (e *Engine) runFan(ctx context.Context, fan fanDef, s *State) error {
	units := fan.spawn(*s)
	if len(units) == 0 {
		return nil
	}

	type unitResult struct {
		update Update
		err    error
	}

	results := make([]unitResult, len(units))
	sem := make(chan struct{}, e.maxParallel)
	var wg sync.WaitGroup

	snapshot := *s
	for i, fn := range units {
		wg.Add(1)
		go func(idx int, fn NodeFunc) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			defer func() {
				if r := recover(); r != nil {
					results[idx] = unitResult{err: fmt.Errorf("unit panicked: %v", r)}
				}
			}()

			unitCtx := logger.WithLogFields(ctx, logger.LogFields{TaskID: logger.Ptr(idx)})
			update, err := fn(unitCtx, snapshot)
			results[idx] = unitResult{update: update, err: err}
		}(i, fn)
	}
	wg.Wait()

	for i, r := range results {
		if r.err != nil {
			slog.WarnContext(ctx, "fan-out unit degraded", "task_id", i, "error", r.err)
			s.Errors = append(s.Errors, fmt.Sprintf("unit %d: %s", i, r.err))
		}
		s.Apply(r.update)
	}
	return nil
}
