package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// updateRoute reloads the route source and re-evaluates the whole tree once
// the load finishes. Must hold e.mu.
func (e *Engine) updateRoute(r *route) {
	gen := r.eval.supersede()
	if r.source == "" {
		r.eval.status = core.Pending[*table.Table]()
		e.fanOut(r.heads, r.plotters, nil)
		return
	}

	ctx, cancel := context.WithCancel(e.ctx)
	r.eval.cancel = cancel
	r.eval.status = core.InProgress[*table.Table]()

	e.wg.Add(1)
	go e.load(ctx, r.id, gen, r.source)
}

func (e *Engine) load(ctx context.Context, id uuid.UUID, gen uint64, path string) {
	defer e.wg.Done()

	t, err := e.loader.Load(ctx, path)
	if err != nil {
		var loadErr *core.LoadError
		if !errors.As(err, &loadErr) {
			err = &core.LoadError{Path: path, Err: err}
		}
	}

	e.mu.Lock()
	r, ok := e.routes[id]
	if !ok || ctx.Err() != nil || r.eval.gen != gen {
		e.mu.Unlock()
		e.logger.Debug("discarded superseded load", "route", id, "generation", gen)
		return
	}
	r.eval.release()
	if err != nil {
		r.eval.status = core.Failure[*table.Table](err)
		e.fanOut(r.heads, r.plotters, nil)
	} else {
		r.eval.status = core.Success(t)
		e.fanOut(r.heads, r.plotters, t)
	}
	ev := e.evaluationOf(r.id, r.id, r.eval.status)
	e.changed(r.id)
	e.mu.Unlock()

	e.logger.Debug("route loaded", "route", id, "status", ev.Outcome, "rows", ev.Rows)
	e.record(ev)
}

// updateNode re-evaluates n against input. A nil input means the parent has
// no data: n and its whole subtree become pending without computing.
// Must hold e.mu.
func (e *Engine) updateNode(n *node, input *table.Table) {
	gen := n.eval.supersede()
	if input == nil {
		n.eval.status = core.Pending[*table.Table]()
		e.fanOut(n.children, n.plotters, nil)
		return
	}

	ctx, cancel := context.WithCancel(e.ctx)
	n.eval.cancel = cancel
	n.eval.status = core.InProgress[*table.Table]()

	e.wg.Add(1)
	go e.apply(ctx, n.id, gen, n.reducer, input)
}

func (e *Engine) apply(ctx context.Context, id uuid.UUID, gen uint64, r reducer.Reducer, input *table.Table) {
	defer e.wg.Done()

	out, err := applyReducer(r, input)

	e.mu.Lock()
	n, ok := e.nodes[id]
	if !ok || ctx.Err() != nil || n.eval.gen != gen {
		e.mu.Unlock()
		e.logger.Debug("discarded superseded computation", "node", id, "generation", gen)
		return
	}
	n.eval.release()
	if err != nil {
		out = nil
		n.eval.status = core.Failure[*table.Table](err)
	} else {
		n.eval.status = core.Success(out)
	}
	// children see nil on failure and cascade to pending
	e.fanOut(n.children, n.plotters, out)
	ev := e.evaluationOf(n.id, n.routeID, n.eval.status)
	e.changed(n.routeID)
	e.mu.Unlock()

	e.logger.Debug("node committed", "node", id, "status", ev.Outcome, "error", ev.Error)
	e.record(ev)
}

// applyReducer runs r, turning a panic into a failure of this node only.
func applyReducer(r reducer.Reducer, input *table.Table) (out *table.Table, err error) {
	defer func() {
		if v := recover(); v != nil {
			out, err = nil, &core.RecoveredPanicError{Value: v}
		}
	}()
	return r.Apply(input)
}

// fanOut hands input to every child node and plotter. Siblings start
// independent computations. Must hold e.mu.
func (e *Engine) fanOut(children, plotters []uuid.UUID, input *table.Table) {
	for _, id := range children {
		e.updateNode(e.nodes[id], input)
	}
	for _, id := range plotters {
		e.plotters[id].evaluate(input)
	}
}

// reinitNode cancels in-flight work and forces the subtree back to pending.
// Must hold e.mu.
func (e *Engine) reinitNode(n *node) {
	n.eval.supersede()
	n.eval.status = core.Pending[*table.Table]()
	for _, id := range n.children {
		e.reinitNode(e.nodes[id])
	}
	for _, id := range n.plotters {
		e.plotters[id].status = core.Pending[*table.Table]()
	}
}

// reinitRoute forces the route and its whole tree back to pending.
// Must hold e.mu.
func (e *Engine) reinitRoute(r *route) {
	r.eval.supersede()
	r.eval.status = core.Pending[*table.Table]()
	for _, id := range r.heads {
		e.reinitNode(e.nodes[id])
	}
	for _, id := range r.plotters {
		e.plotters[id].status = core.Pending[*table.Table]()
	}
}

// evaluate checks the plotter's columns against input synchronously.
func (p *plotter) evaluate(input *table.Table) {
	if input == nil {
		p.status = core.Pending[*table.Table]()
		return
	}
	for i, c := range p.columns {
		if !input.Has(c) {
			p.status = core.Failure[*table.Table](&core.PlotterColumnNotFoundError{Position: i, Column: c})
			return
		}
	}
	p.status = core.Success(input.Select(p.columns))
}
