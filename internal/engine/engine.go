// Package engine evaluates route trees.
//
// A Route loads a table from its source file and feeds it to its head nodes.
// Every node applies its reducer to its parent's table and feeds the result
// to its own children. Plotters are terminal and only check that the columns
// they display exist.
//
// All state lives in one arena guarded by a single mutex, which is the only
// place statuses change. Loads and reducer applications run on their own
// goroutines and commit through the mutex only if their generation is still
// current, so a superseded computation can never overwrite a newer status.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaproute/internal/notifier"
	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("engine closed")

// SourceLoader reads a route source into a table.
type SourceLoader interface {
	Load(ctx context.Context, path string) (*table.Table, error)
}

// Recorder receives one entry per finished evaluation.
// core.Store satisfies it.
type Recorder interface {
	RecordEvaluation(ev *core.Evaluation) error
}

// Config holds engine configuration.
type Config struct {
	// Loader reads route sources (default: table.FileLoader)
	Loader SourceLoader
	// Recorder receives finished evaluations (optional)
	Recorder Recorder
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
	// Clock returns the current time (optional, uses time.Now)
	Clock func() time.Time
}

// Engine owns every route tree and drives their evaluation.
type Engine struct {
	mu       sync.Mutex
	routes   map[uuid.UUID]*route
	nodes    map[uuid.UUID]*node
	plotters map[uuid.UUID]*plotter
	order    []uuid.UUID // route creation order
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	loader   SourceLoader
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an empty engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loader := cfg.Loader
	if loader == nil {
		loader = table.FileLoader{}
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		routes:   make(map[uuid.UUID]*route),
		nodes:    make(map[uuid.UUID]*node),
		plotters: make(map[uuid.UUID]*plotter),
		ctx:      ctx,
		cancel:   cancel,
		loader:   loader,
		recorder: cfg.Recorder,
		logger:   logger,
		now:      now,
	}
}

// Close cancels every in-flight computation, discards their results, and
// waits for their goroutines to return.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.cancel()
	for _, r := range e.routes {
		r.notifier.Close()
	}
	e.mu.Unlock()

	e.wg.Wait()
}

// evaluation is the mutable evaluation state of a route or node.
type evaluation struct {
	status core.Status[*table.Table]
	gen    uint64
	cancel context.CancelFunc
}

// supersede cancels the in-flight computation, if any, and returns the new
// generation. Results tagged with an older generation are discarded.
func (ev *evaluation) supersede() uint64 {
	ev.release()
	ev.gen++
	return ev.gen
}

func (ev *evaluation) release() {
	if ev.cancel != nil {
		ev.cancel()
		ev.cancel = nil
	}
}

// output returns the table children should see, or nil.
func (ev *evaluation) output() *table.Table {
	if ev.status.Succeeded() {
		return ev.status.Value
	}
	return nil
}

type route struct {
	id        uuid.UUID
	name      string
	source    string
	starred   bool
	createdAt time.Time
	heads     []uuid.UUID
	plotters  []uuid.UUID
	notifier  *notifier.Notifier
	eval      evaluation
}

type node struct {
	id        uuid.UUID
	routeID   uuid.UUID
	parentID  uuid.UUID // uuid.Nil for heads
	title     string
	starred   bool
	reducer   reducer.Reducer
	createdAt time.Time
	children  []uuid.UUID
	plotters  []uuid.UUID
	eval      evaluation
}

type plotter struct {
	id        uuid.UUID
	routeID   uuid.UUID
	parentID  uuid.UUID // uuid.Nil when attached to the route
	title     string
	columns   []string
	createdAt time.Time
	status    core.Status[*table.Table]
}

// Kind identifies the element an id refers to.
type Kind int

// Element kinds.
const (
	KindUnknown Kind = iota
	KindRoute
	KindNode
	KindPlotter
)

func (k Kind) String() string {
	switch k {
	case KindRoute:
		return "route"
	case KindNode:
		return "node"
	case KindPlotter:
		return "plotter"
	default:
		return "unknown"
	}
}

// Kind reports what id refers to.
func (e *Engine) Kind(id uuid.UUID) Kind {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.routes[id] != nil:
		return KindRoute
	case e.nodes[id] != nil:
		return KindNode
	case e.plotters[id] != nil:
		return KindPlotter
	default:
		return KindUnknown
	}
}

// Status returns the current status of any route, node or plotter.
func (e *Engine) Status(id uuid.UUID) (core.Status[*table.Table], error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.routes[id]; ok {
		return r.eval.status, nil
	}
	if n, ok := e.nodes[id]; ok {
		return n.eval.status, nil
	}
	if p, ok := e.plotters[id]; ok {
		return p.status, nil
	}
	return core.Status[*table.Table]{}, notFound("element", id)
}

// Subscribe returns the change signal of a route's tree and a function
// releasing the subscription. The channel is closed when the route is
// deleted or the engine closes.
func (e *Engine) Subscribe(routeID uuid.UUID) (<-chan struct{}, func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.routes[routeID]
	if !ok {
		return nil, nil, notFound("route", routeID)
	}
	ch := r.notifier.Subscribe()
	n := r.notifier
	return ch, func() { n.Unsubscribe(ch) }, nil
}

// WaitIdle blocks until nothing in the route's tree is in progress.
func (e *Engine) WaitIdle(ctx context.Context, routeID uuid.UUID) error {
	ch, unsubscribe, err := e.Subscribe(routeID)
	if err != nil {
		return err
	}
	defer unsubscribe()

	for {
		busy, err := e.busy(routeID)
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ch:
			if !ok {
				if _, err := e.busy(routeID); err != nil {
					return err
				}
				return ErrClosed
			}
		}
	}
}

// WaitAll blocks until every route is idle.
func (e *Engine) WaitAll(ctx context.Context) error {
	for _, r := range e.Routes() {
		if err := e.WaitIdle(ctx, r.ID); err != nil && !errors.Is(err, core.ErrNotFound) {
			return err
		}
	}
	return nil
}

func (e *Engine) busy(routeID uuid.UUID) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.routes[routeID]
	if !ok {
		return false, notFound("route", routeID)
	}
	if r.eval.status.IsInProgress() {
		return true, nil
	}
	var walk func(ids []uuid.UUID) bool
	walk = func(ids []uuid.UUID) bool {
		for _, id := range ids {
			n := e.nodes[id]
			if n.eval.status.IsInProgress() || walk(n.children) {
				return true
			}
		}
		return false
	}
	return walk(r.heads), nil
}

// changed signals the route's listeners. Must hold e.mu.
func (e *Engine) changed(routeID uuid.UUID) {
	if r, ok := e.routes[routeID]; ok {
		r.notifier.Broadcast()
	}
}

// record appends finished evaluations to the recorder. Must not hold e.mu.
func (e *Engine) record(ev *core.Evaluation) {
	if e.recorder == nil || ev == nil {
		return
	}
	if err := e.recorder.RecordEvaluation(ev); err != nil {
		e.logger.Warn("failed to record evaluation", "subject", ev.SubjectID, "error", err)
	}
}

func (e *Engine) evaluationOf(subject, routeID uuid.UUID, status core.Status[*table.Table]) *core.Evaluation {
	ev := &core.Evaluation{
		ID:         uuid.NewString(),
		SubjectID:  subject.String(),
		RouteID:    routeID.String(),
		Outcome:    core.EvaluationSuccess,
		FinishedAt: e.now(),
	}
	if status.Failed() {
		ev.Outcome = core.EvaluationFailure
		ev.Error = status.Err.Error()
	} else if status.Value != nil {
		ev.Rows = status.Value.NumRows()
		ev.Columns = status.Value.NumColumns()
	}
	return ev
}

func notFound(kind string, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}
