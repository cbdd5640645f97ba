package engine

import (
	"errors"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaproute/internal/notifier"
	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// RouteView is a read-only copy of a route.
type RouteView struct {
	ID         uuid.UUID
	Name       string
	SourcePath string
	Starred    bool
	CreatedAt  time.Time
	Status     core.Status[*table.Table]
	Heads      []uuid.UUID
	Plotters   []uuid.UUID
}

// NodeView is a read-only copy of a node. ParentID is uuid.Nil for heads.
type NodeView struct {
	ID        uuid.UUID
	RouteID   uuid.UUID
	ParentID  uuid.UUID
	Title     string
	Starred   bool
	Reducer   reducer.Reducer
	CreatedAt time.Time
	Status    core.Status[*table.Table]
	Children  []uuid.UUID
	Plotters  []uuid.UUID
}

// PlotterView is a read-only copy of a plotter.
type PlotterView struct {
	ID        uuid.UUID
	RouteID   uuid.UUID
	ParentID  uuid.UUID
	Title     string
	Columns   []string
	CreatedAt time.Time
	Status    core.Status[*table.Table]
}

func (r *route) view() RouteView {
	return RouteView{
		ID:         r.id,
		Name:       r.name,
		SourcePath: r.source,
		Starred:    r.starred,
		CreatedAt:  r.createdAt,
		Status:     r.eval.status,
		Heads:      slices.Clone(r.heads),
		Plotters:   slices.Clone(r.plotters),
	}
}

func (n *node) view() NodeView {
	return NodeView{
		ID:        n.id,
		RouteID:   n.routeID,
		ParentID:  n.parentID,
		Title:     n.title,
		Starred:   n.starred,
		Reducer:   n.reducer,
		CreatedAt: n.createdAt,
		Status:    n.eval.status,
		Children:  slices.Clone(n.children),
		Plotters:  slices.Clone(n.plotters),
	}
}

func (p *plotter) view() PlotterView {
	return PlotterView{
		ID:        p.id,
		RouteID:   p.routeID,
		ParentID:  p.parentID,
		Title:     p.title,
		Columns:   slices.Clone(p.columns),
		CreatedAt: p.createdAt,
		Status:    p.status,
	}
}

// --- Routes ---

// CreateRoute adds a route and starts loading its source. An empty source
// leaves the route pending.
func (e *Engine) CreateRoute(name, sourcePath string) (uuid.UUID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return uuid.Nil, ErrClosed
	}

	r := &route{
		id:        uuid.New(),
		name:      name,
		source:    sourcePath,
		createdAt: e.now(),
		notifier:  notifier.New(),
	}
	e.routes[r.id] = r
	e.order = append(e.order, r.id)
	e.logger.Debug("route created", "route", r.id, "name", name, "source", sourcePath)

	e.updateRoute(r)
	e.changed(r.id)
	return r.id, nil
}

// RenameRoute changes the display name and re-evaluates the tree.
func (e *Engine) RenameRoute(id uuid.UUID, name string) error {
	return e.mutateRoute(id, true, func(r *route) { r.name = name })
}

// SetRouteSource points the route at a new source and re-evaluates the tree.
func (e *Engine) SetRouteSource(id uuid.UUID, sourcePath string) error {
	return e.mutateRoute(id, true, func(r *route) { r.source = sourcePath })
}

// SetRouteStarred flags or unflags the route.
func (e *Engine) SetRouteStarred(id uuid.UUID, starred bool) error {
	return e.mutateRoute(id, false, func(r *route) { r.starred = starred })
}

// RefreshRoute reloads the source and re-evaluates the tree.
func (e *Engine) RefreshRoute(id uuid.UUID) error {
	return e.mutateRoute(id, true, func(*route) {})
}

func (e *Engine) mutateRoute(id uuid.UUID, reevaluate bool, f func(*route)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	r, ok := e.routes[id]
	if !ok {
		return notFound("route", id)
	}
	f(r)
	if reevaluate {
		e.updateRoute(r)
	}
	e.changed(r.id)
	return nil
}

// RefreshSource re-evaluates every route reading path and returns their ids.
func (e *Engine) RefreshSource(path string) []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}

	target := canonicalPath(path)
	var refreshed []uuid.UUID
	for _, id := range e.order {
		r := e.routes[id]
		if r.source == "" || canonicalPath(r.source) != target {
			continue
		}
		e.updateRoute(r)
		e.changed(r.id)
		refreshed = append(refreshed, r.id)
	}
	return refreshed
}

func canonicalPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

// DeleteRoute removes the route and everything below it.
func (e *Engine) DeleteRoute(id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.routes[id]
	if !ok {
		return notFound("route", id)
	}

	e.reinitRoute(r)
	r.notifier.Broadcast()
	for _, h := range r.heads {
		e.removeNode(e.nodes[h])
	}
	for _, p := range r.plotters {
		delete(e.plotters, p)
	}
	delete(e.routes, id)
	e.order = slices.DeleteFunc(e.order, func(x uuid.UUID) bool { return x == id })
	r.notifier.Close()
	e.logger.Debug("route deleted", "route", id)
	return nil
}

// Route returns a copy of the route.
func (e *Engine) Route(id uuid.UUID) (RouteView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.routes[id]
	if !ok {
		return RouteView{}, notFound("route", id)
	}
	return r.view(), nil
}

// Routes returns every route in creation order.
func (e *Engine) Routes() []RouteView {
	e.mu.Lock()
	defer e.mu.Unlock()
	views := make([]RouteView, 0, len(e.order))
	for _, id := range e.order {
		views = append(views, e.routes[id].view())
	}
	return views
}

// --- Nodes ---

// AddNode attaches a node below parent, which is either a route or a node,
// and evaluates it immediately against the parent's current output.
func (e *Engine) AddNode(parent uuid.UUID, title string, r reducer.Reducer) (uuid.UUID, error) {
	if r == nil {
		return uuid.Nil, errors.New("nil reducer")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return uuid.Nil, ErrClosed
	}
	routeID, parentID, input, children, _, err := e.attachment(parent)
	if err != nil {
		return uuid.Nil, err
	}

	n := &node{
		id:        uuid.New(),
		routeID:   routeID,
		parentID:  parentID,
		title:     title,
		reducer:   r,
		createdAt: e.now(),
	}
	e.nodes[n.id] = n
	*children = append(*children, n.id)
	e.logger.Debug("node added", "node", n.id, "route", routeID, "op", r.Op())

	e.updateNode(n, input)
	e.changed(routeID)
	return n.id, nil
}

// attachment resolves a parent id to the lists a new child joins.
// Must hold e.mu.
func (e *Engine) attachment(parent uuid.UUID) (routeID, parentID uuid.UUID, input *table.Table, children, plotters *[]uuid.UUID, err error) {
	if r, ok := e.routes[parent]; ok {
		return r.id, uuid.Nil, r.eval.output(), &r.heads, &r.plotters, nil
	}
	if n, ok := e.nodes[parent]; ok {
		return n.routeID, n.id, n.eval.output(), &n.children, &n.plotters, nil
	}
	return uuid.Nil, uuid.Nil, nil, nil, nil, notFound("parent", parent)
}

// parentOutput returns the table feeding a child of (routeID, parentID).
// Must hold e.mu.
func (e *Engine) parentOutput(routeID, parentID uuid.UUID) *table.Table {
	if parentID == uuid.Nil {
		return e.routes[routeID].eval.output()
	}
	return e.nodes[parentID].eval.output()
}

// SetReducer replaces the node's reducer and re-evaluates its subtree.
func (e *Engine) SetReducer(id uuid.UUID, r reducer.Reducer) error {
	if r == nil {
		return errors.New("nil reducer")
	}
	return e.mutateNode(id, true, func(n *node) { n.reducer = r })
}

// SetNodeTitle renames the node.
func (e *Engine) SetNodeTitle(id uuid.UUID, title string) error {
	return e.mutateNode(id, false, func(n *node) { n.title = title })
}

// SetNodeStarred flags or unflags the node.
func (e *Engine) SetNodeStarred(id uuid.UUID, starred bool) error {
	return e.mutateNode(id, false, func(n *node) { n.starred = starred })
}

func (e *Engine) mutateNode(id uuid.UUID, reevaluate bool, f func(*node)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}
	n, ok := e.nodes[id]
	if !ok {
		return notFound("node", id)
	}
	f(n)
	if reevaluate {
		e.updateNode(n, e.parentOutput(n.routeID, n.parentID))
	}
	e.changed(n.routeID)
	return nil
}

// DeleteNode detaches the node, forces its subtree to pending, then removes
// it and everything below it. No further evaluation happens for them.
func (e *Engine) DeleteNode(id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[id]
	if !ok {
		return notFound("node", id)
	}

	e.reinitNode(n)
	siblings := e.siblings(n.routeID, n.parentID)
	*siblings = slices.DeleteFunc(*siblings, func(x uuid.UUID) bool { return x == id })
	e.removeNode(n)
	e.changed(n.routeID)
	e.logger.Debug("node deleted", "node", id)
	return nil
}

func (e *Engine) siblings(routeID, parentID uuid.UUID) *[]uuid.UUID {
	if parentID == uuid.Nil {
		return &e.routes[routeID].heads
	}
	return &e.nodes[parentID].children
}

// removeNode drops n and its subtree from the arena. Must hold e.mu.
func (e *Engine) removeNode(n *node) {
	for _, c := range n.children {
		e.removeNode(e.nodes[c])
	}
	for _, p := range n.plotters {
		delete(e.plotters, p)
	}
	delete(e.nodes, n.id)
}

// Node returns a copy of the node.
func (e *Engine) Node(id uuid.UUID) (NodeView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[id]
	if !ok {
		return NodeView{}, notFound("node", id)
	}
	return n.view(), nil
}

// Nodes returns every node of the route, depth first in child order.
func (e *Engine) Nodes(routeID uuid.UUID) ([]NodeView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.routes[routeID]
	if !ok {
		return nil, notFound("route", routeID)
	}
	var views []NodeView
	var walk func(ids []uuid.UUID)
	walk = func(ids []uuid.UUID) {
		for _, id := range ids {
			n := e.nodes[id]
			views = append(views, n.view())
			walk(n.children)
		}
	}
	walk(r.heads)
	return views, nil
}

// --- Plotters ---

// AddPlotter attaches a terminal plotter displaying columns below parent.
func (e *Engine) AddPlotter(parent uuid.UUID, title string, columns []string) (uuid.UUID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return uuid.Nil, ErrClosed
	}
	routeID, parentID, input, _, plotters, err := e.attachment(parent)
	if err != nil {
		return uuid.Nil, err
	}

	p := &plotter{
		id:        uuid.New(),
		routeID:   routeID,
		parentID:  parentID,
		title:     title,
		columns:   slices.Clone(columns),
		createdAt: e.now(),
	}
	e.plotters[p.id] = p
	*plotters = append(*plotters, p.id)
	p.evaluate(input)
	e.changed(routeID)
	return p.id, nil
}

// SetPlotterColumns replaces the displayed columns and re-checks them.
func (e *Engine) SetPlotterColumns(id uuid.UUID, columns []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.plotters[id]
	if !ok {
		return notFound("plotter", id)
	}
	p.columns = slices.Clone(columns)
	p.evaluate(e.parentOutput(p.routeID, p.parentID))
	e.changed(p.routeID)
	return nil
}

// DeletePlotter removes the plotter.
func (e *Engine) DeletePlotter(id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.plotters[id]
	if !ok {
		return notFound("plotter", id)
	}
	var list *[]uuid.UUID
	if p.parentID == uuid.Nil {
		list = &e.routes[p.routeID].plotters
	} else {
		list = &e.nodes[p.parentID].plotters
	}
	*list = slices.DeleteFunc(*list, func(x uuid.UUID) bool { return x == id })
	delete(e.plotters, id)
	e.changed(p.routeID)
	return nil
}

// Plotter returns a copy of the plotter.
func (e *Engine) Plotter(id uuid.UUID) (PlotterView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.plotters[id]
	if !ok {
		return PlotterView{}, notFound("plotter", id)
	}
	return p.view(), nil
}

// Plotters returns every plotter of the route, route-level ones first, then
// those of each node depth first.
func (e *Engine) Plotters(routeID uuid.UUID) ([]PlotterView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.routes[routeID]
	if !ok {
		return nil, notFound("route", routeID)
	}
	var views []PlotterView
	for _, id := range r.plotters {
		views = append(views, e.plotters[id].view())
	}
	var walk func(ids []uuid.UUID)
	walk = func(ids []uuid.UUID) {
		for _, id := range ids {
			n := e.nodes[id]
			for _, p := range n.plotters {
				views = append(views, e.plotters[p].view())
			}
			walk(n.children)
		}
	}
	walk(r.heads)
	return views, nil
}
