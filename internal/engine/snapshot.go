package engine

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaproute/internal/dag"
	"github.com/leapstack-labs/leaproute/internal/notifier"
	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// Snapshot captures every route, node and plotter as records. Positions are
// the index of each element among its siblings.
func (e *Engine) Snapshot() (*core.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := &core.Snapshot{}
	for i, id := range e.order {
		r := e.routes[id]
		snap.Routes = append(snap.Routes, &core.RouteRecord{
			ID:         r.id.String(),
			Name:       r.name,
			SourcePath: r.source,
			Starred:    r.starred,
			Position:   i,
			CreatedAt:  r.createdAt,
		})
		snap.Plotters = append(snap.Plotters, e.plotterRecords(r.plotters)...)
		if err := e.snapshotNodes(snap, r.heads); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// snapshotNodes appends ids and their subtrees parent first. Must hold e.mu.
func (e *Engine) snapshotNodes(snap *core.Snapshot, ids []uuid.UUID) error {
	for i, id := range ids {
		n := e.nodes[id]
		data, err := reducer.Marshal(n.reducer)
		if err != nil {
			return fmt.Errorf("node %s: %w", n.id, err)
		}
		rec := &core.NodeRecord{
			ID:        n.id.String(),
			RouteID:   n.routeID.String(),
			Title:     n.title,
			Starred:   n.starred,
			Position:  i,
			Reducer:   data,
			CreatedAt: n.createdAt,
		}
		if n.parentID != uuid.Nil {
			rec.ParentID = n.parentID.String()
		}
		snap.Nodes = append(snap.Nodes, rec)
		snap.Plotters = append(snap.Plotters, e.plotterRecords(n.plotters)...)
		if err := e.snapshotNodes(snap, n.children); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) plotterRecords(ids []uuid.UUID) []*core.PlotterRecord {
	recs := make([]*core.PlotterRecord, 0, len(ids))
	for i, id := range ids {
		p := e.plotters[id]
		rec := &core.PlotterRecord{
			ID:        p.id.String(),
			RouteID:   p.routeID.String(),
			Title:     p.title,
			Columns:   slices.Clone(p.columns),
			Position:  i,
			CreatedAt: p.createdAt,
		}
		if p.parentID != uuid.Nil {
			rec.ParentID = p.parentID.String()
		}
		recs = append(recs, rec)
	}
	return recs
}

// restoredNode carries a decoded node record through the ordering graph.
type restoredNode struct {
	rec *core.NodeRecord
	n   *node
}

// Restore adds the routes of snap to the engine and evaluates them.
// Reducers are decoded before anything changes: a corrupt envelope yields
// *core.DecodeError and leaves the engine untouched, as do duplicate ids,
// dangling parents and cycles.
func (e *Engine) Restore(snap *core.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	g := dag.NewGraph()
	routes := make(map[uuid.UUID]*route, len(snap.Routes))
	for _, rec := range snap.Routes {
		id, err := e.freshID("route", rec.ID)
		if err != nil {
			return err
		}
		if _, dup := routes[id]; dup {
			return fmt.Errorf("route %s appears twice", id)
		}
		routes[id] = &route{
			id:        id,
			name:      rec.Name,
			source:    rec.SourcePath,
			starred:   rec.Starred,
			createdAt: rec.CreatedAt,
			notifier:  notifier.New(),
		}
		g.AddNode(rec.ID, nil)
	}

	for _, rec := range snap.Nodes {
		id, err := e.freshID("node", rec.ID)
		if err != nil {
			return err
		}
		if _, dup := g.Node(rec.ID); dup {
			return fmt.Errorf("node %s appears twice", id)
		}
		r, err := reducer.Unmarshal(rec.Reducer)
		if err != nil {
			return fmt.Errorf("node %s: %w", id, err)
		}
		g.AddNode(rec.ID, &restoredNode{rec: rec, n: &node{
			id:        id,
			title:     rec.Title,
			starred:   rec.Starred,
			reducer:   r,
			createdAt: rec.CreatedAt,
		}})
	}

	for _, rec := range snap.Nodes {
		if err := linkRecord(g, routes, rec.ID, rec.RouteID, rec.ParentID); err != nil {
			return fmt.Errorf("node %s: %w", rec.ID, err)
		}
	}

	ordered, err := g.TopologicalSort()
	if err != nil {
		return err
	}

	plotters := make(map[uuid.UUID]*plotter, len(snap.Plotters))
	for _, rec := range snap.Plotters {
		id, err := e.freshID("plotter", rec.ID)
		if err != nil {
			return err
		}
		if _, dup := plotters[id]; dup {
			return fmt.Errorf("plotter %s appears twice", id)
		}
		routeID, parentID, err := plotterParent(g, routes, rec)
		if err != nil {
			return fmt.Errorf("plotter %s: %w", id, err)
		}
		plotters[id] = &plotter{
			id:        id,
			routeID:   routeID,
			parentID:  parentID,
			title:     rec.Title,
			columns:   slices.Clone(rec.Columns),
			createdAt: rec.CreatedAt,
		}
	}

	// every check passed: commit to the arena
	var nodes []*restoredNode
	for _, v := range ordered {
		rn, ok := v.Data.(*restoredNode)
		if !ok {
			continue
		}
		rn.n.routeID = uuid.MustParse(rn.rec.RouteID)
		if rn.rec.ParentID != "" {
			rn.n.parentID = uuid.MustParse(rn.rec.ParentID)
		}
		e.nodes[rn.n.id] = rn.n
		nodes = append(nodes, rn)
	}
	for _, r := range routes {
		e.routes[r.id] = r
	}

	slices.SortStableFunc(nodes, func(a, b *restoredNode) int { return cmp.Compare(a.rec.Position, b.rec.Position) })
	for _, rn := range nodes {
		list := e.siblings(rn.n.routeID, rn.n.parentID)
		*list = append(*list, rn.n.id)
	}

	plotterRecs := slices.Clone(snap.Plotters)
	slices.SortStableFunc(plotterRecs, func(a, b *core.PlotterRecord) int { return cmp.Compare(a.Position, b.Position) })
	for _, rec := range plotterRecs {
		p := plotters[uuid.MustParse(rec.ID)]
		e.plotters[p.id] = p
		if p.parentID == uuid.Nil {
			e.routes[p.routeID].plotters = append(e.routes[p.routeID].plotters, p.id)
		} else {
			e.nodes[p.parentID].plotters = append(e.nodes[p.parentID].plotters, p.id)
		}
	}

	routeRecs := slices.Clone(snap.Routes)
	slices.SortStableFunc(routeRecs, func(a, b *core.RouteRecord) int { return cmp.Compare(a.Position, b.Position) })
	for _, rec := range routeRecs {
		r := e.routes[uuid.MustParse(rec.ID)]
		e.order = append(e.order, r.id)
		e.updateRoute(r)
		e.changed(r.id)
	}

	e.logger.Debug("restored snapshot", "routes", len(snap.Routes), "nodes", len(snap.Nodes), "plotters", len(snap.Plotters))
	return nil
}

// freshID parses raw and rejects ids already in the engine. Must hold e.mu.
func (e *Engine) freshID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &core.DecodeError{Field: kind + ".id", Err: err}
	}
	if e.routes[id] != nil || e.nodes[id] != nil || e.plotters[id] != nil {
		return uuid.Nil, fmt.Errorf("%s %s already exists", kind, id)
	}
	return id, nil
}

// linkRecord adds the edge from an element's parent to the element, checking
// that the parent exists and belongs to the same route.
func linkRecord(g *dag.Graph, routes map[uuid.UUID]*route, id, routeID, parentID string) error {
	rid, err := uuid.Parse(routeID)
	if err != nil || routes[rid] == nil {
		return fmt.Errorf("route %q: %w", routeID, core.ErrNotFound)
	}
	if parentID == "" {
		return g.AddEdge(routeID, id)
	}
	v, ok := g.Node(parentID)
	if !ok {
		return fmt.Errorf("parent %q: %w", parentID, core.ErrNotFound)
	}
	parent, ok := v.Data.(*restoredNode)
	if !ok {
		return fmt.Errorf("parent %q is not a node", parentID)
	}
	if parent.rec.RouteID != routeID {
		return fmt.Errorf("parent %q belongs to route %s", parentID, parent.rec.RouteID)
	}
	return g.AddEdge(parentID, id)
}

func plotterParent(g *dag.Graph, routes map[uuid.UUID]*route, rec *core.PlotterRecord) (uuid.UUID, uuid.UUID, error) {
	routeID, err := uuid.Parse(rec.RouteID)
	if err != nil || routes[routeID] == nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("route %q: %w", rec.RouteID, core.ErrNotFound)
	}
	if rec.ParentID == "" {
		return routeID, uuid.Nil, nil
	}
	v, ok := g.Node(rec.ParentID)
	if !ok {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parent %q: %w", rec.ParentID, core.ErrNotFound)
	}
	parent, ok := v.Data.(*restoredNode)
	if !ok || parent.rec.RouteID != rec.RouteID {
		return uuid.Nil, uuid.Nil, fmt.Errorf("parent %q is not a node of route %s", rec.ParentID, rec.RouteID)
	}
	return routeID, parent.n.id, nil
}

// Graph returns the route's tree as a graph keyed by id string. Vertex data
// is a RouteView, NodeView or PlotterView.
func (e *Engine) Graph(routeID uuid.UUID) (*dag.Graph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.routes[routeID]
	if !ok {
		return nil, notFound("route", routeID)
	}

	g := dag.NewGraph()
	g.AddNode(r.id.String(), r.view())
	var add func(parent string, children, plotters []uuid.UUID)
	add = func(parent string, children, plotters []uuid.UUID) {
		for _, id := range plotters {
			g.AddNode(id.String(), e.plotters[id].view())
			_ = g.AddEdge(parent, id.String())
		}
		for _, id := range children {
			n := e.nodes[id]
			g.AddNode(id.String(), n.view())
			_ = g.AddEdge(parent, id.String())
			add(id.String(), n.children, n.plotters)
		}
	}
	add(r.id.String(), r.heads, r.plotters)
	return g, nil
}
