package state

import (
	"fmt"

	"github.com/leapstack-labs/leaproute/pkg/core"
)

// LoadSnapshot reads every route with its nodes and plotters. Nodes come out
// parent first, siblings by position.
func (s *SQLiteStore) LoadSnapshot() (*core.Snapshot, error) {
	routes, err := s.ListRoutes()
	if err != nil {
		return nil, err
	}

	snap := &core.Snapshot{Routes: routes}
	for _, r := range routes {
		nodes, err := s.ListNodes(r.ID)
		if err != nil {
			return nil, err
		}
		snap.Nodes = append(snap.Nodes, parentFirst(nodes)...)

		plotters, err := s.ListPlotters(r.ID)
		if err != nil {
			return nil, err
		}
		snap.Plotters = append(snap.Plotters, plotters...)
	}
	return snap, nil
}

// parentFirst orders position-sorted nodes breadth first from the heads.
// Nodes whose parent is missing are appended last so the caller can reject them.
func parentFirst(nodes []*core.NodeRecord) []*core.NodeRecord {
	children := make(map[string][]*core.NodeRecord)
	for _, n := range nodes {
		children[n.ParentID] = append(children[n.ParentID], n)
	}

	ordered := make([]*core.NodeRecord, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	queue := children[""]
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		ordered = append(ordered, n)
		queue = append(queue, children[n.ID]...)
	}
	for _, n := range nodes {
		if !seen[n.ID] {
			ordered = append(ordered, n)
		}
	}
	return ordered
}

// SaveSnapshot replaces every stored route, node and plotter with snap in a
// single transaction. The evaluation log is kept.
func (s *SQLiteStore) SaveSnapshot(snap *core.Snapshot) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	tx, err := s.db.BeginTx(ctx(), nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx(), `DELETE FROM routes`); err != nil {
		return fmt.Errorf("failed to clear routes: %w", err)
	}
	for _, r := range snap.Routes {
		if err := saveRoute(tx, r); err != nil {
			return err
		}
	}
	for _, n := range snap.Nodes {
		if err := saveNode(tx, n); err != nil {
			return err
		}
	}
	for _, p := range snap.Plotters {
		if err := savePlotter(tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	s.logger.Debug("snapshot saved", "routes", len(snap.Routes), "nodes", len(snap.Nodes), "plotters", len(snap.Plotters))
	return nil
}
