package config

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// RoutesFile is the declarative form of every route, as written in
// routes.yaml.
type RoutesFile struct {
	Routes []RouteDef `yaml:"routes"`
}

// RouteDef declares a route and its tree.
type RouteDef struct {
	ID       string       `yaml:"id,omitempty"`
	Name     string       `yaml:"name"`
	Source   string       `yaml:"source,omitempty"`
	Starred  bool         `yaml:"starred,omitempty"`
	Nodes    []NodeDef    `yaml:"nodes,omitempty"`
	Plotters []PlotterDef `yaml:"plotters,omitempty"`
}

// NodeDef declares a node, its reducer and its subtree.
type NodeDef struct {
	ID       string       `yaml:"id,omitempty"`
	Title    string       `yaml:"title"`
	Starred  bool         `yaml:"starred,omitempty"`
	Reducer  ReducerDef   `yaml:"reducer"`
	Children []NodeDef    `yaml:"children,omitempty"`
	Plotters []PlotterDef `yaml:"plotters,omitempty"`
}

// ReducerDef is a reducer envelope written as a YAML map.
type ReducerDef struct {
	Op     string         `yaml:"op"`
	Params map[string]any `yaml:"params,omitempty"`
}

// PlotterDef declares a plotter.
type PlotterDef struct {
	ID      string   `yaml:"id,omitempty"`
	Title   string   `yaml:"title"`
	Columns []string `yaml:"columns"`
}

// LoadRoutes reads and validates a routes file.
func LoadRoutes(path string) (*RoutesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file: %w", err)
	}
	f, err := ParseRoutes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseRoutes decodes and validates routes.yaml content. Every reducer must
// decode; failures are *core.DecodeError.
func ParseRoutes(data []byte) (*RoutesFile, error) {
	var f RoutesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("invalid routes file: %w", err)
	}
	for i, r := range f.Routes {
		if r.Name == "" {
			return nil, fmt.Errorf("routes[%d]: name is required", i)
		}
		if err := validateNodes(r.Nodes); err != nil {
			return nil, fmt.Errorf("route %q: %w", r.Name, err)
		}
	}
	return &f, nil
}

func validateNodes(nodes []NodeDef) error {
	for _, n := range nodes {
		if _, err := n.Reducer.Decode(); err != nil {
			return fmt.Errorf("node %q: %w", n.Title, err)
		}
		if err := validateNodes(n.Children); err != nil {
			return err
		}
	}
	return nil
}

// Envelope returns the reducer's JSON envelope.
func (d ReducerDef) Envelope() (json.RawMessage, error) {
	params := d.Params
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(struct {
		Op     string         `json:"op"`
		Params map[string]any `json:"params"`
	}{d.Op, params})
	if err != nil {
		return nil, &core.DecodeError{Field: "reducer.params", Err: err}
	}
	return data, nil
}

// Decode builds the reducer the definition describes.
func (d ReducerDef) Decode() (reducer.Reducer, error) {
	env, err := d.Envelope()
	if err != nil {
		return nil, err
	}
	return reducer.Unmarshal(env)
}

// reducerDef converts a JSON envelope back to its YAML map form.
func reducerDef(env json.RawMessage) (ReducerDef, error) {
	var raw struct {
		Op     string         `json:"op"`
		Params map[string]any `json:"params"`
	}
	dec := json.NewDecoder(bytes.NewReader(env))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return ReducerDef{}, &core.DecodeError{Field: "reducer", Err: err}
	}
	return ReducerDef{Op: raw.Op, Params: raw.Params}, nil
}

// Marshal encodes the routes file as YAML.
func (f *RoutesFile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode routes file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Snapshot converts the definitions to persisted records. Missing ids are
// generated; positions follow declaration order.
func (f *RoutesFile) Snapshot(now time.Time) (*core.Snapshot, error) {
	b := &snapshotBuilder{snap: &core.Snapshot{}, now: now, seen: make(map[string]bool)}
	for i, r := range f.Routes {
		id, err := b.id(r.ID)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", r.Name, err)
		}
		b.snap.Routes = append(b.snap.Routes, &core.RouteRecord{
			ID:         id,
			Name:       r.Name,
			SourcePath: r.Source,
			Starred:    r.Starred,
			Position:   i,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err := b.nodes(id, "", r.Nodes); err != nil {
			return nil, fmt.Errorf("route %q: %w", r.Name, err)
		}
		if err := b.plotters(id, "", r.Plotters); err != nil {
			return nil, fmt.Errorf("route %q: %w", r.Name, err)
		}
	}
	return b.snap, nil
}

type snapshotBuilder struct {
	snap *core.Snapshot
	now  time.Time
	seen map[string]bool
}

func (b *snapshotBuilder) id(raw string) (string, error) {
	if raw == "" {
		return uuid.NewString(), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", &core.DecodeError{Field: "id", Err: err}
	}
	if b.seen[id.String()] {
		return "", fmt.Errorf("duplicate id %s", id)
	}
	b.seen[id.String()] = true
	return id.String(), nil
}

func (b *snapshotBuilder) nodes(routeID, parentID string, defs []NodeDef) error {
	for i, n := range defs {
		id, err := b.id(n.ID)
		if err != nil {
			return fmt.Errorf("node %q: %w", n.Title, err)
		}
		env, err := n.Reducer.Envelope()
		if err != nil {
			return fmt.Errorf("node %q: %w", n.Title, err)
		}
		b.snap.Nodes = append(b.snap.Nodes, &core.NodeRecord{
			ID:        id,
			RouteID:   routeID,
			ParentID:  parentID,
			Title:     n.Title,
			Starred:   n.Starred,
			Position:  i,
			Reducer:   env,
			CreatedAt: b.now,
			UpdatedAt: b.now,
		})
		if err := b.nodes(routeID, id, n.Children); err != nil {
			return err
		}
		if err := b.plotters(routeID, id, n.Plotters); err != nil {
			return err
		}
	}
	return nil
}

func (b *snapshotBuilder) plotters(routeID, parentID string, defs []PlotterDef) error {
	for i, p := range defs {
		id, err := b.id(p.ID)
		if err != nil {
			return fmt.Errorf("plotter %q: %w", p.Title, err)
		}
		b.snap.Plotters = append(b.snap.Plotters, &core.PlotterRecord{
			ID:        id,
			RouteID:   routeID,
			ParentID:  parentID,
			Title:     p.Title,
			Columns:   p.Columns,
			Position:  i,
			CreatedAt: b.now,
		})
	}
	return nil
}

// FromSnapshot converts persisted records back to definitions, keeping ids.
// Siblings are ordered by position.
func FromSnapshot(snap *core.Snapshot) (*RoutesFile, error) {
	nodesByParent := make(map[string][]*core.NodeRecord)
	for _, n := range snap.Nodes {
		key := n.ParentID
		if key == "" {
			key = n.RouteID
		}
		nodesByParent[key] = append(nodesByParent[key], n)
	}
	plottersByParent := make(map[string][]*core.PlotterRecord)
	for _, p := range snap.Plotters {
		key := p.ParentID
		if key == "" {
			key = p.RouteID
		}
		plottersByParent[key] = append(plottersByParent[key], p)
	}

	var build func(parent string) ([]NodeDef, error)
	build = func(parent string) ([]NodeDef, error) {
		records := nodesByParent[parent]
		sortByPosition(records, func(n *core.NodeRecord) int { return n.Position })
		defs := make([]NodeDef, 0, len(records))
		for _, n := range records {
			red, err := reducerDef(n.Reducer)
			if err != nil {
				return nil, fmt.Errorf("node %s: %w", n.ID, err)
			}
			children, err := build(n.ID)
			if err != nil {
				return nil, err
			}
			defs = append(defs, NodeDef{
				ID:       n.ID,
				Title:    n.Title,
				Starred:  n.Starred,
				Reducer:  red,
				Children: children,
				Plotters: plotterDefs(plottersByParent[n.ID]),
			})
		}
		return defs, nil
	}

	routes := append([]*core.RouteRecord(nil), snap.Routes...)
	sortByPosition(routes, func(r *core.RouteRecord) int { return r.Position })

	f := &RoutesFile{Routes: make([]RouteDef, 0, len(routes))}
	for _, r := range routes {
		nodes, err := build(r.ID)
		if err != nil {
			return nil, err
		}
		f.Routes = append(f.Routes, RouteDef{
			ID:       r.ID,
			Name:     r.Name,
			Source:   r.SourcePath,
			Starred:  r.Starred,
			Nodes:    nodes,
			Plotters: plotterDefs(plottersByParent[r.ID]),
		})
	}
	return f, nil
}

func plotterDefs(records []*core.PlotterRecord) []PlotterDef {
	sortByPosition(records, func(p *core.PlotterRecord) int { return p.Position })
	defs := make([]PlotterDef, 0, len(records))
	for _, p := range records {
		defs = append(defs, PlotterDef{ID: p.ID, Title: p.Title, Columns: p.Columns})
	}
	return defs
}

func sortByPosition[T any](s []T, pos func(T) int) {
	slices.SortStableFunc(s, func(a, b T) int { return cmp.Compare(pos(a), pos(b)) })
}
