package server

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// StatusJSON is the wire form of an evaluation status.
type StatusJSON struct {
	Phase   core.Phase `json:"phase"`
	Label   string     `json:"label"`
	Error   string     `json:"error,omitempty"`
	Rows    int        `json:"rows,omitempty"`
	Columns int        `json:"columns,omitempty"`
}

// RouteJSON describes a route.
type RouteJSON struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	SourcePath string     `json:"sourcePath"`
	Starred    bool       `json:"starred"`
	CreatedAt  time.Time  `json:"createdAt"`
	Status     StatusJSON `json:"status"`
	Heads      []string   `json:"heads"`
	Plotters   []string   `json:"plotters"`
}

// RouteDetailJSON is a route with its whole tree.
type RouteDetailJSON struct {
	RouteJSON
	Nodes       []NodeJSON    `json:"nodes"`
	PlotterList []PlotterJSON `json:"plotterList"`
}

// NodeJSON describes a node and its reducer.
type NodeJSON struct {
	ID          string              `json:"id"`
	RouteID     string              `json:"routeId"`
	ParentID    string              `json:"parentId,omitempty"`
	Title       string              `json:"title"`
	Starred     bool                `json:"starred"`
	Reducer     json.RawMessage     `json:"reducer"`
	Description reducer.Description `json:"description"`
	CreatedAt   time.Time           `json:"createdAt"`
	Status      StatusJSON          `json:"status"`
	Children    []string            `json:"children"`
	Plotters    []string            `json:"plotters"`
}

// PlotterJSON describes a plotter.
type PlotterJSON struct {
	ID       string     `json:"id"`
	RouteID  string     `json:"routeId"`
	ParentID string     `json:"parentId,omitempty"`
	Title    string     `json:"title"`
	Columns  []string   `json:"columns"`
	Status   StatusJSON `json:"status"`
}

// TableJSON is a page of a finished table. Cells are formatted text; nulls
// are JSON null.
type TableJSON struct {
	Schema    []core.Field `json:"schema"`
	Rows      [][]*string  `json:"rows"`
	TotalRows int          `json:"totalRows"`
	Truncated bool         `json:"truncated"`
}

// ErrorJSON is the body of every non-2xx response.
type ErrorJSON struct {
	Error string `json:"error"`
}

// RouteSignals is the datastar signal payload of the events stream.
type RouteSignals struct {
	Route RouteSignal `json:"route"`
}

// RouteSignal carries the status label of every element of a route's tree.
type RouteSignal struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Status   string            `json:"status"`
	Error    string            `json:"error"`
	Nodes    map[string]string `json:"nodes"`
	Plotters map[string]string `json:"plotters"`
}

func statusJSON(s core.Status[*table.Table]) StatusJSON {
	out := StatusJSON{Phase: s.Phase, Label: s.Label()}
	if out.Phase == "" {
		out.Phase = core.PhasePending
	}
	if s.Failed() {
		out.Error = s.Err.Error()
	}
	if s.Succeeded() && s.Value != nil {
		out.Rows = s.Value.NumRows()
		out.Columns = s.Value.NumColumns()
	}
	return out
}

func routeJSON(v engine.RouteView) RouteJSON {
	return RouteJSON{
		ID:         v.ID.String(),
		Name:       v.Name,
		SourcePath: v.SourcePath,
		Starred:    v.Starred,
		CreatedAt:  v.CreatedAt,
		Status:     statusJSON(v.Status),
		Heads:      idStrings(v.Heads),
		Plotters:   idStrings(v.Plotters),
	}
}

func nodeJSON(v engine.NodeView) (NodeJSON, error) {
	env, err := reducer.Marshal(v.Reducer)
	if err != nil {
		return NodeJSON{}, err
	}
	out := NodeJSON{
		ID:          v.ID.String(),
		RouteID:     v.RouteID.String(),
		Title:       v.Title,
		Starred:     v.Starred,
		Reducer:     env,
		Description: v.Reducer.Describe(),
		CreatedAt:   v.CreatedAt,
		Status:      statusJSON(v.Status),
		Children:    idStrings(v.Children),
		Plotters:    idStrings(v.Plotters),
	}
	if v.ParentID != uuid.Nil {
		out.ParentID = v.ParentID.String()
	}
	return out, nil
}

func plotterJSON(v engine.PlotterView) PlotterJSON {
	out := PlotterJSON{
		ID:      v.ID.String(),
		RouteID: v.RouteID.String(),
		Title:   v.Title,
		Columns: v.Columns,
		Status:  statusJSON(v.Status),
	}
	if v.ParentID != uuid.Nil {
		out.ParentID = v.ParentID.String()
	}
	return out
}

func tableJSON(t *table.Table, limit int) TableJSON {
	page := t.Head(limit)
	out := TableJSON{
		Schema:    t.Schema(),
		Rows:      make([][]*string, 0, page.NumRows()),
		TotalRows: t.NumRows(),
		Truncated: page.NumRows() < t.NumRows(),
	}
	cols := page.Columns()
	for i := 0; i < page.NumRows(); i++ {
		row := make([]*string, len(cols))
		for j, c := range cols {
			if !c.IsNull(i) {
				s := c.Format(i)
				row[j] = &s
			}
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
