package core

import (
	"encoding/json"
	"time"
)

// Store defines the interface for persisted route trees.
type Store interface {
	Open(path string) error
	Close() error
	InitSchema() error

	// Route operations
	SaveRoute(r *RouteRecord) error
	GetRoute(id string) (*RouteRecord, error)
	ListRoutes() ([]*RouteRecord, error)
	DeleteRoute(id string) error

	// Node operations
	SaveNode(n *NodeRecord) error
	GetNode(id string) (*NodeRecord, error)
	ListNodes(routeID string) ([]*NodeRecord, error)
	DeleteNode(id string) error

	// Plotter operations
	SavePlotter(p *PlotterRecord) error
	ListPlotters(routeID string) ([]*PlotterRecord, error)
	DeletePlotter(id string) error

	// Whole-tree operations
	LoadSnapshot() (*Snapshot, error)
	SaveSnapshot(snap *Snapshot) error

	// Evaluation log
	RecordEvaluation(ev *Evaluation) error
	ListEvaluations(subjectID string, limit int) ([]*Evaluation, error)
}

// RouteRecord is the persisted form of a Route.
type RouteRecord struct {
	ID         string
	Name       string
	SourcePath string
	Starred    bool
	Position   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NodeRecord is the persisted form of a Node.
// ParentID is empty when the node is a head of its route.
type NodeRecord struct {
	ID       string
	RouteID  string
	ParentID string
	Title    string
	Starred  bool
	Position int
	// Reducer is the reducer's JSON envelope.
	Reducer   json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PlotterRecord is the persisted form of a terminal Plotter.
type PlotterRecord struct {
	ID        string
	RouteID   string
	ParentID  string
	Title     string
	Columns   []string
	Position  int
	CreatedAt time.Time
}

// EvaluationOutcome is the terminal outcome of one evaluation.
type EvaluationOutcome string

// Evaluation outcome constants.
const (
	EvaluationSuccess EvaluationOutcome = "success"
	EvaluationFailure EvaluationOutcome = "failure"
)

// Evaluation is one entry of the evaluation log.
type Evaluation struct {
	ID         string
	SubjectID  string
	RouteID    string
	Outcome    EvaluationOutcome
	Rows       int
	Columns    int
	Error      string
	FinishedAt time.Time
}

// Snapshot is every persisted route with its nodes and plotters.
// Nodes are ordered parent first.
type Snapshot struct {
	Routes   []*RouteRecord
	Nodes    []*NodeRecord
	Plotters []*PlotterRecord
}
