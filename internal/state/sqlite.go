// Package state persists route trees and their evaluation log in SQLite.
package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leaproute/pkg/core"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

var _ core.Store = (*SQLiteStore)(nil)

// SQLiteStore implements core.Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
// If logger is nil, a discard logger is used.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection: an in-memory database exists per connection, and
	// SQLite serializes writers anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	s.logger.Debug("state store opened", "path", path)
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// InitSchema brings the schema up to date.
func (s *SQLiteStore) InitSchema() error {
	if err := s.Migrate(); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

func ctx() context.Context { return context.Background() }

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stamp(t time.Time, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t.UTC()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// --- Route operations ---

// SaveRoute inserts or updates a route.
func (s *SQLiteStore) SaveRoute(r *core.RouteRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return saveRoute(s.db, r)
}

func saveRoute(db execer, r *core.RouteRecord) error {
	now := time.Now().UTC()
	r.CreatedAt = stamp(r.CreatedAt, now)
	r.UpdatedAt = now
	_, err := db.ExecContext(ctx(), `
		INSERT INTO routes (id, name, source_path, starred, position, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			source_path = excluded.source_path,
			starred = excluded.starred,
			position = excluded.position,
			updated_at = excluded.updated_at`,
		r.ID, r.Name, r.SourcePath, r.Starred, r.Position, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save route %s: %w", r.ID, err)
	}
	return nil
}

const routeColumns = `id, name, source_path, starred, position, created_at, updated_at`

func scanRoute(row interface{ Scan(...any) error }) (*core.RouteRecord, error) {
	r := &core.RouteRecord{}
	err := row.Scan(&r.ID, &r.Name, &r.SourcePath, &r.Starred, &r.Position, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// GetRoute retrieves a route by ID.
func (s *SQLiteStore) GetRoute(id string) (*core.RouteRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	r, err := scanRoute(s.db.QueryRowContext(ctx(), `SELECT `+routeColumns+` FROM routes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("route", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}
	return r, nil
}

// ListRoutes returns every route ordered by position.
func (s *SQLiteStore) ListRoutes() ([]*core.RouteRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.QueryContext(ctx(), `SELECT `+routeColumns+` FROM routes ORDER BY position, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var routes []*core.RouteRecord
	for rows.Next() {
		r, err := scanRoute(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan route: %w", err)
		}
		routes = append(routes, r)
	}
	return routes, rows.Err()
}

// DeleteRoute removes a route; its nodes and plotters cascade.
func (s *SQLiteStore) DeleteRoute(id string) error {
	return s.deleteByID("routes", "route", id)
}

func (s *SQLiteStore) deleteByID(table, kind, id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	result, err := s.db.ExecContext(ctx(), `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return notFound(kind, id)
	}
	return nil
}

// --- Node operations ---

// SaveNode inserts or updates a node. The reducer envelope is stored as is.
func (s *SQLiteStore) SaveNode(n *core.NodeRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return saveNode(s.db, n)
}

func saveNode(db execer, n *core.NodeRecord) error {
	if !json.Valid(n.Reducer) {
		return &core.DecodeError{Field: "node.reducer", Err: fmt.Errorf("node %s: invalid JSON", n.ID)}
	}
	now := time.Now().UTC()
	n.CreatedAt = stamp(n.CreatedAt, now)
	n.UpdatedAt = now
	_, err := db.ExecContext(ctx(), `
		INSERT INTO nodes (id, route_id, parent_id, title, starred, position, reducer, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			route_id = excluded.route_id,
			parent_id = excluded.parent_id,
			title = excluded.title,
			starred = excluded.starred,
			position = excluded.position,
			reducer = excluded.reducer,
			updated_at = excluded.updated_at`,
		n.ID, n.RouteID, nullable(n.ParentID), n.Title, n.Starred, n.Position, string(n.Reducer), n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save node %s: %w", n.ID, err)
	}
	return nil
}

const nodeColumns = `id, route_id, parent_id, title, starred, position, reducer, created_at, updated_at`

func scanNode(row interface{ Scan(...any) error }) (*core.NodeRecord, error) {
	n := &core.NodeRecord{}
	var parent sql.NullString
	var reducer string
	if err := row.Scan(&n.ID, &n.RouteID, &parent, &n.Title, &n.Starred, &n.Position, &reducer, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	n.ParentID = parent.String
	n.Reducer = json.RawMessage(reducer)
	return n, nil
}

// GetNode retrieves a node by ID.
func (s *SQLiteStore) GetNode(id string) (*core.NodeRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	n, err := scanNode(s.db.QueryRowContext(ctx(), `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("node", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}
	return n, nil
}

// ListNodes returns the nodes of a route ordered by position.
// Callers needing parent-first order should use LoadSnapshot.
func (s *SQLiteStore) ListNodes(routeID string) ([]*core.NodeRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.QueryContext(ctx(), `SELECT `+nodeColumns+` FROM nodes WHERE route_id = ? ORDER BY position, created_at`, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var nodes []*core.NodeRecord
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// DeleteNode removes a node; its subtree and plotters cascade.
func (s *SQLiteStore) DeleteNode(id string) error {
	return s.deleteByID("nodes", "node", id)
}

// --- Plotter operations ---

// SavePlotter inserts or updates a plotter.
func (s *SQLiteStore) SavePlotter(p *core.PlotterRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	return savePlotter(s.db, p)
}

func savePlotter(db execer, p *core.PlotterRecord) error {
	columns, err := json.Marshal(p.Columns)
	if err != nil {
		return fmt.Errorf("failed to encode plotter columns: %w", err)
	}
	p.CreatedAt = stamp(p.CreatedAt, time.Now().UTC())
	_, err = db.ExecContext(ctx(), `
		INSERT INTO plotters (id, route_id, parent_id, title, columns_json, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			route_id = excluded.route_id,
			parent_id = excluded.parent_id,
			title = excluded.title,
			columns_json = excluded.columns_json,
			position = excluded.position`,
		p.ID, p.RouteID, nullable(p.ParentID), p.Title, string(columns), p.Position, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save plotter %s: %w", p.ID, err)
	}
	return nil
}

// ListPlotters returns the plotters of a route ordered by position.
func (s *SQLiteStore) ListPlotters(routeID string) ([]*core.PlotterRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	rows, err := s.db.QueryContext(ctx(), `
		SELECT id, route_id, parent_id, title, columns_json, position, created_at
		FROM plotters WHERE route_id = ? ORDER BY position, created_at`, routeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plotters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var plotters []*core.PlotterRecord
	for rows.Next() {
		p := &core.PlotterRecord{}
		var parent sql.NullString
		var columns string
		if err := rows.Scan(&p.ID, &p.RouteID, &parent, &p.Title, &columns, &p.Position, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan plotter: %w", err)
		}
		p.ParentID = parent.String
		if err := json.Unmarshal([]byte(columns), &p.Columns); err != nil {
			return nil, &core.DecodeError{Field: "plotter.columns", Err: err}
		}
		plotters = append(plotters, p)
	}
	return plotters, rows.Err()
}

// DeletePlotter removes a plotter.
func (s *SQLiteStore) DeletePlotter(id string) error {
	return s.deleteByID("plotters", "plotter", id)
}

// --- Evaluation log ---

// RecordEvaluation appends one finished evaluation.
func (s *SQLiteStore) RecordEvaluation(ev *core.Evaluation) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.FinishedAt = stamp(ev.FinishedAt, time.Now().UTC())
	_, err := s.db.ExecContext(ctx(), `
		INSERT INTO evaluations (id, subject_id, route_id, outcome, row_count, column_count, error, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.SubjectID, ev.RouteID, string(ev.Outcome), ev.Rows, ev.Columns, nullable(ev.Error), ev.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record evaluation: %w", err)
	}
	return nil
}

// ListEvaluations returns the newest evaluations of a subject first.
// A limit of zero or less returns all of them.
func (s *SQLiteStore) ListEvaluations(subjectID string, limit int) ([]*core.Evaluation, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx(), `
		SELECT id, subject_id, route_id, outcome, row_count, column_count, error, finished_at
		FROM evaluations WHERE subject_id = ?
		ORDER BY finished_at DESC LIMIT ?`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var evs []*core.Evaluation
	for rows.Next() {
		ev := &core.Evaluation{}
		var outcome string
		var errMsg sql.NullString
		if err := rows.Scan(&ev.ID, &ev.SubjectID, &ev.RouteID, &outcome, &ev.Rows, &ev.Columns, &errMsg, &ev.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		ev.Outcome = core.EvaluationOutcome(outcome)
		ev.Error = errMsg.String
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}
