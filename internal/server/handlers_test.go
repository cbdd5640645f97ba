package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/internal/testutil"
)

// =============================================================================
// Test Setup Helpers
// =============================================================================

type fixture struct {
	engine  *engine.Engine
	handler http.Handler
	route   uuid.UUID
	node    uuid.UUID
	failing uuid.UUID
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	logger := testutil.NewTestLogger(t)

	source := testutil.WriteSource(t, "values.csv", "name,value\na,10\nb,\nc,5\n")

	eng := engine.New(engine.Config{Logger: logger})
	t.Cleanup(eng.Close)

	routeID, err := eng.CreateRoute("values", source)
	require.NoError(t, err)
	nodeID, err := eng.AddNode(routeID, "plus three",
		&reducer.Arithmetic[int64]{Operator: reducer.OpAdd, Column: "value", RHS: 3, IntoColumn: "value2"})
	require.NoError(t, err)
	failingID, err := eng.AddNode(routeID, "missing",
		&reducer.Arithmetic[int64]{Operator: reducer.OpAdd, Column: "nope", RHS: 1, IntoColumn: "x"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, eng.WaitIdle(ctx, routeID))

	return &fixture{
		engine:  eng,
		handler: New(Config{Engine: eng, Logger: logger}).Handler(),
		route:   routeID,
		node:    nodeID,
		failing: failingID,
	}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// JSON endpoints
// =============================================================================

func TestListRoutes(t *testing.T) {
	f := setupFixture(t)

	rec := f.get(t, "/api/routes")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	routes := decode[[]RouteJSON](t, rec)
	require.Len(t, routes, 1)
	assert.Equal(t, "values", routes[0].Name)
	assert.Equal(t, "success", routes[0].Status.Label)
	assert.Equal(t, 3, routes[0].Status.Rows)
	assert.Equal(t, []string{f.node.String(), f.failing.String()}, routes[0].Heads)
}

func TestGetRoute(t *testing.T) {
	f := setupFixture(t)

	rec := f.get(t, "/api/routes/"+f.route.String())
	require.Equal(t, http.StatusOK, rec.Code)

	detail := decode[RouteDetailJSON](t, rec)
	assert.Equal(t, f.route.String(), detail.ID)
	require.Len(t, detail.Nodes, 2)
	assert.Equal(t, "plus three", detail.Nodes[0].Title)
	assert.Equal(t, "failure", detail.Nodes[1].Status.Label)
	assert.Contains(t, detail.Nodes[1].Status.Error, "nope")
	assert.Empty(t, detail.PlotterList)
}

func TestGetNode(t *testing.T) {
	f := setupFixture(t)

	rec := f.get(t, "/api/nodes/"+f.node.String())
	require.Equal(t, http.StatusOK, rec.Code)

	node := decode[NodeJSON](t, rec)
	assert.Equal(t, f.route.String(), node.RouteID)
	assert.Empty(t, node.ParentID)
	assert.Equal(t, "Add 3 to value into value2", node.Description.Full)
	assert.JSONEq(t, `{"op":"integer.add","params":{"column":"value","rhs":3,"intoColumn":"value2"}}`, string(node.Reducer))
	assert.Equal(t, 3, node.Status.Columns)
}

func TestGetTable(t *testing.T) {
	f := setupFixture(t)

	rec := f.get(t, "/api/nodes/"+f.node.String()+"/table")
	require.Equal(t, http.StatusOK, rec.Code)

	tbl := decode[TableJSON](t, rec)
	assert.Equal(t, 3, tbl.TotalRows)
	assert.False(t, tbl.Truncated)
	require.Len(t, tbl.Rows, 3)
	require.NotNil(t, tbl.Rows[0][2])
	assert.Equal(t, "13", *tbl.Rows[0][2])
	assert.Nil(t, tbl.Rows[1][2])

	rec = f.get(t, "/api/nodes/"+f.node.String()+"/table?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	tbl = decode[TableJSON](t, rec)
	assert.Len(t, tbl.Rows, 1)
	assert.True(t, tbl.Truncated)

	rec = f.get(t, "/api/routes/"+f.route.String()+"/table?limit=0")
	require.Equal(t, http.StatusOK, rec.Code)
	tbl = decode[TableJSON](t, rec)
	assert.Empty(t, tbl.Rows)
	assert.Equal(t, 3, tbl.TotalRows)
}

func TestErrors(t *testing.T) {
	f := setupFixture(t)

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantError  string
	}{
		{"invalid id", "/api/routes/not-a-uuid", http.StatusBadRequest, "invalid id"},
		{"unknown route", "/api/routes/" + uuid.NewString(), http.StatusNotFound, "not found"},
		{"unknown node", "/api/nodes/" + uuid.NewString(), http.StatusNotFound, "not found"},
		{"invalid limit", "/api/nodes/" + f.node.String() + "/table?limit=-1", http.StatusBadRequest, "invalid limit"},
		{"failed node table", "/api/nodes/" + f.failing.String() + "/table", http.StatusUnprocessableEntity, "nope"},
		{"unknown events", "/api/routes/" + uuid.NewString() + "/events", http.StatusNotFound, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.get(t, tt.path)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode[ErrorJSON](t, rec)
			assert.Contains(t, body.Error, tt.wantError)
		})
	}
}

func TestGetTable_Pending(t *testing.T) {
	eng := engine.New(engine.Config{Logger: testutil.NewTestLogger(t)})
	t.Cleanup(eng.Close)
	routeID, err := eng.CreateRoute("empty", "")
	require.NoError(t, err)

	h := New(Config{Engine: eng}).Handler()
	req := httptest.NewRequest(http.MethodGet, "/api/routes/"+routeID.String()+"/table", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "pending")
}

// =============================================================================
// Event stream
// =============================================================================

// readEvent returns the lines of the next server-sent event.
func readEvent(t *testing.T, lines <-chan string) string {
	t.Helper()
	var b strings.Builder
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return b.String()
			}
			if line == "" {
				if b.Len() > 0 {
					return b.String()
				}
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestRouteEvents(t *testing.T) {
	f := setupFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/routes/"+f.route.String()+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	first := readEvent(t, lines)
	assert.Contains(t, first, "datastar-patch-signals")
	assert.Contains(t, first, `"name":"values"`)
	assert.Contains(t, first, f.node.String())

	require.NoError(t, f.engine.RenameRoute(f.route, "renamed"))
	renamed := false
	for i := 0; i < 5 && !renamed; i++ {
		renamed = strings.Contains(readEvent(t, lines), `"name":"renamed"`)
	}
	assert.True(t, renamed, "expected a patch carrying the new name")
}

func TestRouteEvents_EndsWhenRouteDeleted(t *testing.T) {
	f := setupFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/routes/" + f.route.String() + "/events")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	reader := bufio.NewReader(resp.Body)
	_, err = reader.ReadString('\n')
	require.NoError(t, err)

	require.NoError(t, f.engine.DeleteRoute(f.route))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, err := reader.ReadString('\n'); err != nil {
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not end after route deletion")
	}
}
