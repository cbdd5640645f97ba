package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/leaproute/internal/engine"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

const (
	defaultTableLimit = 100
	maxTableLimit     = 10000
)

// Handlers provides the HTTP handlers of the API.
type Handlers struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(eng *engine.Engine, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{engine: eng, logger: logger}
}

// ListRoutes returns every route.
func (h *Handlers) ListRoutes(w http.ResponseWriter, _ *http.Request) {
	views := h.engine.Routes()
	out := make([]RouteJSON, len(views))
	for i, v := range views {
		out[i] = routeJSON(v)
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetRoute returns a route with its nodes and plotters.
func (h *Handlers) GetRoute(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	detail, err := h.routeDetail(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail)
}

func (h *Handlers) routeDetail(id uuid.UUID) (*RouteDetailJSON, error) {
	route, err := h.engine.Route(id)
	if err != nil {
		return nil, err
	}
	nodes, err := h.engine.Nodes(id)
	if err != nil {
		return nil, err
	}
	plotters, err := h.engine.Plotters(id)
	if err != nil {
		return nil, err
	}

	detail := &RouteDetailJSON{
		RouteJSON:   routeJSON(route),
		Nodes:       make([]NodeJSON, 0, len(nodes)),
		PlotterList: make([]PlotterJSON, 0, len(plotters)),
	}
	for _, n := range nodes {
		nj, err := nodeJSON(n)
		if err != nil {
			return nil, err
		}
		detail.Nodes = append(detail.Nodes, nj)
	}
	for _, p := range plotters {
		detail.PlotterList = append(detail.PlotterList, plotterJSON(p))
	}
	return detail, nil
}

// GetNode returns a node.
func (h *Handlers) GetNode(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.engine.Node(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out, err := nodeJSON(view)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

// GetPlotter returns a plotter.
func (h *Handlers) GetPlotter(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	view, err := h.engine.Plotter(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, plotterJSON(view))
}

// GetTable returns the first rows of a route's or node's finished table.
// The limit query parameter defaults to 100.
func (h *Handlers) GetTable(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	limit := defaultTableLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n > maxTableLimit {
			h.writeJSON(w, http.StatusBadRequest, ErrorJSON{Error: fmt.Sprintf("invalid limit %q", raw)})
			return
		}
		limit = n
	}

	status, err := h.engine.Status(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	switch {
	case status.Failed():
		h.writeJSON(w, http.StatusUnprocessableEntity, ErrorJSON{Error: status.Err.Error()})
	case !status.Succeeded() || status.Value == nil:
		h.writeJSON(w, http.StatusConflict, ErrorJSON{Error: "table is " + status.Label()})
	default:
		h.writeJSON(w, http.StatusOK, tableJSON(status.Value, limit))
	}
}

// RouteEvents streams the route's statuses as signal patches: once on
// connect, then after every change until the client leaves or the route is
// deleted.
func (h *Handlers) RouteEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	updates, unsubscribe, err := h.engine.Subscribe(id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer unsubscribe()

	sse := datastar.NewSSE(w, r)
	if err := h.sendSignals(sse, id); err != nil {
		_ = sse.ConsoleError(err)
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case _, open := <-updates:
			if !open {
				return
			}
			if err := h.sendSignals(sse, id); err != nil {
				_ = sse.ConsoleError(err)
				// keep streaming; the next change may succeed
			}
		}
	}
}

func (h *Handlers) sendSignals(sse *datastar.ServerSentEventGenerator, id uuid.UUID) error {
	signals, err := h.routeSignals(id)
	if err != nil {
		return err
	}
	return sse.MarshalAndPatchSignals(signals)
}

func (h *Handlers) routeSignals(id uuid.UUID) (*RouteSignals, error) {
	route, err := h.engine.Route(id)
	if err != nil {
		return nil, err
	}
	nodes, err := h.engine.Nodes(id)
	if err != nil {
		return nil, err
	}
	plotters, err := h.engine.Plotters(id)
	if err != nil {
		return nil, err
	}

	sig := RouteSignal{
		ID:       route.ID.String(),
		Name:     route.Name,
		Status:   route.Status.Label(),
		Nodes:    make(map[string]string, len(nodes)),
		Plotters: make(map[string]string, len(plotters)),
	}
	if route.Status.Failed() {
		sig.Error = route.Status.Err.Error()
	}
	for _, n := range nodes {
		sig.Nodes[n.ID.String()] = n.Status.Label()
	}
	for _, p := range plotters {
		sig.Plotters[p.ID.String()] = p.Status.Label()
	}
	return &RouteSignals{Route: sig}, nil
}

func (h *Handlers) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorJSON{Error: fmt.Sprintf("invalid id %q", raw)})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, core.ErrNotFound) {
		status = http.StatusNotFound
	} else {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, ErrorJSON{Error: err.Error()})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("failed to write response", "error", err)
	}
}
