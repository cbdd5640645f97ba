// Package reducer implements the closed catalog of table transformations.
//
// Every reducer is a pure value: applying it to the same table always yields
// the same table or the same failure. Validation is colocated with application
// in each leaf's Apply, and a failing Apply never returns a partially changed
// table. Reducers serialize to a tagged JSON envelope:
//
//	{"op": "integer.add", "params": {"column": "value", "rhs": 3, "intoColumn": "value2"}}
package reducer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/leapstack-labs/leaproute/internal/table"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

// Reducer maps one table to another.
type Reducer interface {
	// Op returns the stable serialization tag, e.g. "integer.add".
	Op() string
	// Apply validates the reducer against t and returns the transformed table.
	// Failures are *core.ColumnNotFoundError, *core.ColumnsNotFoundError,
	// *core.TypeMismatchError or *core.InvalidParameterError.
	Apply(t *table.Table) (*table.Table, error)
	// Describe returns the display triple for presentation.
	Describe() Description
}

// Description is the human-readable rendering of a reducer.
type Description struct {
	// Full is a sentence, e.g. "Add 3 to value into value2".
	Full string `json:"full"`
	// Abbreviation is a compact formula, e.g. "value2 = value + 3".
	Abbreviation string `json:"abbreviation"`
	// Short is a label of a few characters, e.g. "+3".
	Short string `json:"short"`
}

// --- Catalog ---

var (
	catalogMu sync.RWMutex
	catalog   = make(map[string]func() Reducer)
)

// register adds a constructor for op. Called from init functions.
func register(op string, factory func() Reducer) {
	catalogMu.Lock()
	defer catalogMu.Unlock()
	if _, dup := catalog[op]; dup {
		panic(fmt.Sprintf("reducer %q registered twice", op))
	}
	catalog[op] = factory
}

// New returns a zero-parameter reducer for op.
func New(op string) (Reducer, error) {
	catalogMu.RLock()
	factory, ok := catalog[op]
	catalogMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownReducer, op)
	}
	return factory(), nil
}

// Ops returns every registered tag, sorted.
func Ops() []string {
	catalogMu.RLock()
	defer catalogMu.RUnlock()
	ops := make([]string, 0, len(catalog))
	for op := range catalog {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	return ops
}

// --- Encoding ---

type envelope struct {
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Marshal encodes r as its JSON envelope.
func Marshal(r Reducer) ([]byte, error) {
	if r == nil {
		return nil, errors.New("nil reducer")
	}
	params, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", r.Op(), err)
	}
	return json.Marshal(envelope{Op: r.Op(), Params: params})
}

// Unmarshal decodes a JSON envelope. Any corruption yields *core.DecodeError.
func Unmarshal(data []byte) (Reducer, error) {
	var env envelope
	if err := decodeStrict(data, &env); err != nil {
		return nil, &core.DecodeError{Field: "reducer", Err: err}
	}
	if env.Op == "" {
		return nil, &core.DecodeError{Field: "reducer.op", Err: errors.New("missing op")}
	}
	r, err := New(env.Op)
	if err != nil {
		return nil, &core.DecodeError{Field: "reducer.op", Err: err}
	}
	if len(env.Params) > 0 {
		if err := decodeStrict(env.Params, r); err != nil {
			return nil, &core.DecodeError{Field: env.Op + ".params", Err: err}
		}
	}
	return r, nil
}

func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Spec wraps a Reducer so it can be embedded in JSON documents.
type Spec struct {
	Reducer
}

// MarshalJSON implements json.Marshaler.
func (s Spec) MarshalJSON() ([]byte, error) {
	return Marshal(s.Reducer)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *Spec) UnmarshalJSON(data []byte) error {
	r, err := Unmarshal(data)
	if err != nil {
		return err
	}
	s.Reducer = r
	return nil
}

// --- Validation helpers ---

// requireColumns reports the first absent column.
func requireColumns(t *table.Table, names ...string) error {
	for _, n := range names {
		if !t.Has(n) {
			return &core.ColumnNotFoundError{Column: n}
		}
	}
	return nil
}

// requireInto rejects an empty destination column name.
func requireInto(into string) error {
	if into == "" {
		return &core.InvalidParameterError{Param: "intoColumn", Reason: "must not be empty"}
	}
	return nil
}

// family returns the serialization prefix of a value domain.
func family[T table.Value]() string {
	switch table.TypeFor[T]() {
	case core.TypeInt:
		return "integer"
	case core.TypeDouble:
		return "double"
	case core.TypeDate:
		return "date"
	case core.TypeBool:
		return "boolean"
	default:
		return "string"
	}
}
