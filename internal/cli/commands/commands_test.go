package commands

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	intconfig "github.com/leapstack-labs/leaproute/internal/config"
	"github.com/leapstack-labs/leaproute/internal/reducer"
	"github.com/leapstack-labs/leaproute/pkg/core"
)

func TestCommandConstructors(t *testing.T) {
	tests := []struct {
		name string
		cmd  *cobra.Command
		use  string
		subs []string
	}{
		{name: "route", cmd: NewRouteCommand(), use: "route", subs: []string{"add", "list", "rename", "source", "star", "refresh", "delete"}},
		{name: "node", cmd: NewNodeCommand(), use: "node", subs: []string{"add", "set-reducer", "rename", "star", "delete"}},
		{name: "plotter", cmd: NewPlotterCommand(), use: "plotter", subs: []string{"add", "columns", "delete"}},
		{name: "run", cmd: NewRunCommand(), use: "run"},
		{name: "tree", cmd: NewTreeCommand(), use: "tree"},
		{name: "show", cmd: NewShowCommand(), use: "show"},
		{name: "describe", cmd: NewDescribeCommand(), use: "describe"},
		{name: "history", cmd: NewHistoryCommand(), use: "history"},
		{name: "reducers", cmd: NewReducersCommand(), use: "reducers"},
		{name: "apply", cmd: NewApplyCommand(), use: "apply"},
		{name: "dump", cmd: NewDumpCommand(), use: "dump"},
		{name: "watch", cmd: NewWatchCommand(), use: "watch"},
		{name: "serve", cmd: NewServeCommand(), use: "serve"},
		{name: "export", cmd: NewExportCommand(), use: "export"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Name())
			assert.NotEmpty(t, tt.cmd.Short)
			assert.NotEmpty(t, tt.cmd.Long)
			for _, sub := range tt.subs {
				found, _, err := tt.cmd.Find([]string{sub})
				require.NoError(t, err, sub)
				assert.Equal(t, sub, found.Name())
			}
		})
	}
}

func TestCommandFlags(t *testing.T) {
	show := NewShowCommand()
	limit := show.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "n", limit.Shorthand)
	assert.Equal(t, "-1", limit.DefValue)

	serve := NewServeCommand()
	require.NotNil(t, serve.Flags().Lookup("port"))
	assert.Equal(t, "true", serve.Flags().Lookup("watch").DefValue)

	run := NewRunCommand()
	require.NotNil(t, run.Flags().Lookup("fail-on-error"))
	require.NotNil(t, run.Flags().Lookup("route"))

	add, _, err := NewNodeCommand().Find([]string{"add"})
	require.NoError(t, err)
	for _, name := range []string{"title", "op", "param", "reducer"} {
		assert.NotNil(t, add.Flags().Lookup(name), name)
	}
}

func TestReducerOptions(t *testing.T) {
	t.Run("op with params", func(t *testing.T) {
		opts := &ReducerOptions{Op: "integer.add", Params: []string{"column=value", "rhs=3", "intoColumn=value2"}}
		r, err := opts.Reducer()
		require.NoError(t, err)

		env, err := reducer.Marshal(r)
		require.NoError(t, err)
		assert.JSONEq(t, `{"op":"integer.add","params":{"column":"value","rhs":3,"intoColumn":"value2"}}`, string(env))
	})

	t.Run("envelope", func(t *testing.T) {
		opts := &ReducerOptions{Envelope: `{"op":"select.exclude","params":{"columns":["value"]}}`}
		r, err := opts.Reducer()
		require.NoError(t, err)
		assert.Equal(t, "select.exclude", r.Op())
	})

	t.Run("json array param", func(t *testing.T) {
		opts := &ReducerOptions{Op: "select.include", Params: []string{`columns=["a","b"]`}}
		r, err := opts.Reducer()
		require.NoError(t, err)
		assert.Equal(t, "select.include", r.Op())
	})

	t.Run("missing reducer", func(t *testing.T) {
		_, err := (&ReducerOptions{}).Reducer()
		assert.ErrorContains(t, err, "a reducer is required")
	})

	t.Run("bad param", func(t *testing.T) {
		_, err := (&ReducerOptions{Op: "integer.add", Params: []string{"rhs"}}).Reducer()
		assert.ErrorContains(t, err, "want key=value")
	})

	t.Run("params with envelope", func(t *testing.T) {
		_, err := (&ReducerOptions{Envelope: `{"op":"integer.add"}`, Params: []string{"rhs=1"}}).Reducer()
		assert.ErrorContains(t, err, "cannot be combined")
	})

	t.Run("unknown op", func(t *testing.T) {
		_, err := (&ReducerOptions{Op: "integer.pow"}).Reducer()
		var decodeErr *core.DecodeError
		assert.ErrorAs(t, err, &decodeErr)
	})
}

func TestParamValue(t *testing.T) {
	assert.Equal(t, json.Number("3"), paramValue("3"))
	assert.Equal(t, true, paramValue("true"))
	assert.Equal(t, "value", paramValue("value"))
	assert.Equal(t, "two words", paramValue("two words"))
	assert.Equal(t, "quoted", paramValue(`"quoted"`))
	assert.Equal(t, []any{"a", "b"}, paramValue(`["a","b"]`))
	assert.Equal(t, "1 2", paramValue("1 2"))
}

func TestTableNameFor(t *testing.T) {
	assert.Equal(t, "city_totals", tableNameFor("City totals"))
	assert.Equal(t, "plus_three", tableNameFor("  plus three! "))
	assert.Equal(t, "t_2025_sales", tableNameFor("2025 sales"))
	assert.Equal(t, "export", tableNameFor("★"))
}

func TestSourcePaths(t *testing.T) {
	rf := &intconfig.RoutesFile{Routes: []intconfig.RouteDef{
		{Name: "a", Source: "data/a.csv"},
		{Name: "b", Source: "/elsewhere/b.csv"},
		{Name: "c"},
	}}

	resolveSources(rf, "/project")
	assert.Equal(t, "/project/data/a.csv", rf.Routes[0].Source)
	assert.Equal(t, "/elsewhere/b.csv", rf.Routes[1].Source)
	assert.Empty(t, rf.Routes[2].Source)

	relativizeSources(rf, "/project")
	assert.Equal(t, "data/a.csv", rf.Routes[0].Source)
	assert.Equal(t, "/elsewhere/b.csv", rf.Routes[1].Source, "sources outside the directory stay absolute")
}

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut []string
	}{
		{name: "default version", version: "0.1.0", wantOut: []string{"leaproute v0.1.0", "Go"}},
		{name: "custom version", version: "1.2.3", wantOut: []string{"leaproute v1.2.3"}},
		{name: "dev version", version: "dev", wantOut: []string{"leaproute vdev"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.version)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)

			require.NoError(t, cmd.Execute())
			for _, want := range tt.wantOut {
				assert.True(t, strings.Contains(buf.String(), want), "output should contain %q, got: %s", want, buf.String())
			}
		})
	}
}
