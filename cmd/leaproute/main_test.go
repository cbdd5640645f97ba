// Package main provides tests for the leaproute CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leaproute/internal/cli"
	"github.com/leapstack-labs/leaproute/internal/cli/config"
)

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Errorf("version command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "leaproute") {
		t.Errorf("version output should contain 'leaproute', got: %s", output)
	}
}

func TestHelpListsCommands(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help error = %v", err)
	}

	output := buf.String()
	for _, name := range []string{"route", "node", "plotter", "run", "tree", "show", "apply", "serve", "export"} {
		if !strings.Contains(output, name) {
			t.Errorf("help should list %q, got: %s", name, output)
		}
	}
}

func TestCompletionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"completion", "bash"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("completion error = %v", err)
	}
	if !strings.Contains(buf.String(), "leaproute") {
		t.Error("bash completion should mention the command name")
	}
}

func TestEndToEnd(t *testing.T) {
	config.ResetConfig()
	dir := t.TempDir()
	source := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(source, []byte("city,value\nOslo,10\nBergen,5\nOslo,7\n"), 0600); err != nil {
		t.Fatal(err)
	}
	state := filepath.Join(dir, "state.db")

	run := func(args ...string) (string, error) {
		t.Helper()
		cmd := cli.NewRootCmd()
		out, errOut := new(bytes.Buffer), new(bytes.Buffer)
		cmd.SetOut(out)
		cmd.SetErr(errOut)
		cmd.SetArgs(append([]string{"--project-dir", dir, "--state", state, "-o", "markdown"}, args...))
		err := cmd.Execute()
		return out.String() + errOut.String(), err
	}

	if out, err := run("route", "add", "sales", source); err != nil {
		t.Fatalf("route add: %v\n%s", err, out)
	}
	if out, err := run("node", "add", "sales", "--title", "plus three", "--op", "integer.add",
		"-p", "column=value", "-p", "rhs=3", "-p", "intoColumn=value2"); err != nil {
		t.Fatalf("node add: %v\n%s", err, out)
	}
	if out, err := run("node", "add", "sales", "--title", "broken", "--op", "integer.add",
		"-p", "column=nope", "-p", "rhs=1", "-p", "intoColumn=x"); err != nil {
		t.Fatalf("node add broken: %v\n%s", err, out)
	}

	out, err := run("tree")
	if err != nil {
		t.Fatalf("tree: %v\n%s", err, out)
	}
	for _, want := range []string{"sales", "plus three", "**success**", "**failure**", `column "nope" not found`} {
		if !strings.Contains(out, want) {
			t.Errorf("tree output should contain %q, got:\n%s", want, out)
		}
	}

	out, err = run("show", "sales")
	if err != nil {
		t.Fatalf("show: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Bergen") || !strings.Contains(out, "city (String)") {
		t.Errorf("show should print the source table, got:\n%s", out)
	}

	out, err = run("run", "--fail-on-error")
	if err == nil || !strings.Contains(err.Error(), "failed") {
		t.Errorf("run --fail-on-error should fail, got %v\n%s", err, out)
	}

	dump := filepath.Join(dir, "routes.yaml")
	if out, err := run("dump", dump); err != nil {
		t.Fatalf("dump: %v\n%s", err, out)
	}
	data, err := os.ReadFile(dump)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "source: sales.csv") || !strings.Contains(string(data), "integer.add") {
		t.Errorf("dump should hold the relative source and reducers, got:\n%s", data)
	}

	if out, err := run("route", "delete", "sales"); err != nil {
		t.Fatalf("route delete: %v\n%s", err, out)
	}
	if out, err := run("apply"); err != nil {
		t.Fatalf("apply: %v\n%s", err, out)
	}
	out, err = run("run")
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	if !strings.Contains(out, "plus three") {
		t.Errorf("applied routes should be evaluated, got:\n%s", out)
	}
}
