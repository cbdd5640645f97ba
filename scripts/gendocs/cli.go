package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaproute/internal/cli"
)

// generateCLIDocs writes an index page plus one page per top-level command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	if err := generateCLIIndex(root, outDir); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	for _, cmd := range visibleCommands(root) {
		if err := generateCommandPage(cmd, outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
		log.Printf("  Generated %s.md", cmd.Name())
	}
	return nil
}

func visibleCommands(cmd *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, c := range cmd.Commands() {
		if c.Hidden || c.Name() == "help" || c.Name() == "__complete" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func generateCLIIndex(root *cobra.Command, outDir string) error {
	var w markdownWriter
	w.frontmatter("CLI Reference", "Command-line interface reference for leaproute")
	w.header(1, "CLI Reference")
	w.paragraph(root.Long)
	w.codeBlock("bash", "leaproute <command> [options]")

	w.header(2, "Commands")
	var rows [][]string
	for _, cmd := range visibleCommands(root) {
		rows = append(rows, []string{fmt.Sprintf("[%s](%s.md)", inlineCode(cmd.Name()), cmd.Name()), cmd.Short})
	}
	w.table([]string{"Command", "Description"}, rows)

	w.header(2, "Global Options")
	writeFlagsTable(&w, root.PersistentFlags())

	w.header(2, "Environment Variables")
	w.paragraph("Every configuration key can be set with the `LEAPROUTE_` prefix. Nested keys use a double underscore, for example `LEAPROUTE_SERVER__PORT`. Flags take precedence over the environment, which takes precedence over the config file.")

	return os.WriteFile(filepath.Join(outDir, "index.md"), w.bytes(), 0600)
}

func generateCommandPage(cmd *cobra.Command, outDir string) error {
	var w markdownWriter
	w.frontmatter(cmd.Name(), cmd.Short)
	w.header(1, cmd.Name())
	if cmd.Long != "" {
		w.paragraph(cmd.Long)
	} else {
		w.paragraph(cmd.Short)
	}

	w.header(2, "Usage")
	useLine := cmd.UseLine()
	if cmd.HasSubCommands() {
		useLine = fmt.Sprintf("leaproute %s <subcommand> [options]", cmd.Name())
	}
	w.codeBlock("bash", useLine)

	if len(cmd.Aliases) > 0 {
		w.header(2, "Aliases")
		for _, a := range cmd.Aliases {
			w.b.WriteString("- " + inlineCode(a) + "\n")
		}
		w.b.WriteString("\n")
	}

	if cmd.HasSubCommands() {
		w.header(2, "Subcommands")
		var rows [][]string
		for _, sub := range visibleCommands(cmd) {
			rows = append(rows, []string{inlineCode(sub.Name()), sub.Short})
		}
		w.table([]string{"Subcommand", "Description"}, rows)
		for _, sub := range visibleCommands(cmd) {
			if !sub.HasLocalFlags() {
				continue
			}
			w.header(3, cmd.Name()+" "+sub.Name())
			writeFlagsTable(&w, sub.LocalFlags())
		}
	}

	if cmd.HasLocalFlags() {
		w.header(2, "Options")
		writeFlagsTable(&w, cmd.LocalFlags())
	}
	if cmd.Example != "" {
		w.header(2, "Examples")
		w.codeBlock("bash", cmd.Example)
	}

	return os.WriteFile(filepath.Join(outDir, cmd.Name()+".md"), w.bytes(), 0600)
}
