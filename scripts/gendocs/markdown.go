package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// markdownWriter accumulates a markdown page.
type markdownWriter struct {
	b strings.Builder
}

func (w *markdownWriter) frontmatter(title, description string) {
	fmt.Fprintf(&w.b, "---\ntitle: %s\ndescription: %q\n---\n\n", title, description)
	w.b.WriteString("<!-- Code generated by scripts/gendocs. DO NOT EDIT. -->\n\n")
}

func (w *markdownWriter) header(level int, text string) {
	fmt.Fprintf(&w.b, "%s %s\n\n", strings.Repeat("#", level), text)
}

func (w *markdownWriter) paragraph(text string) {
	w.b.WriteString(strings.TrimSpace(text) + "\n\n")
}

func (w *markdownWriter) codeBlock(lang, code string) {
	fmt.Fprintf(&w.b, "```%s\n%s\n```\n\n", lang, strings.TrimSpace(code))
}

func (w *markdownWriter) table(headers []string, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	w.b.WriteString("| " + strings.Join(headers, " | ") + " |\n")
	w.b.WriteString("|" + strings.Repeat(" --- |", len(headers)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = strings.ReplaceAll(c, "|", `\|`)
		}
		w.b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	w.b.WriteString("\n")
}

func (w *markdownWriter) bytes() []byte {
	return []byte(w.b.String())
}

func inlineCode(s string) string {
	return "`" + s + "`"
}

func writeFlagsTable(w *markdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := "--" + f.Name
		if f.Shorthand != "" {
			name = "-" + f.Shorthand + ", " + name
		}
		def := f.DefValue
		if def == "" || def == "[]" {
			def = "-"
		}
		rows = append(rows, []string{inlineCode(name), f.Value.Type(), def, f.Usage})
	})
	w.table([]string{"Flag", "Type", "Default", "Description"}, rows)
}
