package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leaproute/internal/reducer"
)

// generateReducerDocs writes reducers.md listing every registered op by family.
func generateReducerDocs(outDir string) error {
	log.Printf("Generating reducer docs to %s", outDir)
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var w markdownWriter
	w.frontmatter("Reducers", "Reducer ops accepted by node add --op and routes.yaml")
	w.header(1, "Reducers")
	w.paragraph("A node applies exactly one reducer to its parent's table. Ops are grouped by family, the part before the dot.")

	families := map[string][]string{}
	var order []string
	for _, op := range reducer.Ops() {
		family, _, _ := strings.Cut(op, ".")
		if _, ok := families[family]; !ok {
			order = append(order, family)
		}
		families[family] = append(families[family], op)
	}
	for _, family := range order {
		w.header(2, family)
		var rows [][]string
		for _, op := range families[family] {
			_, name, _ := strings.Cut(op, ".")
			rows = append(rows, []string{inlineCode(op), name})
		}
		w.table([]string{"Op", "Name"}, rows)
	}

	w.header(2, "Example")
	w.codeBlock("yaml", `nodes:
  - title: plus three
    reducer:
      op: integer.add
      params:
        column: value
        rhs: 3
        intoColumn: value2`)

	path := filepath.Join(outDir, "reducers.md")
	log.Printf("  Generated %s", filepath.Base(path))
	return os.WriteFile(path, w.bytes(), 0600)
}
