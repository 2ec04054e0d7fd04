// Command esql runs a single ESQL query against the on-disk table
// store and prints the result as a tab-separated table, one line per
// result row, "-" for absent cells.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/omniql-engine/esql/internal/config"
	"github.com/omniql-engine/esql/internal/engine"
	"github.com/omniql-engine/esql/internal/result"
	"github.com/omniql-engine/esql/internal/table"
	"github.com/omniql-engine/esql/internal/telemetry"
	"github.com/omniql-engine/esql/internal/validator"
)

func main() {
	tablesDir := flag.String("tables", "", "root directory of .tables/<name>/ data (overrides ESQL_TABLES_DIR)")
	queryFlag := flag.String("query", "", "query text; reads stdin if omitted")
	flag.Parse()

	cfg := config.Load()
	if *tablesDir != "" {
		cfg.TablesDir = *tablesDir
	}

	query, err := readQuery(*queryFlag)
	if err != nil {
		telemetry.L().Errorw("reading query", "err", err)
		os.Exit(1)
	}

	loader := table.New(cfg.TablesDir)
	out, err := run(query, loader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	printTable(os.Stdout, out)
}

func run(query string, loader *table.Loader) (*result.Table, error) {
	plan, _, err := validator.Compile(query, loader.LoadSchema)
	if err != nil {
		return nil, err
	}

	tableSchema, rows, err := loader.Load(plan.Table)
	if err != nil {
		return nil, err
	}

	return engine.Execute(plan, tableSchema, rows)
}

func readQuery(flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue, nil
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func printTable(w io.Writer, t *result.Table) {
	fmt.Fprintln(w, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		cells := make([]string, len(row.Values))
		for i, c := range row.Values {
			if c.Absent {
				cells[i] = "-"
			} else {
				cells[i] = c.String()
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
}
