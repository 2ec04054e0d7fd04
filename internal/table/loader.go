// Package table implements the table loader (C2): it reads the
// on-disk .tables/<name>/ directory (spec §6) and returns a typed
// schema and row sequence to the engine. It is the only filesystem
// touch point in the module (spec §5: "C2 is the only filesystem
// touch point").
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/omniql-engine/esql/internal/errtaxonomy"
	"github.com/omniql-engine/esql/internal/schema"
	"github.com/omniql-engine/esql/internal/telemetry"
)

// Loader reads tables rooted at a fixed directory, matching the
// on-disk layout of spec §6 (`.tables/<table>/{columns,table}`).
type Loader struct {
	Root string
}

// New builds a Loader rooted at dir.
func New(dir string) *Loader {
	return &Loader{Root: dir}
}

// LoadSchema reads just the column definitions for a table, the hook
// validator.Compile calls while validating FROM (spec §4.5: "Missing
// files produce a structured 'table not found' error consumed by the
// parser when the FROM clause is validated").
func (l *Loader) LoadSchema(name string) (*schema.Schema, error) {
	dir := filepath.Join(l.Root, name)
	if _, err := os.Stat(dir); err != nil {
		return nil, notFoundError(l.Root, name)
	}
	return readColumns(filepath.Join(dir, "columns"))
}

// Load reads both the schema and the full row set for a table,
// opening and fully draining both files before returning so no file
// descriptor outlives the call (spec §5: "scoped acquisition").
func (l *Loader) Load(name string) (*schema.Schema, []schema.Row, error) {
	dir := filepath.Join(l.Root, name)
	if _, err := os.Stat(dir); err != nil {
		return nil, nil, notFoundError(l.Root, name)
	}

	telemetry.L().Debugw("loading table", "table", name, "dir", dir)
	sch, err := readColumns(filepath.Join(dir, "columns"))
	if err != nil {
		return nil, nil, err
	}
	rows, err := readRows(filepath.Join(dir, "table"), sch)
	if err != nil {
		return nil, nil, err
	}
	telemetry.L().Debugw("loaded table", "table", name, "rows", len(rows))
	return sch, rows, nil
}

func notFoundError(root, name string) error {
	suggestion := suggestTableName(root, name)
	msg := fmt.Sprintf("table %q not found under %q", name, root)
	if suggestion != "" {
		msg += fmt.Sprintf("; did you mean %q?", suggestion)
	}
	return errtaxonomy.NewSchemaError("FROM", name, msg)
}

// suggestTableName checks the singular/plural form of name against
// what's actually on disk, for a friendlier "did you mean" hint on a
// table-not-found error.
func suggestTableName(root, name string) string {
	for _, candidate := range []string{inflection.Plural(name), inflection.Singular(name)} {
		if candidate == name {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, candidate)); err == nil {
			return candidate
		}
	}
	return ""
}

func readColumns(path string) (*schema.Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errtaxonomy.NewSchemaError("FROM", path, fmt.Sprintf("cannot open columns file: %v", err))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, errtaxonomy.NewSchemaError("FROM", path, fmt.Sprintf("malformed columns file: %v", err))
	}

	cols := make([]schema.Column, 0, len(records))
	for _, rec := range records {
		name := strings.TrimSpace(rec[0])
		lt, err := schema.ParseLogicalType(rec[1])
		if err != nil {
			return nil, errtaxonomy.NewSchemaError("FROM", name, err.Error())
		}
		cols = append(cols, schema.Column{Name: name, Type: lt})
	}
	return schema.New(cols)
}

func readRows(path string, sch *schema.Schema) ([]schema.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errtaxonomy.NewRuntimeError("FROM", -1, fmt.Sprintf("cannot open table file: %v", err))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = sch.Len()

	var rows []schema.Row
	rowIdx := 0
	for {
		record, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, errtaxonomy.NewRuntimeError("FROM", rowIdx, fmt.Sprintf("malformed row: %v", err))
		}
		values := make([]schema.Value, sch.Len())
		for i, col := range sch.Columns() {
			v, err := convert(col, record[i])
			if err != nil {
				return nil, errtaxonomy.NewRuntimeError(col.Name, rowIdx, err.Error())
			}
			values[i] = v
		}
		rows = append(rows, schema.Row{Schema: sch, Values: values})
		rowIdx++
	}
	return rows, nil
}

func convert(col schema.Column, raw string) (schema.Value, error) {
	switch col.Type {
	case schema.Number:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return schema.Value{}, fmt.Errorf("column %q: %q is not a number", col.Name, raw)
		}
		return schema.NumberValue(f), nil
	case schema.Date:
		d, err := schema.ParseDate(strings.TrimSpace(raw))
		if err != nil {
			return schema.Value{}, fmt.Errorf("column %q: %v", col.Name, err)
		}
		return schema.DateValue(d), nil
	case schema.Boolean:
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true":
			return schema.BoolValue(true), nil
		case "false":
			return schema.BoolValue(false), nil
		default:
			return schema.Value{}, fmt.Errorf("column %q: %q is not true/false", col.Name, raw)
		}
	default:
		return schema.StringValue(raw), nil
	}
}
