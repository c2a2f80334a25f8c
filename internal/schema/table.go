package schema

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"swiftapi/internal/domain"
)

// hidden fields are never rendered.
var hidden = map[string]bool{"username": true, "shared_secret": true}

// Table renders the present fields of o as a two-column table.
func Table(w io.Writer, o Object) {
	s := o.Schema()
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(s.name)
	tw.AppendHeader(table.Row{"Field", "Value"})
	for _, f := range displayFields(s) {
		if v := f.get(o); v != nil {
			tw.AppendRow(table.Row{f.Name, display(v)})
		}
	}
	tw.Render()
}

// ListTable renders objects of one type as rows, with a column for every
// field present in at least one of them.
func ListTable[E Object](w io.Writer, items []E) {
	if len(items) == 0 {
		return
	}
	fields := displayFields(items[0].Schema())
	var cols []Field
	for _, f := range fields {
		for _, it := range items {
			if f.get(it) != nil {
				cols = append(cols, f)
				break
			}
		}
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	header := table.Row{}
	for _, f := range cols {
		header = append(header, f.Name)
	}
	tw.AppendHeader(header)
	for _, it := range items {
		row := table.Row{}
		for _, f := range cols {
			v := f.get(it)
			if v == nil {
				row = append(row, "")
				continue
			}
			row = append(row, display(v))
		}
		tw.AppendRow(row)
	}
	tw.Render()
}

func displayFields(s *Schema) []Field {
	var out []Field
	seen := map[string]bool{}
	for _, group := range [][]Field{s.submitted, s.returned} {
		for _, f := range group {
			if seen[f.Name] || hidden[f.Name] {
				continue
			}
			seen[f.Name] = true
			out = append(out, f)
		}
	}
	return out
}

func display(v any) string {
	switch x := v.(type) {
	case Object:
		return Describe(x)
	case time.Time:
		return FormatTime(x)
	case time.Duration:
		return FormatClock(x)
	case domain.TimeValue:
		return x.String()
	case []any:
		if len(x) > 0 {
			if _, nested := x[0].(Object); nested {
				return fmt.Sprintf("%d entries", len(x))
			}
		}
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = display(e)
		}
		return strings.Join(parts, ", ")
	}
	return fmt.Sprint(v)
}
