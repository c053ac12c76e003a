package engine

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/wbrown/strata-datalog/datalog"
	"github.com/wbrown/strata-datalog/datalog/program"
)

// TableFormatter renders result relations as markdown tables.
type TableFormatter struct {
	// MaxWidth is the maximum width for a column
	MaxWidth int
	// TruncateString is the string to append when truncating
	TruncateString string
}

// NewTableFormatter creates a new table formatter with default settings
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{
		MaxWidth:       50,
		TruncateString: "...",
	}
}

// FormatRelation formats one output relation as a markdown table with
// the declared parameter names as headers.
func (tf *TableFormatter) FormatRelation(schema program.Schema, tuples []Tuple) string {
	columns := make([]string, len(schema.Params))
	for i, p := range schema.Params {
		columns[i] = p.Name
	}
	return tf.formatTable(columns, tuples)
}

// formatTable formats columns and tuples as a markdown table
func (tf *TableFormatter) formatTable(columns []string, tuples []Tuple) string {
	if len(tuples) == 0 {
		return fmt.Sprintf("_Columns: %v_\n\n_No rows_", columns)
	}

	tableString := &strings.Builder{}

	// Create alignment array with all columns using AlignNone for simple separators
	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(tableString,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)

	table.Header(columns)

	for _, tuple := range tuples {
		row := make([]string, len(tuple))
		for j, val := range tuple {
			row[j] = tf.formatValue(val)
		}
		table.Append(row)
	}

	table.Render()

	tableString.WriteString(fmt.Sprintf("\n_%d rows_\n", len(tuples)))

	return tableString.String()
}

// formatValue converts a value to a string representation, truncating
// long strings to MaxWidth.
func (tf *TableFormatter) formatValue(val datalog.Value) string {
	if val == nil {
		return "nil"
	}

	var s string
	switch v := val.(type) {
	case string:
		s = v
	case int:
		s = fmt.Sprintf("%d", v)
	case int64:
		s = fmt.Sprintf("%d", v)
	default:
		s = fmt.Sprintf("%v", v)
	}

	if tf.MaxWidth > 0 && len(s) > tf.MaxWidth {
		cut := tf.MaxWidth - len(tf.TruncateString)
		if cut < 0 {
			cut = 0
		}
		s = s[:cut] + tf.TruncateString
	}
	return s
}

// PrintResult prints every output relation of a result to stdout in
// name order.
func PrintResult(p *program.Program, result Result) {
	formatter := NewTableFormatter()
	for _, name := range p.Outputs {
		tuples, ok := result[name]
		if !ok {
			continue
		}
		schema, _ := p.SchemaFor(name)
		fmt.Printf("%s:\n%s\n", name, formatter.FormatRelation(schema, tuples))
	}
}
