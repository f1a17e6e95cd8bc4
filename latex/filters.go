package latex

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// RowTerminator ends every table row.
	RowTerminator = ` \\`
	// HorizontalRule is inserted at the requested horizontal line positions.
	HorizontalRule = `\hline`
	// VerticalRule is inserted at the requested vertical line positions.
	VerticalRule = "|"
	// CellSeparator joins the cells of a row.
	CellSeparator = " & "
)

// ColumnAlign overrides the alignment of one column. Negative indexes count
// from the last column. Align is usually a single letter (l, c, r) but may
// be any column specifier such as p{3cm}.
type ColumnAlign struct {
	Index int
	Align string
}

// InsertSeparators inserts sep into items at each of the positions, in order.
// Every insertion shifts the next position by one, so positions refer to
// the items as given. -1 appends at the end. Positions follow list insert
// semantics: other negative values count from the end and out-of-range
// values are clamped.
func InsertSeparators(items []string, positions []int, sep string) []string {
	out := append(make([]string, 0, len(items)+len(positions)), items...)
	for shift, p := range positions {
		i := p + shift
		if p == -1 {
			i = len(out)
		} else if i < 0 {
			i += len(out)
			if i < 0 {
				i = 0
			}
		}
		if i > len(out) {
			i = len(out)
		}
		out = append(out, "")
		copy(out[i+1:], out[i:])
		out[i] = sep
	}
	return out
}

// ColumnLayout builds the tabular column specification for rows of width
// cells: def for every column, layout overrides applied by index, then a
// vertical rule inserted at each of vlines.
func ColumnLayout(width int, vlines []int, layout []ColumnAlign, def string) (string, error) {
	if width < 0 {
		return "", fmt.Errorf("invalid column count %d", width)
	}
	columns := make([]string, width)
	for i := range columns {
		columns[i] = def
	}
	for _, l := range layout {
		i := l.Index
		if i < 0 {
			i += width
		}
		if i < 0 || i >= width {
			return "", fmt.Errorf("column layout index %d out of range (%d columns)", l.Index, width)
		}
		columns[i] = l.Align
	}
	return strings.Join(InsertSeparators(columns, vlines, VerticalRule), ""), nil
}

// RowFormat renders rows as tabular body lines. Cells that parse as a
// floating point number are formatted with numberFormat, other cells are
// kept as they are. Horizontal rules go at hlines, using the same shifting
// insertion as ColumnLayout.
func RowFormat(rows [][]string, hlines []int, numberFormat string) (string, error) {
	nf, err := ParseNumberFormat(numberFormat)
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = formatCell(nf, cell)
		}
		lines = append(lines, strings.Join(cells, CellSeparator)+RowTerminator)
	}
	lines = InsertSeparators(lines, hlines, HorizontalRule)
	return strings.Join(lines, "\n"), nil
}

func formatCell(nf *NumberFormat, cell string) string {
	s, ok := stripDigitGroups(strings.TrimSpace(cell))
	if !ok {
		return cell
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return cell
	}
	return nf.Format(v)
}

// stripDigitGroups removes underscores used as digit separators ("1_000").
// An underscore must sit between two digits.
func stripDigitGroups(s string) (string, bool) {
	if !strings.Contains(s, "_") {
		return s, true
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			if i == 0 || i == len(s)-1 || !isDigit(s[i-1]) || !isDigit(s[i+1]) {
				return s, false
			}
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String(), true
}

// ParseSpec parses the table options as written in configuration files:
// vlines and hlines are comma separated integers ("0,1,-1"), layout is a
// comma separated list of index:align pairs ("0:l, 2:r"). Empty strings
// yield empty lists.
func ParseSpec(vlines, hlines, layout string) ([]int, []int, []ColumnAlign, error) {
	v, err := parseInts(vlines)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("vertical lines: %w", err)
	}
	h, err := parseInts(hlines)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("horizontal lines: %w", err)
	}
	l, err := parseLayout(layout)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("column layout: %w", err)
	}
	return v, h, l, nil
}

func parseInts(s string) ([]int, error) {
	out := []int{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func parseLayout(s string) ([]ColumnAlign, error) {
	out := []ColumnAlign{}
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, f := range strings.Split(s, ",") {
		kv := strings.SplitN(strings.TrimSpace(f), ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("expected index:align, got %q", f)
		}
		i, err := strconv.Atoi(strings.TrimSpace(kv[0]))
		if err != nil {
			return nil, err
		}
		align := strings.TrimSpace(kv[1])
		if align == "" {
			return nil, fmt.Errorf("empty alignment for column %d", i)
		}
		out = append(out, ColumnAlign{Index: i, Align: align})
	}
	return out, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
