package render

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adnsv/dyntex/latex"
	"github.com/adnsv/dyntex/model"
	"github.com/flosch/pongo2/v6"
	"github.com/ncruces/go-strftime"
)

// TableOptions controls table and tabular. The names of the option keys
// accepted from templates are given in the comments.
type TableOptions struct {
	Delimiter     string // delimiter
	NumberFormat  string // numberformat
	Position      string // position
	VLines        string // add_vline
	HLines        string // add_hline
	Layout        string // col_layout
	LayoutDefault string // col_layout_default
	Label         string // label
	Caption       string // caption
	More          string // more
}

// DefaultTableOptions returns the options of a table with no configuration section.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		Delimiter:     ",",
		NumberFormat:  "{0:.2f}",
		Position:      "htb!",
		LayoutDefault: "c",
		More:          "\\scriptsize \n  \\centering",
	}
}

func (o *TableOptions) apply(kv map[string]string) {
	for k, v := range kv {
		switch k {
		case "delimiter":
			o.Delimiter = v
		case "numberformat":
			o.NumberFormat = v
		case "position":
			o.Position = v
		case "add_vline":
			o.VLines = v
		case "add_hline":
			o.HLines = v
		case "col_layout":
			o.Layout = v
		case "col_layout_default":
			o.LayoutDefault = v
		case "label":
			o.Label = v
		case "caption":
			o.Caption = v
		case "more":
			o.More = v
		}
	}
}

// FigureOptions controls figure.
type FigureOptions struct {
	Position   string   // position
	More       string   // more
	Width      string   // width, a fraction of \textwidth
	Caption    string   // caption
	Label      string   // label
	Extensions []string // extension
	Columns    int      // columns, figures per grid figure
}

// DefaultFigureOptions returns the figure options before any configuration
// section is applied. The extensions are the engine's image extensions.
func (e *Engine) DefaultFigureOptions() FigureOptions {
	return FigureOptions{
		Position:   "htb!",
		More:       "\\centering",
		Width:      "1",
		Extensions: e.imageExts,
		Columns:    2,
	}
}

func (o *FigureOptions) apply(kv map[string]string) error {
	for k, v := range kv {
		switch k {
		case "position":
			o.Position = v
		case "more":
			o.More = v
		case "width":
			o.Width = v
		case "caption":
			o.Caption = v
		case "label":
			o.Label = v
		case "extension":
			o.Extensions = model.SplitExtensions(v)
		case "columns":
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 1 {
				return fmt.Errorf("columns: expected a positive number, got %q", v)
			}
			o.Columns = n
		}
	}
	return nil
}

// Figure is one image of a figure grid.
type Figure struct {
	Path string
	Name string
}

// FigureGroup is one figure environment of a grid.
type FigureGroup struct {
	Figures []Figure
	Last    bool
}

// GroupFigures partitions figs into groups of size; the last group may be
// shorter.
func GroupFigures(figs []Figure, size int) []FigureGroup {
	if size < 1 {
		size = 1
	}
	groups := []FigureGroup{}
	for i := 0; i < len(figs); i += size {
		end := i + size
		if end > len(figs) {
			end = len(figs)
		}
		groups = append(groups, FigureGroup{Figures: figs[i:end]})
	}
	if n := len(groups); n > 0 {
		groups[n-1].Last = true
	}
	return groups
}

func tableParts(csvPath string, o TableOptions) (column, data string, err error) {
	rows, err := latex.ReadCSV(csvPath, o.Delimiter)
	if err != nil {
		return "", "", err
	}
	vlines, hlines, layout, err := latex.ParseSpec(o.VLines, o.HLines, o.Layout)
	if err != nil {
		return "", "", fmt.Errorf("table %s: %w", csvPath, err)
	}
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	column, err = latex.ColumnLayout(width, vlines, layout, o.LayoutDefault)
	if err != nil {
		return "", "", fmt.Errorf("table %s: %w", csvPath, err)
	}
	data, err = latex.RowFormat(rows, hlines, o.NumberFormat)
	if err != nil {
		return "", "", fmt.Errorf("table %s: %w", csvPath, err)
	}
	return column, data, nil
}

// Table renders the CSV file at csvPath as a complete table environment.
func (e *Engine) Table(csvPath string, o TableOptions) (string, error) {
	column, data, err := tableParts(csvPath, o)
	if err != nil {
		return "", err
	}
	return e.fragment(e.table, TableTemplate, pongo2.Context{
		"position": o.Position,
		"more":     o.More,
		"column":   column,
		"data":     data,
		"caption":  o.Caption,
		"label":    o.Label,
	})
}

// Tabular renders only the rows of the CSV file at csvPath, for use inside
// a hand-written tabular environment.
func (e *Engine) Tabular(csvPath string, o TableOptions) (string, error) {
	_, data, err := tableParts(csvPath, o)
	return data, err
}

// Figure renders figure markup for fn. A file yields a single figure; a
// directory yields a grid over the images it contains. Relative names are
// looked up in dir but emitted as given, so the document resolves them the
// same way.
func (e *Engine) Figure(dir, fn string, o FigureOptions) (string, error) {
	full := fn
	if !filepath.IsAbs(fn) {
		full = filepath.Join(dir, fn)
	}
	stat, err := os.Stat(full)
	if err != nil {
		return "", fmt.Errorf("figure: %w", err)
	}
	if !stat.IsDir() {
		return e.fragment(e.figure, FigureTemplate, pongo2.Context{
			"position": o.Position,
			"more":     o.More,
			"width":    o.Width,
			"fig":      filepath.ToSlash(fn),
			"caption":  o.Caption,
			"label":    o.Label,
		})
	}

	figs, err := listFigures(full, filepath.ToSlash(fn), o.Extensions)
	if err != nil {
		return "", err
	}
	if len(figs) == 0 {
		e.log.Warn().Str("dir", full).Strs("ext", o.Extensions).Msg("no figures found")
		return "", nil
	}
	columns := o.Columns
	if columns < 1 {
		columns = 1
	}
	return e.fragment(e.subfigure, SubfigureTemplate, pongo2.Context{
		"groups":   GroupFigures(figs, columns),
		"position": o.Position,
		"more":     o.More,
		"subwidth": strconv.FormatFloat(1/float64(columns)-0.02, 'f', 2, 64),
		"caption":  o.Caption,
		"label":    o.Label,
	})
}

// listFigures returns the regular files in dir with one of exts, in
// directory order (sorted by name). Symlinks count when their target is a
// regular file. Paths are prefixed with shown.
func listFigures(dir, shown string, exts []string) ([]Figure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	figs := []Figure{}
	for _, d := range entries {
		st, err := os.Stat(filepath.Join(dir, d.Name()))
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		ext := filepath.Ext(d.Name())
		if !model.HasExt(exts, ext) {
			continue
		}
		figs = append(figs, Figure{
			Path: path.Join(shown, d.Name()),
			Name: strings.TrimSuffix(d.Name(), ext),
		})
	}
	return figs, nil
}

// FormatDate formats t with a strftime layout.
func FormatDate(t time.Time, layout string) string {
	if layout == "" {
		layout = DefaultDateFormat
	}
	return strftime.Format(layout, t)
}

// scope binds the helpers of one render to the template's directory.
type scope struct {
	e   *Engine
	dir string
	err error // first helper failure
}

var helperNames = []string{"table", "tabular", "figure", "markdown", "now", "datetimeformat"}

func (s *scope) names() map[string]bool {
	m := make(map[string]bool, len(helperNames))
	for _, n := range helperNames {
		m[n] = true
	}
	return m
}

func (s *scope) helpers() map[string]any {
	return map[string]any{
		"table":          s.table,
		"tabular":        s.tabular,
		"figure":         s.figure,
		"markdown":       s.markdown,
		"now":            s.now,
		"datetimeformat": s.datetimeformat,
	}
}

func (s *scope) fail(err error) error {
	if s.err == nil {
		s.err = err
	}
	return err
}

func (s *scope) resolve(fn string) string {
	if filepath.IsAbs(fn) {
		return fn
	}
	return filepath.Join(s.dir, fn)
}

func (s *scope) tableOptions(args []any) (TableOptions, error) {
	o := DefaultTableOptions()
	kv, err := optionMap(args)
	if err != nil {
		return o, err
	}
	o.apply(kv)
	return o, nil
}

func (s *scope) table(csvPath string, opts ...any) (string, error) {
	o, err := s.tableOptions(opts)
	if err != nil {
		return "", s.fail(fmt.Errorf("table: %w", err))
	}
	out, err := s.e.Table(s.resolve(csvPath), o)
	if err != nil {
		return "", s.fail(err)
	}
	return out, nil
}

func (s *scope) tabular(csvPath string, opts ...any) (string, error) {
	o, err := s.tableOptions(opts)
	if err != nil {
		return "", s.fail(fmt.Errorf("tabular: %w", err))
	}
	out, err := s.e.Tabular(s.resolve(csvPath), o)
	if err != nil {
		return "", s.fail(err)
	}
	return out, nil
}

func (s *scope) figure(fn string, opts ...any) (string, error) {
	o := s.e.DefaultFigureOptions()
	kv, err := optionMap(opts)
	if err == nil {
		err = o.apply(kv)
	}
	if err != nil {
		return "", s.fail(fmt.Errorf("figure: %w", err))
	}
	out, err := s.e.Figure(s.dir, fn, o)
	if err != nil {
		return "", s.fail(err)
	}
	return out, nil
}

func (s *scope) markdown(fn string) (string, error) {
	imgdir := ""
	if !filepath.IsAbs(fn) {
		imgdir = filepath.ToSlash(filepath.Dir(fn))
		if imgdir == "." {
			imgdir = ""
		}
	}
	out, err := latex.ConvertMarkdown(s.e.ctx, s.resolve(fn), imgdir)
	if err != nil {
		return "", s.fail(fmt.Errorf("markdown %s: %w", fn, err))
	}
	return out, nil
}

func (s *scope) now() time.Time {
	return s.e.clock()
}

func (s *scope) datetimeformat(t time.Time, layout ...any) (string, error) {
	if len(layout) > 1 {
		return "", s.fail(fmt.Errorf("datetimeformat: expected at most one format, got %d", len(layout)))
	}
	f := ""
	if len(layout) == 1 && layout[0] != nil {
		f = fmt.Sprint(layout[0])
	}
	return FormatDate(t, f), nil
}

// optionMap merges the option arguments of a helper call. Each may be a
// context section or any other string-keyed map; later ones win.
func optionMap(args []any) (map[string]string, error) {
	kv := map[string]string{}
	for _, a := range args {
		switch a := a.(type) {
		case nil:
		case map[string]string:
			for k, v := range a {
				kv[k] = v
			}
		case map[string]any:
			for k, v := range a {
				kv[k] = fmt.Sprint(v)
			}
		case pongo2.Context:
			for k, v := range a {
				kv[k] = fmt.Sprint(v)
			}
		default:
			return nil, fmt.Errorf("options must be a section or a mapping, got %T", a)
		}
	}
	return kv, nil
}
