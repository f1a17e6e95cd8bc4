package latex

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/adnsv/go-pandoc"
)

// Writer converts Pandoc AST elements to LaTeX markup.
type Writer struct {
	out         io.Writer
	imgdir      string // prefix for relative image paths
	blockSep    string // separator to insert before the next block
	forceInline int    // > 0 while inside tables, where floats are not allowed
	topLevel    int    // 0=part, 1=chapter, 2=section

	// DefaultFigureWidth is used for images that carry no width attribute,
	// e.g. `\linewidth`. Empty means no width option.
	DefaultFigureWidth string
}

// NewWriter creates a Writer. Relative image targets are prefixed with
// imgdir, which should be the directory of the Markdown source relative to
// the document that includes it.
func NewWriter(w io.Writer, imgdir string) *Writer {
	return &Writer{out: w, imgdir: imgdir, topLevel: 2}
}

// SetTopLevelDivision chooses what a level 1 Markdown heading becomes:
// "part", "chapter" or "section" (the default).
func (w *Writer) SetTopLevelDivision(s string) {
	switch s {
	case "part":
		w.topLevel = 0
	case "chapter":
		w.topLevel = 1
	default:
		w.topLevel = 2
	}
}

func (w *Writer) wr(s string) {
	io.WriteString(w.out, s)
}

func (w *Writer) resolveImageTarget(url string) string {
	if w.imgdir == "" || path.IsAbs(url) || strings.Contains(url, "://") {
		return url
	}
	return path.Join(w.imgdir, url)
}

var headings = []string{`\part`, `\chapter`, `\section`, `\subsection`, `\subsubsection`, `\paragraph`, `\subparagraph`}

func (w *Writer) makeHeading(lvl int) string {
	lvl += w.topLevel - 1
	if lvl < 0 || lvl >= len(headings) {
		return ""
	}
	return headings[lvl]
}

func alignLetter(a string) string {
	switch a {
	case "AlignLeft":
		return "l"
	case "AlignRight":
		return "r"
	case "AlignCenter":
		return "c"
	default:
		return "l"
	}
}

func (w *Writer) writeRow(row *pandoc.Row) {
	for i, c := range row.Cells {
		if i > 0 {
			w.wr(CellSeparator)
		}
		w.blockSep = ""
		w.WriteBlocks(c.Blocks)
	}
	w.wr(RowTerminator + "\n")
}

func (w *Writer) writeTable(table *pandoc.Table) {
	cols := make([]string, len(table.ColSpecs))
	for i, cs := range table.ColSpecs {
		cols[i] = alignLetter(cs.Alignment)
	}

	w.wr("\\begin{table}[htb!]\n\\centering\n")
	w.forceInline++
	w.wr("\\begin{tabular}{" + strings.Join(cols, "") + "}\n")
	w.wr(HorizontalRule + "\n")
	if len(table.Head.Rows) > 0 {
		for _, r := range table.Head.Rows {
			w.writeRow(r)
		}
		w.wr(HorizontalRule + "\n")
	}
	for _, tb := range table.Bodies {
		for _, r := range tb.Rows2 {
			w.writeRow(r)
		}
	}
	if len(table.Foot.Rows) > 0 {
		w.wr(HorizontalRule + "\n")
		for _, r := range table.Foot.Rows {
			w.writeRow(r)
		}
	}
	w.wr(HorizontalRule + "\n")
	w.wr("\\end{tabular}")
	w.forceInline--
	if len(table.Caption) > 0 {
		w.wr("\n\\caption{")
		w.blockSep = ""
		w.WriteBlocks(table.Caption)
		w.wr("}")
	}
	if table.Attr.Identifier != "" {
		w.wr("\n\\label{" + table.Attr.Identifier + "}")
	}
	w.wr("\n\\end{table}")
}

func (w *Writer) writeList(env string, items []pandoc.BlockList) {
	w.wr("\\begin{" + env + "}")
	for _, bb := range items {
		w.wr("\n\\item ")
		w.blockSep = ""
		w.WriteBlocks(bb)
	}
	w.wr("\n\\end{" + env + "}")
}

func (w *Writer) writeBlock(b pandoc.Block) {
	switch b := b.(type) {
	case *pandoc.Plain:
		w.WriteInlines(b.Inlines)
		w.blockSep = "\n\n"

	case *pandoc.Para:
		w.WriteInlines(b.Inlines)
		w.blockSep = "\n\n"

	case *pandoc.LineBlock:
		for i, ll := range b.Lines {
			if i > 0 {
				w.wr("\\\\\n")
			}
			w.WriteInlines(ll)
		}
		w.blockSep = "\n\n"

	case *pandoc.CodeBlock:
		w.wr("\\begin{verbatim}\n")
		w.wr(b.Text)
		w.wr("\n\\end{verbatim}")
		w.blockSep = "\n\n"

	case *pandoc.BlockQuote:
		w.wr("\\begin{quote}\n")
		w.blockSep = ""
		w.WriteBlocks(b.Blocks)
		w.wr("\n\\end{quote}")
		w.blockSep = "\n\n"

	case *pandoc.OrderedList:
		w.writeList("enumerate", b.Items)
		w.blockSep = "\n\n"

	case *pandoc.BulletList:
		w.writeList("itemize", b.Items)
		w.blockSep = "\n\n"

	case *pandoc.DefinitionList:
		w.wr("\\begin{description}")
		for _, item := range b.Items {
			w.wr("\n\\item[")
			w.WriteInlines(item.Term)
			w.wr("] ")
			w.blockSep = ""
			for _, bb := range item.Definitions {
				w.WriteBlocks(bb)
			}
		}
		w.wr("\n\\end{description}")
		w.blockSep = "\n\n"

	case *pandoc.Header:
		w.wr(w.makeHeading(b.Level))
		w.wr("{")
		w.WriteInlines(b.Inlines)
		w.wr("}")
		if b.Attr.Identifier != "" {
			w.wr("\\label{" + b.Attr.Identifier + "}")
		}
		w.blockSep = "\n\n"

	case *pandoc.HorizontalRule:
		w.wr("\\noindent\\rule{\\linewidth}{0.4pt}")
		w.blockSep = "\n\n"

	case *pandoc.Table:
		w.writeTable(b)
		w.blockSep = "\n\n"

	case *pandoc.Div:
		w.WriteBlocks(b.Blocks)
		w.blockSep = "\n\n"

	case *pandoc.RawBlock:
		if b.Format == "tex" || b.Format == "latex" {
			w.wr(b.Text)
			w.blockSep = "\n\n"
		}

	default:
		w.blockSep = ""
	}
}

// WriteBlocks converts a sequence of blocks, separating them with blank
// lines.
func (w *Writer) WriteBlocks(bb []pandoc.Block) {
	for _, b := range bb {
		w.wr(w.blockSep)
		w.writeBlock(b)
	}
}

func (w *Writer) graphicsOptions(img *pandoc.Image) string {
	kv := img.Attr.KeyValMap()
	opts := []string{}
	for _, k := range []string{"width", "height"} {
		s := kv[k]
		if s == "" {
			continue
		}
		if n, u, err := splitNumUnits(s); err == nil {
			switch u {
			case "%":
				if k == "width" {
					s = fmt.Sprintf("%g\\linewidth", n/100)
				} else {
					s = fmt.Sprintf("%g\\textheight", n/100)
				}
			case "inch":
				s = fmt.Sprintf("%gin", n)
			}
		}
		opts = append(opts, k+"="+s)
	}
	if len(opts) == 0 && w.DefaultFigureWidth != "" {
		opts = append(opts, "width="+w.DefaultFigureWidth)
	}
	if len(opts) == 0 {
		return ""
	}
	return "[" + strings.Join(opts, ",") + "]"
}

func (w *Writer) writeIncludeGraphics(img *pandoc.Image) {
	w.wr("\\includegraphics" + w.graphicsOptions(img))
	w.wr("{" + w.resolveImageTarget(img.Target.URL) + "}")
}

// writeImage emits a floating figure with caption and label.
func (w *Writer) writeImage(img *pandoc.Image) {
	w.wr("\\begin{figure}[htb!]\n\\centering\n")
	w.writeIncludeGraphics(img)
	if len(img.Content) > 0 {
		w.wr("\n\\caption{")
		w.WriteInlines(img.Content)
		w.wr("}")
	}
	if img.Attr.Identifier != "" {
		w.wr("\n\\label{" + img.Attr.Identifier + "}")
	}
	w.wr("\n\\end{figure}")
}

// FlattenInlines converts inline elements to an escaped plain string.
func FlattenInlines(ll pandoc.InlineList) string {
	buf := &bytes.Buffer{}
	for _, l := range ll {
		switch l := l.(type) {
		case *pandoc.Space:
			buf.WriteString(" ")
		case *pandoc.SoftBreak, *pandoc.LineBreak:
			buf.WriteString("\n")
		case *pandoc.Str:
			buf.WriteString(EscapeStr(l.Text))
		case *pandoc.Formatted:
			buf.WriteString(FlattenInlines(l.Content))
		case *pandoc.Quoted:
			open, close := quoteMarks(l.QuoteType)
			buf.WriteString(open + FlattenInlines(l.Content) + close)
		case *pandoc.RawInline:
			buf.WriteString(l.Text)
		}
	}
	return buf.String()
}

func quoteMarks(t string) (string, string) {
	switch t {
	case "SingleQuote":
		return "`", "'"
	case "DoubleQuote":
		return "``", "''"
	}
	return "", ""
}

// WriteInlines converts inline elements to LaTeX markup.
func (w *Writer) WriteInlines(ll pandoc.InlineList) {
	for _, l := range ll {
		switch l := l.(type) {
		case *pandoc.Space:
			w.wr(" ")

		case *pandoc.SoftBreak:
			w.wr("\n")

		case *pandoc.LineBreak:
			w.wr("\\\\\n")

		case *pandoc.Str:
			w.wr(EscapeStr(l.Text))

		case *pandoc.Formatted:
			w.wr(latexFmt(l.Fmt))
			w.WriteInlines(l.Content)
			w.wr("}")

		case *pandoc.Quoted:
			open, close := quoteMarks(l.QuoteType)
			w.wr(open)
			w.WriteInlines(l.Content)
			w.wr(close)

		case *pandoc.Code:
			w.wr("\\texttt{" + EscapeStr(l.Text) + "}")

		case *pandoc.Math:
			if l.Type == "DisplayMath" {
				w.wr("\\[" + l.Text + "\\]")
			} else {
				w.wr("$" + l.Text + "$")
			}

		case *pandoc.RawInline:
			if l.Format == "tex" || l.Format == "latex" {
				w.wr(l.Text)
			}

		case *pandoc.Image:
			if l.Attr.KeyValMap()["placement"] == "inline" || w.forceInline > 0 {
				w.writeIncludeGraphics(l)
			} else {
				w.writeImage(l)
			}

		case *pandoc.Link:
			url := l.Target.URL
			if strings.HasPrefix(url, "#") {
				w.wr("\\hyperref[" + strings.TrimPrefix(url, "#") + "]{")
			} else {
				w.wr("\\href{" + strings.ReplaceAll(url, "%", "\\%") + "}{")
			}
			w.WriteInlines(l.Content)
			w.wr("}")
		}
	}
}

func latexFmt(f pandoc.InlineFmt) string {
	switch f {
	case pandoc.Emph:
		return "\\emph{"
	case pandoc.Underline:
		return "\\underline{"
	case pandoc.Strong:
		return "\\textbf{"
	case pandoc.Strikeout:
		return "\\sout{"
	case pandoc.Superscript:
		return "\\textsuperscript{"
	case pandoc.Subscript:
		return "\\textsubscript{"
	case pandoc.SmallCaps:
		return "\\textsc{"
	default:
		return "{"
	}
}

// splitNumUnits parses a size string such as "50%" or "3cm" into a value
// and a unit.
func splitNumUnits(s string) (n float64, u string, err error) {
	for _, p := range []string{"%", "px", "cm", "mm", "inch", "in", "pt", "em"} {
		if strings.HasSuffix(s, p) {
			u = p
			s = s[:len(s)-len(p)]
			break
		}
	}
	n, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, "", err
	}
	return
}
