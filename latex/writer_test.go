package latex

import (
	"bytes"
	"context"
	"testing"

	"github.com/adnsv/go-pandoc"
	"github.com/stretchr/testify/require"
)

func words(ss ...string) pandoc.InlineList {
	ll := pandoc.InlineList{}
	for i, s := range ss {
		if i > 0 {
			ll = append(ll, &pandoc.Space{})
		}
		ll = append(ll, &pandoc.Str{Text: s})
	}
	return ll
}

func writeBlocks(w *Writer, buf *bytes.Buffer, bb ...pandoc.Block) string {
	w.WriteBlocks(bb)
	return buf.String()
}

func TestWriterBlocks(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf, "")
	got := writeBlocks(w, buf,
		&pandoc.Header{Level: 1, Attr: pandoc.Attr{Identifier: "intro"}, Inlines: words("Intro")},
		&pandoc.Para{Inlines: append(words("Cost:", "5%"), &pandoc.Space{},
			&pandoc.Formatted{Fmt: pandoc.Strong, Content: words("bold")})},
		&pandoc.BulletList{Items: []pandoc.BlockList{
			{&pandoc.Plain{Inlines: words("one")}},
			{&pandoc.Plain{Inlines: words("two")}},
		}},
		&pandoc.CodeBlock{Text: "x := 1"},
	)
	want := "\\section{Intro}\\label{intro}\n\n" +
		"Cost: 5\\% \\textbf{bold}\n\n" +
		"\\begin{itemize}\n\\item one\n\\item two\n\\end{itemize}\n\n" +
		"\\begin{verbatim}\nx := 1\n\\end{verbatim}"
	require.Equal(t, want, got)
}

func TestWriterTopLevelDivision(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf, "")
	w.SetTopLevelDivision("chapter")
	got := writeBlocks(w, buf,
		&pandoc.Header{Level: 1, Inlines: words("A")},
		&pandoc.Header{Level: 2, Inlines: words("B")},
	)
	require.Equal(t, "\\chapter{A}\n\n\\section{B}", got)
}

func TestWriterInlines(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf, "")
	w.WriteInlines(pandoc.InlineList{
		&pandoc.Quoted{QuoteType: "DoubleQuote", Content: words("hi")},
		&pandoc.Space{},
		&pandoc.Code{Text: "a_b"},
		&pandoc.Space{},
		&pandoc.Math{Type: "InlineMath", Text: "x^2"},
		&pandoc.Space{},
		&pandoc.Link{Content: words("site"), Target: pandoc.Target{URL: "https://example.com/a%20b"}},
		&pandoc.Space{},
		&pandoc.Link{Content: words("see"), Target: pandoc.Target{URL: "#intro"}},
		&pandoc.RawInline{Format: "html", Text: "<br>"},
		&pandoc.RawInline{Format: "tex", Text: "\\newline"},
	})
	require.Equal(t,
		"``hi'' \\texttt{a\\_b} $x^2$ \\href{https://example.com/a\\%20b}{site} \\hyperref[intro]{see}\\newline",
		buf.String())
}

func TestWriterImage(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf, "notes")
	got := writeBlocks(w, buf, &pandoc.Para{Inlines: pandoc.InlineList{
		&pandoc.Image{
			Attr: pandoc.Attr{
				Identifier: "fig:plot",
				KeyVals:    []*pandoc.KeyVal{{Key: "width", Val: "50%"}},
			},
			Content: words("A", "plot"),
			Target:  pandoc.Target{URL: "img/plot.png"},
		},
	}})
	want := "\\begin{figure}[htb!]\n\\centering\n" +
		"\\includegraphics[width=0.5\\linewidth]{notes/img/plot.png}\n" +
		"\\caption{A plot}\n\\label{fig:plot}\n\\end{figure}"
	require.Equal(t, want, got)
}

func TestWriterTable(t *testing.T) {
	cell := func(s string) *pandoc.Cell {
		return &pandoc.Cell{Blocks: pandoc.BlockList{&pandoc.Plain{Inlines: words(s)}}}
	}
	buf := &bytes.Buffer{}
	w := NewWriter(buf, "")
	got := writeBlocks(w, buf, &pandoc.Table{
		Attr:     pandoc.Attr{Identifier: "tab:w"},
		Caption:  pandoc.BlockList{&pandoc.Plain{Inlines: words("Weights")}},
		ColSpecs: []*pandoc.ColSpec{{Alignment: "AlignLeft"}, {Alignment: "AlignRight"}},
		Head:     pandoc.TableHeadOrFoot{Rows: []*pandoc.Row{{Cells: []*pandoc.Cell{cell("Name"), cell("kg")}}}},
		Bodies: []*pandoc.TableBody{{Rows2: []*pandoc.Row{
			{Cells: []*pandoc.Cell{cell("Pippo"), cell("58")}},
		}}},
	})
	want := "\\begin{table}[htb!]\n\\centering\n" +
		"\\begin{tabular}{lr}\n\\hline\n" +
		"Name & kg \\\\\n\\hline\n" +
		"Pippo & 58 \\\\\n\\hline\n" +
		"\\end{tabular}\n\\caption{Weights}\n\\label{tab:w}\n\\end{table}"
	require.Equal(t, want, got)
}

func TestFlattenInlines(t *testing.T) {
	got := FlattenInlines(pandoc.InlineList{
		&pandoc.Formatted{Fmt: pandoc.Emph, Content: words("a&b")},
		&pandoc.SoftBreak{},
		&pandoc.Quoted{QuoteType: "SingleQuote", Content: words("q")},
	})
	require.Equal(t, "a\\&b\n`q'", got)
}

func TestConvertMarkdownMissingPandoc(t *testing.T) {
	saved := PandocCommand
	PandocCommand = "dyntex-no-such-pandoc"
	defer func() { PandocCommand = saved }()

	_, err := ConvertMarkdown(context.Background(), "doc.md", "")
	require.Error(t, err)
}
