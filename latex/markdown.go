package latex

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/adnsv/go-pandoc"
	"github.com/rs/zerolog/log"
)

// PandocCommand is the converter used to turn Markdown into a JSON AST.
var PandocCommand = "pandoc"

// ConvertMarkdown runs pandoc on fn and converts the resulting document to
// LaTeX. See NewWriter for the meaning of imgdir.
func ConvertMarkdown(ctx context.Context, fn, imgdir string) (string, error) {
	log.Debug().Str("file", fn).Msg("running pandoc -t json")
	jbuf, err := exec.CommandContext(ctx, PandocCommand, "-t", "json", fn).Output()
	if err != nil {
		return "", fmt.Errorf("pandoc error: %w", err)
	}
	return MarkdownFromJSON(jbuf, imgdir)
}

// MarkdownFromJSON converts a pandoc JSON document to LaTeX.
func MarkdownFromJSON(jbuf []byte, imgdir string) (string, error) {
	doc, err := pandoc.NewDocument(jbuf)
	if err != nil {
		return "", err
	}
	bb, err := doc.Flow()
	if err != nil {
		return "", err
	}
	out := &bytes.Buffer{}
	w := NewWriter(out, imgdir)
	if top := doc.ParseMeta()["top-heading"]; top != "" {
		w.SetTopLevelDivision(top)
	}
	w.WriteBlocks(bb)
	return out.String(), nil
}
