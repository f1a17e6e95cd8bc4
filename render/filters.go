package render

import (
	"fmt"
	"time"

	"github.com/adnsv/dyntex/latex"
	"github.com/flosch/pongo2/v6"
)

func registerFilters() {
	for name, fn := range map[string]pongo2.FilterFunction{
		"datetimeformat": filterDatetimeFormat,
		"latex":          filterLatex,
	} {
		if !pongo2.FilterExists(name) {
			_ = pongo2.RegisterFilter(name, fn)
		}
	}
}

// filterDatetimeFormat formats a time value: {{ now()|datetimeformat:"%Y" }}.
func filterDatetimeFormat(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	t, ok := in.Interface().(time.Time)
	if !ok {
		return nil, &pongo2.Error{
			Sender:    "filter:datetimeformat",
			OrigError: fmt.Errorf("expected a time value, got %T", in.Interface()),
		}
	}
	layout := ""
	if param != nil && !param.IsNil() {
		layout = param.String()
	}
	return pongo2.AsValue(FormatDate(t, layout)), nil
}

// filterLatex escapes the characters LaTeX treats specially.
func filterLatex(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(latex.EscapeStr(in.String())), nil
}
