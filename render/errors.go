package render

import (
	"errors"
	"fmt"

	"github.com/adnsv/dyntex/model"
)

// ErrMissingBinding is matched by every *MissingBindingError.
var ErrMissingBinding = errors.New("missing binding")

// MissingBindingError reports a template reference that the context does
// not provide. Context holds a dump of every section and value that was
// available.
type MissingBindingError struct {
	Template  string
	Reference string
	Location  model.Location
	Line      string // source line holding the reference
	Context   string
}

func (e *MissingBindingError) Error() string {
	return fmt.Sprintf("%s:%s: %s %q\n  %s\navailable context:\n%s",
		e.Template, e.Location, ErrMissingBinding, e.Reference, e.Line, e.Context)
}

func (e *MissingBindingError) Unwrap() error {
	return ErrMissingBinding
}
