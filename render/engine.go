package render

import (
	"context"
	"embed"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adnsv/dyntex/model"
	"github.com/adnsv/go-utils/fs"
	"github.com/flosch/pongo2/v6"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*.tex
var embedded embed.FS

// Names of the fragment templates. Each is loaded from <name>.tex.
const (
	TableTemplate     = "table"
	FigureTemplate    = "figure"
	SubfigureTemplate = "subfigure"
)

// DefaultDateFormat is used by datetimeformat when no format is given.
const DefaultDateFormat = "%H:%M / %d-%m-%Y"

// Option configures an Engine.
type Option func(*config)

type config struct {
	templateDir string
	imageExts   []string
	clock       func() time.Time
	logger      zerolog.Logger
	ctx         context.Context
}

// WithTemplateDir loads fragment templates from dir. Fragments missing
// there fall back to the built-in ones.
func WithTemplateDir(dir string) Option {
	return func(cfg *config) {
		cfg.templateDir = strings.TrimSpace(dir)
	}
}

// WithImageExts sets the extensions that figure grids pick up from a
// directory.
func WithImageExts(exts []string) Option {
	return func(cfg *config) {
		cfg.imageExts = exts
	}
}

// WithClock replaces time.Now as the source of now().
func WithClock(clock func() time.Time) Option {
	return func(cfg *config) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithLogger sets the logger used for progress and warnings.
func WithLogger(l zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithContext sets the context external converters (pandoc) run under.
func WithContext(ctx context.Context) Option {
	return func(cfg *config) {
		if ctx != nil {
			cfg.ctx = ctx
		}
	}
}

// Engine renders document templates. It owns two pongo2 template sets:
// one for documents, whose whitespace is kept verbatim, and one for the
// table/figure fragments, which trims newlines after block tags.
type Engine struct {
	mu sync.Mutex

	fragments *pongo2.TemplateSet
	documents map[string]*pongo2.TemplateSet // by source directory
	table     *pongo2.Template
	figure    *pongo2.Template
	subfigure *pongo2.Template

	imageExts []string
	clock     func() time.Time
	log       zerolog.Logger
	ctx       context.Context
}

var registerOnce sync.Once

// NewEngine creates an Engine and parses the fragment templates.
func NewEngine(options ...Option) (*Engine, error) {
	cfg := &config{
		imageExts: model.SplitExtensions(model.DefaultImageExts),
		clock:     time.Now,
		logger:    log.Logger,
		ctx:       context.Background(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(cfg)
		}
	}

	registerOnce.Do(func() {
		// LaTeX output: HTML escaping would corrupt it
		pongo2.SetAutoescape(false)
		registerFilters()
	})

	builtin, err := iofs.Sub(embedded, "templates")
	if err != nil {
		return nil, err
	}
	var loaders []pongo2.TemplateLoader
	if cfg.templateDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.templateDir)
		if err != nil {
			return nil, fmt.Errorf("template directory: %w", err)
		}
		loaders = append(loaders, loader)
	}
	loaders = append(loaders, pongo2.NewFSLoader(builtin))

	e := &Engine{
		fragments: pongo2.NewSet("fragments", loaders...),
		documents: map[string]*pongo2.TemplateSet{},
		imageExts: cfg.imageExts,
		clock:     cfg.clock,
		log:       cfg.logger,
		ctx:       cfg.ctx,
	}
	e.fragments.Options.TrimBlocks = true
	e.fragments.Options.LStripBlocks = true

	for _, f := range []struct {
		name string
		tpl  **pongo2.Template
	}{
		{TableTemplate, &e.table},
		{FigureTemplate, &e.figure},
		{SubfigureTemplate, &e.subfigure},
	} {
		fn := f.name + ".tex"
		if cfg.templateDir != "" && fs.FileExists(filepath.Join(cfg.templateDir, fn)) {
			e.log.Debug().Str("file", filepath.Join(cfg.templateDir, fn)).Msg("loading fragment template")
		} else {
			e.log.Debug().Str("name", f.name).Msg("using built-in fragment template")
		}
		*f.tpl, err = e.fragments.FromFile(fn)
		if err != nil {
			return nil, fmt.Errorf("fragment template %s: %w", f.name, err)
		}
	}
	return e, nil
}

func (e *Engine) documentSet(dir string) (*pongo2.TemplateSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if set, ok := e.documents[dir]; ok {
		return set, nil
	}
	loader, err := pongo2.NewLocalFileSystemLoader(dir)
	if err != nil {
		return nil, err
	}
	set := pongo2.NewSet("documents", loader)
	e.documents[dir] = set
	return set, nil
}

// Render renders source, a template named name for diagnostics, against
// ctx. Relative paths given to helpers and include tags resolve against
// dir.
func (e *Engine) Render(name, source, dir string, ctx model.Context) (string, error) {
	if dir == "" {
		dir = "."
	}
	s := &scope{e: e, dir: dir}
	if err := checkBindings(name, source, dir, ctx, s.names()); err != nil {
		return "", err
	}

	set, err := e.documentSet(dir)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	tpl, err := set.FromString(source)
	if err != nil {
		return "", templateError(name, err)
	}
	out, err := tpl.Execute(e.bindings(s, ctx))
	if err != nil {
		if s.err != nil {
			// pongo2 flattens helper errors to text
			return "", fmt.Errorf("%s: %w", name, s.err)
		}
		return "", templateError(name, err)
	}
	return out, nil
}

// RenderFile renders the template src into destDir/basename(src). The file
// is rewritten only when its content changes. A symlink left at the
// destination by an earlier run in link mode is replaced.
func (e *Engine) RenderFile(src, destDir string, ctx model.Context) error {
	buf, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	out, err := e.Render(src, string(buf), filepath.Dir(src), ctx)
	if err != nil {
		return err
	}

	dst := filepath.Join(destDir, filepath.Base(src))
	if st, err := os.Lstat(dst); err == nil && st.Mode()&os.ModeSymlink != 0 {
		if err = os.Remove(dst); err != nil {
			return err
		}
	}
	e.log.Info().Str("src", src).Str("dst", dst).Msg("writing")
	return fs.WriteFileIfChanged(dst, []byte(out))
}

func (e *Engine) bindings(s *scope, ctx model.Context) pongo2.Context {
	pc := pongo2.Context{}
	for name, sec := range ctx {
		pc[name] = sec
	}
	for name, fn := range s.helpers() {
		if _, ok := pc[name]; ok {
			e.log.Warn().Str("section", name).Msg("section is shadowed by the helper of the same name")
		}
		pc[name] = fn
	}
	return pc
}

// templateError reports a pongo2 error with the template name and, when
// known, the position.
func templateError(name string, err error) error {
	var perr *pongo2.Error
	if errors.As(err, &perr) && perr.OrigError != nil {
		if perr.Line > 0 {
			return fmt.Errorf("%s:%d:%d: %w", name, perr.Line, perr.Column, perr.OrigError)
		}
		return fmt.Errorf("%s: %w", name, perr.OrigError)
	}
	return fmt.Errorf("%s: %w", name, err)
}

// fragment executes one of the fragment templates. A single trailing
// newline is dropped so fragments can be placed inline.
func (e *Engine) fragment(tpl *pongo2.Template, name string, data pongo2.Context) (string, error) {
	out, err := tpl.Execute(data)
	if err != nil {
		return "", templateError(name, err)
	}
	return strings.TrimSuffix(out, "\n"), nil
}
