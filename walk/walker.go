// Package walk mirrors a source tree into a build directory: templates are
// rendered, other files are copied or linked.
package walk

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"

	"github.com/adnsv/dyntex/model"
	"github.com/rs/zerolog/log"
)

// Renderer renders one template file into a destination directory.
type Renderer interface {
	RenderFile(src, destDir string, ctx model.Context) error
}

// Walker holds the settings of one run.
type Walker struct {
	Renderer   Renderer
	Context    model.Context
	SourceExts []string
	Link       bool // symlink plain files instead of copying them
}

// Report lists the destination paths a run produced, by outcome.
type Report struct {
	Rendered []string
	Copied   []string
	Linked   []string
	Fallback []string // copied because the symlink could not be created
	Skipped  []string // already present, left untouched
}

type run struct {
	*Walker
	report  *Report
	destAbs string
}

// Process walks sources depth-first and writes the results below dest.
// Directories are recreated as dest/<basename>, files land in the directory
// their parent maps to. The first failure aborts the walk; what has been
// written so far is kept.
func (w *Walker) Process(sources []string, dest string) (*Report, error) {
	destAbs, err := filepath.Abs(dest)
	if err != nil {
		return nil, err
	}
	r := &run{Walker: w, report: &Report{}, destAbs: destAbs}
	for _, src := range sources {
		if err := r.process(filepath.Clean(src), dest); err != nil {
			return r.report, err
		}
	}
	return r.report, nil
}

func (r *run) process(src, dest string) error {
	kind, err := model.Classify(src, r.SourceExts)
	if errors.Is(err, model.ErrUnsupportedEntry) {
		log.Warn().Str("src", src).Msg("unsupported file type, ignored")
		return nil
	} else if err != nil {
		return err
	}

	switch kind {
	case model.EntryTemplate:
		if err := os.MkdirAll(dest, 0755); err != nil {
			return err
		}
		if err := r.Renderer.RenderFile(src, dest, r.Context); err != nil {
			return err
		}
		r.report.Rendered = append(r.report.Rendered, filepath.Join(dest, filepath.Base(src)))

	case model.EntryPlainFile:
		if err := os.MkdirAll(dest, 0755); err != nil {
			return err
		}
		return r.place(src, filepath.Join(dest, filepath.Base(src)))

	case model.EntryDirectory:
		abs, err := filepath.Abs(src)
		if err != nil {
			return err
		}
		if abs == r.destAbs {
			log.Debug().Str("dir", src).Msg("skipping the destination directory")
			return nil
		}
		name := filepath.Base(src)
		if name == ".." {
			name = filepath.Base(abs)
		}
		sub := filepath.Join(dest, name)
		if err := os.MkdirAll(sub, 0755); err != nil {
			return err
		}
		log.Debug().Str("dir", src).Str("dst", sub).Msg("entering")

		children, err := os.ReadDir(src)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := r.process(filepath.Join(src, c.Name()), sub); err != nil {
				return err
			}
		}
	}
	return nil
}

// place copies or links a plain file. An existing destination wins.
func (r *run) place(src, dst string) error {
	if _, err := os.Lstat(dst); err == nil {
		log.Debug().Str("src", src).Str("dst", dst).Msg("skipped, destination exists")
		r.report.Skipped = append(r.report.Skipped, dst)
		return nil
	} else if !errors.Is(err, iofs.ErrNotExist) {
		return err
	}

	if r.Link {
		target, err := filepath.Abs(src)
		if err != nil {
			return err
		}
		err = os.Symlink(target, dst)
		switch {
		case err == nil:
			log.Debug().Str("src", target).Str("dst", dst).Msg("linked")
			r.report.Linked = append(r.report.Linked, dst)
			return nil
		case errors.Is(err, iofs.ErrExist):
			r.report.Skipped = append(r.report.Skipped, dst)
			return nil
		}
		log.Info().Err(err).Str("src", src).Str("dst", dst).Msg("link fallback, copying")
		if err := copyFile(src, dst); err != nil {
			return err
		}
		r.report.Fallback = append(r.report.Fallback, dst)
		return nil
	}

	if err := copyFile(src, dst); err != nil {
		return err
	}
	log.Debug().Str("src", src).Str("dst", dst).Msg("copied")
	r.report.Copied = append(r.report.Copied, dst)
	return nil
}
