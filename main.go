package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/adnsv/dyntex/latex"
	"github.com/adnsv/dyntex/model"
	"github.com/adnsv/dyntex/render"
	"github.com/adnsv/dyntex/walk"
	"github.com/adnsv/go-utils/fs"
	cli "github.com/jawher/mow.cli"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const noSourceMsg = "Give me a latex source! Use cfg file or cmd line"

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		With().Timestamp().Logger()

	if err := run(os.Args, os.Stdout, flag.ExitOnError); err != nil {
		log.Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}

// cmdline holds the parsed flags together with whether the user gave them,
// so that flags only override the configuration file when set explicitly.
type cmdline struct {
	dest, cfg, srcExt, imgExt, command, templates string
	compile, link, verbose                        bool
	sources                                       []string

	destSet, srcExtSet, imgExtSet, commandSet, templatesSet bool
	compileSet, linkSet, verboseSet                         bool
}

func run(args []string, stdout io.Writer, onError flag.ErrorHandling) error {
	c := &cmdline{}

	app := cli.App("dyntex", "Dynamic LaTeX generator: renders templates and mirrors a source tree into a build directory")
	app.ErrorHandling = onError
	app.Spec = "[-d=<DIRECTORY>] [-c=<FILE>] [-s=<EXTS>] [-i=<EXTS>] [-x] [-p=<COMMAND>] [-l] [-t=<DIRECTORY>] [-v] [SOURCE...]"
	app.Version("version", "dyntex "+app_version())

	app.StringPtr(&c.dest, cli.StringOpt{Name: "d dest", Value: model.DefaultDest, SetByUser: &c.destSet,
		Desc: "build directory"})
	app.StringPtr(&c.cfg, cli.StringOpt{Name: "c cfg", Value: "",
		Desc: "configuration file (.cfg/.ini or .yml/.yaml)"})
	app.StringPtr(&c.srcExt, cli.StringOpt{Name: "s srcext", Value: model.DefaultSourceExts, SetByUser: &c.srcExtSet,
		Desc: "template extensions, like '.tex, .txt'"})
	app.StringPtr(&c.imgExt, cli.StringOpt{Name: "i imgext", Value: model.DefaultImageExts, SetByUser: &c.imgExtSet,
		Desc: "image extensions, like '.png, .pdf, .jpg'"})
	app.BoolPtr(&c.compile, cli.BoolOpt{Name: "x compile", Value: false, SetByUser: &c.compileSet,
		Desc: "compile the generated LaTeX to produce a pdf"})
	app.StringPtr(&c.command, cli.StringOpt{Name: "p pdfcommand", Value: model.DefaultCommand, SetByUser: &c.commandSet,
		Desc: "compiler command, run inside the build directory"})
	app.BoolPtr(&c.link, cli.BoolOpt{Name: "l link", Value: false, SetByUser: &c.linkSet,
		Desc: "symlink non-template files instead of copying them"})
	app.StringPtr(&c.templates, cli.StringOpt{Name: "t templates", Value: "", SetByUser: &c.templatesSet,
		Desc: "directory with table.tex, figure.tex and subfigure.tex fragment templates"})
	app.BoolPtr(&c.verbose, cli.BoolOpt{Name: "v verbose", Value: false, SetByUser: &c.verboseSet,
		Desc: "get more info"})
	app.StringsPtr(&c.sources, cli.StringsArg{Name: "SOURCE", Value: nil,
		Desc: "source files or directories, overrides the configured source list"})

	var err error
	app.Action = func() {
		var o model.Options
		var ctx model.Context
		o, ctx, err = c.resolve()
		if err != nil {
			return
		}
		if len(o.Sources) == 0 {
			fmt.Fprintln(stdout, noSourceMsg)
			app.PrintHelp()
			return
		}
		err = generate(o, ctx, stdout)
	}
	if perr := app.Run(args); perr != nil {
		return perr
	}
	return err
}

// resolve merges defaults, the configuration file and the command line,
// in increasing order of precedence.
func (c *cmdline) resolve() (model.Options, model.Context, error) {
	o := model.DefaultOptions()
	ctx := model.Context{}
	inConfig := func(string) bool { return false }
	if c.cfg != "" {
		if !fs.FileExists(c.cfg) {
			return o, ctx, fmt.Errorf("missing %s", c.cfg)
		}
		cfg, err := model.LoadConfig(c.cfg)
		if err != nil {
			return o, ctx, err
		}
		o, ctx = cfg.Options, cfg.Context
		inConfig = cfg.IsSet
	}

	override := func(key string, set bool) bool {
		if set && inConfig(key) {
			log.Info().Str("key", key).Msg("command line overrides configuration")
		}
		return set
	}
	if override("dest", c.destSet) {
		o.Dest = c.dest
	}
	if override("srcext", c.srcExtSet) {
		o.SourceExts = model.SplitExtensions(c.srcExt)
	}
	if override("imgext", c.imgExtSet) {
		o.ImageExts = model.SplitExtensions(c.imgExt)
	}
	if override("pdfcommand", c.commandSet) {
		o.Command = c.command
	}
	if override("templates", c.templatesSet) {
		o.Templates = c.templates
	}
	if override("compile", c.compileSet) {
		o.Compile = c.compile
	}
	if override("link", c.linkSet) {
		o.Link = c.link
	}
	if override("verbose", c.verboseSet) {
		o.Verbose = c.verbose
	}
	if override("source", len(c.sources) > 0) {
		o.Sources = c.sources
	}
	return o, ctx, nil
}

func generate(o model.Options, ctx model.Context, stdout io.Writer) error {
	if o.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	goctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	engine, err := render.NewEngine(
		render.WithTemplateDir(o.Templates),
		render.WithImageExts(o.ImageExts),
		render.WithContext(goctx),
	)
	if err != nil {
		return err
	}

	w := &walk.Walker{
		Renderer:   engine,
		Context:    ctx,
		SourceExts: o.SourceExts,
		Link:       o.Link,
	}
	report, err := w.Process(o.Sources, o.Dest)
	if err != nil {
		return err
	}
	log.Info().
		Int("rendered", len(report.Rendered)).
		Int("copied", len(report.Copied)+len(report.Fallback)).
		Int("linked", len(report.Linked)).
		Int("skipped", len(report.Skipped)).
		Str("dest", o.Dest).
		Msg("tree processed")

	if o.Compile {
		if err := latex.BuildPDF(goctx, o.Dest, o.Command, stdout, os.Stderr); err != nil {
			return err
		}
	}
	log.Info().Msg("mission accomplished")
	return nil
}
