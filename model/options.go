package model

import (
	"strings"
)

// Options holds the general settings of a run. They come from the
// "general" section of the configuration file and the command line.
type Options struct {
	ImageExts  []string
	SourceExts []string
	Verbose    bool
	Compile    bool
	Link       bool
	Command    string
	Dest       string
	Sources    []string
	Templates  string
}

const (
	DefaultImageExts  = ".png, .pdf, .jpg"
	DefaultSourceExts = ".tex"
	DefaultCommand    = "pdflatex main.tex"
	DefaultDest       = "build"
)

// DefaultOptions returns the options used when neither the configuration
// file nor the command line say otherwise.
func DefaultOptions() Options {
	return Options{
		ImageExts:  SplitExtensions(DefaultImageExts),
		SourceExts: SplitExtensions(DefaultSourceExts),
		Command:    DefaultCommand,
		Dest:       DefaultDest,
	}
}

// SplitExtensions parses a comma separated extension list such as
// ".tex, .txt". Empty items are dropped and a missing leading dot is added.
func SplitExtensions(s string) []string {
	out := []string{}
	for _, e := range strings.Split(s, ",") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}

// SplitList parses a comma separated list of paths.
func SplitList(s string) []string {
	out := []string{}
	for _, v := range strings.Split(s, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// HasExt reports whether ext is listed in exts. The match is case-sensitive.
func HasExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
