package walk

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/adnsv/dyntex/model"
	"github.com/adnsv/dyntex/render"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	calls []string
	err   error
}

func (f *fakeRenderer) RenderFile(src, destDir string, ctx model.Context) error {
	f.calls = append(f.calls, src)
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(filepath.Join(destDir, filepath.Base(src)), []byte("rendered "+filepath.Base(src)), 0644)
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for fn, content := range files {
		fn = filepath.Join(root, filepath.FromSlash(fn))
		require.NoError(t, os.MkdirAll(filepath.Dir(fn), 0755))
		require.NoError(t, os.WriteFile(fn, []byte(content), 0644))
	}
}

// listTree returns the slash separated paths of all files below root.
func listTree(t *testing.T, root string) []string {
	t.Helper()
	out := []string{}
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(root, path)
			out = append(out, filepath.ToSlash(rel))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func readFile(t *testing.T, fn string) string {
	t.Helper()
	buf, err := os.ReadFile(fn)
	require.NoError(t, err)
	return string(buf)
}

func newWalker(r Renderer, ctx model.Context) *Walker {
	return &Walker{
		Renderer:   r,
		Context:    ctx,
		SourceExts: []string{".tex"},
	}
}

func TestMirrorNesting(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "doc")
	writeTree(t, src, map[string]string{
		"main.tex":        "main",
		"sub/chapter.tex": "chapter",
		"sub/figure.png":  "png",
	})
	dest := filepath.Join(base, "build")

	r := &fakeRenderer{}
	report, err := newWalker(r, nil).Process([]string{src + string(filepath.Separator)}, dest)
	require.NoError(t, err)

	want := []string{"doc/main.tex", "doc/sub/chapter.tex", "doc/sub/figure.png"}
	if diff := cmp.Diff(want, listTree(t, dest)); diff != "" {
		t.Errorf("build tree mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, "png", readFile(t, filepath.Join(dest, "doc", "sub", "figure.png")))
	require.Equal(t, "rendered chapter.tex", readFile(t, filepath.Join(dest, "doc", "sub", "chapter.tex")))
	require.Len(t, report.Rendered, 2)
	require.Equal(t, []string{filepath.Join(dest, "doc", "sub", "figure.png")}, report.Copied)
}

func TestSiblingDirectories(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "doc")
	writeTree(t, src, map[string]string{
		"a/one.png":   "1",
		"b/two.png":   "2",
		"b/c/three.x": "3",
		"z.tex":       "z",
	})
	dest := filepath.Join(base, "out")

	_, err := newWalker(&fakeRenderer{}, nil).Process([]string{src}, dest)
	require.NoError(t, err)
	require.Equal(t, []string{"doc/a/one.png", "doc/b/c/three.x", "doc/b/two.png", "doc/z.tex"}, listTree(t, dest))
}

func TestProcessFileSources(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, map[string]string{
		"src/main.tex": "main",
		"src/logo.png": "logo",
	})
	dest := filepath.Join(base, "build")

	_, err := newWalker(&fakeRenderer{}, nil).Process([]string{
		filepath.Join(base, "src", "main.tex"),
		filepath.Join(base, "src", "logo.png"),
	}, dest)
	require.NoError(t, err)
	require.Equal(t, []string{"logo.png", "main.tex"}, listTree(t, dest))
}

func TestIdempotence(t *testing.T) {
	base := t.TempDir()
	src := filepath.Join(base, "doc")
	writeTree(t, src, map[string]string{
		"main.tex":       "\\title{ {{ info.name }} }\n",
		"verbatim.tex":   "\\section{Plain} 100% \\\\\n",
		"img/logo.png":   "png",
		"data/some.csv":  "a,1\n",
		"data/table.tex": "{{ tabular(\"some.csv\") }}",
	})
	dest := filepath.Join(base, "build")

	e, err := render.NewEngine(render.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	w := newWalker(e, model.Context{"info": {"name": "Report"}})

	_, err = w.Process([]string{src}, dest)
	require.NoError(t, err)
	first := map[string]string{}
	for _, fn := range listTree(t, dest) {
		first[fn] = readFile(t, filepath.Join(dest, fn))
	}
	require.Equal(t, "\\title{ Report }\n", first["doc/main.tex"])
	require.Equal(t, "\\section{Plain} 100% \\\\\n", first["doc/verbatim.tex"])
	require.Equal(t, "a & 1.00 \\\\", first["doc/data/table.tex"])

	// plain files already present are left alone
	logo := filepath.Join(dest, "doc", "img", "logo.png")
	require.NoError(t, os.WriteFile(logo, []byte("edited"), 0644))

	report, err := w.Process([]string{src}, dest)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{logo, filepath.Join(dest, "doc", "data", "some.csv")}, report.Skipped)
	require.Empty(t, report.Copied)
	require.Len(t, report.Rendered, 3)

	for fn, content := range first {
		if fn == "doc/img/logo.png" {
			continue
		}
		require.Equal(t, content, readFile(t, filepath.Join(dest, filepath.FromSlash(fn))), fn)
	}
	require.Equal(t, "edited", readFile(t, logo))
}

func TestLinkMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges")
	}
	base := t.TempDir()
	src := filepath.Join(base, "doc")
	writeTree(t, src, map[string]string{
		"main.tex":     "main",
		"img/logo.png": "png",
	})
	dest := filepath.Join(base, "build")

	w := newWalker(&fakeRenderer{}, nil)
	w.Link = true
	report, err := w.Process([]string{src}, dest)
	require.NoError(t, err)

	logo := filepath.Join(dest, "doc", "img", "logo.png")
	require.Equal(t, []string{logo}, report.Linked)
	target, err := os.Readlink(logo)
	require.NoError(t, err)
	require.True(t, filepath.IsAbs(target))
	require.Equal(t, filepath.Join(src, "img", "logo.png"), target)

	st, err := os.Lstat(filepath.Join(dest, "doc", "main.tex"))
	require.NoError(t, err)
	require.True(t, st.Mode().IsRegular(), "templates are always rendered to regular files")

	// second run keeps the existing link
	report, err = w.Process([]string{src}, dest)
	require.NoError(t, err)
	require.Equal(t, []string{logo}, report.Skipped)
}

func TestSkipsDestination(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.tex":        "main",
		"figs/a.png":      "a",
		"build/stale.log": "old",
	})
	dest := filepath.Join(root, "build")

	_, err := newWalker(&fakeRenderer{}, nil).Process([]string{root}, dest)
	require.NoError(t, err)

	name := filepath.Base(root)
	require.Equal(t, []string{
		name + "/figs/a.png",
		name + "/main.tex",
		"stale.log",
	}, listTree(t, dest))
}

func TestCopyKeepsMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	base := t.TempDir()
	src := filepath.Join(base, "run.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/sh\n"), 0755))
	dest := filepath.Join(base, "build")

	_, err := newWalker(&fakeRenderer{}, nil).Process([]string{src}, dest)
	require.NoError(t, err)
	st, err := os.Stat(filepath.Join(dest, "run.sh"))
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0755), st.Mode().Perm())
}

func TestErrors(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, map[string]string{"doc/a.tex": "a", "doc/b.tex": "b"})

	_, err := newWalker(&fakeRenderer{}, nil).Process([]string{filepath.Join(base, "missing")}, filepath.Join(base, "build"))
	require.ErrorIs(t, err, os.ErrNotExist)

	boom := errors.New("boom")
	r := &fakeRenderer{err: boom}
	_, err = newWalker(r, nil).Process([]string{filepath.Join(base, "doc")}, filepath.Join(base, "build"))
	require.ErrorIs(t, err, boom)
	require.Len(t, r.calls, 1, "the first failure stops the walk")
}

func TestUnsupportedEntriesAreSkipped(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix sockets")
	}
	base, err := os.MkdirTemp("", "dt")
	require.NoError(t, err)
	defer os.RemoveAll(base)

	writeTree(t, base, map[string]string{"d/a.png": "a"})
	l, err := net.Listen("unix", filepath.Join(base, "d", "s"))
	require.NoError(t, err)
	defer l.Close()

	dest := filepath.Join(base, "b")
	_, err = newWalker(&fakeRenderer{}, nil).Process([]string{filepath.Join(base, "d")}, dest)
	require.NoError(t, err)
	require.Equal(t, []string{"d/a.png"}, listTree(t, dest))
}
