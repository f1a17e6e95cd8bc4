package latex

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPDFCommandLine(t *testing.T) {
	err := BuildPDF(context.Background(), ".", "   ", nil, nil)
	require.ErrorIs(t, err, ErrEmptyCommand)

	err = BuildPDF(context.Background(), ".", `pdflatex "main.tex`, nil, nil)
	require.Error(t, err)
}

func TestBuildPDFRunsInDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses sh")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.tex"), []byte("x"), 0644))

	stdout := &bytes.Buffer{}
	err := BuildPDF(context.Background(), dir, `sh -c "ls; echo 'done here'"`, stdout, nil)
	require.NoError(t, err)
	require.Equal(t, "main.tex\ndone here\n", stdout.String())

	err = BuildPDF(context.Background(), dir, "sh -c 'exit 3'", nil, nil)
	require.Error(t, err)
	require.True(t, strings.HasPrefix(err.Error(), "sh error:"), err.Error())
}
