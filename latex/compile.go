package latex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"
)

// ErrEmptyCommand is returned when the compiler command line has no words.
var ErrEmptyCommand = errors.New("empty compiler command")

// BuildPDF runs the document compiler command inside dir, typically the
// build directory. The command line is split with shell quoting rules but
// not passed to a shell.
func BuildPDF(ctx context.Context, dir, command string, stdout, stderr io.Writer) error {
	args, err := shellquote.Split(command)
	if err != nil {
		return fmt.Errorf("compiler command %q: %w", command, err)
	}
	if len(args) == 0 {
		return ErrEmptyCommand
	}

	log.Info().Str("dir", dir).Str("command", command).Msg("compiling")

	x := exec.CommandContext(ctx, args[0], args[1:]...)
	x.Stdout = stdout
	x.Stderr = stderr
	x.Dir = dir
	if err = x.Run(); err != nil {
		return fmt.Errorf("%s error: %w", args[0], err)
	}
	return nil
}
