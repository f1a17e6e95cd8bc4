//go:build !windows

package walk

import (
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog/log"
)

// copyFile copies src to dst through a pending file that atomically
// replaces dst. The copy keeps the permission bits of src.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	stat, err := in.Stat()
	if err != nil {
		return err
	}

	pending, err := renameio.NewPendingFile(dst, renameio.WithPermissions(stat.Mode().Perm()))
	if err != nil {
		return fmt.Errorf("create pending file for %s: %w", dst, err)
	}
	defer func() {
		if err := pending.Cleanup(); err != nil {
			log.Debug().Err(err).Str("dst", dst).Msg("cleanup pending file")
		}
	}()

	if _, err := io.Copy(pending, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	return nil
}
