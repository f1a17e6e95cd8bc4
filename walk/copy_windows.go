//go:build windows

package walk

import (
	"os"

	"github.com/google/renameio/v2/maybe"
)

func copyFile(src, dst string) error {
	stat, err := os.Stat(src)
	if err != nil {
		return err
	}
	buf, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return maybe.WriteFile(dst, buf, stat.Mode().Perm())
}
