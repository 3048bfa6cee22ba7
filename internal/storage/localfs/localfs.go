// Package localfs deletes download payloads from the local disk when the
// torrent client no longer tracks them.
package localfs

import (
	"fmt"
	"os"
	"strings"

	"torrenthub/internal/domain"
)

type FileSystem struct{}

func New() FileSystem { return FileSystem{} }

// DeletePath removes the path recursively. A missing path is not an
// error: the payload is gone either way.
func (FileSystem) DeletePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty path", domain.ErrFileSystem)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("%w: delete %s: %v", domain.ErrFileSystem, path, err)
	}
	return nil
}
