package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Skryldev/bitmap-decoder/core"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
)

// Dir resolves resource ids to files below a root directory.
type Dir struct {
	rootDir string
}

// NewDir creates a Dir store rooted at dir.  The directory must exist.
func NewDir(dir string) (*Dir, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("dir resources: %s: %w", dir, err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dir resources: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("dir resources: %s is not a directory", abs)
	}
	return &Dir{rootDir: abs}, nil
}

// absPath maps an id to a path that cannot escape the root.
func (d *Dir) absPath(id string) string {
	return filepath.Join(d.rootDir, filepath.Clean(string(filepath.Separator)+filepath.FromSlash(id)))
}

func (d *Dir) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unreadable("dir.open", err)
	}
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.New(apperrors.CategorySourceUnreadable, "dir.open", fmt.Errorf("empty resource id"))
	}
	f, err := os.Open(d.absPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.New(apperrors.CategorySourceUnreadable, "dir.open", fmt.Errorf("%w: %s", ErrNotFound, id))
		}
		return nil, apperrors.Unreadable("dir.open", err)
	}
	return f, nil
}

// Exists reports whether id resolves to a file.
func (d *Dir) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Unreadable("dir.exists", err)
	}
	fi, err := os.Stat(d.absPath(id))
	if err == nil {
		return fi.Mode().IsRegular(), nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, apperrors.Unreadable("dir.exists.stat", err)
}

var _ core.ResourceStore = (*Dir)(nil)
