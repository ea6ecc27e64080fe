// Package resource provides ResourceStore implementations.
package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/Skryldev/bitmap-decoder/core"
	apperrors "github.com/Skryldev/bitmap-decoder/errors"
)

// ErrNotFound is returned when a resource id does not resolve.
var ErrNotFound = errors.New("resource not found")

// FS resolves resource ids inside an fs.FS, typically an embed.FS compiled
// into the binary.  Ids are slash-separated paths relative to Prefix.
type FS struct {
	fsys   fs.FS
	prefix string
	exts   []string
}

// NewFS creates an FS store.  When exts is non-empty, an id without an
// extension is tried with each of them in order, so "icons/logo" can match
// "icons/logo.png".
func NewFS(fsys fs.FS, prefix string, exts ...string) *FS {
	return &FS{fsys: fsys, prefix: strings.Trim(prefix, "/"), exts: exts}
}

func (s *FS) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Unreadable("fs.open", err)
	}
	name, err := s.resolve(id)
	if err != nil {
		return nil, apperrors.New(apperrors.CategorySourceUnreadable, "fs.open", err)
	}
	f, err := s.fsys.Open(name)
	if err != nil {
		return nil, apperrors.Unreadable("fs.open", err)
	}
	return f, nil
}

// Exists reports whether id resolves to a regular file.
func (s *FS) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperrors.Unreadable("fs.exists", err)
	}
	_, err := s.resolve(id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *FS) resolve(id string) (string, error) {
	clean := path.Clean("/" + id)[1:]
	if clean == "" || !fs.ValidPath(clean) {
		return "", fmt.Errorf("invalid resource id %q", id)
	}
	name := clean
	if s.prefix != "" {
		name = s.prefix + "/" + clean
	}
	candidates := []string{name}
	if path.Ext(name) == "" {
		for _, ext := range s.exts {
			candidates = append(candidates, name+"."+strings.TrimPrefix(ext, "."))
		}
	}
	for _, c := range candidates {
		fi, err := fs.Stat(s.fsys, c)
		if err == nil && fi.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, id)
}

var _ core.ResourceStore = (*FS)(nil)
