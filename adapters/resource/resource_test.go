package resource

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	apperrors "github.com/Skryldev/bitmap-decoder/errors"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	t.Helper()
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(b)
}

func TestFS_Open(t *testing.T) {
	fsys := fstest.MapFS{
		"res/drawable/test01.png": &fstest.MapFile{Data: []byte("png-bytes")},
		"res/drawable/logo.jpg":   &fstest.MapFile{Data: []byte("jpg-bytes")},
		"res/secret.txt":          &fstest.MapFile{Data: []byte("secret")},
	}
	s := NewFS(fsys, "/res/", "png", ".jpg")

	tests := []struct {
		id   string
		want string
	}{
		{"drawable/test01.png", "png-bytes"},
		{"drawable/test01", "png-bytes"},
		{"drawable/logo", "jpg-bytes"},
		{"/drawable/logo.jpg", "jpg-bytes"},
		{"../res/drawable/logo.jpg", ""}, // cleaned to res/res/... which does not exist
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rc, err := s.Open(context.Background(), tt.id)
			if tt.want == "" {
				if !errors.Is(err, apperrors.ErrSourceUnreadable) {
					t.Fatalf("got %v, want ErrSourceUnreadable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if got := readAll(t, rc); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFS_Exists(t *testing.T) {
	s := NewFS(fstest.MapFS{"a/b.gif": &fstest.MapFile{Data: []byte("x")}}, "a", "gif")

	if ok, err := s.Exists(context.Background(), "b"); err != nil || !ok {
		t.Errorf("Exists(b): got %v, %v", ok, err)
	}
	if ok, err := s.Exists(context.Background(), "missing"); err != nil || ok {
		t.Errorf("Exists(missing): got %v, %v", ok, err)
	}
	if _, err := s.Exists(context.Background(), ""); err == nil {
		t.Error("Exists(\"\"): expected error for empty id")
	}
}

func TestFS_CancelledContext(t *testing.T) {
	s := NewFS(fstest.MapFS{"a.png": &fstest.MapFile{Data: []byte("x")}}, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Open(ctx, "a.png"); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "icons"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "icons", "a.bmp"), []byte("bmp"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := NewDir(root)
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}

	rc, err := d.Open(context.Background(), "icons/a.bmp")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := readAll(t, rc); got != "bmp" {
		t.Errorf("got %q", got)
	}

	// Traversal is clamped to the root.
	rc, err = d.Open(context.Background(), "../../icons/a.bmp")
	if err != nil {
		t.Fatalf("Open traversal: %v", err)
	}
	rc.Close()

	_, err = d.Open(context.Background(), "icons/none.bmp")
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, apperrors.ErrSourceUnreadable) {
		t.Errorf("missing: got %v", err)
	}
	if _, err := d.Open(context.Background(), " "); !errors.Is(err, apperrors.ErrSourceUnreadable) {
		t.Errorf("blank id: got %v", err)
	}

	if ok, _ := d.Exists(context.Background(), "icons/a.bmp"); !ok {
		t.Error("Exists: want true")
	}
	if ok, _ := d.Exists(context.Background(), "icons"); ok {
		t.Error("Exists(dir): want false")
	}
}

func TestNewDir_Invalid(t *testing.T) {
	if _, err := NewDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("expected error for missing directory")
	}
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDir(f); err == nil {
		t.Error("expected error for regular file")
	}
}

type fakeObjects struct {
	objects map[string][]byte
	keys    []string
}

func (f *fakeObjects) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f.keys = append(f.keys, bucket+":"+key)
	b, ok := f.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (f *fakeObjects) HeadObject(_ context.Context, _, key string) (bool, error) {
	_, ok := f.objects[key]
	return ok, nil
}

func TestS3(t *testing.T) {
	client := &fakeObjects{objects: map[string][]byte{"assets/img/a.webp": []byte("webp")}}
	s, err := NewS3(client, "media", "/assets/")
	if err != nil {
		t.Fatalf("NewS3: %v", err)
	}

	rc, err := s.Open(context.Background(), "img/a.webp")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := readAll(t, rc); got != "webp" {
		t.Errorf("got %q", got)
	}
	if client.keys[0] != "media:assets/img/a.webp" {
		t.Errorf("key: got %q", client.keys[0])
	}

	if _, err := s.Open(context.Background(), "img/b.webp"); !errors.Is(err, apperrors.ErrSourceUnreadable) {
		t.Errorf("missing: got %v", err)
	}
	if ok, _ := s.Exists(context.Background(), "/img/a.webp"); !ok {
		t.Error("Exists: want true")
	}
}

func TestNewS3_Invalid(t *testing.T) {
	if _, err := NewS3(nil, "b", ""); err == nil {
		t.Error("expected error for nil client")
	}
	if _, err := NewS3(&fakeObjects{}, "", ""); err == nil {
		t.Error("expected error for empty bucket")
	}
}
