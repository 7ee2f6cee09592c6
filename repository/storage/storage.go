package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for file names that could escape the upload root.
var ErrInvalidName = errors.New("invalid file name")

type Storage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Open(name string) (*os.File, error)
	DeleteByURL(ref string) (bool, error)
	URL(name string) string
}

type localStorage struct {
	root      string
	urlPrefix string
}

// NewLocalStorage stores files flat under dir and addresses them as
// urlPrefix + name.
func NewLocalStorage(dir, urlPrefix string) (Storage, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		urlPrefix += "/"
	}
	return &localStorage{root: root, urlPrefix: urlPrefix}, nil
}

func (s *localStorage) URL(name string) string {
	return s.urlPrefix + name
}

// Save writes r to a new file and returns its public URL. An existing file
// with the same name is never overwritten.
func (s *localStorage) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	if !validName(name) {
		return "", ErrInvalidName
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(s.root, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return s.URL(name), nil
}

// Open returns os.ErrNotExist for missing files and ErrInvalidName for names
// with separators or dot segments.
func (s *localStorage) Open(name string) (*os.File, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

// DeleteByURL removes the file behind an image reference. References that
// resolve outside the upload root are skipped, and a missing file is not an
// error. It reports whether a file was removed.
func (s *localStorage) DeleteByURL(ref string) (bool, error) {
	path, ok := s.resolve(ref)
	if !ok {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// resolve maps ref under the root and checks the result is a strict
// descendant of it.
func (s *localStorage) resolve(ref string) (string, bool) {
	rel := strings.TrimPrefix(ref, s.urlPrefix)
	if rel == "" {
		return "", false
	}
	path, err := filepath.Abs(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return "", false
	}
	inside, err := filepath.Rel(s.root, path)
	if err != nil || inside == "." || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}

func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..")
}
