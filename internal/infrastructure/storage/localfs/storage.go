// Package localfs stores blobs as regular files in one flat directory.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tayaladitya/dyslexofly/internal/core/domain"
	"github.com/tayaladitya/dyslexofly/internal/core/ports"
)

const tempPrefix = ".partial-"

type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, fmt.Errorf("storage dir is empty")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve storage dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: abs}, nil
}

func (s *Storage) Root() string {
	return s.basePath
}

// PathFor returns the absolute path a blob named name would be stored at.
func (s *Storage) PathFor(name string) string {
	return filepath.Join(s.basePath, filepath.Base(name))
}

// Save writes data under name. The file becomes visible only once fully written.
func (s *Storage) Save(ctx context.Context, name string, data io.Reader) (string, error) {
	w, path, err := s.Create(ctx, name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Abort()
		return "", domain.WrapError(domain.ErrIOFailure, "save file", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return path, nil
}

// Create opens a writer for name. Closing it publishes the file at the returned path.
func (s *Storage) Create(_ context.Context, name string) (ports.BlobWriter, string, error) {
	if err := validName(name); err != nil {
		return nil, "", err
	}
	f, err := os.CreateTemp(s.basePath, tempPrefix+"*")
	if err != nil {
		return nil, "", domain.WrapError(domain.ErrIOFailure, "create file", err)
	}
	path := s.PathFor(name)
	return &pendingFile{File: f, target: path}, path, nil
}

func (s *Storage) Open(_ context.Context, path string) (io.ReadCloser, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return f, nil
}

// List returns regular files in the area ordered by path. Temp files of unpublished
// writes are included with Pending set; one left behind by a crash is only ever
// reclaimed through this listing.
func (s *Storage) List(_ context.Context) ([]domain.FileEntry, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrIOFailure, "list files", err)
	}

	out := make([]domain.FileEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, domain.FileEntry{
			Path:    filepath.Join(s.basePath, e.Name()),
			ModTime: info.ModTime(),
			Size:    info.Size(),
			Pending: strings.HasPrefix(e.Name(), tempPrefix),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Remove deletes path. A missing file is reported with an error satisfying
// errors.Is(err, fs.ErrNotExist).
func (s *Storage) Remove(_ context.Context, path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}

// Contains reports whether path lies directly inside the area.
func (s *Storage) Contains(path string) bool {
	_, err := s.resolve(path)
	return err == nil
}

func (s *Storage) resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.basePath, path)
	}
	clean := filepath.Clean(path)
	if filepath.Dir(clean) != s.basePath {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve path", fmt.Errorf("%s is outside %s", path, s.basePath))
	}
	return clean, nil
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name || strings.HasPrefix(name, tempPrefix) {
		return domain.WrapError(domain.ErrInvalidInput, "validate name", fmt.Errorf("invalid file name %q", name))
	}
	return nil
}

type pendingFile struct {
	*os.File
	target string
	done   bool
}

func (p *pendingFile) Close() error {
	if p.done {
		return nil
	}
	p.done = true
	if err := p.File.Close(); err != nil {
		_ = os.Remove(p.File.Name())
		return domain.WrapError(domain.ErrIOFailure, "close file", err)
	}
	if err := os.Rename(p.File.Name(), p.target); err != nil {
		_ = os.Remove(p.File.Name())
		return domain.WrapError(domain.ErrIOFailure, "publish file", err)
	}
	return nil
}

// Abort discards the partial file. It is a no-op after Close.
func (p *pendingFile) Abort() error {
	if p.done {
		return nil
	}
	p.done = true
	_ = p.File.Close()
	if err := os.Remove(p.File.Name()); err != nil {
		return fmt.Errorf("discard partial file: %w", err)
	}
	return nil
}
