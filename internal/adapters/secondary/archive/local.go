package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

// LocalStore keeps archives as files in one directory.
type LocalStore struct {
	dir string
}

var _ output.ArchiveStore = (*LocalStore)(nil)

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory %s: %w", dir, err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &LocalStore{dir: abs}, nil
}

func (s *LocalStore) path(name string) (string, error) {
	clean := filepath.Base(filepath.FromSlash(name))
	if clean == "." || clean == string(os.PathSeparator) || clean != name {
		return "", fmt.Errorf("invalid archive name %q: %w", name, domain.ErrValidation)
	}
	return filepath.Join(s.dir, clean), nil
}

// Put writes through a temporary file so readers never see a partial archive.
func (s *LocalStore) Put(_ context.Context, name string, r io.Reader, _ int64) (*domain.ArchiveRef, error) {
	dest, err := s.path(name)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write archive %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{"path": dest, "size": n}).Debug("archive stored")
	return &domain.ArchiveRef{
		Name: name,
		URI:  (&url.URL{Scheme: "file", Path: filepath.ToSlash(dest)}).String(),
		Size: n,
	}, nil
}

func (s *LocalStore) resolve(ref domain.ArchiveRef) (string, error) {
	name := ref.Name
	if name == "" && strings.HasPrefix(ref.URI, "file://") {
		u, err := url.Parse(ref.URI)
		if err != nil {
			return "", fmt.Errorf("invalid archive uri %q: %w", ref.URI, domain.ErrValidation)
		}
		name = filepath.Base(filepath.FromSlash(u.Path))
	}
	return s.path(name)
}

func (s *LocalStore) Open(_ context.Context, ref domain.ArchiveRef) (io.ReadCloser, error) {
	p, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ref.Name, domain.ErrArchiveNotFound)
	}
	return f, err
}

func (s *LocalStore) Delete(_ context.Context, ref domain.ArchiveRef) error {
	p, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
