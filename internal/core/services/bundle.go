package services

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"vision-platform-client/internal/core/domain"
	output "vision-platform-client/internal/core/ports/output"
)

const archiveExt = ".tar.gz"

// packDir writes dir as a gzip-compressed tar stream with paths relative to dir.
func packDir(dir string, w io.Writer) error {
	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == "." {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if d.IsDir() {
			hdr.Name += "/"
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

// unpack extracts a stream written by packDir into dir. Entries escaping
// dir make the archive corrupt.
func unpack(r io.Reader, dir string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
		}

		target := filepath.Join(dir, filepath.FromSlash(hdr.Name))
		if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
			return fmt.Errorf("%w: entry %q escapes the archive", domain.ErrArchiveCorrupt, hdr.Name)
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return fmt.Errorf("%w: %v", domain.ErrArchiveCorrupt, err)
			}
			if err := f.Close(); err != nil {
				return err
			}
		}
	}
}

// storeDir packs dir and stores it content-addressed as <sha256>.tar.gz.
func (o *Orchestrator) storeDir(ctx context.Context, dir string) (*domain.ArchiveRef, error) {
	if o.archives == nil {
		return nil, domain.ErrArchiveStoreNotConfigured
	}

	tmp, err := os.CreateTemp(o.workDir, "archive-*"+archiveExt)
	if err != nil {
		return nil, fmt.Errorf("create archive file: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	h := sha256.New()
	if err := packDir(dir, io.MultiWriter(tmp, h)); err != nil {
		return nil, fmt.Errorf("pack %s: %w", dir, err)
	}
	size, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	sum := hex.EncodeToString(h.Sum(nil))
	ref, err := o.archives.Put(ctx, sum+archiveExt, tmp, size)
	if err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}
	ref.Checksum = sum
	return ref, nil
}

// fetchDir opens ref from store, verifies its checksum and extracts it into
// a fresh staging directory. Callers remove the directory.
func (o *Orchestrator) fetchDir(ctx context.Context, store output.ArchiveStore, ref domain.ArchiveRef) (string, error) {
	if store == nil {
		return "", domain.ErrArchiveStoreNotConfigured
	}

	rc, err := store.Open(ctx, ref)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dir, err := os.MkdirTemp(o.workDir, "import-*")
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}

	h := sha256.New()
	if err := unpack(io.TeeReader(rc, h), dir); err != nil {
		os.RemoveAll(dir)
		return "", err
	}
	// gzip may stop before trailing bytes; hash the full stream
	if _, err := io.Copy(h, rc); err != nil {
		os.RemoveAll(dir)
		return "", err
	}

	sum := hex.EncodeToString(h.Sum(nil))
	want := ref.Checksum
	if base := strings.TrimSuffix(filepath.Base(ref.Name), archiveExt); want == "" && isSHA256(base) {
		want = base
	}
	if want != "" && want != sum {
		os.RemoveAll(dir)
		return "", fmt.Errorf("%s: %w", ref.Name, domain.ErrChecksumMismatch)
	}
	return dir, nil
}

func isSHA256(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
