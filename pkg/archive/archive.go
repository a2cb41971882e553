package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	errs "github.com/matzehuels/stackpm/pkg/errors"
)

// ErrNotInArchive is returned by [ReadFile] when no entry matches.
var ErrNotInArchive = errors.New("file not in archive")

// ReadFile returns the contents of the entry whose path, after stripping
// strip leading components, equals name.
func ReadFile(data []byte, name string, strip int) ([]byte, error) {
	want := path.Clean(name)
	found := false
	var out []byte
	err := walk(data, func(hdr *tar.Header, rel string, r io.Reader) (bool, error) {
		if rel != want || !isRegular(hdr) {
			return true, nil
		}
		b, err := io.ReadAll(r)
		if err != nil {
			return false, err
		}
		out, found = b, true
		return false, nil
	}, strip)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotInArchive, name)
	}
	return out, nil
}

// Extract unpacks data into dest, creating it if needed. Regular files,
// directories and symlinks are materialized; other entry types are skipped.
// Entries that would land outside dest, directly or through a symlink, are
// rejected, and nothing is written beneath a symlink.
func Extract(ctx context.Context, data []byte, dest string, strip int) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return errs.Wrap(errs.ErrCodeArchive, err, "create %s", dest)
	}
	root, err := os.OpenRoot(dest)
	if err != nil {
		return errs.Wrap(errs.ErrCodeArchive, err, "open %s", dest)
	}
	defer root.Close()

	return walk(data, func(hdr *tar.Header, rel string, r io.Reader) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir, tar.TypeReg, tar.TypeSymlink:
		default:
			return true, nil
		}
		if err := checkParents(root, hdr.Name, path.Dir(rel)); err != nil {
			return false, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			return true, mkdirAll(root, rel)
		case tar.TypeReg:
			if err := mkdirAll(root, path.Dir(rel)); err != nil {
				return false, err
			}
			return true, writeFile(root, rel, r, hdr.FileInfo().Mode())
		default:
			if err := checkLink(root, hdr.Name, path.Dir(rel), hdr.Linkname); err != nil {
				return false, err
			}
			if err := mkdirAll(root, path.Dir(rel)); err != nil {
				return false, err
			}
			target := filepath.Join(dest, filepath.FromSlash(rel))
			if err := os.Symlink(hdr.Linkname, target); err != nil && !errors.Is(err, fs.ErrExist) {
				return false, err
			}
			return true, nil
		}
	}, strip)
}

// checkParents fails when any existing component of dir is a symlink.
func checkParents(root *os.Root, name, dir string) error {
	cur := "."
	for _, p := range strings.Split(dir, "/") {
		if p == "." || p == "" {
			continue
		}
		cur = path.Join(cur, p)
		link, err := isSymlink(root, cur)
		if err != nil {
			return err
		}
		if link {
			return errs.New(errs.ErrCodeArchive, "entry %s is below symlink %s", name, cur)
		}
	}
	return nil
}

// checkLink validates the target of a symlink placed in dir. The target
// must stay inside the root and may only pass through real directories, so
// its lexical and on-disk locations agree.
func checkLink(root *os.Root, name, dir, linkname string) error {
	if linkname == "" || path.IsAbs(linkname) || filepath.IsAbs(linkname) {
		return errs.New(errs.ErrCodeArchive, "symlink %s escapes archive root", name)
	}
	if t := path.Join(dir, linkname); t == ".." || strings.HasPrefix(t, "../") {
		return errs.New(errs.ErrCodeArchive, "symlink %s escapes archive root", name)
	}

	parts := strings.Split(linkname, "/")
	cur := dir
	for _, p := range parts[:len(parts)-1] {
		cur = path.Join(cur, p)
		if p == "." || p == ".." || p == "" {
			continue
		}
		link, err := isSymlink(root, cur)
		if err != nil {
			return err
		}
		if link {
			return errs.New(errs.ErrCodeArchive, "symlink %s points through symlink %s", name, cur)
		}
	}
	return nil
}

func isSymlink(root *os.Root, rel string) (bool, error) {
	info, err := root.Lstat(filepath.FromSlash(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode()&fs.ModeSymlink != 0, nil
}

// mkdirAll creates rel and its parents inside root.
func mkdirAll(root *os.Root, rel string) error {
	cur := "."
	for _, p := range strings.Split(rel, "/") {
		if p == "." || p == "" {
			continue
		}
		cur = path.Join(cur, p)
		if err := root.Mkdir(filepath.FromSlash(cur), 0o755); err != nil && !errors.Is(err, fs.ErrExist) {
			return err
		}
	}
	return nil
}

type visitFunc func(hdr *tar.Header, rel string, r io.Reader) (cont bool, err error)

// walk iterates the entries of a gzip-compressed tar, passing each entry's
// stripped, slash-separated path. Entries with too few components are skipped.
func walk(data []byte, visit visitFunc, strip int) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return errs.Wrap(errs.ErrCodeArchive, err, "read gzip header")
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errs.Wrap(errs.ErrCodeArchive, err, "read tar entry")
		}

		rel, ok, err := stripPath(hdr.Name, strip)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}

		cont, err := visit(hdr, rel, tr)
		if err != nil {
			var e *errs.Error
			if errors.As(err, &e) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return errs.Wrap(errs.ErrCodeArchive, err, "unpack %s", hdr.Name)
		}
		if !cont {
			return nil
		}
	}
}

// stripPath drops strip leading components from name. The second result is
// false for entries that have nothing left after stripping; the error is set
// for entries containing ".." components or an absolute path.
func stripPath(name string, strip int) (string, bool, error) {
	if path.IsAbs(name) {
		return "", false, errs.New(errs.ErrCodeArchive, "entry %s escapes archive root", name)
	}
	var parts []string
	for _, p := range strings.Split(name, "/") {
		switch p {
		case "", ".":
		case "..":
			return "", false, errs.New(errs.ErrCodeArchive, "entry %s escapes archive root", name)
		default:
			parts = append(parts, p)
		}
	}
	if len(parts) <= strip {
		return "", false, nil
	}
	return path.Join(parts[strip:]...), true, nil
}

func writeFile(root *os.Root, rel string, r io.Reader, mode fs.FileMode) error {
	// Entries owned read-only in the archive still need to be overwritable
	// on reinstall.
	perm := mode.Perm() | 0o600
	f, err := root.OpenFile(filepath.FromSlash(rel), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func isRegular(hdr *tar.Header) bool {
	return hdr.Typeflag == tar.TypeReg
}
