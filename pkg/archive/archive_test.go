package archive_test

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/stackpm/pkg/archive"
	errs "github.com/matzehuels/stackpm/pkg/errors"
	"github.com/matzehuels/stackpm/pkg/registrytest"
)

func sample() []byte {
	return registrytest.BuildTarball("package", map[string]registrytest.File{
		"package.json":  {Body: `{"name":"demo","version":"1.0.0"}`},
		"lib/index.js":  {Body: "module.exports = 1\n"},
		"bin/cli.js":    {Body: "#!/bin/sh\necho hi\n", Mode: 0o755},
		"deep/a/b/c.md": {Body: "c"},
	})
}

type entry struct {
	hdr  tar.Header
	body string
}

func rawTarball(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		hdr := e.hdr
		hdr.Size = int64(len(e.body))
		if hdr.Mode == 0 {
			hdr.Mode = 0o644
		}
		if err := tw.WriteHeader(&hdr); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(e.body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadFile(t *testing.T) {
	data := sample()

	got, err := archive.ReadFile(data, "package.json", 1)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(got) != `{"name":"demo","version":"1.0.0"}` {
		t.Errorf("ReadFile() = %s", got)
	}

	if _, err := archive.ReadFile(data, "package/package.json", 0); err != nil {
		t.Errorf("ReadFile() without strip error: %v", err)
	}

	if _, err := archive.ReadFile(data, "missing.json", 1); !errors.Is(err, archive.ErrNotInArchive) {
		t.Errorf("ReadFile(missing) error = %v, want ErrNotInArchive", err)
	}
}

func TestReadFileArbitraryWrapper(t *testing.T) {
	data := registrytest.BuildTarball("node", map[string]registrytest.File{
		"package.json": {Body: "{}"},
	})
	if _, err := archive.ReadFile(data, "package.json", 1); err != nil {
		t.Errorf("ReadFile() error: %v", err)
	}
}

func TestExtract(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "out")
	if err := archive.Extract(context.Background(), sample(), dest, 1); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}

	for _, rel := range []string{"package.json", "lib/index.js", "deep/a/b/c.md"} {
		if _, err := os.Stat(filepath.Join(dest, rel)); err != nil {
			t.Errorf("missing %s: %v", rel, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dest, "package")); !os.IsNotExist(err) {
		t.Errorf("wrapper directory should be stripped, stat err = %v", err)
	}

	info, err := os.Stat(filepath.Join(dest, "bin/cli.js"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("bin/cli.js mode = %v, want executable", info.Mode())
	}
}

func TestExtractOverwrites(t *testing.T) {
	dest := t.TempDir()
	for range 2 {
		if err := archive.Extract(context.Background(), sample(), dest, 1); err != nil {
			t.Fatalf("Extract() error: %v", err)
		}
	}
}

func TestExtractSymlink(t *testing.T) {
	data := rawTarball(t,
		entry{hdr: tar.Header{Name: "package/real.js", Typeflag: tar.TypeReg}, body: "x"},
		entry{hdr: tar.Header{Name: "package/alias.js", Typeflag: tar.TypeSymlink, Linkname: "real.js"}},
	)
	dest := t.TempDir()
	if err := archive.Extract(context.Background(), data, dest, 1); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dest, "alias.js"))
	if err != nil || string(got) != "x" {
		t.Errorf("alias.js = %q, %v", got, err)
	}
}

func TestExtractInvalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not gzip", []byte("definitely not a tarball")},
		{"truncated", sample()[:40]},
		{"path traversal", rawTarball(t, entry{hdr: tar.Header{Name: "package/../../evil", Typeflag: tar.TypeReg}, body: "x"})},
		{"absolute symlink", rawTarball(t, entry{hdr: tar.Header{Name: "package/link", Typeflag: tar.TypeSymlink, Linkname: "/etc/passwd"}})},
		{"escaping symlink", rawTarball(t, entry{hdr: tar.Header{Name: "package/link", Typeflag: tar.TypeSymlink, Linkname: "../../outside"}})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := archive.Extract(context.Background(), tt.data, t.TempDir(), 1)
			if !errs.Is(err, errs.ErrCodeArchive) {
				t.Errorf("Extract() error = %v, want %s", err, errs.ErrCodeArchive)
			}
		})
	}
}

func TestExtractCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := archive.Extract(ctx, sample(), t.TempDir(), 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Extract() error = %v, want context.Canceled", err)
	}
}

func TestExtractSymlinkChain(t *testing.T) {
	sym := func(name, target string) entry {
		return entry{hdr: tar.Header{Name: name, Typeflag: tar.TypeSymlink, Linkname: target}}
	}
	file := func(name string) entry {
		return entry{hdr: tar.Header{Name: name, Typeflag: tar.TypeReg}, body: "x"}
	}

	tests := []struct {
		name    string
		entries []entry
	}{
		{"link below link", []entry{sym("package/b", "."), sym("package/b/c", ".."), file("package/c/evil")}},
		{"link through link", []entry{sym("package/b", "."), sym("package/d", "b/../evil")}},
		{"file below link", []entry{file("package/real/keep"), sym("package/alias", "real"), file("package/alias/evil")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			modules := filepath.Join(t.TempDir(), "node_modules")
			dest := filepath.Join(modules, "pkg")
			err := archive.Extract(context.Background(), rawTarball(t, tt.entries...), dest, 1)
			if !errs.Is(err, errs.ErrCodeArchive) {
				t.Errorf("Extract() error = %v, want %s", err, errs.ErrCodeArchive)
			}
			if _, err := os.Lstat(filepath.Join(modules, "evil")); !os.IsNotExist(err) {
				t.Errorf("entry escaped destination, stat err = %v", err)
			}
			if _, err := os.Stat(filepath.Join(dest, "real", "evil")); !os.IsNotExist(err) {
				t.Errorf("entry written below symlink, stat err = %v", err)
			}
		})
	}
}

func TestExtractSymlinkToDirectory(t *testing.T) {
	data := rawTarball(t,
		entry{hdr: tar.Header{Name: "package/lib/index.js", Typeflag: tar.TypeReg}, body: "x"},
		entry{hdr: tar.Header{Name: "package/dist", Typeflag: tar.TypeSymlink, Linkname: "lib"}},
		entry{hdr: tar.Header{Name: "package/bin/run", Typeflag: tar.TypeSymlink, Linkname: "../lib/index.js"}},
	)
	dest := t.TempDir()
	if err := archive.Extract(context.Background(), data, dest, 1); err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	for _, rel := range []string{"dist/index.js", "bin/run"} {
		got, err := os.ReadFile(filepath.Join(dest, rel))
		if err != nil || string(got) != "x" {
			t.Errorf("%s = %q, %v", rel, got, err)
		}
	}
}
