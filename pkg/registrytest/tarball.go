package registrytest

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"time"

	"github.com/klauspost/compress/gzip"
)

// File is a tarball entry. Mode defaults to 0644.
type File struct {
	Body string
	Mode int64
}

// BuildTarball creates a gzip-compressed tar with every entry rooted under
// wrapper (npm uses "package"). Entries are written in sorted order so the
// output is deterministic.
func BuildTarball(wrapper string, files map[string]File) []byte {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	mtime := time.Date(1985, 10, 26, 8, 15, 0, 0, time.UTC)
	for _, name := range slices.Sorted(maps.Keys(files)) {
		f := files[name]
		mode := f.Mode
		if mode == 0 {
			mode = 0o644
		}
		hdr := &tar.Header{
			Name:     wrapper + "/" + name,
			Mode:     mode,
			Size:     int64(len(f.Body)),
			ModTime:  mtime,
			Typeflag: tar.TypeReg,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			panic(err)
		}
		if _, err := tw.Write([]byte(f.Body)); err != nil {
			panic(err)
		}
	}

	if err := tw.Close(); err != nil {
		panic(err)
	}
	if err := gz.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Tarball builds the archive for pkg: a generated package.json plus
// pkg.Files, wrapped in "package/".
func (p Package) Tarball() []byte {
	files := maps.Clone(p.Files)
	if files == nil {
		files = make(map[string]File)
	}
	manifest, err := json.MarshalIndent(p.manifest(), "", "  ")
	if err != nil {
		panic(err)
	}
	files["package.json"] = File{Body: string(manifest)}
	return BuildTarball("package", files)
}
