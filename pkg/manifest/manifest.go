package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	errs "github.com/matzehuels/stackpm/pkg/errors"
)

// FileName is the manifest file name inside a package or project.
const FileName = "package.json"

// Lifecycle scripts run by the linker, in execution order.
var LifecycleScripts = []string{"preinstall", "install", "postinstall"}

// Manifest is the decoded subset of a package.json.
type Manifest struct {
	Name            string
	Version         string
	Dependencies    map[string]string
	DevDependencies map[string]string
	Bin             map[string]string // executable name -> path relative to the package root
	Scripts         map[string]string
}

type rawManifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Bin             json.RawMessage   `json:"bin"`
	Scripts         map[string]string `json:"scripts"`
}

// Parse decodes a package.json document.
func Parse(data []byte) (*Manifest, error) {
	return ParseFor(data, "")
}

// ParseFor is Parse for a package installed as name. A manifest without a
// name of its own takes name, which also keys a string-valued bin.
func ParseFor(data []byte, name string) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "decode %s", FileName)
	}
	if raw.Name == "" {
		raw.Name = name
	}

	bin, err := normalizeBin(raw.Name, raw.Bin)
	if err != nil {
		return nil, err
	}

	return &Manifest{
		Name:            raw.Name,
		Version:         raw.Version,
		Dependencies:    raw.Dependencies,
		DevDependencies: raw.DevDependencies,
		Bin:             bin,
		Scripts:         raw.Scripts,
	}, nil
}

// ReadFile parses the manifest at path.
func ReadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "no %s found", path)
		}
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "read %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Read parses the package.json in dir.
func Read(dir string) (*Manifest, error) {
	return ReadFile(filepath.Join(dir, FileName))
}

// Script returns the command of a lifecycle script.
func (m *Manifest) Script(name string) (string, bool) {
	cmd, ok := m.Scripts[name]
	return cmd, ok && cmd != ""
}

// normalizeBin converts the tagged "bin" value into its map form.
func normalizeBin(pkgName string, raw json.RawMessage) (map[string]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil, nil
		}
		if pkgName == "" {
			return nil, errs.New(errs.ErrCodeInvalidManifest, "bin is a string but the package has no name")
		}
		return map[string]string{BinName(pkgName): single}, nil
	}

	var many map[string]string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "bin must be a string or an object of strings")
	}
	for name := range many {
		if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
			return nil, errs.New(errs.ErrCodeInvalidManifest, "invalid bin name %q", name)
		}
	}
	return many, nil
}

// BinName returns the executable name npm derives from a package name:
// the name itself, or the part after the scope for scoped packages.
func BinName(pkgName string) string {
	if strings.HasPrefix(pkgName, "@") {
		if i := strings.Index(pkgName, "/"); i >= 0 {
			return pkgName[i+1:]
		}
	}
	return pkgName
}
