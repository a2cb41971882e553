package npm

import "strings"

// PackageInfo is the registry document for one package name.
type PackageInfo struct {
	Name     string              `json:"name"`
	DistTags map[string]string   `json:"dist-tags"`
	Versions map[string]*Version `json:"versions"`
}

// Version is the registry metadata of one published version.
type Version struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Dist            Dist              `json:"dist"`
}

// Dist describes where a version's tarball lives.
type Dist struct {
	Tarball   string `json:"tarball"`
	Shasum    string `json:"shasum"`
	Integrity string `json:"integrity"`
}

// Version returns the metadata of version v.
func (p *PackageInfo) Version(v string) (*Version, bool) {
	ver, ok := p.Versions[v]
	return ver, ok && ver != nil
}

// PublishedVersions returns every published version string, in no
// particular order.
func (p *PackageInfo) PublishedVersions() []string {
	out := make([]string, 0, len(p.Versions))
	for v := range p.Versions {
		out = append(out, v)
	}
	return out
}

// Tag returns the version a dist-tag points at.
func (p *PackageInfo) Tag(tag string) (string, bool) {
	v, ok := p.DistTags[tag]
	return v, ok && v != ""
}

// Basename strips the scope from a package name: "@babel/core" becomes "core".
func Basename(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// escapeName encodes a package name for the metadata endpoint. Scoped names
// keep the leading "@" and encode the separator.
func escapeName(name string) string {
	return strings.Replace(name, "/", "%2f", 1)
}
