package deps

import (
	"maps"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Request asks for a package by name and reference.
type Request struct {
	Name      string
	Reference string
}

// String returns "name@reference".
func (r Request) String() string { return r.Name + "@" + r.Reference }

// Kind classifies a reference.
type Kind int

const (
	KindVersion Kind = iota // exact semver version, e.g. "1.2.3"
	KindRange               // semver range, e.g. "^1.2.0" or "*"
	KindTag                 // dist-tag, e.g. "latest"
	KindPath                // local filesystem path
	KindURL                 // http(s) tarball URL
)

func (k Kind) String() string {
	switch k {
	case KindVersion:
		return "version"
	case KindRange:
		return "range"
	case KindTag:
		return "tag"
	case KindPath:
		return "path"
	case KindURL:
		return "url"
	default:
		return "unknown"
	}
}

// Classify returns the kind of ref. An empty reference is the any-version
// range, as in package.json.
func Classify(ref string) Kind {
	switch {
	case IsPath(ref):
		return KindPath
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return KindURL
	}
	if _, err := semver.StrictNewVersion(ref); err == nil {
		return KindVersion
	}
	if _, err := parseRange(ref); err == nil {
		return KindRange
	}
	return KindTag
}

// IsPath reports whether ref is a local filesystem path.
func IsPath(ref string) bool {
	return strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "./") || strings.HasPrefix(ref, "../")
}

// IsPinned reports whether ref can be fetched without consulting the
// registry: an exact version, a local path or a URL.
func IsPinned(ref string) bool {
	switch Classify(ref) {
	case KindVersion, KindPath, KindURL:
		return true
	}
	return false
}

// FromMap turns a package.json dependency map into requests, sorted by name.
func FromMap(m map[string]string) []Request {
	out := make([]Request, 0, len(m))
	for _, name := range slices.Sorted(maps.Keys(m)) {
		out = append(out, Request{Name: name, Reference: m[name]})
	}
	return out
}

func parseRange(ref string) (*semver.Constraints, error) {
	if strings.TrimSpace(ref) == "" {
		ref = "*"
	}
	return semver.NewConstraint(ref)
}

// satisfies reports whether version satisfies the range ref.
func satisfies(version, ref string) bool {
	v, err := semver.StrictNewVersion(version)
	if err != nil {
		return false
	}
	c, err := parseRange(ref)
	if err != nil {
		return false
	}
	return c.Check(v)
}

// maxSatisfying returns the highest version in versions that satisfies ref.
func maxSatisfying(versions []string, ref string) (string, bool) {
	c, err := parseRange(ref)
	if err != nil {
		return "", false
	}
	var best *semver.Version
	bestRaw := ""
	for _, raw := range versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil || !c.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best, bestRaw = v, raw
		}
	}
	return bestRaw, best != nil
}
