package registrytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

// Package describes one published version.
type Package struct {
	Name            string
	Version         string
	Dependencies    map[string]string
	DevDependencies map[string]string
	Bin             any               // string or map[string]string, as in package.json
	Scripts         map[string]string // lifecycle scripts
	Files           map[string]File   // extra archive entries, relative to the package root
}

func (p Package) manifest() map[string]any {
	m := map[string]any{
		"name":    p.Name,
		"version": p.Version,
	}
	if len(p.Dependencies) > 0 {
		m["dependencies"] = p.Dependencies
	}
	if len(p.DevDependencies) > 0 {
		m["devDependencies"] = p.DevDependencies
	}
	if p.Bin != nil {
		m["bin"] = p.Bin
	}
	if len(p.Scripts) > 0 {
		m["scripts"] = p.Scripts
	}
	return m
}

// Registry is a fake npm registry backed by httptest.Server.
type Registry struct {
	server *httptest.Server

	mu       sync.Mutex
	packages map[string]map[string]Package // name -> version -> package
	tags     map[string]map[string]string  // name -> tag -> version
	tarballs map[string][]byte             // tarball path -> bytes
	requests map[string]int                // path -> count
	failures map[string]int                // path -> remaining injected failures
	delay    time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
}

// New starts a registry and registers its shutdown with t.Cleanup.
func New(t testing.TB) *Registry {
	t.Helper()
	r := &Registry{
		packages: make(map[string]map[string]Package),
		tags:     make(map[string]map[string]string),
		tarballs: make(map[string][]byte),
		requests: make(map[string]int),
		failures: make(map[string]int),
	}

	router := chi.NewRouter()
	router.Use(r.track)
	router.Get("/*", r.serve)
	r.server = httptest.NewServer(router)
	t.Cleanup(r.server.Close)
	return r
}

// URL returns the registry base URL.
func (r *Registry) URL() string { return r.server.URL }

// Publish adds pkg to the registry. The latest dist-tag follows the most
// recently published version.
func (r *Registry) Publish(pkgs ...Package) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, pkg := range pkgs {
		if r.packages[pkg.Name] == nil {
			r.packages[pkg.Name] = make(map[string]Package)
			r.tags[pkg.Name] = make(map[string]string)
		}
		r.packages[pkg.Name][pkg.Version] = pkg
		r.tags[pkg.Name]["latest"] = pkg.Version
		r.tarballs[TarballPath(pkg.Name, pkg.Version)] = pkg.Tarball()
	}
}

// Tag points a dist-tag of name at version.
func (r *Registry) Tag(name, tag, version string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tags[name] == nil {
		r.tags[name] = make(map[string]string)
	}
	r.tags[name][tag] = version
}

// FailNext makes the next n requests for path answer 500.
func (r *Registry) FailNext(path string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[path] = n
}

// SetDelay adds latency to every response.
func (r *Registry) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

// Requests returns how many requests path has received.
func (r *Registry) Requests(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests[path]
}

// TarballRequests returns the number of tarball downloads served or attempted.
func (r *Registry) TarballRequests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for path, n := range r.requests {
		if strings.Contains(path, "/-/") {
			total += n
		}
	}
	return total
}

// PeakInFlight returns the highest number of simultaneous requests observed.
func (r *Registry) PeakInFlight() int { return int(r.peak.Load()) }

// TarballPath returns the registry path of a tarball.
func TarballPath(name, version string) string {
	base := name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		base = name[i+1:]
	}
	return "/" + name + "/-/" + base + "-" + version + ".tgz"
}

// MetadataPath returns the registry path of a package document.
func MetadataPath(name string) string { return "/" + name }

func (r *Registry) track(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		n := r.inFlight.Add(1)
		defer r.inFlight.Add(-1)
		for {
			p := r.peak.Load()
			if n <= p || r.peak.CompareAndSwap(p, n) {
				break
			}
		}

		path := req.URL.Path
		r.mu.Lock()
		r.requests[path]++
		fail := r.failures[path] > 0
		if fail {
			r.failures[path]--
		}
		delay := r.delay
		r.mu.Unlock()

		if delay > 0 {
			select {
			case <-time.After(delay):
			case <-req.Context().Done():
				return
			}
		}
		if fail {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Registry) serve(w http.ResponseWriter, req *http.Request) {
	path := req.URL.Path
	if strings.Contains(path, "/-/") {
		r.serveTarball(w, path)
		return
	}
	r.serveMetadata(w, strings.TrimPrefix(path, "/"))
}

func (r *Registry) serveTarball(w http.ResponseWriter, path string) {
	r.mu.Lock()
	data, ok := r.tarballs[path]
	r.mu.Unlock()
	if !ok {
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (r *Registry) serveMetadata(w http.ResponseWriter, name string) {
	r.mu.Lock()
	versions, ok := r.packages[name]
	doc := map[string]any{}
	if ok {
		vs := make(map[string]any, len(versions))
		for v, pkg := range versions {
			m := pkg.manifest()
			m["dist"] = map[string]string{"tarball": r.server.URL + TarballPath(name, v)}
			vs[v] = m
		}
		doc["name"] = name
		doc["dist-tags"] = r.tags[name]
		doc["versions"] = vs
	}
	r.mu.Unlock()

	if !ok {
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(doc)
}
