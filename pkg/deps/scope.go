package deps

// Scope maps package names to the references pinned by a branch's
// ancestors. The zero value is the empty scope. Scopes are immutable and
// safe to share between goroutines.
type Scope struct {
	head *binding
}

type binding struct {
	name, ref string
	next      *binding
}

// With returns s extended by name -> ref. A later binding shadows an
// earlier one for the same name.
func (s Scope) With(name, ref string) Scope {
	return Scope{head: &binding{name: name, ref: ref, next: s.head}}
}

// Get returns the reference pinned for name.
func (s Scope) Get(name string) (string, bool) {
	for b := s.head; b != nil; b = b.next {
		if b.name == name {
			return b.ref, true
		}
	}
	return "", false
}

// Satisfies reports whether req is already provided by s: the pinned
// reference equals req's, or req is a range the pinned version satisfies.
func (s Scope) Satisfies(req Request) bool {
	pinned, ok := s.Get(req.Name)
	if !ok {
		return false
	}
	if pinned == req.Reference {
		return true
	}
	return Classify(req.Reference) == KindRange && satisfies(pinned, req.Reference)
}
