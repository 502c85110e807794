package mount

import "sync"

// ErrAlreadyExists is returned by Create when path already maps to a
// Mount, regardless of that Mount's mounted state, per spec §4.5.
type ErrAlreadyExists struct{ Path string }

func (e ErrAlreadyExists) Error() string { return "mount already exists: " + e.Path }

// Registry is the process-wide mapping from URL path to Mount, per spec
// §2 and §4.5. Its mutex guards only the map itself — never a socket
// write — per spec §5.
type Registry struct {
	mu     sync.Mutex
	mounts map[string]*Mount
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{mounts: make(map[string]*Mount)}
}

// Create registers a new Mount at path. It fails with ErrAlreadyExists if
// path is already registered, matching the ANNOUNCE contract in spec
// §4.2 (a second ANNOUNCE for a live path is rejected even if the first
// hasn't RECORDed yet).
func (r *Registry) Create(path string, sdp []byte) (*Mount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.mounts[path]; ok {
		return nil, ErrAlreadyExists{Path: path}
	}
	m := NewMount(path, sdp)
	r.mounts[path] = m
	return m, nil
}

// Lookup returns the Mount at path, if any.
func (r *Registry) Lookup(path string) (*Mount, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mounts[path]
	return m, ok
}

// Unmount removes path's registry entry and clears the Mount's mounted
// state atomically with respect to Lookup, satisfying invariant 1: any
// two distinct Mount values observed at path must be separated by an
// Unmount call.
func (r *Registry) Unmount(path string) {
	r.mu.Lock()
	m, ok := r.mounts[path]
	if ok {
		delete(r.mounts, path)
	}
	r.mu.Unlock()
	if ok {
		m.Unmount()
	}
}

// UnmountIfOwnedBy removes path only if its current owning Source
// connection is connID, so a stale TEARDOWN or disconnect from a
// connection that already lost the race can't unmount a newer publisher.
func (r *Registry) UnmountIfOwnedBy(path, connID string) {
	r.mu.Lock()
	m, ok := r.mounts[path]
	if ok && m.SourceConn() == connID {
		delete(r.mounts, path)
	} else {
		ok = false
	}
	r.mu.Unlock()
	if ok {
		m.Unmount()
	}
}
