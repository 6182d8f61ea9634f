package presence

import (
	"hash/maphash"
	"sort"
	"sync"
	"sync/atomic"
)

// Handle is a live, server-held delivery endpoint for one client
// connection. The gateway owns the underlying transport; the registry
// only addresses it.
type Handle interface {
	// ID uniquely identifies this connection instance. Two connections
	// for the same identity have distinct IDs.
	ID() string

	// Push queues an already-encoded event for delivery. It must not
	// block; delivery is best effort.
	Push(data []byte) error
}

// shardCount must be a power of two for mask-based shard selection.
const shardCount = 32

type shard struct {
	mu      sync.RWMutex
	entries map[string]map[string]Handle // identity -> handle id -> handle
}

// Registry is the in-memory source of truth for which identities hold
// open connections. It is sharded so connection lifecycles for
// different identities do not contend on one lock.
//
// An identity may hold several live handles at once (multiple tabs or
// devices); deregistration removes only the named handle, which also
// guards against a stale disconnect racing a newer connection.
type Registry struct {
	shards   [shardCount]*shard
	hashSeed maphash.Seed
	size     atomic.Int64 // total live handles
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{hashSeed: maphash.MakeSeed()}
	for i := range r.shards {
		r.shards[i] = &shard{entries: make(map[string]map[string]Handle)}
	}
	return r
}

func (r *Registry) shardFor(identity string) *shard {
	h := maphash.String(r.hashSeed, identity)
	return r.shards[h&(shardCount-1)]
}

// Register adds a handle for the identity. Registering a second handle
// for an already-present identity adds it alongside the first; reusing
// a handle ID overwrites the previous entry for that ID.
func (r *Registry) Register(identity string, h Handle) {
	s := r.shardFor(identity)

	s.mu.Lock()
	set := s.entries[identity]
	if set == nil {
		set = make(map[string]Handle, 1)
		s.entries[identity] = set
	}
	if _, exists := set[h.ID()]; !exists {
		r.size.Add(1)
	}
	set[h.ID()] = h
	s.mu.Unlock()
}

// Deregister removes the handle from the identity's entry. It is a
// no-op when the stored handle for that ID is not the one being
// removed, so a disconnect event for a replaced connection can never
// evict its successor.
func (r *Registry) Deregister(identity string, h Handle) {
	s := r.shardFor(identity)

	s.mu.Lock()
	if set, ok := s.entries[identity]; ok {
		if stored, ok := set[h.ID()]; ok && stored == h {
			delete(set, h.ID())
			r.size.Add(-1)
			if len(set) == 0 {
				delete(s.entries, identity)
			}
		}
	}
	s.mu.Unlock()
}

// Lookup returns all live handles for the identity, or nil when it is
// not connected.
func (r *Registry) Lookup(identity string) []Handle {
	s := r.shardFor(identity)

	s.mu.RLock()
	set := s.entries[identity]
	if len(set) == 0 {
		s.mu.RUnlock()
		return nil
	}
	handles := make([]Handle, 0, len(set))
	for _, h := range set {
		handles = append(handles, h)
	}
	s.mu.RUnlock()
	return handles
}

// IsOnline reports whether the identity holds at least one live handle.
func (r *Registry) IsOnline(identity string) bool {
	s := r.shardFor(identity)

	s.mu.RLock()
	_, ok := s.entries[identity]
	s.mu.RUnlock()
	return ok
}

// Identities returns the sorted set of identities with a live handle.
// The result is a snapshot; it is recomputed in full on every call.
func (r *Registry) Identities() []string {
	ids := make([]string, 0, r.size.Load())
	for i := range r.shards {
		s := r.shards[i]
		s.mu.RLock()
		for identity := range s.entries {
			ids = append(ids, identity)
		}
		s.mu.RUnlock()
	}
	sort.Strings(ids)
	return ids
}

// ForEach calls fn for every live handle. Per-shard snapshots are taken
// so fn never runs under a registry lock.
func (r *Registry) ForEach(fn func(identity string, h Handle)) {
	type entry struct {
		identity string
		handle   Handle
	}
	var all []entry
	for i := range r.shards {
		s := r.shards[i]
		s.mu.RLock()
		for identity, set := range s.entries {
			for _, h := range set {
				all = append(all, entry{identity, h})
			}
		}
		s.mu.RUnlock()
	}
	for _, e := range all {
		fn(e.identity, e.handle)
	}
}

// Size returns the total number of live handles.
func (r *Registry) Size() int {
	return int(r.size.Load())
}
