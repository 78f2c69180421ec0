package zk

import (
	"strings"
	"sync"
)

// Event is the decoded, user-facing form of a server notification
// (a Watched event).
type Event struct {
	State KeeperState
	Type  EventType
	Path  string
}

// WatchFunc is a registered observer's callback. It is always invoked off
// the receiver goroutine, so it may safely call back into
// the Conn.
type WatchFunc func(Event)

// WatchID is the opaque handle returned at registration. Design notes
// §9 call for "a value type with a user-supplied equality key, or an
// opaque handle returned at registration" to stand in for the
// heterogeneous-trait-object callback the source models with `Box<dyn
// Watcher>`: re-registering with the same WatchID collapses onto the
// existing entry rather than adding a second one, satisfying the
// idempotent-registration invariant without requiring Go funcs to be
// comparable.
type WatchID uint64

type watchBucket map[string]map[WatchID]WatchFunc

// watchRegistry holds the five watch buckets: one-shot data,
// exists, child; persistent and persistentRecursive. Every map is guarded
// by the same mutex, which is never held across a callback invocation —
// triggerSet only computes the list of callbacks to run; the event
// dispatch task (conn.go) invokes them afterward, unlocked.
type watchRegistry struct {
	mu sync.Mutex

	data                 watchBucket
	exists               watchBucket
	child                watchBucket
	persistent           watchBucket
	persistentRecursive  watchBucket
	nextID               WatchID
	disableAutoWatchReset bool
}

func newWatchRegistry(disableAutoWatchReset bool) *watchRegistry {
	return &watchRegistry{
		data:                 make(watchBucket),
		exists:               make(watchBucket),
		child:                make(watchBucket),
		persistent:           make(watchBucket),
		persistentRecursive:  make(watchBucket),
		disableAutoWatchReset: disableAutoWatchReset,
	}
}

// register adds cb under path for the given kind. If id is zero a fresh
// WatchID is minted; otherwise the registration collapses onto any
// existing entry with that id (idempotent re-registration).
func (r *watchRegistry) register(path string, kind WatcherKind, id WatchID, cb WatchFunc) WatchID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id == 0 {
		r.nextID++
		id = r.nextID
	}

	bucket := r.bucketFor(kind)
	m, ok := bucket[path]
	if !ok {
		m = make(map[WatchID]WatchFunc)
		bucket[path] = m
	}
	m[id] = cb
	return id
}

// remove deregisters id under path for the given kind. It is a no-op if
// no such registration exists.
func (r *watchRegistry) remove(path string, kind WatcherKind, id WatchID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket := r.bucketFor(kind)
	if m, ok := bucket[path]; ok {
		delete(m, id)
		if len(m) == 0 {
			delete(bucket, path)
		}
	}
}

// removeAll deregisters every local watcher of kind registered at path —
// the local half of RemoveWatches; the caller is responsible for the
// wire-level CheckWatches request.
func (r *watchRegistry) removeAll(path string, kind watcherKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case watcherKindData:
		delete(r.data, path)
		delete(r.exists, path)
	case watcherKindChildren:
		delete(r.child, path)
	case watcherKindAny:
		delete(r.data, path)
		delete(r.exists, path)
		delete(r.child, path)
		delete(r.persistent, path)
		delete(r.persistentRecursive, path)
	}
}

func (r *watchRegistry) bucketFor(kind WatcherKind) watchBucket {
	switch kind {
	case WatcherData:
		return r.data
	case WatcherExists:
		return r.exists
	case WatcherChild:
		return r.child
	case WatcherPersistent:
		return r.persistent
	case WatcherPersistentRecursive:
		return r.persistentRecursive
	default:
		panic("zk: unknown watcher kind")
	}
}

// drain removes and returns every callback registered at path in bucket —
// the one-shot "fires at most once" step. Must be called with r.mu held.
func drain(bucket watchBucket, path string) []WatchFunc {
	m, ok := bucket[path]
	if !ok {
		return nil
	}
	out := make([]WatchFunc, 0, len(m))
	for _, cb := range m {
		out = append(out, cb)
	}
	delete(bucket, path)
	return out
}

// collect returns every callback registered at path in bucket without
// removing them — used for persistent watchers. Must be called with r.mu
// held.
func collect(bucket watchBucket, path string, out []WatchFunc) []WatchFunc {
	for _, cb := range bucket[path] {
		out = append(out, cb)
	}
	return out
}

// isAncestor reports whether a is an ancestor of (or equal to) path, per
// the recursive match rule: "/" matches every path.
func isAncestor(a, path string) bool {
	if a == path {
		return true
	}
	if a == "/" {
		return true
	}
	return strings.HasPrefix(path, a+"/")
}

// triggerSet computes the callbacks to invoke for event, per the trigger
// table. It is a pure function over the registry's
// current contents at the moment of the call: one-shot entries it touches
// are drained (removed) as part of computing the set, matching the "drain
// is atomic" invariant; persistent entries are only read.
func (r *watchRegistry) triggerSet(event Event) []WatchFunc {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []WatchFunc

	switch event.Type {
	case EventNone:
		clear := r.disableAutoWatchReset && event.State != KeeperStateSyncConnected
		out = append(out, flattenAll(r.data)...)
		out = append(out, flattenAll(r.exists)...)
		out = append(out, flattenAll(r.child)...)
		if clear {
			r.data = make(watchBucket)
			r.exists = make(watchBucket)
			r.child = make(watchBucket)
		}
		out = append(out, flattenAll(r.persistent)...)
		out = append(out, flattenAll(r.persistentRecursive)...)
		return out

	case EventNodeCreated, EventNodeDataChanged:
		out = append(out, drain(r.data, event.Path)...)
		out = append(out, drain(r.exists, event.Path)...)
		out = r.collectPersistent(event.Path, out)

	case EventNodeChildrenChanged:
		out = append(out, drain(r.child, event.Path)...)
		out = r.collectPersistent(event.Path, out)

	case EventNodeDeleted:
		out = append(out, drain(r.data, event.Path)...)
		out = append(out, drain(r.exists, event.Path)...)
		out = append(out, drain(r.child, event.Path)...)
		out = r.collectPersistent(event.Path, out)

	default:
		// DataWatchRemoved / ChildWatchRemoved / PersistentWatchRemoved carry
		// no further local trigger semantics beyond what RemoveWatches
		// already performed locally.
	}

	return out
}

// collectPersistent gathers persistent[path] and persistentRecursive[a]
// for every ancestor a of path, including path itself. Must be called with
// r.mu held.
func (r *watchRegistry) collectPersistent(path string, out []WatchFunc) []WatchFunc {
	out = collect(r.persistent, path, out)
	for a := range r.persistentRecursive {
		if isAncestor(a, path) {
			for _, cb := range r.persistentRecursive[a] {
				out = append(out, cb)
			}
		}
	}
	return out
}

func flattenAll(bucket watchBucket) []WatchFunc {
	var out []WatchFunc
	for _, m := range bucket {
		for _, cb := range m {
			out = append(out, cb)
		}
	}
	return out
}
