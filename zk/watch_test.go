package zk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter() (WatchFunc, *int) {
	n := 0
	return func(Event) { n++ }, &n
}

func TestRegisterMintsNewIDWhenZero(t *testing.T) {
	r := newWatchRegistry(false)
	cb, _ := newCounter()
	id1 := r.register("/a", WatcherData, 0, cb)
	id2 := r.register("/a", WatcherData, 0, cb)
	assert.NotEqual(t, id1, id2)
}

func TestRegisterWithExplicitIDCollapses(t *testing.T) {
	r := newWatchRegistry(false)
	cb1, n1 := newCounter()
	cb2, n2 := newCounter()

	id := r.register("/a", WatcherData, 0, cb1)
	r.register("/a", WatcherData, id, cb2)

	fired := r.triggerSet(Event{Type: EventNodeDataChanged, Path: "/a"})
	require.Len(t, fired, 1)
	fired[0](Event{})
	assert.Equal(t, 0, *n1)
	assert.Equal(t, 1, *n2)
}

func TestDataWatchFiresOnceOnDataChanged(t *testing.T) {
	r := newWatchRegistry(false)
	cb, n := newCounter()
	r.register("/a", WatcherData, 0, cb)

	fired := r.triggerSet(Event{Type: EventNodeDataChanged, Path: "/a"})
	require.Len(t, fired, 1)
	fired[0](Event{})
	assert.Equal(t, 1, *n)

	// one-shot: a second event at the same path finds nothing left.
	fired = r.triggerSet(Event{Type: EventNodeDataChanged, Path: "/a"})
	assert.Empty(t, fired)
}

func TestExistsWatchFiresOnNodeCreated(t *testing.T) {
	r := newWatchRegistry(false)
	cb, n := newCounter()
	r.register("/a", WatcherExists, 0, cb)

	fired := r.triggerSet(Event{Type: EventNodeCreated, Path: "/a"})
	require.Len(t, fired, 1)
	fired[0](Event{})
	assert.Equal(t, 1, *n)
}

func TestChildWatchFiresOnChildrenChanged(t *testing.T) {
	r := newWatchRegistry(false)
	cb, n := newCounter()
	r.register("/a", WatcherChild, 0, cb)

	fired := r.triggerSet(Event{Type: EventNodeChildrenChanged, Path: "/a"})
	require.Len(t, fired, 1)
	fired[0](Event{})
	assert.Equal(t, 1, *n)

	fired = r.triggerSet(Event{Type: EventNodeDataChanged, Path: "/a"})
	assert.Empty(t, fired, "child watch must not fire on data change")
}

func TestNodeDeletedDrainsAllThreeOneShotBuckets(t *testing.T) {
	r := newWatchRegistry(false)
	dataCb, dataN := newCounter()
	existsCb, existsN := newCounter()
	childCb, childN := newCounter()
	r.register("/a", WatcherData, 0, dataCb)
	r.register("/a", WatcherExists, 0, existsCb)
	r.register("/a", WatcherChild, 0, childCb)

	fired := r.triggerSet(Event{Type: EventNodeDeleted, Path: "/a"})
	require.Len(t, fired, 3)
	for _, cb := range fired {
		cb(Event{})
	}
	assert.Equal(t, 1, *dataN)
	assert.Equal(t, 1, *existsN)
	assert.Equal(t, 1, *childN)
}

func TestPersistentWatchNeverDrains(t *testing.T) {
	r := newWatchRegistry(false)
	cb, n := newCounter()
	r.register("/a", WatcherPersistent, 0, cb)

	for i := 0; i < 3; i++ {
		fired := r.triggerSet(Event{Type: EventNodeDataChanged, Path: "/a"})
		require.Len(t, fired, 1)
		fired[0](Event{})
	}
	assert.Equal(t, 3, *n)
}

func TestPersistentRecursiveFiresForDescendants(t *testing.T) {
	r := newWatchRegistry(false)
	cb, n := newCounter()
	r.register("/a", WatcherPersistentRecursive, 0, cb)

	fired := r.triggerSet(Event{Type: EventNodeDataChanged, Path: "/a/b/c"})
	require.Len(t, fired, 1)
	fired[0](Event{})
	assert.Equal(t, 1, *n)

	fired = r.triggerSet(Event{Type: EventNodeDeleted, Path: "/a/other"})
	require.Len(t, fired, 1)
	fired[0](Event{})
	assert.Equal(t, 2, *n)
}

func TestPersistentRecursiveRootMatchesEverything(t *testing.T) {
	r := newWatchRegistry(false)
	cb, n := newCounter()
	r.register("/", WatcherPersistentRecursive, 0, cb)

	fired := r.triggerSet(Event{Type: EventNodeCreated, Path: "/x/y/z"})
	require.Len(t, fired, 1)
	fired[0](Event{})
	assert.Equal(t, 1, *n)
}

func TestEventNoneFlattensEveryBucketWithoutDraining(t *testing.T) {
	r := newWatchRegistry(false)
	dataCb, dataN := newCounter()
	persistentCb, persistentN := newCounter()
	r.register("/a", WatcherData, 0, dataCb)
	r.register("/b", WatcherPersistent, 0, persistentCb)

	fired := r.triggerSet(Event{Type: EventNone, State: KeeperStateSyncConnected})
	require.Len(t, fired, 2)
	for _, cb := range fired {
		cb(Event{})
	}
	assert.Equal(t, 1, *dataN)
	assert.Equal(t, 1, *persistentN)

	// disableAutoWatchReset is false and state is SyncConnected, so
	// one-shot entries are not cleared: a second EventNone still finds them.
	fired = r.triggerSet(Event{Type: EventNone, State: KeeperStateSyncConnected})
	assert.Len(t, fired, 2)
}

func TestEventNoneClearsOneShotWhenAutoResetDisabledAndDisconnected(t *testing.T) {
	r := newWatchRegistry(true)
	dataCb, _ := newCounter()
	persistentCb, persistentN := newCounter()
	r.register("/a", WatcherData, 0, dataCb)
	r.register("/b", WatcherPersistent, 0, persistentCb)

	fired := r.triggerSet(Event{Type: EventNone, State: KeeperStateDisconnected})
	require.Len(t, fired, 2)

	// one-shot buckets were cleared; only the persistent watcher survives.
	fired = r.triggerSet(Event{Type: EventNone, State: KeeperStateDisconnected})
	require.Len(t, fired, 1)
	fired[0](Event{})
	assert.Equal(t, 1, *persistentN)
}

func TestRemoveAllDataClearsDataAndExistsNotChild(t *testing.T) {
	r := newWatchRegistry(false)
	dataCb, _ := newCounter()
	existsCb, _ := newCounter()
	childCb, childN := newCounter()
	r.register("/a", WatcherData, 0, dataCb)
	r.register("/a", WatcherExists, 0, existsCb)
	r.register("/a", WatcherChild, 0, childCb)

	r.removeAll("/a", watcherKindData)

	fired := r.triggerSet(Event{Type: EventNodeDeleted, Path: "/a"})
	require.Len(t, fired, 1)
	fired[0](Event{})
	assert.Equal(t, 1, *childN)
}

func TestRemoveAllAnyClearsPersistentToo(t *testing.T) {
	r := newWatchRegistry(false)
	cb, _ := newCounter()
	r.register("/a", WatcherPersistent, 0, cb)

	r.removeAll("/a", watcherKindAny)

	fired := r.triggerSet(Event{Type: EventNodeDataChanged, Path: "/a"})
	assert.Empty(t, fired)
}

func TestIsAncestor(t *testing.T) {
	assert.True(t, isAncestor("/", "/a/b"))
	assert.True(t, isAncestor("/a", "/a"))
	assert.True(t, isAncestor("/a", "/a/b"))
	assert.False(t, isAncestor("/a", "/ab"))
	assert.False(t, isAncestor("/a/b", "/a"))
}
