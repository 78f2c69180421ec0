package zk

import "time"

// protocolVersion is the only wire version this client speaks.
const protocolVersion = 0

// defaultPort is used when a connect-string endpoint omits one.
const defaultPort = 2181

// bufferSize bounds a single framed record this client will read or write.
const bufferSize = 1 << 20

// Queue depths, chosen as the backpressure points between the session's
// goroutines and its callers.
const (
	sendQueueSize  = 2000
	eventQueueSize = 64
)

const protectedPrefix = "_c_"

// reserved XIDs classify a reply before it ever reaches the pending-response table.
const (
	watcherXid     int32 = -1
	pingXid        int32 = -2
	authXid        int32 = -4
	setWatchesXid  int32 = -8
	firstCallerXid int32 = 1
)

// opcode is the wire operation code carried in every RequestHeader.
type opcode int32

const (
	opNotification opcode = 0
	opCreate       opcode = 1
	opDelete       opcode = 2
	opExists       opcode = 3
	opGetData      opcode = 4
	opSetData      opcode = 5
	opGetACL       opcode = 6
	opSetACL       opcode = 7
	opGetChildren  opcode = 8
	opSync         opcode = 9
	opPing         opcode = 11
	opGetChildren2 opcode = 12
	opCheckWatches opcode = 17
	opRemoveWatches opcode = 18
	opCreateContainer opcode = 19
	opCreateTTL    opcode = 21
	opSetAuth      opcode = 100
	opSetWatches   opcode = 101
	opGetEphemerals       opcode = 103
	opGetAllChildrenNumber opcode = 104
	opAddWatch     opcode = 106
	opCreateSession opcode = -10
	opCloseSession opcode = -11
)

func (o opcode) String() string {
	switch o {
	case opNotification:
		return "notification"
	case opCreate, opCreateContainer, opCreateTTL:
		return "create"
	case opDelete:
		return "delete"
	case opExists:
		return "exists"
	case opGetData:
		return "getData"
	case opSetData:
		return "setData"
	case opGetACL:
		return "getACL"
	case opSetACL:
		return "setACL"
	case opGetChildren, opGetChildren2:
		return "getChildren"
	case opPing:
		return "ping"
	case opCheckWatches:
		return "checkWatches"
	case opRemoveWatches:
		return "removeWatches"
	case opSetAuth:
		return "setAuth"
	case opSetWatches:
		return "setWatches"
	case opGetEphemerals:
		return "getEphemerals"
	case opGetAllChildrenNumber:
		return "getAllChildrenNumber"
	case opAddWatch:
		return "addWatch"
	case opCreateSession:
		return "createSession"
	case opCloseSession:
		return "closeSession"
	default:
		return "unknown"
	}
}

// State is the session's position in the NotConnected → Connecting →
// Connected{ReadWrite|ReadOnly} → Closed|AuthFailed state machine.
type State int32

const (
	StateNotConnected State = iota
	StateConnecting
	StateConnected
	StateConnectedReadOnly
	StateClosed
	StateAuthFailed
)

func (s State) String() string {
	switch s {
	case StateNotConnected:
		return "NotConnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateConnectedReadOnly:
		return "ConnectedReadOnly"
	case StateClosed:
		return "Closed"
	case StateAuthFailed:
		return "AuthFailed"
	default:
		return "Unknown"
	}
}

// IsConnected reports whether public operations may be submitted.
func (s State) IsConnected() bool {
	return s == StateConnected || s == StateConnectedReadOnly
}

// KeeperState is the server-reported connection state carried on every
// WatchedEvent — distinct from the client's own State above.
type KeeperState int32

const (
	KeeperStateUnknown           KeeperState = -1
	KeeperStateDisconnected      KeeperState = 0
	KeeperStateNoSyncConnected   KeeperState = 1
	KeeperStateSyncConnected     KeeperState = 3
	KeeperStateAuthFailed        KeeperState = 4
	KeeperStateConnectedReadOnly KeeperState = 5
	KeeperStateSaslAuthenticated KeeperState = 6
	KeeperStateExpired           KeeperState = -112
)

// EventType identifies the kind of change a WatchedEvent reports.
type EventType int32

const (
	EventNone                   EventType = 0
	EventNodeCreated            EventType = 1
	EventNodeDeleted            EventType = 2
	EventNodeDataChanged        EventType = 3
	EventNodeChildrenChanged    EventType = 4
	EventDataWatchRemoved       EventType = 5
	EventChildWatchRemoved      EventType = 6
	EventPersistentWatchRemoved EventType = 7
)

func (e EventType) String() string {
	switch e {
	case EventNone:
		return "None"
	case EventNodeCreated:
		return "NodeCreated"
	case EventNodeDeleted:
		return "NodeDeleted"
	case EventNodeDataChanged:
		return "NodeDataChanged"
	case EventNodeChildrenChanged:
		return "NodeChildrenChanged"
	case EventDataWatchRemoved:
		return "DataWatchRemoved"
	case EventChildWatchRemoved:
		return "ChildWatchRemoved"
	case EventPersistentWatchRemoved:
		return "PersistentWatchRemoved"
	default:
		return "Unknown"
	}
}

// CreateMode selects a node's lifetime and naming behavior on create.
type CreateMode int32

const (
	ModePersistent CreateMode = iota
	ModeEphemeral
	ModePersistentSequential
	ModeEphemeralSequential
	ModeContainer
	ModePersistentWithTTL
	ModePersistentSequentialWithTTL
)

func (m CreateMode) IsEphemeral() bool {
	return m == ModeEphemeral || m == ModeEphemeralSequential
}

func (m CreateMode) IsSequential() bool {
	switch m {
	case ModePersistentSequential, ModeEphemeralSequential, ModePersistentSequentialWithTTL:
		return true
	default:
		return false
	}
}

func (m CreateMode) IsTTL() bool {
	return m == ModePersistentWithTTL || m == ModePersistentSequentialWithTTL
}

// opcode used for a given CreateMode: containers and TTL nodes carry their
// own opcodes on the wire, everything else goes through opCreate with the
// mode folded into the flags field.
func (m CreateMode) opcode() opcode {
	switch {
	case m == ModeContainer:
		return opCreateContainer
	case m.IsTTL():
		return opCreateTTL
	default:
		return opCreate
	}
}

// Perms is the ACL permission bitfield.
type Perms int32

const (
	PermRead   Perms = 1 << 0
	PermWrite  Perms = 1 << 1
	PermCreate Perms = 1 << 2
	PermDelete Perms = 1 << 3
	PermAdmin  Perms = 1 << 4
	PermAll    Perms = PermRead | PermWrite | PermCreate | PermDelete | PermAdmin
)

const (
	schemeWorld  = "world"
	schemeIP     = "ip"
	schemeDigest = "digest"
	idAnyone     = "anyone"
)

// AddWatchMode selects persistent vs. persistent-recursive for AddWatch.
type AddWatchMode int32

const (
	AddWatchModePersistent AddWatchMode = iota
	AddWatchModePersistentRecursive
)

// watcherKind classifies a locally registered watcher for registry lookup
// and for the wire encoding RemoveWatches/CheckWatches expects.
type watcherKind int32

const (
	watcherKindChildren watcherKind = 1
	watcherKindData     watcherKind = 2
	watcherKindAny      watcherKind = 3
)

// WatcherKind is the public name for the kind of a watcher registration.
type WatcherKind int

const (
	WatcherData WatcherKind = iota
	WatcherExists
	WatcherChild
	WatcherPersistent
	WatcherPersistentRecursive
)

func (k WatcherKind) String() string {
	switch k {
	case WatcherData:
		return "Data"
	case WatcherExists:
		return "Exists"
	case WatcherChild:
		return "Child"
	case WatcherPersistent:
		return "Persistent"
	case WatcherPersistentRecursive:
		return "PersistentRecursive"
	default:
		return "Unknown"
	}
}

// defaultKeepAliveMaxIdle bounds how long the keep-alive task will let a
// connection sit idle even for a very long negotiated timeout.
const defaultKeepAliveMaxIdle = 10 * time.Second
