package zk

import (
	"encoding/binary"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// request is the {header?, body?, response-slot} tuple tracked while a
// call is in flight. The response slot is recv: a single-use,
// buffered-by-one rendezvous channel so the receiver goroutine's
// completion send never blocks even if the caller has stopped waiting —
// a dropped future just means nobody ever reads recv.
type request struct {
	xid    int32
	opcode opcode
	header *requestHeader
	body   interface{}
	resp   interface{}
	recv   chan error
}

// Conn is the session object: one TCP stream, four cooperating goroutines
// (sender, receiver, keep-alive, event dispatch), and the two shared
// registries (pending-response table, watcher registry).
type Conn struct {
	servers *serverList
	conn    net.Conn

	connectTimeout      time.Duration
	requestedTimeout    time.Duration
	negotiatedTimeoutMs int32 // atomic

	stateVal int32 // atomic State

	xid      int32 // atomic, nextXid() = AddInt32(&xid, 1) so values start at 1
	lastZxid int64 // atomic

	sessionID int64
	passwd    []byte

	sendChan chan *request
	sendBuf  []byte // owned by the sender goroutine only

	requestsMu sync.Mutex
	requests   map[int32]*request

	watches   *watchRegistry
	eventChan chan Event

	lastSendNano int64 // atomic, UnixNano

	shouldQuit chan struct{}
	closedCh   chan struct{}
	closeOnce  sync.Once

	metrics *Metrics
	logger  *logrus.Logger

	dial func(network, addr string, timeout time.Duration) (net.Conn, error)
}

// Option configures a Conn at construction time.
type Option func(*Conn)

// WithMetrics attaches Prometheus instrumentation (nil-safe if omitted).
func WithMetrics(m *Metrics) Option { return func(c *Conn) { c.metrics = m } }

// WithLogger overrides the package default (silent) logger for this Conn.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Conn) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDialTimeout overrides the per-endpoint TCP dial timeout (default 1s).
func WithDialTimeout(d time.Duration) Option {
	return func(c *Conn) { c.connectTimeout = d }
}

// WithDisableAutoWatchReset controls whether a None/disconnect event drains
// the one-shot watcher maps.
func WithDisableAutoWatchReset(disable bool) Option {
	return func(c *Conn) { c.watches.disableAutoWatchReset = disable }
}

// withDialFunc replaces the dialer used by handshake. Unexported: it
// exists so the package's own tests can hand Connect an in-process
// net.Pipe instead of a real TCP socket.
func withDialFunc(d func(network, addr string, timeout time.Duration) (net.Conn, error)) Option {
	return func(c *Conn) { c.dial = d }
}

// Connect parses connectString, dials the first reachable endpoint,
// performs the handshake, and starts the four background tasks.
// sessionTimeout is the client's requested timeout; the server may
// negotiate a different one (State() reflects the outcome).
func Connect(connectString string, sessionTimeout time.Duration, opts ...Option) (*Conn, error) {
	servers, err := parseConnectString(connectString)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		servers:          servers,
		connectTimeout:   time.Second,
		requestedTimeout: sessionTimeout,
		sendChan:         make(chan *request, sendQueueSize),
		sendBuf:          make([]byte, bufferSize),
		requests:         make(map[int32]*request),
		watches:          newWatchRegistry(false),
		eventChan:        make(chan Event, eventQueueSize),
		shouldQuit:       make(chan struct{}),
		closedCh:         make(chan struct{}),
		logger:           defaultLogger,
		dial:             net.DialTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.setState(StateConnecting)
	if err := c.handshake(); err != nil {
		c.setState(StateClosed)
		return nil, err
	}

	go c.senderLoop()
	go c.receiverLoop()
	go c.keepAliveLoop()
	go c.eventLoop()

	return c, nil
}

// handshake dials an endpoint from the host provider's round-robin list
// (trying each once — this module does not auto-reconnect) and performs
// the unframed-header connect exchange.
func (c *Conn) handshake() error {
	var lastErr error
	var conn net.Conn
	for i := 0; i < len(c.servers.addrs); i++ {
		addr := c.servers.next()
		dialed, err := c.dial("tcp", addr, c.connectTimeout)
		if err != nil {
			lastErr = err
			continue
		}
		conn = dialed
		break
	}
	if conn == nil {
		return errors.Wrap(lastErr, "zk: failed to connect to any configured server")
	}
	c.conn = conn

	req := &connectRequest{
		ProtocolVersion: protocolVersion,
		LastZxidSeen:    atomic.LoadInt64(&c.lastZxid),
		TimeOut:         int32(c.requestedTimeout / time.Millisecond),
		SessionID:       c.sessionID,
		Passwd:          c.passwd,
		ReadOnly:        false,
	}

	buf := make([]byte, 4096)
	n, err := encodePacket(buf[4:], req)
	if err != nil {
		return errors.Wrap(err, "zk: encode connect request failed")
	}
	binary.BigEndian.PutUint32(buf[:4], uint32(n))
	if _, err := c.conn.Write(buf[:4+n]); err != nil {
		return errors.Wrap(err, "zk: write connect request failed")
	}

	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(c.conn, lenBuf); err != nil {
		return errors.Wrap(err, "zk: read connect response length failed")
	}
	blen := int32(binary.BigEndian.Uint32(lenBuf))
	if blen < 0 || int(blen) > len(buf) {
		return errors.Wrap(ErrMarshallingError, "zk: connect response too large")
	}
	if _, err := io.ReadFull(c.conn, buf[:blen]); err != nil {
		return errors.Wrap(err, "zk: read connect response body failed")
	}

	resp := &connectResponse{}
	if _, err := decodePacket(buf[:blen], resp); err != nil {
		return errors.Wrap(err, "zk: decode connect response failed")
	}

	if resp.SessionID == 0 {
		return ErrSessionExpired
	}

	c.sessionID = resp.SessionID
	c.passwd = resp.Passwd
	atomic.StoreInt32(&c.negotiatedTimeoutMs, resp.TimeOut)
	c.setLastSend(time.Now())

	if resp.ReadOnly {
		c.setState(StateConnectedReadOnly)
	} else {
		c.setState(StateConnected)
	}
	c.logger.WithFields(logrus.Fields{"sessionID": c.sessionID, "timeoutMs": resp.TimeOut}).Debug("zk: session established")
	return nil
}

// State returns the session's current position in the state machine.
func (c *Conn) State() State {
	return State(atomic.LoadInt32(&c.stateVal))
}

func (c *Conn) setState(s State) {
	atomic.StoreInt32(&c.stateVal, int32(s))
	c.metrics.recordState(s)
}

// SessionID and SessionPassword expose the session's identity read-only,
// for an application that wants to re-present them on a future reconnect
// attempt — this module itself never re-presents them.
func (c *Conn) SessionID() int64 { return c.sessionID }
func (c *Conn) SessionPassword() []byte {
	out := make([]byte, len(c.passwd))
	copy(out, c.passwd)
	return out
}

func (c *Conn) nextXid() int32 {
	return atomic.AddInt32(&c.xid, 1)
}

func (c *Conn) setLastSend(t time.Time) {
	atomic.StoreInt64(&c.lastSendNano, t.UnixNano())
}

func (c *Conn) getLastSend() time.Time {
	return time.Unix(0, atomic.LoadInt64(&c.lastSendNano))
}

// --- sender task ----------------------------------------------------------

func (c *Conn) senderLoop() {
	for {
		select {
		case <-c.shouldQuit:
			return
		case r := <-c.sendChan:
			c.sendOne(r)
		}
	}
}

func (c *Conn) sendOne(r *request) {
	if r.xid > 0 {
		c.requestsMu.Lock()
		c.requests[r.xid] = r
		c.requestsMu.Unlock()
	}

	n := 0
	if r.header != nil {
		hn, err := encodePacket(c.sendBuf[4:], r.header)
		if err != nil {
			c.failRequest(r, errors.Wrap(err, "zk: encode request header failed"))
			return
		}
		n += hn
	}
	if r.body != nil {
		bn, err := encodePacket(c.sendBuf[4+n:], r.body)
		if err != nil {
			c.failRequest(r, errors.Wrap(err, "zk: encode request body failed"))
			return
		}
		n += bn
	}
	binary.BigEndian.PutUint32(c.sendBuf[:4], uint32(n))

	if _, err := c.conn.Write(c.sendBuf[:4+n]); err != nil {
		wrapped := errors.Wrap(err, "zk: socket write failed")
		c.failRequest(r, wrapped)
		c.closeSession(wrapped)
		return
	}
	c.setLastSend(time.Now())
}

func (c *Conn) failRequest(r *request, err error) {
	if r.xid > 0 {
		c.requestsMu.Lock()
		delete(c.requests, r.xid)
		c.requestsMu.Unlock()
	}
	if r.recv != nil {
		select {
		case r.recv <- err:
		default:
		}
	}
}

// --- receiver task ---------------------------------------------------------

func (c *Conn) receiverLoop() {
	lenBuf := make([]byte, 4)
	payload := make([]byte, bufferSize)
	for {
		if _, err := io.ReadFull(c.conn, lenBuf); err != nil {
			c.closeSession(errors.Wrap(err, "zk: read length prefix failed"))
			return
		}
		blen := int32(binary.BigEndian.Uint32(lenBuf))
		if blen < 0 || int(blen) > len(payload) {
			c.closeSession(errors.Wrap(ErrMarshallingError, "zk: implausible record length"))
			return
		}
		if _, err := io.ReadFull(c.conn, payload[:blen]); err != nil {
			c.closeSession(errors.Wrap(err, "zk: read payload failed"))
			return
		}

		var rh replyHeader
		if _, err := decodePacket(payload[:blen], &rh); err != nil {
			c.closeSession(errors.Wrap(err, "zk: decode reply header failed"))
			return
		}
		rest := payload[16:blen]

		switch rh.Xid {
		case watcherXid:
			var we watcherEvent
			if _, err := decodePacket(rest, &we); err != nil {
				c.closeSession(errors.Wrap(err, "zk: decode watcher event failed"))
				return
			}
			ev := Event{
				State: KeeperState(we.State),
				Type:  EventType(we.Type),
				Path:  c.servers.stripChroot(we.Path),
			}
			select {
			case c.eventChan <- ev:
			case <-c.shouldQuit:
				return
			}
		case pingXid, authXid, setWatchesXid:
			// discard: ping replies are unconditionally fine, and auth /
			// set-watches exchanges are out of scope: this module does not
			// auto-reconnect, so there is never a watch list to re-arm.
		default:
			if !c.completeRequest(rh, rest) {
				return
			}
		}
	}
}

// completeRequest delivers a reply to its pending request. It returns
// false if the receiver loop should stop (unrecognized xid, or the reply
// was for CloseSession).
func (c *Conn) completeRequest(rh replyHeader, body []byte) bool {
	c.requestsMu.Lock()
	req, ok := c.requests[rh.Xid]
	if ok {
		delete(c.requests, rh.Xid)
	}
	c.requestsMu.Unlock()

	if !ok {
		c.closeSession(errors.Wrapf(ErrConnectionLoss, "zk: response for unrecognized xid %d", rh.Xid))
		return false
	}

	if rh.Zxid > 0 {
		atomic.StoreInt64(&c.lastZxid, rh.Zxid)
	}

	var err error
	if rh.Err != 0 {
		err = ErrCode(rh.Err).toError()
	} else if req.resp != nil {
		if _, derr := decodePacket(body, req.resp); derr != nil {
			err = errors.Wrap(derr, "zk: decode response body failed")
		}
	}

	c.metrics.recordResponse(req.opcode, err != nil)
	if req.recv != nil {
		select {
		case req.recv <- err:
		default:
		}
	}

	if req.opcode == opCloseSession {
		c.closeSession(nil)
		return false
	}
	return true
}

// --- keep-alive task --------------------------------------------------------

func (c *Conn) keepAliveLoop() {
	for {
		negotiated := time.Duration(atomic.LoadInt32(&c.negotiatedTimeoutMs)) * time.Millisecond
		readTimeout := negotiated * 2 / 3
		idle := time.Since(c.getLastSend())

		if idle >= readTimeout/2 || idle > defaultKeepAliveMaxIdle {
			ping := &request{
				xid:    pingXid,
				opcode: opPing,
				header: &requestHeader{Xid: pingXid, Opcode: int32(opPing)},
			}
			select {
			case c.sendChan <- ping:
			case <-c.shouldQuit:
				return
			}
			select {
			case <-time.After(10 * time.Millisecond):
			case <-c.shouldQuit:
				return
			}
			continue
		}

		wait := readTimeout - idle
		if wait <= 0 {
			wait = time.Millisecond
		}
		select {
		case <-time.After(wait):
		case <-c.shouldQuit:
			return
		}
	}
}

// --- event dispatch task -----------------------------------------------------

func (c *Conn) eventLoop() {
	for {
		select {
		case <-c.shouldQuit:
			return
		case ev := <-c.eventChan:
			c.invoke(ev)
		}
	}
}

func (c *Conn) invoke(ev Event) {
	for _, cb := range c.watches.triggerSet(ev) {
		c.metrics.recordWatchFire()
		cb(ev)
	}
}

// --- shutdown --------------------------------------------------------------

// closeSession is the single path by which the session becomes Closed: a
// fatal I/O error from any background task, an unrecognized xid, or an
// explicit Close() call all funnel through here. It is idempotent.
func (c *Conn) closeSession(err error) {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		if c.conn != nil {
			_ = c.conn.Close()
		}
		close(c.shouldQuit)

		failErr := err
		if failErr == nil {
			failErr = ErrConnectionClosed
		}
		c.flushRequests(failErr)
		// The event dispatch task has already been told to quit, so the
		// final EventNone runs on its own goroutine: never on the receiver
		// or sender goroutine that may have called closeSession.
		go c.invoke(Event{State: KeeperStateDisconnected, Type: EventNone})

		if err != nil {
			c.logger.WithError(err).Debug("zk: session closed")
		}
		close(c.closedCh)
	})
}

func (c *Conn) flushRequests(err error) {
	c.requestsMu.Lock()
	defer c.requestsMu.Unlock()
	for xid, req := range c.requests {
		select {
		case req.recv <- err:
		default:
		}
		delete(c.requests, xid)
	}
}

// Close sends a best-effort CloseSession request, then tears down the
// session unconditionally. It returns once the session is Closed, the
// socket is closed and every pending request has been failed; it does not
// wait for the background goroutines to return, and the final EventNone
// dispatch to watchers may still be running. Calling Close twice is safe;
// the second call returns immediately.
func (c *Conn) Close() error {
	if c.State() == StateClosed {
		<-c.closedCh
		return nil
	}

	xid := c.nextXid()
	done := make(chan error, 1)
	r := &request{
		xid:    xid,
		opcode: opCloseSession,
		header: &requestHeader{Xid: xid, Opcode: int32(opCloseSession)},
		body:   &closeRequest{},
		resp:   &closeResponse{},
		recv:   done,
	}
	select {
	case c.sendChan <- r:
		c.metrics.recordRequest(opCloseSession)
		select {
		case <-done:
		case <-time.After(time.Second):
		case <-c.shouldQuit:
		}
	case <-c.shouldQuit:
	default:
	}

	c.closeSession(ErrConnectionClosed)
	<-c.closedCh
	return nil
}

// --- request submission ---------------------------------------------------

// submit is the session controller's correlation step: assign an XID,
// register the pending-response slot, enqueue, and await the rendezvous.
func (c *Conn) submit(op opcode, body interface{}, resp interface{}) error {
	if c.State() == StateClosed {
		return ErrConnectionClosed
	}

	xid := c.nextXid()
	recv := make(chan error, 1)
	r := &request{
		xid:    xid,
		opcode: op,
		header: &requestHeader{Xid: xid, Opcode: int32(op)},
		body:   body,
		resp:   resp,
		recv:   recv,
	}
	c.metrics.recordRequest(op)

	select {
	case c.sendChan <- r:
	case <-c.shouldQuit:
		return ErrConnectionClosed
	}

	select {
	case err := <-recv:
		return err
	case <-c.shouldQuit:
		return ErrConnectionClosed
	}
}

func (c *Conn) chroot(path string) string   { return c.servers.withChroot(path) }
func (c *Conn) dechroot(path string) string { return c.servers.stripChroot(path) }

// --- public operations ------------------------------------------------------

// Create creates a node at path with the given data, ACL and create mode.
// It returns the server's canonical path (the caller's path plus a
// sequence suffix for sequential modes), de-chrooted.
func (c *Conn) Create(path string, data []byte, acl []ACL, mode CreateMode) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	req := &createRequest{Path: c.chroot(path), Data: data, Acl: acl, Flags: int32(mode)}
	resp := &createResponse{}
	if err := c.submit(mode.opcode(), req, resp); err != nil {
		return "", err
	}
	return c.dechroot(resp.Path), nil
}

// CreateProtectedEphemeralSequential creates an ephemeral-sequential node
// guarded by a client-generated GUID so that a session drop racing the
// server's commit can be resolved by scanning the parent for the GUID.
// The GUID is produced with google/uuid rather than raw crypto/rand bytes.
func (c *Conn) CreateProtectedEphemeralSequential(path string, data []byte, acl []ACL) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}

	guid := strings.ReplaceAll(uuid.New().String(), "-", "")
	parts := strings.Split(path, "/")
	parts[len(parts)-1] = protectedPrefix + guid + "-" + parts[len(parts)-1]
	rootPath := strings.Join(parts[:len(parts)-1], "/")
	if rootPath == "" {
		rootPath = "/"
	}
	protectedPath := strings.Join(parts, "/")

	req := &createRequest{
		Path:  c.chroot(protectedPath),
		Data:  data,
		Acl:   acl,
		Flags: int32(ModeEphemeralSequential),
	}
	resp := &createResponse{}

	for attempt := 0; attempt < 3; attempt++ {
		err := c.submit(opCreate, req, resp)
		switch {
		case err == nil:
			return c.dechroot(resp.Path), nil
		case errors.Is(err, ErrSessionExpired):
			return "", err
		case errors.Is(err, ErrConnectionLoss):
			children, cerr := c.GetChildren(rootPath)
			if cerr != nil {
				return "", cerr
			}
			for _, child := range children {
				if strings.HasPrefix(child, protectedPrefix) && strings.Contains(child, guid) {
					if rootPath == "/" {
						return "/" + child, nil
					}
					return rootPath + "/" + child, nil
				}
			}
			// not found yet: server may not have committed it, retry.
		default:
			return "", err
		}
	}
	return "", ErrConnectionLoss
}

// Delete removes path if its version matches (version -1 matches any).
func (c *Conn) Delete(path string, version int32) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	req := &deleteRequest{Path: c.chroot(path), Version: version}
	return c.submit(opDelete, req, &closeResponse{})
}

// SetData overwrites path's data if version matches, returning the new Stat.
func (c *Conn) SetData(path string, data []byte, version int32) (*Stat, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	req := &setDataRequest{Path: c.chroot(path), Data: data, Version: version}
	resp := &setDataResponse{}
	if err := c.submit(opSetData, req, resp); err != nil {
		return nil, err
	}
	return &resp.Stat, nil
}

// GetData returns path's data and Stat without registering a watcher.
func (c *Conn) GetData(path string) ([]byte, *Stat, error) {
	return c.getData(path, false, nil)
}

// GetDataW is GetData plus a one-shot Data watcher invoked on the next
// NodeDataChanged or NodeDeleted event at path.
func (c *Conn) GetDataW(path string, cb WatchFunc) ([]byte, *Stat, WatchID, error) {
	var id WatchID
	data, stat, err := c.getData(path, true, func() { id = c.watches.register(path, WatcherData, 0, cb) })
	return data, stat, id, err
}

func (c *Conn) getData(path string, watch bool, onSuccess func()) ([]byte, *Stat, error) {
	if err := ValidatePath(path); err != nil {
		return nil, nil, err
	}
	req := &pathAndWatchRequest{Path: c.chroot(path), Watch: watch}
	resp := &getDataResponse{}
	if err := c.submit(opGetData, req, resp); err != nil {
		return nil, nil, err
	}
	if onSuccess != nil {
		onSuccess()
	}
	return resp.Data, &resp.Stat, nil
}

// Exists reports whether path exists. A server NoNode error is not
// surfaced as an error: it is folded into exists=false.
func (c *Conn) Exists(path string) (bool, *Stat, error) {
	return c.exists(path, false, nil)
}

// ExistsW is Exists plus a one-shot watcher: registered as a Data watcher
// if the node currently exists, or an Exists watcher if it does not —
// since only an existing node can later
// change data, while a missing one can only be created.
func (c *Conn) ExistsW(path string, cb WatchFunc) (bool, *Stat, WatchID, error) {
	var id WatchID
	exists, stat, err := c.exists(path, true, func(nodeExists bool) {
		kind := WatcherExists
		if nodeExists {
			kind = WatcherData
		}
		id = c.watches.register(path, kind, 0, cb)
	})
	return exists, stat, id, err
}

func (c *Conn) exists(path string, watch bool, onSuccess func(exists bool)) (bool, *Stat, error) {
	if err := ValidatePath(path); err != nil {
		return false, nil, err
	}
	req := &pathAndWatchRequest{Path: c.chroot(path), Watch: watch}
	resp := &existsResponse{}
	err := c.submit(opExists, req, resp)
	if errors.Is(err, ErrNoNode) {
		if onSuccess != nil {
			onSuccess(false)
		}
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	if onSuccess != nil {
		onSuccess(true)
	}
	return true, &resp.Stat, nil
}

// GetChildren lists path's immediate children (names only).
func (c *Conn) GetChildren(path string) ([]string, error) {
	children, _, err := c.getChildren2(path, false, nil)
	return children, err
}

// GetChildrenW is GetChildren plus a one-shot Child watcher.
func (c *Conn) GetChildrenW(path string, cb WatchFunc) ([]string, WatchID, error) {
	var id WatchID
	children, _, err := c.getChildren2(path, true, func() { id = c.watches.register(path, WatcherChild, 0, cb) })
	return children, id, err
}

// GetChildren2 is GetChildren plus the parent's Stat (opGetChildren2).
func (c *Conn) GetChildren2(path string) ([]string, *Stat, error) {
	return c.getChildren2(path, false, nil)
}

// GetChildren2W is GetChildren2 plus a one-shot Child watcher.
func (c *Conn) GetChildren2W(path string, cb WatchFunc) ([]string, *Stat, WatchID, error) {
	var id WatchID
	children, stat, err := c.getChildren2(path, true, func() { id = c.watches.register(path, WatcherChild, 0, cb) })
	return children, stat, id, err
}

func (c *Conn) getChildren2(path string, watch bool, onSuccess func()) ([]string, *Stat, error) {
	if err := ValidatePath(path); err != nil {
		return nil, nil, err
	}
	req := &pathAndWatchRequest{Path: c.chroot(path), Watch: watch}
	resp := &getChildren2Response{}
	if err := c.submit(opGetChildren2, req, resp); err != nil {
		return nil, nil, err
	}
	if onSuccess != nil {
		onSuccess()
	}
	return resp.Children, &resp.Stat, nil
}

// GetACL returns path's ACL list and Stat.
func (c *Conn) GetACL(path string) ([]ACL, *Stat, error) {
	if err := ValidatePath(path); err != nil {
		return nil, nil, err
	}
	req := &pathRequest{Path: c.chroot(path)}
	resp := &getACLResponse{}
	if err := c.submit(opGetACL, req, resp); err != nil {
		return nil, nil, err
	}
	return resp.Acl, &resp.Stat, nil
}

// SetACL overwrites path's ACL if version matches.
func (c *Conn) SetACL(path string, acl []ACL, version int32) (*Stat, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}
	req := &setACLRequest{Path: c.chroot(path), Acl: acl, Version: version}
	resp := &setACLResponse{}
	if err := c.submit(opSetACL, req, resp); err != nil {
		return nil, err
	}
	return &resp.Stat, nil
}

// GetEphemerals lists every ephemeral node's path under prefixPath owned
// by this session.
func (c *Conn) GetEphemerals(prefixPath string) ([]string, error) {
	if err := ValidatePath(prefixPath); err != nil {
		return nil, err
	}
	req := &getEphemeralsRequest{PrefixPath: c.chroot(prefixPath)}
	resp := &getEphemeralsResponse{}
	if err := c.submit(opGetEphemerals, req, resp); err != nil {
		return nil, err
	}
	out := make([]string, len(resp.Paths))
	for i, p := range resp.Paths {
		out[i] = c.dechroot(p)
	}
	return out, nil
}

// GetAllChildrenNumber returns the total descendant count under path
// (children of children included, unlike GetChildren2's Stat.NumChildren).
func (c *Conn) GetAllChildrenNumber(path string) (int32, error) {
	if err := ValidatePath(path); err != nil {
		return 0, err
	}
	req := &getAllChildrenNumberRequest{Path: c.chroot(path)}
	resp := &getAllChildrenNumberResponse{}
	if err := c.submit(opGetAllChildrenNumber, req, resp); err != nil {
		return 0, err
	}
	return resp.TotalNumber, nil
}

// AddWatch registers a persistent (or persistent-recursive) watcher at
// path, both locally and on the wire.
func (c *Conn) AddWatch(path string, mode AddWatchMode, cb WatchFunc) (WatchID, error) {
	if err := ValidatePath(path); err != nil {
		return 0, err
	}
	req := &addWatchRequest{Path: c.chroot(path), Mode: int32(mode)}
	resp := &closeResponse{}
	if err := c.submit(opAddWatch, req, resp); err != nil {
		return 0, err
	}
	kind := WatcherPersistent
	if mode == AddWatchModePersistentRecursive {
		kind = WatcherPersistentRecursive
	}
	return c.watches.register(path, kind, 0, cb), nil
}

// RemoveWatchesKind selects which local watcher kinds RemoveWatches clears,
// matching the wire WatcherType values used by CheckWatches.
type RemoveWatchesKind int32

const (
	RemoveWatchesChildren RemoveWatchesKind = 1
	RemoveWatchesData     RemoveWatchesKind = 2
	RemoveWatchesAny      RemoveWatchesKind = 3
)

// RemoveWatches implements the operation literally:
// send the CheckWatches-shaped wire request, then remove matching local
// registry entries of the requested kind. It does not attempt to infer
// any further server-side deregistration semantics.
func (c *Conn) RemoveWatches(path string, kind RemoveWatchesKind) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	req := &checkWatchesRequest{Path: c.chroot(path), WatcherType: int32(kind)}
	resp := &closeResponse{}
	if err := c.submit(opCheckWatches, req, resp); err != nil {
		return err
	}
	c.watches.removeAll(path, watcherKind(kind))
	return nil
}

// Ping issues an application-visible ping (distinct from the keep-alive
// task's background pings, which use the reserved pingXid and bypass the
// pending-response table entirely).
func (c *Conn) Ping() error {
	return c.submit(opPing, &pingRequest{}, &pingResponse{})
}
