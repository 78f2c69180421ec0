package zk

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fake server plumbing --------------------------------------------------

func pipeDialer(client net.Conn) func(network, addr string, timeout time.Duration) (net.Conn, error) {
	return func(string, string, time.Duration) (net.Conn, error) {
		return client, nil
	}
}

func tryReadFrame(conn net.Conn) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenBuf)
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func writeFrame(t *testing.T, conn net.Conn, body []byte) {
	t.Helper()
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(body)))
	_, err := conn.Write(lenBuf)
	require.NoError(t, err)
	_, err = conn.Write(body)
	require.NoError(t, err)
}

func encodeFull(t *testing.T, st interface{}) []byte {
	t.Helper()
	buf := make([]byte, 4096)
	n, err := encodePacket(buf, st)
	require.NoError(t, err)
	return buf[:n]
}

func serverHandshake(t *testing.T, srv net.Conn, sessionID int64, timeoutMs int32) {
	t.Helper()
	frame, err := tryReadFrame(srv)
	require.NoError(t, err)
	var req connectRequest
	_, err = decodePacket(frame, &req)
	require.NoError(t, err)

	resp := &connectResponse{
		ProtocolVersion: protocolVersion,
		TimeOut:         timeoutMs,
		SessionID:       sessionID,
		Passwd:          []byte("pw"),
		ReadOnly:        false,
	}
	writeFrame(t, srv, encodeFull(t, resp))
}

func parseRequestFrame(t *testing.T, frame []byte) (xid int32, op opcode, body []byte) {
	t.Helper()
	require.GreaterOrEqual(t, len(frame), 8)
	xid = int32(binary.BigEndian.Uint32(frame[0:4]))
	op = opcode(int32(binary.BigEndian.Uint32(frame[4:8])))
	body = frame[8:]
	return
}

func buildReplyFrame(t *testing.T, xid int32, zxid int64, errCode int32, resp interface{}) []byte {
	t.Helper()
	rh := &replyHeader{Xid: xid, Zxid: zxid, Err: errCode}
	buf := make([]byte, 4096)
	n, err := encodePacket(buf, rh)
	require.NoError(t, err)
	if resp != nil {
		m, err := encodePacket(buf[n:], resp)
		require.NoError(t, err)
		n += m
	}
	return buf[:n]
}

type opHandler func(xid int32, body []byte) (errCode int32, resp interface{})

// runFakeServer performs the handshake then serves requests until the
// client sends CloseSession or the pipe is torn down.
func runFakeServer(t *testing.T, srv net.Conn, sessionID int64, timeoutMs int32, handlers map[opcode]opHandler) {
	serverHandshake(t, srv, sessionID, timeoutMs)
	for {
		frame, err := tryReadFrame(srv)
		if err != nil {
			return
		}
		xid, op, body := parseRequestFrame(t, frame)
		if op == opCloseSession {
			writeFrame(t, srv, buildReplyFrame(t, xid, 200, 0, &closeResponse{}))
			return
		}
		h, ok := handlers[op]
		if !ok {
			writeFrame(t, srv, buildReplyFrame(t, xid, 100, 0, nil))
			continue
		}
		errCode, resp := h(xid, body)
		writeFrame(t, srv, buildReplyFrame(t, xid, 100, errCode, resp))
	}
}

func connectToFake(t *testing.T, sessionID int64, timeoutMs int32, handlers map[opcode]opHandler) *Conn {
	t.Helper()
	client, srv := net.Pipe()
	go runFakeServer(t, srv, sessionID, timeoutMs, handlers)

	conn, err := Connect("localhost:2181", time.Duration(timeoutMs)*time.Millisecond, withDialFunc(pipeDialer(client)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// --- tests ------------------------------------------------------------------

func TestConnectEstablishesSession(t *testing.T) {
	conn := connectToFake(t, 12345, 30000, nil)
	assert.Equal(t, int64(12345), conn.SessionID())
	assert.True(t, conn.State().IsConnected())
}

func TestCloseIsIdempotentAndTerminal(t *testing.T) {
	conn := connectToFake(t, 1, 30000, nil)
	require.NoError(t, conn.Close())
	assert.Equal(t, StateClosed, conn.State())
	require.NoError(t, conn.Close())
}

func TestXidsAreMonotonicAndStartAtOne(t *testing.T) {
	var mu sync.Mutex
	var seen []int32
	handlers := map[opcode]opHandler{
		opExists: func(xid int32, body []byte) (int32, interface{}) {
			mu.Lock()
			seen = append(seen, xid)
			mu.Unlock()
			return int32(errNoNode), nil
		},
	}
	conn := connectToFake(t, 1, 30000, handlers)

	for i := 0; i < 5; i++ {
		_, _, err := conn.Exists("/a")
		require.NoError(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 5)
	for i, xid := range seen {
		assert.Equal(t, int32(i+1), xid)
	}
}

func TestCreateReturnsDecodedPath(t *testing.T) {
	handlers := map[opcode]opHandler{
		opCreate: func(xid int32, body []byte) (int32, interface{}) {
			var req createRequest
			_, err := decodePacket(body, &req)
			require.NoError(t, err)
			assert.Equal(t, "/a/b", req.Path)
			return 0, &createResponse{Path: "/a/b0000000001"}
		},
	}
	conn := connectToFake(t, 1, 30000, handlers)

	path, err := conn.Create("/a/b", []byte("v"), WorldACL(PermAll), ModePersistentSequential)
	require.NoError(t, err)
	assert.Equal(t, "/a/b0000000001", path)
}

func TestSetDataThenGetData(t *testing.T) {
	var stored []byte
	handlers := map[opcode]opHandler{
		opSetData: func(xid int32, body []byte) (int32, interface{}) {
			var req setDataRequest
			_, err := decodePacket(body, &req)
			require.NoError(t, err)
			stored = req.Data
			return 0, &setDataResponse{Stat: Stat{Version: 1}}
		},
		opGetData: func(xid int32, body []byte) (int32, interface{}) {
			return 0, &getDataResponse{Data: stored, Stat: Stat{Version: 1}}
		},
	}
	conn := connectToFake(t, 1, 30000, handlers)

	stat, err := conn.SetData("/a", []byte("hello"), -1)
	require.NoError(t, err)
	assert.Equal(t, int32(1), stat.Version)

	data, stat2, err := conn.GetData("/a")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, int32(1), stat2.Version)
}

func TestExistsNoNodeIsNotAnError(t *testing.T) {
	handlers := map[opcode]opHandler{
		opExists: func(xid int32, body []byte) (int32, interface{}) {
			return int32(errNoNode), nil
		},
	}
	conn := connectToFake(t, 1, 30000, handlers)

	exists, stat, err := conn.Exists("/missing")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Nil(t, stat)
}

func TestGetChildren2ReturnsChildrenAndStat(t *testing.T) {
	handlers := map[opcode]opHandler{
		opGetChildren2: func(xid int32, body []byte) (int32, interface{}) {
			return 0, &getChildren2Response{Children: []string{"x", "y"}, Stat: Stat{NumChildren: 2}}
		},
	}
	conn := connectToFake(t, 1, 30000, handlers)

	children, stat, err := conn.GetChildren2("/a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, children)
	assert.Equal(t, int32(2), stat.NumChildren)
}

func TestGetDataWRegistersWatcherThatFiresOnNotification(t *testing.T) {
	client, srv := net.Pipe()
	fired := make(chan Event, 1)
	proceed := make(chan struct{})

	go func() {
		serverHandshake(t, srv, 1, 30000)
		frame, err := tryReadFrame(srv) // the GetData request
		if err != nil {
			return
		}
		xid, _, _ := parseRequestFrame(t, frame)
		writeFrame(t, srv, buildReplyFrame(t, xid, 100, 0, &getDataResponse{Data: []byte("v"), Stat: Stat{}}))

		// Wait until the test has confirmed the watcher is registered
		// before racing the notification against that registration.
		<-proceed

		we := &watcherEvent{Type: int32(EventNodeDataChanged), State: int32(KeeperStateSyncConnected), Path: "/a"}
		writeFrame(t, srv, buildReplyFrame(t, watcherXid, 0, 0, we))

		// let the client's Close() fail fast instead of blocking on a
		// synchronous net.Pipe write nobody will ever read.
		<-time.After(200 * time.Millisecond)
		_ = srv.Close()
	}()

	conn, err := Connect("localhost:2181", 30*time.Second, withDialFunc(pipeDialer(client)))
	require.NoError(t, err)
	defer conn.Close()

	_, _, _, err = conn.GetDataW("/a", func(ev Event) { fired <- ev })
	require.NoError(t, err)
	close(proceed)

	select {
	case ev := <-fired:
		assert.Equal(t, EventNodeDataChanged, ev.Type)
		assert.Equal(t, "/a", ev.Path)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never fired")
	}
}

func TestAddWatchRegistersPersistentLocally(t *testing.T) {
	handlers := map[opcode]opHandler{
		opAddWatch: func(xid int32, body []byte) (int32, interface{}) {
			return 0, &closeResponse{}
		},
	}
	conn := connectToFake(t, 1, 30000, handlers)

	fired := make(chan struct{}, 1)
	_, err := conn.AddWatch("/a", AddWatchModePersistent, func(Event) { fired <- struct{}{} })
	require.NoError(t, err)

	// drive the trigger table directly: the wire round-trip for AddWatch is
	// already verified above; this confirms local registration survived it.
	conn.invoke(Event{Type: EventNodeDataChanged, Path: "/a"})
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("persistent watch never fired")
	}
}

func TestRemoveWatchesSendsCheckWatchesAndClearsLocalEntries(t *testing.T) {
	var gotKind int32
	handlers := map[opcode]opHandler{
		opAddWatch: func(xid int32, body []byte) (int32, interface{}) {
			return 0, &closeResponse{}
		},
		opCheckWatches: func(xid int32, body []byte) (int32, interface{}) {
			var req checkWatchesRequest
			_, err := decodePacket(body, &req)
			require.NoError(t, err)
			gotKind = req.WatcherType
			return 0, &closeResponse{}
		},
	}
	conn := connectToFake(t, 1, 30000, handlers)

	fired := false
	_, err := conn.AddWatch("/a", AddWatchModePersistent, func(Event) { fired = true })
	require.NoError(t, err)

	require.NoError(t, conn.RemoveWatches("/a", RemoveWatchesAny))
	assert.Equal(t, int32(RemoveWatchesAny), gotKind)

	conn.invoke(Event{Type: EventNodeDataChanged, Path: "/a"})
	assert.False(t, fired, "watcher should have been cleared locally")
}

func TestConnectionLossFailsPendingRequests(t *testing.T) {
	client, srv := net.Pipe()
	go func() {
		serverHandshake(t, srv, 1, 30000)
		if _, err := tryReadFrame(srv); err != nil {
			return
		}
		_ = srv.Close()
	}()

	conn, err := Connect("localhost:2181", 30*time.Second, withDialFunc(pipeDialer(client)))
	require.NoError(t, err)

	_, _, err = conn.GetData("/a")
	assert.Error(t, err)
	assert.Equal(t, StateClosed, conn.State())

	require.NoError(t, conn.Close())
}

func TestExistsWRegistersDataWatchWhenNodeExists(t *testing.T) {
	handlers := map[opcode]opHandler{
		opExists: func(xid int32, body []byte) (int32, interface{}) {
			return 0, &existsResponse{Stat: Stat{Version: 1}}
		},
	}
	conn := connectToFake(t, 1, 30000, handlers)

	exists, stat, _, err := conn.ExistsW("/a", func(Event) {})
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int32(1), stat.Version)

	conn.watches.mu.Lock()
	_, registeredAsData := conn.watches.data["/a"]
	_, registeredAsExists := conn.watches.exists["/a"]
	conn.watches.mu.Unlock()
	assert.True(t, registeredAsData)
	assert.False(t, registeredAsExists)
}
