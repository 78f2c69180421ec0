package zk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, in interface{}, out interface{}) int {
	t.Helper()
	buf := make([]byte, bufferSize)
	n, err := encodePacket(buf, in)
	require.NoError(t, err)
	m, err := decodePacket(buf[:n], out)
	require.NoError(t, err)
	assert.Equal(t, n, m)
	return n
}

func TestStatRoundTrip(t *testing.T) {
	in := &Stat{
		Czxid: 1, Mzxid: 2, Ctime: 3, Mtime: 4,
		Version: 5, Cversion: 6, Aversion: 7,
		EphemeralOwner: 8, DataLength: 9, NumChildren: 10, Pzxid: 11,
	}
	out := &Stat{}
	roundTrip(t, in, out)
	assert.Equal(t, in, out)
}

func TestCreateRequestRoundTrip(t *testing.T) {
	in := &createRequest{
		Path:  "/a/b",
		Data:  []byte("hello"),
		Acl:   WorldACL(PermAll),
		Flags: int32(ModePersistentSequential),
	}
	out := &createRequest{}
	roundTrip(t, in, out)
	assert.Equal(t, in, out)
}

func TestGetChildren2ResponseRoundTrip(t *testing.T) {
	in := &getChildren2Response{
		Children: []string{"a", "b", "c"},
		Stat:     Stat{Version: 1},
	}
	out := &getChildren2Response{}
	roundTrip(t, in, out)
	assert.Equal(t, in.Children, out.Children)
	assert.Equal(t, in.Stat, out.Stat)
}

func TestConnectRequestResponseRoundTrip(t *testing.T) {
	in := &connectRequest{
		ProtocolVersion: protocolVersion,
		LastZxidSeen:    42,
		TimeOut:         30000,
		SessionID:       0,
		Passwd:          nil,
		ReadOnly:        false,
	}
	out := &connectRequest{}
	roundTrip(t, in, out)
	assert.Equal(t, in, out)
}

func TestNilByteSliceRoundTripsToNil(t *testing.T) {
	in := &createRequest{Path: "/x", Data: nil, Acl: nil, Flags: 0}
	out := &createRequest{}
	roundTrip(t, in, out)
	assert.Nil(t, out.Data)
	assert.Empty(t, out.Acl)
}

func TestEmptyByteSliceRoundTripsToEmptyNotNil(t *testing.T) {
	in := &createRequest{Path: "/x", Data: []byte{}, Acl: nil, Flags: 0}
	out := &createRequest{}
	roundTrip(t, in, out)
	assert.NotNil(t, out.Data)
	assert.Len(t, out.Data, 0)
}

func TestDecodeSliceWithNegativeLenIsEmptyNotNilPanic(t *testing.T) {
	// encode a len=-1 marker for the Acl field directly, as a server
	// legitimately might for an absent sequence, followed by a zeroed Stat.
	buf := make([]byte, 4+68)
	_, err := encodeBytes(buf, nil)
	require.NoError(t, err)

	out := &getACLResponse{}
	_, err = decodePacket(buf, out)
	require.NoError(t, err)
	assert.NotNil(t, out.Acl)
	assert.Len(t, out.Acl, 0)
}

func TestDecodePacketRequiresPointer(t *testing.T) {
	_, err := decodePacket([]byte{0, 0, 0, 0}, Stat{})
	assert.Error(t, err)
}

func TestEncodeDecodeShortBuffer(t *testing.T) {
	in := &pathRequest{Path: "/a/b/c"}
	buf := make([]byte, 3)
	_, err := encodePacket(buf, in)
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestWorldACL(t *testing.T) {
	acl := WorldACL(PermRead | PermWrite)
	require.Len(t, acl, 1)
	assert.Equal(t, schemeWorld, acl[0].Scheme)
	assert.Equal(t, idAnyone, acl[0].ID)
	assert.Equal(t, int32(PermRead|PermWrite), acl[0].Perms)
}

func TestSchemeConstructors(t *testing.T) {
	assert.Equal(t, Scheme{Name: "world", ID: "anyone"}, SchemeWorld())
	assert.Equal(t, Scheme{Name: "ip", ID: "10.0.0.1"}, SchemeIP("10.0.0.1"))
	assert.Equal(t, Scheme{Name: "digest", ID: "user:hash"}, SchemeDigest("user:hash"))
}

func TestWatcherEventRoundTrip(t *testing.T) {
	in := &watcherEvent{Type: int32(EventNodeDataChanged), State: int32(KeeperStateSyncConnected), Path: "/a"}
	out := &watcherEvent{}
	roundTrip(t, in, out)
	assert.Equal(t, in, out)
}
