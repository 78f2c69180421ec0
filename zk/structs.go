package zk

import (
	"encoding/binary"
	"reflect"

	"github.com/pkg/errors"
)

// Stat is the fixed 11-field, 68-byte node metadata record.
type Stat struct {
	Czxid          int64
	Mzxid          int64
	Ctime          int64
	Mtime          int64
	Version        int32
	Cversion       int32
	Aversion       int32
	EphemeralOwner int64
	DataLength     int32
	NumChildren    int32
	Pzxid          int64
}

// Scheme is the closed set of ACL authentication schemes this client knows
// how to encode, mirroring original_source/src/protocol/req.rs's Scheme
// enum (World | IP | Digest).
type Scheme struct {
	Name string // "world", "ip", "digest"
	ID   string
}

// SchemeWorld is the fixed ("world", "anyone") scheme pair.
func SchemeWorld() Scheme { return Scheme{Name: schemeWorld, ID: idAnyone} }

// SchemeIP authenticates by the connecting client's address.
func SchemeIP(addr string) Scheme { return Scheme{Name: schemeIP, ID: addr} }

// SchemeDigest authenticates by a "user:hash" credential.
func SchemeDigest(userHash string) Scheme { return Scheme{Name: schemeDigest, ID: userHash} }

// ACL is one access-control entry: a permission bitfield plus a scheme.
type ACL struct {
	Perms  int32
	Scheme string
	ID     string
}

// WorldACL grants perms to everyone via the world/anyone scheme — the
// typical default ACL, as in original_source's ACL::world_acl().
func WorldACL(perms Perms) []ACL {
	return []ACL{{Perms: int32(perms), Scheme: schemeWorld, ID: idAnyone}}
}

// --- request/response wire structs -----------------------------------------

type requestHeader struct {
	Xid    int32
	Opcode int32
}

type replyHeader struct {
	Xid  int32
	Zxid int64
	Err  int32
}

type connectRequest struct {
	ProtocolVersion int32
	LastZxidSeen    int64
	TimeOut         int32
	SessionID       int64
	Passwd          []byte
	ReadOnly        bool
}

type connectResponse struct {
	ProtocolVersion int32
	TimeOut         int32
	SessionID       int64
	Passwd          []byte
	ReadOnly        bool
}

type createRequest struct {
	Path  string
	Data  []byte
	Acl   []ACL
	Flags int32
}

type createResponse struct {
	Path string
}

type deleteRequest struct {
	Path    string
	Version int32
}

type setDataRequest struct {
	Path    string
	Data    []byte
	Version int32
}

type setDataResponse struct {
	Stat Stat
}

type pathAndWatchRequest struct {
	Path  string
	Watch bool
}

type pathRequest struct {
	Path string
}

type getDataResponse struct {
	Data []byte
	Stat Stat
}

type getChildrenResponse struct {
	Children []string
}

type getChildren2Response struct {
	Children []string
	Stat     Stat
}

type existsResponse struct {
	Stat Stat
}

type getACLResponse struct {
	Acl  []ACL
	Stat Stat
}

type setACLRequest struct {
	Path    string
	Acl     []ACL
	Version int32
}

type setACLResponse struct {
	Stat Stat
}

type getEphemeralsRequest struct {
	PrefixPath string
}

type getEphemeralsResponse struct {
	Paths []string
}

type getAllChildrenNumberRequest struct {
	Path string
}

type getAllChildrenNumberResponse struct {
	TotalNumber int32
}

type addWatchRequest struct {
	Path string
	Mode int32
}

type checkWatchesRequest struct {
	Path        string
	WatcherType int32
}

type watcherEvent struct {
	Type  int32
	State int32
	Path  string
}

type pingRequest struct{}
type pingResponse struct{}
type closeRequest struct{}
type closeResponse struct{}

// --- framing codec -----------------------------------------------------

// encodePacket serializes st into buf, returning the number of bytes
// written. A buf too small for st yields ErrShortBuffer.
func encodePacket(buf []byte, st interface{}) (int, error) {
	if st == nil {
		return 0, nil
	}
	n, err := encodeValue(buf, reflect.ValueOf(st))
	if err != nil {
		return n, err
	}
	return n, nil
}

// decodePacket deserializes buf into st, returning the number of bytes
// consumed.
func decodePacket(buf []byte, st interface{}) (int, error) {
	if st == nil {
		return 0, nil
	}
	v := reflect.ValueOf(st)
	if v.Kind() != reflect.Ptr {
		return 0, errors.New("zk: decodePacket requires a pointer")
	}
	return decodeValue(buf, v.Elem())
}

func encodeValue(buf []byte, v reflect.Value) (int, error) {
	switch v.Kind() {
	case reflect.Ptr:
		return encodeValue(buf, v.Elem())
	case reflect.Struct:
		n := 0
		for i := 0; i < v.NumField(); i++ {
			written, err := encodeValue(buf[n:], v.Field(i))
			if err != nil {
				return n, err
			}
			n += written
		}
		return n, nil
	case reflect.Bool:
		if len(buf) < 1 {
			return 0, ErrShortBuffer
		}
		if v.Bool() {
			buf[0] = 1
		} else {
			buf[0] = 0
		}
		return 1, nil
	case reflect.Int32:
		if len(buf) < 4 {
			return 0, ErrShortBuffer
		}
		binary.BigEndian.PutUint32(buf, uint32(v.Int()))
		return 4, nil
	case reflect.Int64:
		if len(buf) < 8 {
			return 0, ErrShortBuffer
		}
		binary.BigEndian.PutUint64(buf, uint64(v.Int()))
		return 8, nil
	case reflect.Uint32:
		if len(buf) < 4 {
			return 0, ErrShortBuffer
		}
		binary.BigEndian.PutUint32(buf, uint32(v.Uint()))
		return 4, nil
	case reflect.String:
		return encodeBytes(buf, []byte(v.String()))
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			var b []byte
			if !v.IsNil() {
				b = v.Bytes()
			}
			return encodeBytes(buf, b)
		}
		return encodeSlice(buf, v)
	default:
		return 0, errors.Errorf("zk: unsupported encode kind %s", v.Kind())
	}
}

func encodeBytes(buf []byte, b []byte) (int, error) {
	if len(buf) < 4 {
		return 0, ErrShortBuffer
	}
	if b == nil {
		binary.BigEndian.PutUint32(buf, uint32(int32(-1)))
		return 4, nil
	}
	if len(buf) < 4+len(b) {
		return 0, ErrShortBuffer
	}
	binary.BigEndian.PutUint32(buf, uint32(len(b)))
	copy(buf[4:], b)
	return 4 + len(b), nil
}

func encodeSlice(buf []byte, v reflect.Value) (int, error) {
	if len(buf) < 4 {
		return 0, ErrShortBuffer
	}
	if v.IsNil() {
		binary.BigEndian.PutUint32(buf, uint32(int32(-1)))
		return 4, nil
	}
	binary.BigEndian.PutUint32(buf, uint32(v.Len()))
	n := 4
	for i := 0; i < v.Len(); i++ {
		written, err := encodeValue(buf[n:], v.Index(i))
		if err != nil {
			return n, err
		}
		n += written
	}
	return n, nil
}

func decodeValue(buf []byte, v reflect.Value) (int, error) {
	switch v.Kind() {
	case reflect.Struct:
		n := 0
		for i := 0; i < v.NumField(); i++ {
			read, err := decodeValue(buf[n:], v.Field(i))
			if err != nil {
				return n, err
			}
			n += read
		}
		return n, nil
	case reflect.Bool:
		if len(buf) < 1 {
			return 0, ErrShortBuffer
		}
		v.SetBool(buf[0] != 0)
		return 1, nil
	case reflect.Int32:
		if len(buf) < 4 {
			return 0, ErrShortBuffer
		}
		v.SetInt(int64(int32(binary.BigEndian.Uint32(buf))))
		return 4, nil
	case reflect.Int64:
		if len(buf) < 8 {
			return 0, ErrShortBuffer
		}
		v.SetInt(int64(binary.BigEndian.Uint64(buf)))
		return 8, nil
	case reflect.Uint32:
		if len(buf) < 4 {
			return 0, ErrShortBuffer
		}
		v.SetUint(uint64(binary.BigEndian.Uint32(buf)))
		return 4, nil
	case reflect.String:
		b, n, err := decodeBytes(buf)
		if err != nil {
			return n, err
		}
		v.SetString(string(b))
		return n, nil
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			b, n, err := decodeBytes(buf)
			if err != nil {
				return n, err
			}
			v.SetBytes(b)
			return n, nil
		}
		return decodeSlice(buf, v)
	default:
		return 0, errors.Errorf("zk: unsupported decode kind %s", v.Kind())
	}
}

// decodeBytes reads a {len:i32, bytes[len]} field. len == -1 decodes to a
// nil slice, not an error.
func decodeBytes(buf []byte) ([]byte, int, error) {
	if len(buf) < 4 {
		return nil, 0, ErrShortBuffer
	}
	l := int32(binary.BigEndian.Uint32(buf))
	if l == -1 {
		return nil, 4, nil
	}
	if l < 0 {
		return nil, 4, ErrMarshallingError
	}
	if len(buf) < 4+int(l) {
		return nil, 0, ErrShortBuffer
	}
	out := make([]byte, l)
	copy(out, buf[4:4+l])
	return out, 4 + int(l), nil
}

// decodeSlice reads a {len:i32, T×len} sequence. len == -1 decodes to an
// empty (not nil-panicking) container.
func decodeSlice(buf []byte, v reflect.Value) (int, error) {
	if len(buf) < 4 {
		return 0, ErrShortBuffer
	}
	l := int32(binary.BigEndian.Uint32(buf))
	n := 4
	if l <= 0 {
		v.Set(reflect.MakeSlice(v.Type(), 0, 0))
		return n, nil
	}
	out := reflect.MakeSlice(v.Type(), int(l), int(l))
	for i := 0; i < int(l); i++ {
		read, err := decodeValue(buf[n:], out.Index(i))
		if err != nil {
			return n, err
		}
		n += read
	}
	v.Set(out)
	return n, nil
}
