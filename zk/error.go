package zk

import (
	"github.com/pkg/errors"
)

// ErrCode is the int32 error code a reply header carries when err != 0.
type ErrCode int32

const (
	errOK                           ErrCode = 0
	errSystemError                  ErrCode = -1
	errRuntimeInconsistency         ErrCode = -2
	errDataInconsistency            ErrCode = -3
	errConnectionLoss               ErrCode = -4
	errMarshallingError             ErrCode = -5
	errUnimplemented                ErrCode = -6
	errOperationTimeout             ErrCode = -7
	errBadArguments                 ErrCode = -8
	errUnknownSession               ErrCode = -12
	errNewConfigNoQuorum            ErrCode = -13
	errReConfigInProgress           ErrCode = -14
	errAPIError                     ErrCode = -100
	errNoNode                       ErrCode = -101
	errNoAuth                       ErrCode = -102
	errBadVersion                   ErrCode = -103
	errNoChildrenForEphemerals      ErrCode = -108
	errNodeExists                   ErrCode = -110
	errNotEmpty                     ErrCode = -111
	errSessionExpired               ErrCode = -112
	errInvalidCallback              ErrCode = -113
	errInvalidACL                   ErrCode = -114
	errAuthFailed                   ErrCode = -115
	errSessionMoved                 ErrCode = -118
	errNotReadonly                  ErrCode = -119
	errEphemeralOnLocalSession      ErrCode = -120
	errNoWatcher                    ErrCode = -121
	errRequestTimeout               ErrCode = -122
	errReConfigDisabled             ErrCode = -123
	errSessionClosedRequireSASLAuth ErrCode = -124
)

// Sentinel errors for the server-error layer of the taxonomy.
// Built with github.com/pkg/errors so a propagated failure keeps the
// call-site stack frame of the goroutine (sender/receiver task) that first
// observed it, even though the caller awaiting the response lives on a
// different goroutine.
var (
	ErrSystemError                  = errors.New("zk: system error")
	ErrRuntimeInconsistency         = errors.New("zk: runtime inconsistency")
	ErrDataInconsistency            = errors.New("zk: data inconsistency")
	ErrConnectionLoss               = errors.New("zk: connection loss")
	ErrMarshallingError             = errors.New("zk: marshalling error")
	ErrUnimplemented                = errors.New("zk: unimplemented")
	ErrOperationTimeout             = errors.New("zk: operation timeout")
	ErrBadArguments                 = errors.New("zk: bad arguments")
	ErrUnknownSession               = errors.New("zk: unknown session")
	ErrNewConfigNoQuorum            = errors.New("zk: no quorum for new config")
	ErrReConfigInProgress           = errors.New("zk: reconfig in progress")
	ErrAPIError                     = errors.New("zk: api error")
	ErrNoNode                       = errors.New("zk: node does not exist")
	ErrNoAuth                       = errors.New("zk: not authenticated")
	ErrBadVersion                   = errors.New("zk: version conflict")
	ErrNoChildrenForEphemerals      = errors.New("zk: ephemeral nodes may not have children")
	ErrNodeExists                   = errors.New("zk: node already exists")
	ErrNotEmpty                     = errors.New("zk: node has children")
	ErrSessionExpired               = errors.New("zk: session has been expired by the server")
	ErrInvalidCallback              = errors.New("zk: invalid callback")
	ErrInvalidACL                   = errors.New("zk: invalid ACL")
	ErrAuthFailed                   = errors.New("zk: authentication failed")
	ErrSessionMoved                 = errors.New("zk: session moved to another server")
	ErrNotReadonly                  = errors.New("zk: state-changing request sent to a read-only server")
	ErrEphemeralOnLocalSession      = errors.New("zk: ephemeral node not allowed on a local session")
	ErrNoWatcher                    = errors.New("zk: no such watcher")
	ErrRequestTimeout               = errors.New("zk: request timed out")
	ErrReConfigDisabled             = errors.New("zk: reconfig disabled")
	ErrSessionClosedRequireSASLAuth = errors.New("zk: session closed, SASL auth required")
	ErrUnknown                      = errors.New("zk: unknown server error")

	// Local/network-layer errors: fatal, close the session.
	ErrConnectionClosed = errors.New("zk: connection closed")
	ErrShortBuffer      = errors.New("zk: buffer too short to decode")
	ErrUnexpectedXid    = errors.New("zk: response with unrecognized xid")

	// Local/argument-layer errors: synchronous, never touch the wire.
	ErrInvalidPath    = errors.New("zk: invalid path")
	ErrInvalidConnect = errors.New("zk: invalid connect string")
)

var errCodeToErr = map[ErrCode]error{
	errSystemError:                  ErrSystemError,
	errRuntimeInconsistency:         ErrRuntimeInconsistency,
	errDataInconsistency:            ErrDataInconsistency,
	errConnectionLoss:               ErrConnectionLoss,
	errMarshallingError:             ErrMarshallingError,
	errUnimplemented:                ErrUnimplemented,
	errOperationTimeout:             ErrOperationTimeout,
	errBadArguments:                 ErrBadArguments,
	errUnknownSession:               ErrUnknownSession,
	errNewConfigNoQuorum:            ErrNewConfigNoQuorum,
	errReConfigInProgress:           ErrReConfigInProgress,
	errAPIError:                     ErrAPIError,
	errNoNode:                       ErrNoNode,
	errNoAuth:                       ErrNoAuth,
	errBadVersion:                   ErrBadVersion,
	errNoChildrenForEphemerals:      ErrNoChildrenForEphemerals,
	errNodeExists:                   ErrNodeExists,
	errNotEmpty:                     ErrNotEmpty,
	errSessionExpired:               ErrSessionExpired,
	errInvalidCallback:              ErrInvalidCallback,
	errInvalidACL:                   ErrInvalidACL,
	errAuthFailed:                   ErrAuthFailed,
	errSessionMoved:                 ErrSessionMoved,
	errNotReadonly:                  ErrNotReadonly,
	errEphemeralOnLocalSession:      ErrEphemeralOnLocalSession,
	errNoWatcher:                    ErrNoWatcher,
	errRequestTimeout:               ErrRequestTimeout,
	errReConfigDisabled:             ErrReConfigDisabled,
	errSessionClosedRequireSASLAuth: ErrSessionClosedRequireSASLAuth,
}

// toError maps a non-zero reply-header error code to a public sentinel.
// Unknown negative codes fall back to ErrUnknown rather than panicking —
// the wire is not something this client controls. The sentinel is returned
// wrapped with the caller's stack; match it with errors.Is.
func (c ErrCode) toError() error {
	if c == errOK {
		return nil
	}
	if err, ok := errCodeToErr[c]; ok {
		return errors.WithStack(err)
	}
	return errors.WithStack(ErrUnknown)
}
