// Package huberrs defines the hub's error taxonomy: explicit, typed results
// rather than exceptions, per §7 of the sync core's design. The core
// classifies failures coarsely enough for the RPC façade to map them onto
// gRPC status codes, and finely enough for the sync engine to know which
// one failure mode (unknown fid) it is allowed to repair.
package huberrs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Code is the fine-grained error kind. On the wire it travels as the
// prefix of the gRPC status message (hubrpc.grpcStatusError); it is not
// sent as a separate errCode metadata entry.
type Code string

const (
	CodeBadRequest        Code = "bad_request"
	CodeBadRequestParse   Code = "bad_request.parse_failure"
	CodeBadRequestInvalid Code = "bad_request.invalid_param"
	CodeBadRequestDup     Code = "bad_request.duplicate"
	CodeBadRequestConflict Code = "bad_request.conflict"
	CodeNotFound          Code = "not_found"
	CodeUnavailable       Code = "unavailable"
	CodeUnavailableNet    Code = "unavailable.network_failure"
	CodeUnavailableStore  Code = "unavailable.storage_failure"
	CodeUnauthenticated   Code = "unauthenticated"
	CodeUnauthorized      Code = "unauthorized"
	CodeUnknown           Code = "unknown"
)

// HubError is the explicit, typed result the core's interfaces return in
// place of a bare error whenever callers need to branch on error kind
// (most notably, SyncEngine's dependency-recovery check).
type HubError struct {
	Code Code
	Msg  string
	Err  error
}

func (e *HubError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func (e *HubError) Unwrap() error { return e.Err }

// Is reports whether err is a HubError of exactly code.
func Is(err error, code Code) bool {
	var he *HubError
	if !errors.As(err, &he) {
		return false
	}
	return he.Code == code
}

// IsUnavailable reports whether err is any unavailable.* kind, the only
// kind §4.D treats as worth abandoning a sync round over rather than
// surfacing to the caller unchanged.
func IsUnavailable(err error) bool {
	var he *HubError
	if !errors.As(err, &he) {
		return false
	}
	return he.Code == CodeUnavailable || he.Code == CodeUnavailableNet || he.Code == CodeUnavailableStore
}

// IsUnknownFid reports whether err indicates the local store has never
// seen the fid a message claims to be from — the one dependency failure
// SyncEngine repairs automatically (§4.D, §7).
func IsUnknownFid(err error) bool {
	var he *HubError
	if !errors.As(err, &he) {
		return false
	}
	return he.Code == CodeBadRequestInvalid && he.Msg == MsgUnknownFid ||
		he.Code == CodeBadRequestInvalid && he.Msg == MsgInvalidSigner
}

const (
	MsgUnknownFid    = "unknown fid"
	MsgInvalidSigner = "invalid signer"
)

func New(code Code, msg string) *HubError {
	return &HubError{Code: code, Msg: msg}
}

func Wrap(code Code, err error, msg string) *HubError {
	return &HubError{Code: code, Msg: msg, Err: err}
}

func NotFound(msg string) *HubError          { return New(CodeNotFound, msg) }
func BadRequest(msg string) *HubError        { return New(CodeBadRequest, msg) }
func UnknownFid() *HubError                  { return New(CodeBadRequestInvalid, MsgUnknownFid) }
func InvalidSigner() *HubError               { return New(CodeBadRequestInvalid, MsgInvalidSigner) }
func NetworkFailure(err error) *HubError     { return Wrap(CodeUnavailableNet, err, "network failure") }
func StorageFailure(err error) *HubError     { return Wrap(CodeUnavailableStore, err, "storage failure") }
func Unauthenticated(msg string) *HubError   { return New(CodeUnauthenticated, msg) }
func Unauthorized(msg string) *HubError      { return New(CodeUnauthorized, msg) }
func Unknown(err error) *HubError            { return Wrap(CodeUnknown, err, "unknown error") }
