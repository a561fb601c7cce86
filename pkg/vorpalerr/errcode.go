// Package vorpalerr models the closed error-kind taxonomy of spec.md §7 as
// registered descriptors with a gRPC status mapping, the way
// registry/api/errcode registers HTTP-mapped error codes — narrowed to a
// fixed, closed table rather than an open registry, because spec.md's kinds
// are closed by design.
package vorpalerr

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind is one of the error kinds enumerated in spec.md §7.
type Kind struct {
	name string
	code codes.Code
}

func (k Kind) String() string { return k.name }

var (
	NotFound                   = Kind{"NOT_FOUND", codes.NotFound}
	Busy                       = Kind{"BUSY", codes.Unavailable}
	InvalidSignature           = Kind{"INVALID_SIGNATURE", codes.InvalidArgument}
	MissingKey                 = Kind{"MISSING_KEY", codes.FailedPrecondition}
	SourceDigestMismatch       = Kind{"SOURCE_DIGEST_MISMATCH", codes.FailedPrecondition}
	RemoteSourceDigestRequired = Kind{"REMOTE_SOURCE_DIGEST_REQUIRED", codes.InvalidArgument}
	UnsupportedSource          = Kind{"UNSUPPORTED_SOURCE", codes.InvalidArgument}
	UnknownSourceKind          = Kind{"UNKNOWN_SOURCE_KIND", codes.InvalidArgument}
	CircularDependency         = Kind{"CIRCULAR_DEPENDENCY", codes.FailedPrecondition}
	MissingDependency          = Kind{"MISSING_DEPENDENCY", codes.FailedPrecondition}
	StepFailed                 = Kind{"STEP_FAILED", codes.Aborted}
	CorruptArchive             = Kind{"CORRUPT_ARCHIVE", codes.DataLoss}
	UnsafeArchivePath          = Kind{"UNSAFE_ARCHIVE_PATH", codes.InvalidArgument}
	IO                         = Kind{"IO", codes.Unavailable}
	Network                    = Kind{"NETWORK", codes.Unavailable}
)

// Error is a Kind carrying a human-readable message. It has no fields for
// an artifact's name or digest.
type Error struct {
	Kind    Kind
	Message string
	// Index and ExitCode are populated for StepFailed.
	Index    int
	ExitCode int
}

func (e *Error) Error() string {
	if e.Kind == StepFailed {
		return fmt.Sprintf("%s: step %d exited %d: %s", e.Kind, e.Index, e.ExitCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewStepFailed constructs a StepFailed error carrying the failing step
// index and its exit code, per spec.md §7.
func NewStepFailed(index, exitCode int) *Error {
	return &Error{
		Kind:     StepFailed,
		Message:  fmt.Sprintf("step %d exited with code %d", index, exitCode),
		Index:    index,
		ExitCode: exitCode,
	}
}

// Status converts e into a gRPC status, the boundary translation spec.md §7
// requires at the agent and worker RPC surface.
func (e *Error) Status() error {
	return status.Error(e.Kind.code, e.Error())
}

// ToStatus converts any error into a gRPC status, passing through Errors
// with their registered code and falling back to codes.Internal.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*Error); ok {
		return ve.Status()
	}
	return status.Error(codes.Internal, err.Error())
}

// IsNotFound reports whether err is a NotFound Error or carries a NotFound
// gRPC status, letting callers on either side of an RPC boundary (a local
// *Error before translation, or a status error after a client call) test
// the same condition uniformly.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if ve, ok := err.(*Error); ok {
		return ve.Kind == NotFound
	}
	return status.Code(err) == codes.NotFound
}
