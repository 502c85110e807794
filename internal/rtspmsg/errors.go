package rtspmsg

import "github.com/pkg/errors"

// ErrorKind classifies a parser/transport failure so a connection handler
// can map it to the right RTSP status code or cleanup action without
// string matching, per spec §7.
type ErrorKind int

const (
	KindProtocolViolation ErrorKind = iota
	KindUnsupportedVersion
	KindPeerClosed
	KindPeerReset
	KindIoError
)

// Error wraps an ErrorKind with the underlying cause, preserving the
// stack-annotated cause the codebase's own error wrapping (pkg/errors)
// already carries.
type Error struct {
	Kind  ErrorKind
	cause error
}

func (e *Error) Error() string {
	if e.cause == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error { return e.cause }

func (k ErrorKind) String() string {
	switch k {
	case KindProtocolViolation:
		return "protocol violation"
	case KindUnsupportedVersion:
		return "unsupported version"
	case KindPeerClosed:
		return "peer closed"
	case KindPeerReset:
		return "peer reset"
	case KindIoError:
		return "io error"
	default:
		return "unknown error"
	}
}

func wrap(kind ErrorKind, msg string, cause error) *Error {
	if cause != nil {
		cause = errors.Wrap(cause, msg)
	} else {
		cause = errors.New(msg)
	}
	return &Error{Kind: kind, cause: cause}
}

// ProtocolViolation reports a malformed start line, header, or truncated body.
func ProtocolViolation(msg string, cause error) error {
	return wrap(KindProtocolViolation, msg, cause)
}

// UnsupportedVersion reports a request/response whose version is not RTSP/1.0.
func UnsupportedVersion(msg string) error {
	return wrap(KindUnsupportedVersion, msg, nil)
}

// PeerClosed reports a clean EOF between messages — not an error condition,
// but modeled as a typed value so callers can distinguish it from PeerReset.
func PeerClosed() error {
	return &Error{Kind: KindPeerClosed}
}

// PeerReset reports an EOF or read failure mid-message.
func PeerReset(cause error) error {
	return wrap(KindPeerReset, "peer reset", cause)
}

// IoError reports a socket read/write failure unrelated to protocol framing.
func IoError(cause error) error {
	return wrap(KindIoError, "io error", cause)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
