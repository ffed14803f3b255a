package core

import "errors"

// Kind classifies a domain failure.
type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindAuth        Kind = "auth"
	KindState       Kind = "state"
	KindStorageRead Kind = "storage_read"
)

var (
	ErrNoActiveRoom       = Fail(KindState, "no active room")
	ErrNoSession          = Fail(KindState, "no active session")
	ErrNoPending          = Fail(KindState, "no pending registration")
	ErrRoomNotFound       = Fail(KindNotFound, "room not found")
	ErrEmptyRoomName      = Fail(KindValidation, "please enter a room name or code")
	ErrEmptyMessage       = Fail(KindValidation, "message is empty")
	ErrInvalidCredentials = Fail(KindAuth, "invalid email or password")
	ErrEmailRegistered    = Fail(KindAuth, "email already registered")
	ErrInvalidOTP         = Fail(KindAuth, "invalid verification code")
	ErrOTPFormat          = Fail(KindValidation, "please enter the complete 4-digit code")
)

// Error wraps a kind and human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Fail builds a domain failure.
func Fail(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// KindOf returns the kind of a domain failure in err's chain, or "" when err
// is not a domain failure.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries a domain failure of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
