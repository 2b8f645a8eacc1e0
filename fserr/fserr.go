// Package fserr translates low-level filesystem errors into stable,
// caller-matchable error values. Every error carries a short token
// (modelled on errno names) and a human readable description, rendered
// as "TOKEN: description". Callers are expected to match on the token,
// not the full message.
package fserr

import (
	"errors"
	"syscall"
)

// Stable error tokens.
const (
	TokenNotFound    = "ENOENT"
	TokenPermission  = "EACCES"
	TokenIsDir       = "EISDIR"
	TokenNotDir      = "ENOTDIR"
	TokenExists      = "EEXIST"
	TokenNoSpace     = "ENOSPC"
	TokenTooManyOpen = "EMFILE"
	TokenNotEmpty    = "ENOTEMPTY"
	TokenTooLarge    = "EFBIG"
	TokenNoMemory    = "ENOMEM"
	TokenClosed      = "ECANCELED"
	TokenUnknown     = "EIO"
)

// Error is a translated filesystem error. It is populated on an operation
// failure and handed to the completion callback; callers that need to keep
// it past the callback should copy the fields they care about.
type Error struct {
	Token string
	Desc  string
}

func (e *Error) Error() string {
	return e.Token + ": " + e.Desc
}

// fallback is returned when no better translation exists. Translate never
// returns nil.
var fallback = &Error{Token: TokenUnknown, Desc: "input/output error"}

var errnoTokens = map[syscall.Errno]string{
	syscall.ENOENT:    TokenNotFound,
	syscall.EACCES:    TokenPermission,
	syscall.EPERM:     TokenPermission,
	syscall.EISDIR:    TokenIsDir,
	syscall.ENOTDIR:   TokenNotDir,
	syscall.EEXIST:    TokenExists,
	syscall.ENOSPC:    TokenNoSpace,
	syscall.EMFILE:    TokenTooManyOpen,
	syscall.ENFILE:    TokenTooManyOpen,
	syscall.ENOTEMPTY: TokenNotEmpty,
	syscall.EFBIG:     TokenTooLarge,
	syscall.ENOMEM:    TokenNoMemory,
}

// Translate maps an OS level error to an Error. It unwraps PathError and
// friends down to the underlying errno. Unknown errors degrade to a generic
// token with the original message preserved in the description.
func Translate(err error) *Error {
	if err == nil {
		return fallback
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		if token, ok := errnoTokens[errno]; ok {
			return &Error{Token: token, Desc: errno.Error()}
		}
		return &Error{Token: TokenUnknown, Desc: errno.Error()}
	}
	return &Error{Token: TokenUnknown, Desc: err.Error()}
}

// TooLarge reports a payload or file that exceeds the configured maximum.
// This is an engine level error, not an OS one.
func TooLarge() *Error {
	return &Error{Token: TokenTooLarge, Desc: "file too large"}
}

// AllocFailed reports a failed buffer allocation, e.g. an arena whose scope
// has already ended.
func AllocFailed() *Error {
	return &Error{Token: TokenNoMemory, Desc: "buffer allocation failed"}
}

// Closed reports an operation whose backend went away mid-flight.
func Closed() *Error {
	return &Error{Token: TokenClosed, Desc: "operation canceled: reactor closed"}
}

func is(err error, token string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Token == token
	}
	return false
}

// IsNotFound reports whether err carries the not-found token.
func IsNotFound(err error) bool { return is(err, TokenNotFound) }

// IsPermission reports whether err carries the permission-denied token.
func IsPermission(err error) bool { return is(err, TokenPermission) }

// IsTooLarge reports whether err carries the too-large token.
func IsTooLarge(err error) bool { return is(err, TokenTooLarge) }

// IsExists reports whether err carries the already-exists token.
func IsExists(err error) bool { return is(err, TokenExists) }
