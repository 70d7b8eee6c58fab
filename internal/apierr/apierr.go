// Package apierr classifies outcomes of the remote API into the four kinds the
// client reacts to: unauthorized, validation, server and network failures.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

// Kind is the discriminant of a classified error.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthorized
	KindValidation
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// CodeInvalidToken marks a validation failure caused by a bad password reset token.
const CodeInvalidToken = "invalid_token"

// Error is a classified API failure.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Unauthorized builds a KindUnauthorized error.
func Unauthorized(op string) *Error {
	return &Error{Kind: KindUnauthorized, Op: op, Status: http.StatusUnauthorized, Message: "Unauthorized"}
}

// Validation builds a KindValidation error.
func Validation(op, message string) *Error {
	if message == "" {
		message = "Validation Error"
	}
	return &Error{Kind: KindValidation, Op: op, Status: http.StatusUnprocessableEntity, Message: message}
}

// InvalidToken builds the validation error used for rejected reset tokens.
func InvalidToken(op string) *Error {
	e := Validation(op, "Invalid or expired token")
	e.Code = CodeInvalidToken
	return e
}

// Server builds a KindServer error.
func Server(op string, status int, message string) *Error {
	if message == "" {
		message = "Server Error"
	}
	return &Error{Kind: KindServer, Op: op, Status: status, Message: message}
}

// Network builds a KindNetwork error wrapping the transport failure.
func Network(op string, cause error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "Network Error", Cause: cause}
}

// body is the error envelope returned by the API. Token carries the legacy
// {"token":"invalid"} discriminator.
type body struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Token   string `json:"token"`
}

// FromStatus classifies a completed HTTP exchange. It returns nil for 2xx/3xx.
func FromStatus(op string, status int, raw []byte) error {
	if status < 400 {
		return nil
	}
	var b body
	if len(raw) > 0 {
		_ = sonic.Unmarshal(raw, &b)
	}
	message := b.Message
	if message == "" {
		message = b.Error
	}

	switch {
	case status == http.StatusUnauthorized:
		return Unauthorized(op)
	case status == http.StatusUnprocessableEntity || status == http.StatusBadRequest:
		if b.Code == CodeInvalidToken || strings.EqualFold(b.Token, "invalid") {
			e := InvalidToken(op)
			if message != "" {
				e.Message = message
			}
			return e
		}
		e := Validation(op, message)
		e.Status = status
		e.Code = b.Code
		return e
	case status >= 500:
		return Server(op, status, message)
	default:
		e := &Error{Kind: KindUnknown, Op: op, Status: status, Code: b.Code, Message: message}
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}
}

// FromTransport classifies a request that never produced a response.
// Context cancellation is kept as-is so callers can tell an abort apart.
func FromTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return Network(op, err)
}

// KindOf returns the kind of the first classified error in the chain.
// Unclassified errors are reported as KindUnknown.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindUnknown
}

// IsUnauthorized reports whether err is KindUnauthorized.
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }

// IsValidation reports whether err is KindValidation.
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// IsServer reports whether err is KindServer.
func IsServer(err error) bool { return KindOf(err) == KindServer }

// IsNetwork reports whether err is KindNetwork.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// IsInvalidToken reports whether err rejects a password reset token.
func IsInvalidToken(err error) bool {
	var typed *Error
	return errors.As(err, &typed) && typed.Kind == KindValidation && typed.Code == CodeInvalidToken
}

// UserMessage maps an error to text suitable for a toast. Validation messages
// come from the server; everything else uses fixed wording.
func UserMessage(err error, serverText string) string {
	var typed *Error
	if !errors.As(err, &typed) {
		return "An unexpected error occurred."
	}
	switch typed.Kind {
	case KindValidation:
		return typed.Message
	case KindServer:
		if serverText != "" {
			return serverText
		}
		return "Server Error"
	case KindNetwork:
		return "Network Error"
	case KindUnauthorized:
		return "Unauthorized"
	default:
		if typed.Message != "" {
			return typed.Message
		}
		return "An unexpected error occurred."
	}
}
