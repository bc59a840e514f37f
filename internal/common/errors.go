package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure by who is at fault and how it maps onto HTTP.
type Kind string

const (
	KindBadRequest          Kind = "BAD_REQUEST"
	KindUnsupportedMedia    Kind = "UNSUPPORTED_MEDIA_TYPE"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindMethodNotAllowed    Kind = "METHOD_NOT_ALLOWED"
	KindUpstreamUnavailable Kind = "UPSTREAM_UNAVAILABLE"
	KindMalformedResponse   Kind = "MALFORMED_RESPONSE"
	KindInvalidStructure    Kind = "INVALID_STRUCTURE"
	KindInternal            Kind = "INTERNAL"
)

// Error is the application error carried from the pipeline to the HTTP layer.
// Raw holds the unmodified upstream text for MalformedResponse failures.
type Error struct {
	Kind    Kind
	Message string
	Raw     string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so errors.Is(err, ErrInvalidStructure) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Cause == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrBadRequest          = &Error{Kind: KindBadRequest}
	ErrUnsupportedMedia    = &Error{Kind: KindUnsupportedMedia}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrMethodNotAllowed    = &Error{Kind: KindMethodNotAllowed}
	ErrUpstreamUnavailable = &Error{Kind: KindUpstreamUnavailable}
	ErrMalformedResponse   = &Error{Kind: KindMalformedResponse}
	ErrInvalidStructure    = &Error{Kind: KindInvalidStructure}
)

func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func BadRequest(message string) *Error {
	return &Error{Kind: KindBadRequest, Message: message}
}

func UnsupportedMediaType(mediaType string) *Error {
	return &Error{Kind: KindUnsupportedMedia, Message: fmt.Sprintf("unsupported media type %q: only PDF files and images are supported", mediaType)}
}

func UpstreamUnavailable(cause error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: "content-understanding service unavailable", Cause: cause}
}

func MalformedResponse(raw string, cause error) *Error {
	return &Error{Kind: KindMalformedResponse, Message: "failed to parse analysis results", Raw: raw, Cause: cause}
}

func InvalidStructure(message string, cause error) *Error {
	return &Error{Kind: KindInvalidStructure, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// StatusCode maps an error kind onto its HTTP status.
func StatusCode(kind Kind) int {
	switch kind {
	case KindBadRequest, KindUnsupportedMedia:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}
