// Package weberror defines typed web application errors and their HTTP mapping.
package weberror

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/message"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind names the failure class an Error belongs to.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindUnavailable  Kind = "unavailable"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
)

// Error is an application failure with a stable kind and an optional
// localization key for user-facing copy.
type Error struct {
	Kind    Kind
	Key     string
	Message string
}

// Error returns the message, falling back to the kind name.
func (e Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

// E builds an Error of the given kind.
func E(kind Kind, message string) error {
	return EK(kind, "", message)
}

// EK builds an Error that carries a localization key alongside the message.
func EK(kind Kind, key string, message string) error {
	return Error{
		Kind:    kind,
		Key:     strings.TrimSpace(key),
		Message: message,
	}
}

func asAppError(err error) (Error, bool) {
	var e Error
	ok := stderrors.As(err, &e)
	return e, ok
}

// ConfigError reports invalid handler or middleware wiring. It is returned by
// constructors so composition fails before the server accepts traffic.
type ConfigError struct {
	Component string
	Reason    string
}

// Error renders the component-qualified reason.
func (e ConfigError) Error() string {
	if e.Component == "" {
		return e.Reason
	}
	return e.Component + ": " + e.Reason
}

// Config builds a ConfigError.
func Config(component, reason string) error {
	return ConfigError{Component: strings.TrimSpace(component), Reason: strings.TrimSpace(reason)}
}

// Configf builds a ConfigError with a formatted reason.
func Configf(component, format string, args ...any) error {
	return Config(component, fmt.Sprintf(format, args...))
}

// IsConfig reports whether err carries a wiring configuration failure.
func IsConfig(err error) bool {
	var cfgErr ConfigError
	return stderrors.As(err, &cfgErr)
}

// LocalizationKey extracts the localization key from err, or returns the
// empty string.
func LocalizationKey(err error) string {
	if err == nil {
		return ""
	}
	if e, ok := asAppError(err); ok {
		return strings.TrimSpace(e.Key)
	}
	return ""
}

// kindStatus holds the HTTP status for every kind with a fixed mapping.
// Kinds absent from the table render as 500.
var kindStatus = map[Kind]int{
	KindInvalidInput: http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindUnavailable:  http.StatusServiceUnavailable,
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
}

// HTTPStatus resolves the HTTP status code for err. Nil resolves to 200,
// unrecognized errors to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	e, ok := asAppError(err)
	if !ok {
		return statusFromGRPC(err, http.StatusInternalServerError)
	}
	if code, mapped := kindStatus[e.Kind]; mapped {
		return code
	}
	return http.StatusInternalServerError
}

// grpcKind maps transport status codes onto error kinds. InvalidArgument is
// deliberately absent so callers keep their own input-validation copy.
var grpcKind = map[codes.Code]Kind{
	codes.Unauthenticated:    KindUnauthorized,
	codes.PermissionDenied:   KindForbidden,
	codes.NotFound:           KindNotFound,
	codes.FailedPrecondition: KindConflict,
	codes.Unavailable:        KindUnavailable,
}

func statusFromGRPC(err error, fallback int) int {
	st, ok := status.FromError(err)
	if !ok {
		return fallback
	}
	if st.Code() == codes.InvalidArgument {
		return http.StatusBadRequest
	}
	if kind, mapped := grpcKind[st.Code()]; mapped {
		return kindStatus[kind]
	}
	return fallback
}

// GRPCStatusMapping describes the fallback policy for transport errors that
// do not carry a fixed kind mapping.
type GRPCStatusMapping struct {
	FallbackKind    Kind
	FallbackKey     string
	FallbackMessage string
}

// MapGRPCTransportError converts gRPC transport failures into typed Errors.
// Typed application errors pass through unchanged. Invalid-argument statuses
// use the fallback policy so callers keep their own input-validation copy.
func MapGRPCTransportError(err error, mapping GRPCStatusMapping) error {
	if err == nil {
		return nil
	}
	if _, ok := asAppError(err); ok {
		return err
	}
	fallback := func() error {
		kind := mapping.FallbackKind
		if kind == "" {
			kind = KindUnknown
		}
		return EK(kind, mapping.FallbackKey, mapping.FallbackMessage)
	}
	st, ok := status.FromError(err)
	if !ok {
		return fallback()
	}
	kind, mapped := grpcKind[st.Code()]
	if !mapped {
		return fallback()
	}
	return E(kind, st.Message())
}

// LocalizedGRPCMessage extracts a user-facing message attached to a gRPC
// status error, preferring an exact locale match over the first detail.
func LocalizedGRPCMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	first := ""
	for _, detail := range st.Details() {
		localized, ok := detail.(*errdetails.LocalizedMessage)
		if !ok {
			continue
		}
		text := strings.TrimSpace(localized.GetMessage())
		if text == "" {
			continue
		}
		if first == "" {
			first = text
		}
		if locale != "" && strings.EqualFold(strings.TrimSpace(localized.GetLocale()), locale) {
			return text
		}
	}
	return first
}

// GRPCReason returns the machine-readable reason attached via ErrorInfo details.
func GRPCReason(err error) string {
	if err == nil {
		return ""
	}
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, detail := range st.Details() {
		info, ok := detail.(*errdetails.ErrorInfo)
		if !ok {
			continue
		}
		if reason := strings.TrimSpace(info.GetReason()); reason != "" {
			return reason
		}
	}
	return ""
}

// Localizer provides translated strings for error messages.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// PublicMessage resolves a user-safe localized error message. Internal error
// text never reaches the response body.
func PublicMessage(loc Localizer, err error) string {
	if err == nil {
		return ""
	}
	if loc != nil {
		if key := LocalizationKey(err); key != "" {
			if localized := strings.TrimSpace(loc.Sprintf(key)); localized != "" {
				return localized
			}
		}
	}
	if localized := LocalizedGRPCMessage(err, ""); localized != "" {
		return localized
	}
	statusCode := HTTPStatus(err)
	if statusCode < http.StatusBadRequest {
		statusCode = http.StatusInternalServerError
	}
	if text := strings.TrimSpace(http.StatusText(statusCode)); text != "" {
		return text
	}
	return http.StatusText(http.StatusInternalServerError)
}

// ShouldRenderErrorPage reports whether status should use app error-page UX.
func ShouldRenderErrorPage(statusCode int) bool {
	return statusCode == http.StatusNotFound || statusCode >= http.StatusInternalServerError
}
