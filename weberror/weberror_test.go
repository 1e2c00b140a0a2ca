package weberror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorString(t *testing.T) {
	t.Parallel()

	if got := (Error{Kind: KindForbidden}).Error(); got != "forbidden" {
		t.Fatalf("Error() = %q, want kind name", got)
	}
	if got := (Error{Kind: KindForbidden, Message: "project is locked"}).Error(); got != "project is locked" {
		t.Fatalf("Error() = %q, want message", got)
	}
}

func TestHTTPStatusByKind(t *testing.T) {
	t.Parallel()

	byKind := map[Kind]int{
		KindInvalidInput: http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindUnavailable:  http.StatusServiceUnavailable,
		KindNotFound:     http.StatusNotFound,
		KindConflict:     http.StatusConflict,
		KindUnknown:      http.StatusInternalServerError,
	}
	for kind, want := range byKind {
		if got := HTTPStatus(E(kind, "failure")); got != want {
			t.Fatalf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
	if got := HTTPStatus(nil); got != http.StatusOK {
		t.Fatalf("HTTPStatus(nil) = %d, want %d", got, http.StatusOK)
	}
	if got := HTTPStatus(errors.New("boom")); got != http.StatusInternalServerError {
		t.Fatalf("HTTPStatus(plain) = %d, want %d", got, http.StatusInternalServerError)
	}
}

func TestHTTPStatusFromGRPCCode(t *testing.T) {
	t.Parallel()

	byCode := map[codes.Code]int{
		codes.InvalidArgument:    http.StatusBadRequest,
		codes.Unauthenticated:    http.StatusUnauthorized,
		codes.PermissionDenied:   http.StatusForbidden,
		codes.NotFound:           http.StatusNotFound,
		codes.FailedPrecondition: http.StatusConflict,
		codes.Unavailable:        http.StatusServiceUnavailable,
		codes.Internal:           http.StatusInternalServerError,
	}
	for code, want := range byCode {
		if got := HTTPStatus(status.Error(code, "transport failure")); got != want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", code, got, want)
		}
	}
}

func TestConfigErrorMapsToInternalError(t *testing.T) {
	t.Parallel()

	err := Config("guard.RequirePermission", "permission must be <realm>.<action>")
	if !IsConfig(err) {
		t.Fatalf("IsConfig(err) = false, want true")
	}
	if got := HTTPStatus(err); got != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", got, http.StatusInternalServerError)
	}
	want := "guard.RequirePermission: permission must be <realm>.<action>"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestConfigErrorSurvivesWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("compose demo server: %w", Configf("listview", "source is required"))
	if !IsConfig(err) {
		t.Fatalf("IsConfig(wrapped) = false, want true")
	}
	if IsConfig(errors.New("boom")) {
		t.Fatalf("IsConfig(plain) = true, want false")
	}
}

func TestMapGRPCTransportErrorKinds(t *testing.T) {
	t.Parallel()

	mapping := GRPCStatusMapping{FallbackKind: KindUnknown, FallbackMessage: "request failed"}
	wantKinds := map[codes.Code]Kind{
		codes.Unauthenticated:    KindUnauthorized,
		codes.PermissionDenied:   KindForbidden,
		codes.NotFound:           KindNotFound,
		codes.FailedPrecondition: KindConflict,
		codes.Unavailable:        KindUnavailable,
	}
	for code, want := range wantKinds {
		mapped := MapGRPCTransportError(status.Error(code, "backend said no"), mapping)
		var e Error
		if !errors.As(mapped, &e) {
			t.Fatalf("MapGRPCTransportError(%v) type = %T, want Error", code, mapped)
		}
		if e.Kind != want {
			t.Fatalf("kind for %v = %q, want %q", code, e.Kind, want)
		}
		if e.Message != "backend said no" {
			t.Fatalf("message for %v = %q, want the transport message", code, e.Message)
		}
	}
}

func TestMapGRPCTransportErrorFallbackPolicy(t *testing.T) {
	t.Parallel()

	mapping := GRPCStatusMapping{
		FallbackKind:    KindInvalidInput,
		FallbackKey:     "projects.error.save_invalid",
		FallbackMessage: "could not save the project",
	}
	unmapped := map[string]error{
		"invalid argument": status.Error(codes.InvalidArgument, "name too long"),
		"internal":         status.Error(codes.Internal, "constraint violated"),
		"plain error":      errors.New("connection reset"),
	}
	for name, err := range unmapped {
		mapped := MapGRPCTransportError(err, mapping)
		var e Error
		if !errors.As(mapped, &e) {
			t.Fatalf("%s: type = %T, want Error", name, mapped)
		}
		if e.Kind != KindInvalidInput {
			t.Fatalf("%s: kind = %q, want %q", name, e.Kind, KindInvalidInput)
		}
		if got := LocalizationKey(mapped); got != "projects.error.save_invalid" {
			t.Fatalf("%s: key = %q, want the fallback key", name, got)
		}
	}

	var e Error
	if mapped := MapGRPCTransportError(errors.New("boom"), GRPCStatusMapping{}); !errors.As(mapped, &e) || e.Kind != KindUnknown {
		t.Fatalf("empty mapping produced %#v, want KindUnknown Error", mapped)
	}
}

func TestMapGRPCTransportErrorPassThrough(t *testing.T) {
	t.Parallel()

	if got := MapGRPCTransportError(nil, GRPCStatusMapping{}); got != nil {
		t.Fatalf("MapGRPCTransportError(nil) = %v, want nil", got)
	}
	typed := EK(KindNotFound, "projects.error.missing", "no such project")
	if got := MapGRPCTransportError(typed, GRPCStatusMapping{FallbackKind: KindUnknown}); got != typed {
		t.Fatalf("typed error was rewritten: %#v", got)
	}
}

func TestLocalizationKey(t *testing.T) {
	t.Parallel()

	err := EK(KindInvalidInput, "  projects.error.name_required  ", "name must be set")
	if got := LocalizationKey(err); got != "projects.error.name_required" {
		t.Fatalf("LocalizationKey(err) = %q, want trimmed key", got)
	}
	if got := LocalizationKey(fmt.Errorf("save project: %w", err)); got != "projects.error.name_required" {
		t.Fatalf("LocalizationKey(wrapped) = %q, want key preserved", got)
	}
	if got := LocalizationKey(errors.New("boom")); got != "" {
		t.Fatalf("LocalizationKey(plain) = %q, want empty", got)
	}
	if got := LocalizationKey(nil); got != "" {
		t.Fatalf("LocalizationKey(nil) = %q, want empty", got)
	}
}

func statusWithLocalizedMessages(t *testing.T) error {
	t.Helper()
	st := status.New(codes.NotFound, "record missing")
	st, err := st.WithDetails(
		&errdetails.ErrorInfo{Reason: "PROJECT_NOT_FOUND", Domain: "viewkit.demo"},
		&errdetails.LocalizedMessage{Locale: "en-US", Message: "Project not found"},
		&errdetails.LocalizedMessage{Locale: "pt-BR", Message: "Projeto nao encontrado"},
	)
	if err != nil {
		t.Fatalf("WithDetails() error = %v", err)
	}
	return st.Err()
}

func TestLocalizedGRPCMessagePrefersLocaleMatch(t *testing.T) {
	t.Parallel()

	err := statusWithLocalizedMessages(t)
	if got := LocalizedGRPCMessage(err, "pt-BR"); got != "Projeto nao encontrado" {
		t.Fatalf("LocalizedGRPCMessage(pt-BR) = %q, want %q", got, "Projeto nao encontrado")
	}
	if got := LocalizedGRPCMessage(err, "fr-FR"); got != "Project not found" {
		t.Fatalf("LocalizedGRPCMessage(fr-FR) = %q, want first detail %q", got, "Project not found")
	}
	if got := LocalizedGRPCMessage(errors.New("boom"), "en-US"); got != "" {
		t.Fatalf("LocalizedGRPCMessage(plain) = %q, want empty", got)
	}
}

func TestGRPCReasonExtractsErrorInfo(t *testing.T) {
	t.Parallel()

	err := statusWithLocalizedMessages(t)
	if got := GRPCReason(err); got != "PROJECT_NOT_FOUND" {
		t.Fatalf("GRPCReason(err) = %q, want %q", got, "PROJECT_NOT_FOUND")
	}
	if got := GRPCReason(errors.New("boom")); got != "" {
		t.Fatalf("GRPCReason(plain) = %q, want empty", got)
	}
}

func TestPublicMessagePrefersLocalizedKey(t *testing.T) {
	t.Parallel()

	loc := message.NewPrinter(language.AmericanEnglish)
	err := EK(KindForbidden, "projects.error.locked", "internal detail")
	if got := PublicMessage(loc, err); got != "projects.error.locked" {
		t.Fatalf("PublicMessage() = %q, want key passthrough %q", got, "projects.error.locked")
	}
}

func TestPublicMessageFallsBackToStatusText(t *testing.T) {
	t.Parallel()

	if got := PublicMessage(nil, errors.New("secret internals")); got != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("PublicMessage() = %q, want %q", got, http.StatusText(http.StatusInternalServerError))
	}
	if got := PublicMessage(nil, E(KindNotFound, "row 42 missing")); got != http.StatusText(http.StatusNotFound) {
		t.Fatalf("PublicMessage() = %q, want %q", got, http.StatusText(http.StatusNotFound))
	}
	if got := PublicMessage(nil, nil); got != "" {
		t.Fatalf("PublicMessage(nil err) = %q, want empty", got)
	}
}

func TestPublicMessageUsesGRPCLocalizedDetail(t *testing.T) {
	t.Parallel()

	err := statusWithLocalizedMessages(t)
	if got := PublicMessage(nil, err); got != "Project not found" {
		t.Fatalf("PublicMessage() = %q, want %q", got, "Project not found")
	}
}

func TestShouldRenderErrorPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status int
		want   bool
	}{
		{status: http.StatusNotFound, want: true},
		{status: http.StatusInternalServerError, want: true},
		{status: http.StatusServiceUnavailable, want: true},
		{status: http.StatusBadRequest, want: false},
		{status: http.StatusUnauthorized, want: false},
		{status: http.StatusFound, want: false},
	}
	for _, tc := range tests {
		if got := ShouldRenderErrorPage(tc.status); got != tc.want {
			t.Fatalf("ShouldRenderErrorPage(%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}
