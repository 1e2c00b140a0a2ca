package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs an in-memory tracer provider for the duration of the
// test. Tests sharing the global provider must not run in parallel.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown tracer provider: %v", err)
		}
	})
	return recorder
}

func spanAttribute(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestMiddlewareRecordsRequestSpan(t *testing.T) {
	recorder := recordSpans(t)

	handler := Middleware("viewkit-demo")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/projects", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	span := spans[0]
	if span.Name() != "HTTP GET /projects" {
		t.Fatalf("span name = %q, want %q", span.Name(), "HTTP GET /projects")
	}
	if value, ok := spanAttribute(span, "http.method"); !ok || value.AsString() != http.MethodGet {
		t.Fatalf("http.method = %v, want GET", value)
	}
	if value, ok := spanAttribute(span, "http.status_code"); !ok || value.AsInt64() != http.StatusNotFound {
		t.Fatalf("http.status_code = %v, want 404", value)
	}
	if span.Status().Code == codes.Error {
		t.Fatal("span status = Error, want unset for a 404")
	}
}

func TestMiddlewareMarksServerErrors(t *testing.T) {
	recorder := recordSpans(t)

	handler := Middleware("viewkit-demo")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/projects", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if got := spans[0].Status().Code; got != codes.Error {
		t.Fatalf("span status = %v, want Error", got)
	}
}

func TestMiddlewareDefaultsStatusTo200(t *testing.T) {
	recorder := recordSpans(t)

	handler := Middleware("viewkit-demo")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			t.Errorf("write: %v", err)
		}
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(spans))
	}
	if value, ok := spanAttribute(spans[0], "http.status_code"); !ok || value.AsInt64() != http.StatusOK {
		t.Fatalf("http.status_code = %v, want 200", value)
	}
}

func TestSetupDisabled(t *testing.T) {
	t.Setenv("VIEWKIT_OTEL_ENABLED", "false")
	t.Setenv("VIEWKIT_OTEL_ENDPOINT", "http://localhost:4318")

	shutdown, err := Setup(context.Background(), "viewkit-demo")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
}

func TestSetupWithoutEndpoint(t *testing.T) {
	t.Setenv("VIEWKIT_OTEL_ENABLED", "")
	t.Setenv("VIEWKIT_OTEL_ENDPOINT", "")

	shutdown, err := Setup(context.Background(), "viewkit-demo")
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error = %v", err)
	}
}
