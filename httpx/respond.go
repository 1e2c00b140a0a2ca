package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/louisbranch/viewkit/weberror"
)

const hxRequestHeader = "HX-Request"
const hxRedirectHeader = "HX-Redirect"

var errNilWriter = errors.New("response writer is required")

// begin sets the content type and status before any body bytes.
func begin(w http.ResponseWriter, contentType string, status int) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
}

// WriteJSON encodes payload and writes it with the provided status code.
// Nothing reaches the wire when encoding fails.
func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return errNilWriter
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	begin(w, "application/json; charset=utf-8", status)
	_, err = w.Write(body)
	return err
}

// WriteJSONError writes a JSON error envelope with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message string) error {
	return WriteJSON(w, status, map[string]any{"error": message})
}

// WriteHTML writes already-rendered markup with the provided status code.
func WriteHTML(w http.ResponseWriter, status int, markup string) error {
	if w == nil {
		return errNilWriter
	}
	begin(w, "text/html; charset=utf-8", status)
	_, err := io.WriteString(w, markup)
	return err
}

// WriteError writes a plain text error response, mapping err to an HTTP
// status through weberror. A nil err writes 200.
func WriteError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Error(w, err.Error(), weberror.HTTPStatus(err))
}

// IsHTMXRequest reports whether the request came from HTMX.
func IsHTMXRequest(r *http.Request) bool {
	return r != nil && strings.EqualFold(r.Header.Get(hxRequestHeader), "true")
}

// WriteHXRedirect asks the HTMX client to navigate. The response itself
// stays 200 so HTMX processes the header.
func WriteHXRedirect(w http.ResponseWriter, location string) {
	if w == nil {
		return
	}
	w.Header().Set(hxRedirectHeader, location)
	w.WriteHeader(http.StatusOK)
}

// WriteRedirect redirects the client, using the HX-Redirect header for HTMX
// requests and a 302 otherwise.
func WriteRedirect(w http.ResponseWriter, r *http.Request, location string) {
	switch {
	case w == nil:
	case IsHTMXRequest(r):
		WriteHXRedirect(w, location)
	case r == nil:
		w.Header().Set("Location", location)
		w.WriteHeader(http.StatusFound)
	default:
		http.Redirect(w, r, location, http.StatusFound)
	}
}
