package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/louisbranch/viewkit/sessioncookie"
)

// IntrospectionResult is the introspection response shape served by an auth
// backend.
type IntrospectionResult struct {
	Active      bool     `json:"active"`
	UserID      string   `json:"user_id"`
	DisplayName string   `json:"display_name"`
	Staff       bool     `json:"staff"`
	Superuser   bool     `json:"superuser"`
	Permissions []string `json:"permissions"`
}

// Principal converts an active introspection result into a principal.
// Inactive results resolve to the anonymous principal.
func (res IntrospectionResult) Principal() Principal {
	if !res.Active {
		return Principal{}
	}
	return Principal{
		ID:          strings.TrimSpace(res.UserID),
		DisplayName: strings.TrimSpace(res.DisplayName),
		Staff:       res.Staff,
		Superuser:   res.Superuser,
		Permissions: res.Permissions,
	}
}

// Introspector validates an access token via introspection.
type Introspector interface {
	Introspect(ctx context.Context, token string) (IntrospectionResult, error)
}

// HTTPIntrospector validates tokens against a remote introspection URL.
type HTTPIntrospector struct {
	endpoint string
	secret   string
	client   *http.Client
}

// NewHTTPIntrospector builds an introspector that POSTs bearer tokens to url.
// A nil client falls back to http.DefaultClient.
func NewHTTPIntrospector(url, resourceSecret string, client *http.Client) *HTTPIntrospector {
	return &HTTPIntrospector{endpoint: url, secret: resourceSecret, client: client}
}

func (h *HTTPIntrospector) httpClient() *http.Client {
	if h.client != nil {
		return h.client
	}
	return http.DefaultClient
}

// Introspect posts the token and decodes the introspection response.
func (h *HTTPIntrospector) Introspect(ctx context.Context, token string) (IntrospectionResult, error) {
	var result IntrospectionResult

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, nil)
	if err != nil {
		return result, fmt.Errorf("introspect: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if h.secret != "" {
		req.Header.Set("X-Resource-Secret", h.secret)
	}

	resp, err := h.httpClient().Do(req)
	if err != nil {
		return result, fmt.Errorf("introspect: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("introspect: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("introspect: decode response: %w", err)
	}
	return result, nil
}

// CookieResolver builds a Resolver that introspects the named session cookie.
// Introspection failures are logged and resolve to the anonymous principal so
// a flaky auth backend degrades to logged-out behavior.
func CookieResolver(introspector Introspector, cookieName string) Resolver {
	if strings.TrimSpace(cookieName) == "" {
		cookieName = sessioncookie.Name
	}
	return func(r *http.Request) (Principal, bool) {
		if r == nil || introspector == nil {
			return Principal{}, false
		}
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie == nil {
			return Principal{}, false
		}
		token := strings.TrimSpace(cookie.Value)
		if token == "" {
			return Principal{}, false
		}
		result, err := introspector.Introspect(r.Context(), token)
		if err != nil {
			log.Printf("identity introspect error: %v", err)
			return Principal{}, false
		}
		principal := result.Principal()
		if principal.Anonymous() {
			return Principal{}, false
		}
		return principal, true
	}
}
