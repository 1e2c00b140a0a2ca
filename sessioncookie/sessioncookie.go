// Package sessioncookie centralizes session cookie behavior for view scaffolds.
package sessioncookie

import (
	"net/http"
	"strings"

	"github.com/louisbranch/viewkit/requestmeta"
)

// Name is the canonical session cookie name.
const Name = "vk_session"

// Read returns the trimmed session cookie value and whether one is present.
func Read(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	cookie, err := r.Cookie(Name)
	if err != nil || cookie == nil {
		return "", false
	}
	value := strings.TrimSpace(cookie.Value)
	return value, value != ""
}

// Write sets the session cookie under the default scheme policy.
func Write(w http.ResponseWriter, r *http.Request, token string) {
	WriteWithPolicy(w, r, token, requestmeta.SchemePolicy{})
}

// WriteWithPolicy sets the session cookie using the provided scheme policy to
// decide the Secure attribute.
func WriteWithPolicy(w http.ResponseWriter, r *http.Request, token string, policy requestmeta.SchemePolicy) {
	set(w, r, strings.TrimSpace(token), 0, policy)
}

// Clear expires the session cookie under the default scheme policy.
func Clear(w http.ResponseWriter, r *http.Request) {
	ClearWithPolicy(w, r, requestmeta.SchemePolicy{})
}

// ClearWithPolicy expires the session cookie using the provided scheme policy.
func ClearWithPolicy(w http.ResponseWriter, r *http.Request, policy requestmeta.SchemePolicy) {
	set(w, r, "", -1, policy)
}

// set writes the cookie with the shared attributes. The cookie is HttpOnly,
// Lax, and scoped to the site root; maxAge -1 expires it.
func set(w http.ResponseWriter, r *http.Request, value string, maxAge int, policy requestmeta.SchemePolicy) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   policy.IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}
