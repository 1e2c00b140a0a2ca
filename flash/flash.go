// Package flash carries one-time notices across a redirect. A handler writes
// a notice before redirecting and the next full page render consumes it.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/louisbranch/viewkit/requestmeta"
)

// CookieName is the canonical cookie used for one-time notices.
const CookieName = "vk_flash"

// Kind selects how a notice is presented.
type Kind string

const (
	KindSuccess Kind = "success"
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Notice stores one flash message reference. Key names a localization entry
// rather than display text.
type Notice struct {
	Kind Kind   `json:"kind"`
	Key  string `json:"key"`
}

// NoticeSuccess builds a success notice for a localization key.
func NoticeSuccess(key string) Notice {
	return Notice{Kind: KindSuccess, Key: key}
}

// NoticeError builds an error notice for a localization key.
func NoticeError(key string) Notice {
	return Notice{Kind: KindError, Key: key}
}

// normalize trims the key, lowercases the kind, and reports whether the
// notice is storable. Notices with a blank key or an unknown kind are not.
func (n Notice) normalize() (Notice, bool) {
	n.Key = strings.TrimSpace(n.Key)
	n.Kind = Kind(strings.ToLower(strings.TrimSpace(string(n.Kind))))
	if n.Key == "" {
		return Notice{}, false
	}
	switch n.Kind {
	case KindSuccess, KindInfo, KindWarning, KindError:
		return n, true
	}
	return Notice{}, false
}

// Write stores the notice for the next page render under the default scheme
// policy.
func Write(w http.ResponseWriter, r *http.Request, notice Notice) {
	WriteWithPolicy(w, r, notice, requestmeta.SchemePolicy{})
}

// WriteWithPolicy stores the notice for the next page render. Invalid notices
// are dropped silently.
func WriteWithPolicy(w http.ResponseWriter, r *http.Request, notice Notice, policy requestmeta.SchemePolicy) {
	if w == nil {
		return
	}
	encoded, ok := encode(notice)
	if !ok {
		return
	}
	setCookie(w, r, encoded, 0, policy)
}

// ReadAndClear consumes the flash notice cookie. The cookie expires even when
// its payload fails to decode.
func ReadAndClear(w http.ResponseWriter, r *http.Request) (Notice, bool) {
	if r == nil {
		return Notice{}, false
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie == nil {
		return Notice{}, false
	}
	if w != nil {
		Clear(w, r)
	}
	return decode(cookie.Value)
}

// Clear expires any pending notice cookie under the default scheme policy.
func Clear(w http.ResponseWriter, r *http.Request) {
	ClearWithPolicy(w, r, requestmeta.SchemePolicy{})
}

// ClearWithPolicy expires any pending notice cookie.
func ClearWithPolicy(w http.ResponseWriter, r *http.Request, policy requestmeta.SchemePolicy) {
	if w == nil {
		return
	}
	setCookie(w, r, "", -1, policy)
}

// setCookie writes the flash cookie with the shared attributes. maxAge -1
// expires it.
func setCookie(w http.ResponseWriter, r *http.Request, value string, maxAge int, policy requestmeta.SchemePolicy) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   policy.IsHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func encode(notice Notice) (string, bool) {
	clean, ok := notice.normalize()
	if !ok {
		return "", false
	}
	payload, err := json.Marshal(clean)
	if err != nil {
		return "", false
	}
	return base64.RawURLEncoding.EncodeToString(payload), true
}

func decode(raw string) (Notice, bool) {
	encoded := strings.TrimSpace(raw)
	if encoded == "" {
		return Notice{}, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Notice{}, false
	}
	var notice Notice
	if err := json.Unmarshal(payload, &notice); err != nil {
		return Notice{}, false
	}
	return notice.normalize()
}
