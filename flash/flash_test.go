package flash

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/louisbranch/viewkit/requestmeta"
)

// carry moves the cookie set by a previous response onto the next request
// and returns it for inspection.
func carry(t *testing.T, rr *httptest.ResponseRecorder, req *http.Request) *http.Cookie {
	t.Helper()
	header := rr.Header().Get("Set-Cookie")
	if header == "" {
		t.Fatal("no Set-Cookie header written")
	}
	cookie, err := http.ParseSetCookie(header)
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	req.AddCookie(cookie)
	return cookie
}

func TestNoticeSurvivesRedirect(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/projects/p1", nil)
	wrote := httptest.NewRecorder()
	Write(wrote, req, NoticeError("projects.notice_delete_failed"))
	carry(t, wrote, req)

	rendered := httptest.NewRecorder()
	notice, ok := ReadAndClear(rendered, req)
	if !ok {
		t.Fatal("ReadAndClear() found no notice")
	}
	want := Notice{Kind: KindError, Key: "projects.notice_delete_failed"}
	if notice != want {
		t.Fatalf("notice = %+v, want %+v", notice, want)
	}

	expired := carry(t, rendered, httptest.NewRequest(http.MethodGet, "/projects/p1", nil))
	if expired.MaxAge >= 0 {
		t.Fatalf("clear cookie MaxAge = %d, want negative", expired.MaxAge)
	}
}

func TestReadAndClearWithoutNotice(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	rr := httptest.NewRecorder()
	if _, ok := ReadAndClear(rr, req); ok {
		t.Fatal("ReadAndClear() reported a notice on a bare request")
	}
	if got := rr.Header().Get("Set-Cookie"); got != "" {
		t.Fatalf("Set-Cookie = %q, want empty", got)
	}
}

func TestReadAndClearExpiresCorruptPayload(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "***"})
	rr := httptest.NewRecorder()

	if _, ok := ReadAndClear(rr, req); ok {
		t.Fatal("ReadAndClear() decoded a corrupt payload")
	}
	expired, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	if expired.MaxAge >= 0 {
		t.Fatalf("clear cookie MaxAge = %d, want negative", expired.MaxAge)
	}
}

func TestWriteNormalizesNotices(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		notice Notice
		want   Notice
		stored bool
	}{
		{
			name:   "kind case and padding",
			notice: Notice{Kind: Kind(" Warning "), Key: " projects.notice_archived "},
			want:   Notice{Kind: KindWarning, Key: "projects.notice_archived"},
			stored: true,
		},
		{
			name:   "blank key",
			notice: Notice{Kind: KindSuccess},
			stored: false,
		},
		{
			name:   "unknown kind",
			notice: Notice{Kind: Kind("celebration"), Key: "projects.notice_created"},
			stored: false,
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/projects", nil)
			rr := httptest.NewRecorder()
			Write(rr, req, tc.notice)
			if !tc.stored {
				if got := rr.Header().Get("Set-Cookie"); got != "" {
					t.Fatalf("Set-Cookie = %q, want empty", got)
				}
				return
			}
			carry(t, rr, req)
			notice, ok := ReadAndClear(httptest.NewRecorder(), req)
			if !ok {
				t.Fatal("ReadAndClear() found no notice")
			}
			if notice != tc.want {
				t.Fatalf("notice = %+v, want %+v", notice, tc.want)
			}
		})
	}
}

func TestWriteWithPolicySecureFlag(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "http://app.test/projects", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	trusted := requestmeta.SchemePolicy{TrustForwardedProto: true}

	rr := httptest.NewRecorder()
	WriteWithPolicy(rr, req, NoticeSuccess("projects.notice_created"), trusted)
	cookie, err := http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	if !cookie.Secure {
		t.Fatal("flash cookie missing Secure behind trusted proxy")
	}
	if !cookie.HttpOnly {
		t.Fatal("flash cookie missing HttpOnly")
	}

	rr = httptest.NewRecorder()
	Write(rr, req, NoticeSuccess("projects.notice_created"))
	cookie, err = http.ParseSetCookie(rr.Header().Get("Set-Cookie"))
	if err != nil {
		t.Fatalf("ParseSetCookie() error = %v", err)
	}
	if cookie.Secure {
		t.Fatal("default policy trusted the forwarded proto")
	}
}

func TestNilWriterSafety(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/projects", nil)
	Write(nil, req, NoticeSuccess("projects.notice_created"))
	Clear(nil, req)

	wrote := httptest.NewRecorder()
	Write(wrote, req, NoticeSuccess("projects.notice_created"))
	carry(t, wrote, req)
	if _, ok := ReadAndClear(nil, req); !ok {
		t.Fatal("ReadAndClear() dropped the notice for a nil writer")
	}
}
