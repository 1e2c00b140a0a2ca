package render

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter that switches languages explicitly.
	LangParam = "lang"
	// LangCookieName stores the visitor's language preference.
	LangCookieName = "vk_lang"
)

// langCookieTTL keeps an explicit language choice for a year.
const langCookieTTL = 365 * 24 * time.Hour

// Localizer exposes translated formatting used by layouts and handlers.
type Localizer interface {
	Sprintf(key message.Reference, args ...any) string
}

// PrinterLocalizer adapts a message.Printer to the Localizer interface. The
// zero value formats keys without translation.
type PrinterLocalizer struct {
	Printer *message.Printer
}

func (p PrinterLocalizer) Sprintf(key message.Reference, args ...any) string {
	if p.Printer != nil {
		return p.Printer.Sprintf(key, args...)
	}
	if format, ok := key.(string); ok {
		return fmt.Sprintf(format, args...)
	}
	return fmt.Sprint(key)
}

// languageSet matches request languages against the supported tags.
type languageSet struct {
	supported []language.Tag
	matcher   language.Matcher
}

func newLanguageSet(tags []language.Tag) *languageSet {
	if len(tags) == 0 {
		tags = []language.Tag{language.English}
	}
	return &languageSet{
		supported: tags,
		matcher:   language.NewMatcher(tags),
	}
}

func (s *languageSet) parse(value string) (language.Tag, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return language.Tag{}, false
	}
	tag, err := language.Parse(value)
	if err != nil {
		return language.Tag{}, false
	}
	return s.match(tag)
}

func (s *languageSet) match(tags ...language.Tag) (language.Tag, bool) {
	_, index, confidence := s.matcher.Match(tags...)
	if confidence == language.No {
		return language.Tag{}, false
	}
	return s.supported[index], true
}

// resolve determines the best language tag for the request. The bool reports
// whether the lang query param made the selection and should be persisted as
// a cookie.
func (s *languageSet) resolve(r *http.Request) (language.Tag, bool) {
	if r == nil {
		return s.supported[0], false
	}

	if value := strings.TrimSpace(r.URL.Query().Get(LangParam)); value != "" {
		if tag, ok := s.parse(value); ok {
			return tag, true
		}
	}

	if cookie, err := r.Cookie(LangCookieName); err == nil {
		if tag, ok := s.parse(cookie.Value); ok {
			return tag, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil && len(tags) > 0 {
			if tag, ok := s.match(tags...); ok {
				return tag, false
			}
		}
	}

	return s.supported[0], false
}

// ResolveLang determines the best language tag for the request from the lang
// query parameter, the language cookie, then the Accept-Language header. The
// first supported tag is the default; an empty supported list means English
// only.
func ResolveLang(r *http.Request, supported ...language.Tag) language.Tag {
	tag, _ := newLanguageSet(supported).resolve(r)
	return tag
}

// SetLangCookie persists the selected language on the response.
func SetLangCookie(w http.ResponseWriter, tag language.Tag) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LangCookieName,
		Value:    tag.String(),
		Path:     "/",
		MaxAge:   int(langCookieTTL.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// localize resolves the request language, persists explicit selections, and
// returns the matching localizer and language string.
func (rr *Renderer) localize(w http.ResponseWriter, r *http.Request) (Localizer, string) {
	tag, persist := rr.langs.resolve(r)
	if persist {
		SetLangCookie(w, tag)
	}
	return PrinterLocalizer{Printer: message.NewPrinter(tag)}, tag.String()
}
