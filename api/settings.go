package api

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/garnizeh/jobtrack/internal/tracker"
)

// Cookie names carrying the per-browser tracker preferences.
const (
	cookieAutoNoResponse  = "autoNoResponse"
	cookieNoResponseDays  = "noResponseDays"
	cookieInactiveBottom  = "inactiveBottom"
	cookieEmailNoResponse = "emailNoResponse"
	cookieEmailAddress    = "emailAddress"
)

// settingsFromRequest overlays cookie preferences on def. Missing or
// malformed values keep the default.
func settingsFromRequest(r *http.Request, def tracker.Settings) tracker.Settings {
	s := def
	if v, ok := cookieValue(r, cookieAutoNoResponse); ok {
		s.AutoNoResponse = strings.EqualFold(v, "true")
	}
	if v, ok := cookieValue(r, cookieNoResponseDays); ok {
		if n, err := strconv.Atoi(v); err == nil {
			s.NoResponseDays = n
		}
	}
	if v, ok := cookieValue(r, cookieInactiveBottom); ok {
		s.InactiveBottom = strings.EqualFold(v, "true")
	}
	if v, ok := cookieValue(r, cookieEmailNoResponse); ok {
		s.EmailNoResponse = strings.EqualFold(v, "true")
	}
	if v, ok := cookieValue(r, cookieEmailAddress); ok {
		s.EmailAddress = v
	}
	return s
}

func cookieValue(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	v := c.Value
	if u, err := url.QueryUnescape(v); err == nil {
		v = u
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
