package page

import (
	"net/url"
	"strings"
)

// DefaultURL is the bundled page loaded when no deep link applies
const DefaultURL = "file:///android_asset/index.html"

// Deep link query parameters forwarded to the page
const (
	ParamSessionID = "session_id"
	ParamBaseURL   = "base_url"
)

// ResolveURL returns the page to load. When deepLink carries both session_id
// and base_url they are appended to base; otherwise base is returned as is.
func ResolveURL(base, deepLink string) string {
	sessionID, baseURL, ok := Params(deepLink)
	if !ok {
		return base
	}

	return base + "?" + ParamSessionID + "=" + Encode(sessionID) +
		"&" + ParamBaseURL + "=" + Encode(baseURL)
}

// Params extracts session_id and base_url from a deep link
func Params(deepLink string) (sessionID, baseURL string, ok bool) {
	if deepLink == "" {
		return "", "", false
	}

	u, err := url.Parse(deepLink)
	if err != nil {
		return "", "", false
	}

	query := u.Query()
	if !query.Has(ParamSessionID) || !query.Has(ParamBaseURL) {
		return "", "", false
	}
	return query.Get(ParamSessionID), query.Get(ParamBaseURL), true
}

const upperhex = "0123456789ABCDEF"

// Encode percent-encodes s, leaving only ASCII letters, digits and
// "_-!.~'()*" unescaped. Spaces become %20.
func Encode(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}

	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("_-!.~'()*", c) >= 0
}
