package mitene

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Session is the authentication state for one album. The token stays empty until a
// login has fully succeeded and is never replaced afterwards.
type Session struct {
	albumURL *url.URL
	password string
	token    string
	jar      http.CookieJar
}

// NewSession creates an unauthenticated session for the album at albumURL
func NewSession(albumURL, password string) (*Session, error) {
	u, err := url.Parse(albumURL)
	if err != nil {
		return nil, fmt.Errorf("invalid album url %q: %w", albumURL, err)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Session{albumURL: u, password: password, jar: jar}, nil
}

// AlbumURL returns the album address
func (s *Session) AlbumURL() string {
	return s.albumURL.String()
}

// Authenticated reports whether login has completed
func (s *Session) Authenticated() bool {
	return s.token != ""
}

// Token returns the authenticity token recorded at login
func (s *Session) Token() string {
	return s.token
}

// Jar is the cookie jar shared by every request of the session
func (s *Session) Jar() http.CookieJar {
	return s.jar
}

func (s *Session) markAuthenticated(token string) {
	if s.token == "" {
		s.token = token
	}
}

// missingCookies lists the required cookie prefixes with no matching cookie in the jar
func (s *Session) missingCookies() []string {
	cookies := s.jar.Cookies(s.albumURL)

	var missing []string
	for _, prefix := range RequiredCookies {
		found := false
		for _, c := range cookies {
			if strings.HasPrefix(c.Name, prefix) {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, prefix)
		}
	}
	return missing
}
