package mitene

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// DefaultBaseURL is the album service origin
	DefaultBaseURL = "https://mitene.us"

	// LoginPath is appended to the album URL for the login form
	LoginPath = "/login"

	// SubmitMarker is the value of the login form's commit field
	SubmitMarker = "Login"
)

// RequiredCookies must all be present (by prefix) after a successful login
var RequiredCookies = []string{
	"follower_access_token",
	"_mitene_session",
	"follower_session_token",
}

var authenticityTokenPattern = regexp.MustCompile(`name="authenticity_token" value="([^"]+)"`)

// AlbumURL builds the album address for an id token
func AlbumURL(baseURL, idToken string) string {
	return fmt.Sprintf("%s/f/%s", strings.TrimRight(baseURL, "/"), url.PathEscape(idToken))
}

// LoginURL is the login form address for an album
func LoginURL(albumURL string) string {
	return albumURL + LoginPath
}

// isLoginPage reports whether u is the album's login form or the site-wide one.
// Expired sessions are redirected there from the listing.
func isLoginPage(u *url.URL, albumURL string) bool {
	path := strings.TrimRight(u.Path, "/")
	if path == LoginPath {
		return true
	}
	login, err := url.Parse(LoginURL(albumURL))
	return err == nil && path == login.Path
}

// PageURL is the listing address for a 1-based page number
func PageURL(albumURL string, page int) string {
	params := url.Values{}
	params.Set("page", fmt.Sprint(page))
	return albumURL + "?" + params.Encode()
}

// LoginForm builds the form body posted to the login endpoint
func LoginForm(authenticityToken, password string) url.Values {
	form := url.Values{}
	form.Set("authenticity_token", authenticityToken)
	form.Set("session[password]", password)
	form.Set("commit", SubmitMarker)
	return form
}

// findAuthenticityToken returns the CSRF token embedded in the login page
func findAuthenticityToken(page []byte) (string, bool) {
	m := authenticityTokenPattern.FindSubmatch(page)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}
