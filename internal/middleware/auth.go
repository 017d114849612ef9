package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// CookieName is the session cookie issued by the login handler.
const CookieName = "authenticated"

// Auth guards the HTTP surface with a single shared password. An empty
// password disables it.
type Auth struct {
	password string
	token    string
}

func NewAuth(password string) *Auth {
	sum := sha256.Sum256([]byte("opencv-tracking:" + password))
	return &Auth{password: password, token: hex.EncodeToString(sum[:])}
}

// Enabled reports whether a password is configured.
func (a *Auth) Enabled() bool {
	return a.password != ""
}

// CheckPassword compares candidate with the configured password.
func (a *Auth) CheckPassword(candidate string) bool {
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(a.password)) == 1
}

// Token is the session cookie value for a logged in client.
func (a *Auth) Token() string {
	return a.token
}

// Middleware lets requests through that carry the session cookie or HTTP
// Basic credentials with the configured password.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() || r.URL.Path == "/auth/login" {
			next.ServeHTTP(w, r)
			return
		}

		if cookie, err := r.Cookie(CookieName); err == nil &&
			subtle.ConstantTimeCompare([]byte(cookie.Value), []byte(a.token)) == 1 {
			next.ServeHTTP(w, r)
			return
		}

		if _, password, ok := r.BasicAuth(); ok && a.CheckPassword(password) {
			next.ServeHTTP(w, r)
			return
		}

		// browsers get the Basic prompt, API clients a bare 401
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("WWW-Authenticate", `Basic realm="opencv-tracking"`)
		}
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
