package mw

import (
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
)

// BasicAuth protects every route with HTTP basic auth, except the
// liveness endpoint so orchestrators can probe without credentials.
// Credential comparison is constant time.
func BasicAuth(username, password, realm string) func(http.Handler) http.Handler {
	challenge := `Basic realm="` + realm + `", charset="UTF-8"`

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Basic ") {
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "Authentication required", http.StatusUnauthorized)
				return
			}

			decoded, err := base64.StdEncoding.DecodeString(header[len("Basic "):])
			if err != nil {
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}

			user, pass := string(decoded), ""
			if i := strings.IndexByte(user, ':'); i >= 0 {
				user, pass = user[:i], user[i+1:]
			}

			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
			if !userOK || !passOK {
				w.Header().Set("WWW-Authenticate", challenge)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
