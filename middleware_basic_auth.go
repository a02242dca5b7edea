package main

import (
	"crypto/subtle"
	"net/http"
)

const adminRealm = `Basic realm="geoguard admin", charset="UTF-8"`

// adminCredentials guard endpoints which mutate a resolver state:
// cache cleanup and circuit reset.
type adminCredentials struct {
	user     []byte
	password []byte
}

func (a adminCredentials) match(req *http.Request) bool {
	user, password, ok := req.BasicAuth()
	if !ok {
		return false
	}

	userMatch := subtle.ConstantTimeCompare(a.user, []byte(user))
	passwordMatch := subtle.ConstantTimeCompare(a.password, []byte(password))

	return userMatch&passwordMatch == 1
}

func (a adminCredentials) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !a.match(req) {
			w.Header().Set("WWW-Authenticate", adminRealm)
			http.Error(w, "Admin credentials are required", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, req)
	})
}

func newBasicAuthMiddleware(user, password string) func(http.Handler) http.Handler {
	creds := adminCredentials{
		user:     []byte(user),
		password: []byte(password),
	}

	return creds.wrap
}
