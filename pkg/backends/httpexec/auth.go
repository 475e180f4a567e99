package httpexec

import (
	"fmt"
	"net/http"
	"strings"
)

type authKind string

const (
	authBearer authKind = "bearer"
	authHeader authKind = "header"
	authQuery  authKind = "query"
)

// AuthStyle describes how a back-end expects its credential: as a bearer
// token, in a named header, or as a query parameter.
type AuthStyle struct {
	kind  authKind
	param string
}

// ParseAuthStyle parses an auth style declaration of the form "bearer",
// "header:<name>", or "query:<param>".
func ParseAuthStyle(s string) (AuthStyle, error) {
	if s == string(authBearer) {
		return AuthStyle{kind: authBearer}, nil
	}

	kind, param, found := strings.Cut(s, ":")
	if found && param != "" {
		switch authKind(kind) {
		case authHeader:
			return AuthStyle{kind: authHeader, param: param}, nil
		case authQuery:
			return AuthStyle{kind: authQuery, param: param}, nil
		}
	}
	return AuthStyle{}, fmt.Errorf("invalid auth style %q: want \"bearer\", \"header:<name>\", or \"query:<param>\"", s)
}

// apply injects the secret into the request per the style.
func (a AuthStyle) apply(req *http.Request, secret string) {
	switch a.kind {
	case authBearer:
		req.Header.Set("Authorization", "Bearer "+secret)
	case authHeader:
		req.Header.Set(a.param, secret)
	case authQuery:
		q := req.URL.Query()
		q.Set(a.param, secret)
		req.URL.RawQuery = q.Encode()
	}
}

// String returns the declaration form the style was parsed from.
func (a AuthStyle) String() string {
	if a.kind == authBearer {
		return string(authBearer)
	}
	return fmt.Sprintf("%s:%s", a.kind, a.param)
}
