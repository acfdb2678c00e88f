package httpserver

import "strings"

// queryToken extracts the "token" parameter from a raw query string
// like "token=abc123&foo=bar".
func queryToken(query string) string {
	for _, kv := range strings.Split(query, "&") {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k == "token" {
			return v
		}
	}
	return ""
}

// authenticated reports whether req carries a valid session token,
// either as an Authorization: Bearer header or a ?token= query
// parameter. It always returns true when auth is disabled.
func (s *Server) authenticated(req *Request) bool {
	if s.Auth == nil || !s.Auth.IsEnabled() {
		return true
	}
	if s.BypassAuth != nil && s.BypassAuth() {
		return true
	}
	if tok, ok := strings.CutPrefix(req.AuthHeader, "Bearer "); ok {
		if s.Auth.ValidateToken(tok) {
			return true
		}
	}
	if tok := queryToken(req.Query); tok != "" && s.Auth.ValidateToken(tok) {
		return true
	}
	return false
}
