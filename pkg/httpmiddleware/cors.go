package httpmiddleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSConfig configures cross-origin access to a cookie-session API.
type CORSConfig struct {
	// Origins lists the frontends allowed to call the API. Empty or "*" is
	// public mode: any origin is answered with a wildcard and no credentials,
	// so browsers never send the session cookie. Listed origins are echoed
	// back with credentials allowed, which keeps the frontend's session.
	Origins []string
	// Headers lists the request headers a frontend may send besides the
	// CORS-safelisted ones.
	Headers []string
	// Expose lists response headers readable by the frontend.
	Expose []string
	// MaxAge caches preflight results in the browser. Zero omits the header.
	MaxAge time.Duration
}

// PublicOrigins reports whether origins describe public mode.
func PublicOrigins(origins []string) bool {
	return len(origins) == 0 || (len(origins) == 1 && origins[0] == "*")
}

// corsMethods are the methods routed under /api.
var corsMethods = strings.Join([]string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
}, ", ")

type corsPolicy struct {
	public  bool
	origins map[string]struct{}
	headers string
	expose  string
	maxAge  string
}

func newCORSPolicy(cfg CORSConfig) *corsPolicy {
	p := &corsPolicy{
		public:  PublicOrigins(cfg.Origins),
		origins: make(map[string]struct{}, len(cfg.Origins)),
		headers: strings.Join(cfg.Headers, ", "),
		expose:  strings.Join(cfg.Expose, ", "),
	}
	if !p.public {
		for _, o := range cfg.Origins {
			p.origins[normalizeOrigin(o)] = struct{}{}
		}
	}
	if sec := int(cfg.MaxAge / time.Second); sec > 0 {
		p.maxAge = strconv.Itoa(sec)
	}
	return p
}

// normalizeOrigin lowercases an origin and drops a trailing slash, so
// "https://Shop.example/" matches the browser's "https://shop.example".
func normalizeOrigin(o string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(o)), "/")
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin, or ""
// when it is not allowed.
func (p *corsPolicy) allowOrigin(origin string) string {
	if p.public {
		return "*"
	}
	if _, ok := p.origins[normalizeOrigin(origin)]; ok {
		return origin
	}
	return ""
}

// grant writes the headers shared by preflight and actual responses.
func (p *corsPolicy) grant(h http.Header, allow string) {
	h.Set("Access-Control-Allow-Origin", allow)
	if !p.public {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
}

func (p *corsPolicy) preflight(w http.ResponseWriter, r *http.Request, allow string) {
	h := w.Header()
	h.Add("Vary", "Origin")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Add("Vary", "Access-Control-Request-Headers")
	if allow == "" {
		writeError(w, http.StatusForbidden, "origin not allowed")
		return
	}

	p.grant(h, allow)
	h.Set("Access-Control-Allow-Methods", corsMethods)
	switch {
	case p.headers != "":
		h.Set("Access-Control-Allow-Headers", p.headers)
	case r.Header.Get("Access-Control-Request-Headers") != "":
		h.Set("Access-Control-Allow-Headers", r.Header.Get("Access-Control-Request-Headers"))
	}
	if p.maxAge != "" {
		h.Set("Access-Control-Max-Age", p.maxAge)
	}
	w.WriteHeader(http.StatusNoContent)
}

// CORS returns a middleware answering preflights and decorating actual
// cross-origin requests. Requests from origins that are not allowed still
// reach next, the browser just won't let the frontend read the response.
func CORS(cfg CORSConfig) Middleware {
	p := newCORSPolicy(cfg)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if !p.public {
				// Responses differ per origin once credentials are involved.
				w.Header().Add("Vary", "Origin")
			}
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}

			allow := p.allowOrigin(origin)
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				p.preflight(w, r, allow)
				return
			}
			if allow != "" {
				p.grant(w.Header(), allow)
				if p.expose != "" {
					w.Header().Set("Access-Control-Expose-Headers", p.expose)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
