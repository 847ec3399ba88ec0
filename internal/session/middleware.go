package session

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CookieName is the cookie carrying the session id.
const CookieName = "kart_session"

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by Middleware.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok
}

// Middleware resolves the session cookie, starting a new session when the
// cookie is missing or refers to an expired session.
func (m *Manager) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var (
				s  *Session
				ok bool
			)
			if c, err := r.Cookie(CookieName); err == nil {
				s, ok = m.Get(ctx, c.Value)
			}
			if !ok {
				s = m.Create(ctx)
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    s.ID,
					Path:     "/",
					HttpOnly: true,
					Secure:   m.cfg.CookieSecure,
					SameSite: m.cfg.CookieSameSite,
				})
				zctx.From(ctx).Debug("Session started", zap.String("session_id", s.ID))
			}

			ctx = zctx.With(WithSession(ctx, s), zap.String("session_id", s.ID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
