package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/api-sage/atm-simulator/src/internal/domain"
	"github.com/api-sage/atm-simulator/src/internal/logger"
	"github.com/golang-jwt/jwt/v5"
)

const SessionCookieName = "atm_session"

type SessionResolver interface {
	Resolve(ctx context.Context, id string) (domain.Session, bool, error)
}

type sessionIDKey struct{}

// SessionIDFromContext returns the session ID stored by Session, or "".
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey{}).(string)
	return id
}

func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionTokens signs and verifies the cookie value. The token only carries the
// session ID and an expiry; all session state stays server side.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *SessionTokens) Sign(sessionID string) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (t *SessionTokens) Parse(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("missing token")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", fmt.Errorf("invalid session token: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("session token has no subject")
	}

	return claims.Subject, nil
}

// Session attaches a server side session to every request. A missing, forged or
// expired cookie starts a fresh session. The cookie is re-issued on each request
// so its lifetime follows the sliding session expiry.
func Session(resolver SessionResolver, tokens *SessionTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var requestedID string
			if cookie, err := r.Cookie(SessionCookieName); err == nil {
				id, err := tokens.Parse(cookie.Value)
				if err != nil {
					logger.Info("session middleware discarded cookie", logger.Fields{
						"path":   r.URL.Path,
						"reason": err.Error(),
					})
				}
				requestedID = id
			}

			session, created, err := resolver.Resolve(r.Context(), requestedID)
			if err != nil {
				logger.Error("session middleware resolve failed", err, logger.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				})
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			signed, err := tokens.Sign(session.ID)
			if err != nil {
				logger.Error("session middleware sign failed", err, logger.Fields{"sessionId": session.ID})
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    signed,
				Path:     "/",
				MaxAge:   int(tokens.ttl.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			if created {
				logger.Info("session middleware started session", logger.Fields{
					"sessionId": session.ID,
					"path":      r.URL.Path,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), session.ID)))
		})
	}
}
