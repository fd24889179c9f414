package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
)

const (
	csrfCookieName = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "csrf_token"
	csrfCookiePath = "/"
	csrfMaxAge     = 86400 // 24 hours
	tokenSize      = 32    // 32 bytes random data
)

type csrfContextKey struct{}

// CSRFProtection implements the double-submit cookie pattern with
// HMAC-signed tokens.
type CSRFProtection struct {
	secretKey []byte
}

func NewCSRFProtection(secretKey string) *CSRFProtection {
	return &CSRFProtection{
		secretKey: []byte(secretKey),
	}
}

// Middleware enforces CSRF protection on unsafe methods. Every request gets
// the current token in its context so pages can embed it in forms; a missing
// or foreign cookie (e.g. signed with a previous secret) is replaced.
func (c *CSRFProtection) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if cookie, err := r.Cookie(csrfCookieName); err == nil && c.ValidateToken(cookie.Value) {
			token = cookie.Value
		}

		if isSafeMethod(r.Method) {
			if token == "" {
				token = c.GenerateToken()
				c.setCSRFCookie(w, r, token)
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfContextKey{}, token)))
			return
		}

		if token == "" || !c.validateRequest(r, token) {
			http.Error(w, "Forbidden - Invalid CSRF token", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), csrfContextKey{}, token)))
	})
}

// TokenFromContext returns the token Middleware stored for this request.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(csrfContextKey{}).(string)
	return token
}

// GenerateToken creates a new CSRF token with HMAC signature.
// Token format: base64(32 random bytes + 32 bytes HMAC-SHA256 signature)
func (c *CSRFProtection) GenerateToken() string {
	randomBytes := make([]byte, tokenSize)
	_, _ = rand.Read(randomBytes)

	mac := hmac.New(sha256.New, c.secretKey)
	mac.Write(randomBytes)
	signature := mac.Sum(nil)

	token := make([]byte, tokenSize+len(signature))
	copy(token[:tokenSize], randomBytes)
	copy(token[tokenSize:], signature)

	return base64.URLEncoding.EncodeToString(token)
}

// ValidateToken checks if a token has a valid HMAC signature.
func (c *CSRFProtection) ValidateToken(token string) bool {
	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(decoded) != tokenSize+sha256.Size {
		return false
	}

	mac := hmac.New(sha256.New, c.secretKey)
	mac.Write(decoded[:tokenSize])
	return hmac.Equal(decoded[tokenSize:], mac.Sum(nil))
}

// validateRequest checks that the submitted token (header first, then form
// field) matches the cookie token.
func (c *CSRFProtection) validateRequest(r *http.Request, cookieToken string) bool {
	requestToken := r.Header.Get(csrfHeaderName)
	if requestToken == "" {
		requestToken = r.FormValue(csrfFormField)
	}
	if requestToken == "" {
		return false
	}
	return hmac.Equal([]byte(requestToken), []byte(cookieToken))
}

func (c *CSRFProtection) setCSRFCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     csrfCookiePath,
		MaxAge:   csrfMaxAge,
		Secure:   isTLS(r),
		HttpOnly: true, // pages read the token from the rendered form
		SameSite: http.SameSiteStrictMode,
	})
}

// isSafeMethod returns true for HTTP methods that don't require CSRF protection.
func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
