// Package identity derives a stable per-visitor identifier from an HTTP
// cookie. The identifier is a capability token: the holder may use its
// recorded daily cap. It is not proof of who the user is.
package identity

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultCookieName matches the original product's identity cookie.
	DefaultCookieName = "rex_id"
	// DefaultMaxAge keeps the identity stable for roughly half a year.
	DefaultMaxAge = 180 * 24 * time.Hour
)

// Resolver reads or creates the identity cookie.
type Resolver struct {
	cookieName string
	maxAge     time.Duration
	now        func() time.Time
}

// NewResolver creates a resolver. Empty cookieName or zero maxAge fall back
// to the defaults.
func NewResolver(cookieName string, maxAge time.Duration) *Resolver {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Resolver{cookieName: cookieName, maxAge: maxAge, now: time.Now}
}

// Resolve returns the visitor's client id, minting and setting a new one
// when the cookie is absent or unusable. It never fails and never mints two
// ids in one call; on a nil ResponseWriter the fresh id is still returned
// as an ephemeral identity for this request.
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request) string {
	if c, err := req.Cookie(r.cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := r.newID()
	if w != nil {
		http.SetCookie(w, &http.Cookie{
			Name:     r.cookieName,
			Value:    id,
			Path:     "/",
			MaxAge:   int(r.maxAge.Seconds()),
			Expires:  r.now().Add(r.maxAge),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return id
}

// newID mints an opaque token from random entropy plus the current time.
// Best-effort uniqueness, not cryptographic identity.
func (r *Resolver) newID() string {
	entropy := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("rex_%s_%s", entropy[:12], strconv.FormatInt(r.now().UnixMilli(), 36))
}
