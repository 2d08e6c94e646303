// Package auth resolves the caller identity that every store and sync
// operation takes as a mandatory owner filter. The actual session machinery
// lives outside this service; handlers only ever see a resolved Identity and
// never trust a client-supplied owner field.
package auth

import (
	"errors"

	"github.com/gofiber/fiber/v3"
)

// ErrUnauthenticated indicates the request carried no resolvable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is the resolved caller.
type Identity struct {
	UserID string
}

// Authenticator resolves the identity behind a request.
type Authenticator interface {
	Authenticate(c fiber.Ctx) (Identity, error)
}

// HeaderAuthenticator trusts a gateway-injected user header. Suitable behind
// an authenticating proxy and for tests; not for direct exposure.
type HeaderAuthenticator struct {
	Header string
}

// NewHeaderAuthenticator resolves identities from the X-User-ID header.
func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{Header: "X-User-ID"}
}

func (a *HeaderAuthenticator) Authenticate(c fiber.Ctx) (Identity, error) {
	userID := c.Get(a.Header)
	if userID == "" {
		return Identity{}, ErrUnauthenticated
	}

	return Identity{UserID: userID}, nil
}

const identityKey = "flowdeck.identity"

// Middleware authenticates every request and stashes the identity in the
// request-scoped locals for handlers to pick up.
func Middleware(authenticator Authenticator) fiber.Handler {
	return func(c fiber.Ctx) error {
		identity, err := authenticator.Authenticate(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthenticated",
			})
		}

		c.Locals(identityKey, identity)

		return c.Next()
	}
}

// IdentityFromContext returns the identity stashed by Middleware.
func IdentityFromContext(c fiber.Ctx) (Identity, bool) {
	identity, ok := c.Locals(identityKey).(Identity)

	return identity, ok
}
