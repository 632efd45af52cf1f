package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"

	"digital_legacy_echo/internal/models"
)

// SessionCookieName is the cookie holding the Firebase session
const SessionCookieName = "session"

// ErrNoCredentials means the request carried no credentials a verifier understands.
var ErrNoCredentials = errors.New("no credentials")

// Identity is a verified caller
type Identity struct {
	UID   string
	Email string
}

// IdentityVerifier extracts and verifies the caller's identity from a request.
type IdentityVerifier interface {
	Verify(ctx context.Context, r *http.Request) (*Identity, error)
}

// SessionCookieVerifier is satisfied by *auth.Client.
type SessionCookieVerifier interface {
	VerifySessionCookie(ctx context.Context, sessionCookie string) (*auth.Token, error)
}

// FirebaseSessionVerifier verifies the Firebase session cookie set at login
type FirebaseSessionVerifier struct {
	client SessionCookieVerifier
}

func NewFirebaseSessionVerifier(client SessionCookieVerifier) *FirebaseSessionVerifier {
	return &FirebaseSessionVerifier{client: client}
}

func (v *FirebaseSessionVerifier) Verify(ctx context.Context, r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrNoCredentials
	}

	token, err := v.client.VerifySessionCookie(ctx, cookie.Value)
	if err != nil {
		return nil, err
	}

	id := &Identity{UID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	return id, nil
}

// ChainVerifier asks each verifier in turn and uses the first one that finds credentials.
type ChainVerifier []IdentityVerifier

func (c ChainVerifier) Verify(ctx context.Context, r *http.Request) (*Identity, error) {
	for _, v := range c {
		if v == nil {
			continue
		}
		id, err := v.Verify(ctx, r)
		if errors.Is(err, ErrNoCredentials) {
			continue
		}
		return id, err
	}
	return nil, ErrNoCredentials
}

// RoleLookup resolves a verified identity to the stored profile
type RoleLookup interface {
	FindByIdentity(ctx context.Context, uid, email string) (*models.User, error)
}

// RequireRole rejects callers without a verified identity (401) and callers
// whose profile does not hold one of roles (403).
func RequireRole(verifier IdentityVerifier, users RoleLookup, roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if verifier == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			id, err := verifier.Verify(c.Request().Context(), c.Request())
			if err != nil || id == nil {
				if err != nil && !errors.Is(err, ErrNoCredentials) {
					c.Logger().Warnf("rejected credentials: %v", err)
					clearSessionCookie(c)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			user, err := users.FindByIdentity(c.Request().Context(), id.UID, strings.ToLower(id.Email))
			if err != nil || !user.HasRole(roles...) {
				return echo.NewHTTPError(http.StatusForbidden, "Forbidden")
			}

			c.Set("user", user)
			c.Set("userUID", id.UID)
			c.Set("userEmail", user.Email)
			return next(c)
		}
	}
}

// CurrentUser returns the profile RequireRole stored on the context.
func CurrentUser(c echo.Context) *models.User {
	user, _ := c.Get("user").(*models.User)
	return user
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		MaxAge:   -1,
		HttpOnly: true,
		Path:     "/",
	})
}
