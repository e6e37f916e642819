package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type usernameKeyType struct{}

var (
	usernameKey usernameKeyType
)

func UserFromContext(ctx context.Context) (User, bool) {
	val := ctx.Value(usernameKey)
	if val == nil {
		return User{}, false
	}
	return val.(User), true
}

// MustHaveUser returns the caller identity or panics. Handlers run behind the
// authenticator middleware, so a missing user is a wiring bug, not input.
func MustHaveUser(ctx context.Context) User {
	user, found := UserFromContext(ctx)
	if !found {
		zap.S().Named("auth").Panic("failed to find user in context")
	}
	return user
}

func NewUserContext(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, usernameKey, u)
}

// User is the caller identity every request carries. Organization is the
// tenant boundary the store and resolver scope queries by.
type User struct {
	Username     string
	Organization string
	Token        *jwt.Token
}
