package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// LocalAuthenticator validates HS256 tokens signed with a shared key. Meant
// for lab deployments without an external identity provider.
type LocalAuthenticator struct {
	key []byte
}

func NewLocalAuthenticator(key []byte) (*LocalAuthenticator, error) {
	if len(key) == 0 {
		return nil, errors.New("local authentication requires a signing key")
	}
	return &LocalAuthenticator{key: key}, nil
}

func (l *LocalAuthenticator) Authenticate(token string) (User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	t, err := parser.Parse(token, func(t *jwt.Token) (any, error) {
		return l.key, nil
	})
	if err != nil {
		zap.S().Named("auth").Errorw("failed to parse or the token is invalid", "error", err)
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	return l.parseToken(t)
}

func (l *LocalAuthenticator) parseToken(userToken *jwt.Token) (User, error) {
	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, errors.New("failed to parse jwt token claims")
	}

	username, ok := claims["sub"].(string)
	if !ok {
		return User{}, errors.New("token has no subject")
	}
	org, ok := claims["org_id"].(string)
	if !ok {
		return User{}, errors.New("token has no org_id")
	}

	return User{
		Username:     username,
		Organization: org,
		Token:        userToken,
	}, nil
}

// Sign mints a token for the given identity. Used by the CLI login helper
// and tests.
func (l *LocalAuthenticator) Sign(username, org string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    username,
		"org_id": org,
		"iat":    time.Now().Unix(),
		"exp":    time.Now().Add(ttl).Unix(),
	})
	return token.SignedString(l.key)
}

func (l *LocalAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken := r.Header.Get("Authorization")
		if accessToken == "" || len(accessToken) < len("Bearer ") {
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}

		accessToken = accessToken[len("Bearer "):]
		user, err := l.Authenticate(accessToken)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		ctx := NewUserContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
