package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller. Subject identifies the human user
// and is recorded as the approver of credit requests.
type Identity struct {
	Subject   string
	AccountID string
	IsAdmin   bool
}

// Claims is the bearer token payload.
type Claims struct {
	AccountID string `json:"account_id"`
	IsAdmin   bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	redis  *redis.Client
	logger *zap.Logger
}

// NewAuthenticator validates HS256 tokens signed with secret. When rdb is
// not nil, tokens listed under blacklist:<token> are refused.
func NewAuthenticator(secret string, rdb *redis.Client, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		redis:  rdb,
		logger: logger.Named("auth"),
	}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Get token from Authorization header
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		identity, err := a.validateToken(r.Context(), parts[1])
		if err != nil {
			a.logger.Debug("token rejected", zap.Error(err))
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) validateToken(ctx context.Context, tokenString string) (Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Identity{}, err
	}
	if !token.Valid {
		return Identity{}, errors.New("token is not valid")
	}
	if claims.Subject == "" {
		return Identity{}, errors.New("token has no subject")
	}
	if !claims.IsAdmin && claims.AccountID == "" {
		return Identity{}, errors.New("token has no account")
	}

	if a.redis != nil {
		revoked, err := a.redis.Exists(ctx, fmt.Sprintf("blacklist:%s", tokenString)).Result()
		if err != nil {
			a.logger.Warn("token blacklist check failed", zap.Error(err))
		} else if revoked > 0 {
			return Identity{}, errors.New("token has been revoked")
		}
	}

	return Identity{
		Subject:   claims.Subject,
		AccountID: claims.AccountID,
		IsAdmin:   claims.IsAdmin,
	}, nil
}

// RequireAdmin refuses callers without the is_admin claim. It must run after
// Authenticator.Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok || !identity.IsAdmin {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAccount refuses callers whose token is not bound to an account.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok || identity.AccountID == "" {
			http.Error(w, "Seller account required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}
