package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/garyjia/trip-finance/internal/application/port"
	"github.com/garyjia/trip-finance/internal/domain/entity"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token expired")
	ErrUnauthenticated = errors.New("no authenticated user")
)

// Claims is the bearer token payload
type Claims struct {
	Name string `json:"name"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 bearer tokens
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a TokenService
func NewTokenService(secret, issuer string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for actor
func (s *TokenService) Issue(actor entity.Actor) (string, error) {
	if actor.ID == "" {
		return "", fmt.Errorf("actor id is required")
	}
	if !validRole(actor.Role) {
		return "", fmt.Errorf("unknown role %q", actor.Role)
	}

	now := s.now()
	claims := Claims{
		Name: actor.Name,
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies raw and returns the actor it names
func (s *TokenService) Parse(raw string) (entity.Actor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return entity.Actor{}, ErrExpiredToken
		}
		return entity.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || !validRole(claims.Role) {
		return entity.Actor{}, ErrInvalidToken
	}

	return entity.Actor{ID: claims.Subject, Name: claims.Name, Role: claims.Role}, nil
}

func validRole(role string) bool {
	switch role {
	case entity.RoleAdmin, entity.RoleManager, entity.RoleOperator:
		return true
	}
	return false
}

type actorKey struct{}

// WithActor stores the authenticated actor in ctx
func WithActor(ctx context.Context, actor entity.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ContextProvider resolves the caller from the request context
type ContextProvider struct{}

// NewContextProvider creates a new ContextProvider
func NewContextProvider() port.IdentityProvider {
	return ContextProvider{}
}

// CurrentUser returns the actor placed in ctx by the auth middleware
func (ContextProvider) CurrentUser(ctx context.Context) (entity.Actor, error) {
	actor, ok := ctx.Value(actorKey{}).(entity.Actor)
	if !ok || actor.ID == "" {
		return entity.Actor{}, ErrUnauthenticated
	}
	return actor, nil
}
