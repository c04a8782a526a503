package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Authenticator resolves an opaque bearer token to the caller's identity.
// Implementations return an error wrapping ErrUnauthenticated for missing,
// malformed, expired or revoked tokens.
type Authenticator interface {
	IdentityFromToken(ctx context.Context, token string) (Identity, error)
}

type Claims struct {
	jwt.RegisteredClaims
	Role   Role   `json:"role"`
	UserID int64  `json:"uid"`
	Name   string `json:"name,omitempty"`
}

type TokenConfig struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// IssuedToken is returned to clients after a successful login.
type IssuedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        Role      `json:"role"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name,omitempty"`
}

// TokenService issues and verifies HS256 access tokens.
type TokenService struct {
	cfg     TokenConfig
	revoked RevocationStore
	now     func() time.Time
}

func NewTokenService(cfg TokenConfig, revoked RevocationStore) *TokenService {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &TokenService{cfg: cfg, revoked: revoked, now: time.Now}
}

func (s *TokenService) Issue(id Identity, name string) (*IssuedToken, error) {
	if !id.Authenticated() {
		return nil, fmt.Errorf("issue token: %w", ErrUnauthenticated)
	}
	now := s.now()
	exp := now.Add(s.cfg.TTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role:   id.Role,
		UserID: id.UserID,
		Name:   name,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		Role:        id.Role,
		UserID:      id.UserID,
		Name:        name,
	}, nil
}

// Parse verifies the signature and registered claims without consulting the
// revocation store.
func (s *TokenService) Parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty token: %w", ErrUnauthenticated)
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// block alg confusion
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.cfg.Secret, nil
	}, opts...)
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("invalid token: %w", ErrUnauthenticated)
	}
	if !claims.Role.Valid() || claims.UserID <= 0 || claims.ID == "" {
		return nil, fmt.Errorf("incomplete token claims: %w", ErrUnauthenticated)
	}
	return claims, nil
}

func (s *TokenService) IdentityFromToken(ctx context.Context, raw string) (Identity, error) {
	claims, err := s.verify(ctx, raw)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Role: claims.Role, UserID: claims.UserID}, nil
}

func (s *TokenService) verify(ctx context.Context, raw string) (*Claims, error) {
	claims, err := s.Parse(raw)
	if err != nil {
		return nil, err
	}
	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("token revoked: %w", ErrUnauthenticated)
		}
	}
	return claims, nil
}

// Revoke invalidates a still-valid token until its natural expiry.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	if s.revoked == nil {
		return errors.New("token revocation is not configured")
	}
	claims, err := s.verify(ctx, raw)
	if err != nil {
		return err
	}
	return s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}
