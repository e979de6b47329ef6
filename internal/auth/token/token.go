package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v4"
	"github.com/smallbiznis/masstrack/internal/clock"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"

	issuer = "masstrack"
)

var (
	ErrInvalid = errors.New("invalid_token")
	ErrExpired = errors.New("token_expired")
)

// Claims are carried by both token kinds. Kind keeps a refresh token from
// being accepted as an access token.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
	Kind Kind   `json:"typ"`
}

type Issued struct {
	Token     string
	ID        snowflake.ID
	ExpiresAt time.Time
}

type Config struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	cfg   Config
	clock clock.Clock
	genID *snowflake.Node
}

func NewIssuer(cfg Config, c clock.Clock, genID *snowflake.Node) (*Issuer, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	if strings.TrimSpace(cfg.RefreshSecret) == "" {
		cfg.RefreshSecret = cfg.AccessSecret
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return &Issuer{cfg: cfg, clock: c, genID: genID}, nil
}

func (i *Issuer) AccessTTL() time.Duration { return i.cfg.AccessTTL }

func (i *Issuer) IssueAccess(userID snowflake.ID, role string) (Issued, error) {
	return i.issue(userID, role, KindAccess, i.cfg.AccessTTL, i.cfg.AccessSecret)
}

func (i *Issuer) IssueRefresh(userID snowflake.ID, role string) (Issued, error) {
	return i.issue(userID, role, KindRefresh, i.cfg.RefreshTTL, i.cfg.RefreshSecret)
}

func (i *Issuer) ParseAccess(raw string) (*Claims, error) {
	return i.parse(raw, KindAccess, i.cfg.AccessSecret)
}

func (i *Issuer) ParseRefresh(raw string) (*Claims, error) {
	return i.parse(raw, KindRefresh, i.cfg.RefreshSecret)
}

// UserID extracts the subject of verified claims.
func (c *Claims) UserID() (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Subject)
	if err != nil || id == 0 {
		return 0, ErrInvalid
	}
	return id, nil
}

func (i *Issuer) issue(userID snowflake.ID, role string, kind Kind, ttl time.Duration, secret string) (Issued, error) {
	now := i.clock.Now()
	id := i.genID.Generate()
	expires := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Issuer:    issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Role: role,
		Kind: kind,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return Issued{}, fmt.Errorf("sign %s token: %w", kind, err)
	}
	return Issued{Token: signed, ID: id, ExpiresAt: expires}, nil
}

// parse verifies the signature, then checks time-based claims against the
// injected clock instead of the jwt package's wall clock.
func (i *Issuer) parse(raw string, kind Kind, secret string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalid
	}
	parser := jwt.Parser{SkipClaimsValidation: true}
	claims := &Claims{}
	tok, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return nil, ErrInvalid
	}
	if claims.Kind != kind || claims.Issuer != issuer {
		return nil, ErrInvalid
	}
	now := i.clock.Now()
	if !claims.VerifyExpiresAt(now, true) {
		return nil, ErrExpired
	}
	if !claims.VerifyNotBefore(now, false) {
		return nil, ErrInvalid
	}
	return claims, nil
}
