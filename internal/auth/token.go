package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"qrmenu/internal/config"
)

var signingMethod = jwt.SigningMethodHS256

// ErrInvalidToken is returned for any token that fails to parse or verify.
var ErrInvalidToken = errors.New("invalid session token")

// Claims are the JWT claims of an admin session.
type Claims struct {
	AdminID  string `json:"adminId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Session is the verified identity carried by a request.
type Session struct {
	AdminID   uuid.UUID
	Username  string
	ExpiresAt time.Time
}

// Tokens mints and verifies session tokens.
type Tokens struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewTokens creates a token issuer from the auth configuration.
func NewTokens(cfg config.AuthConfig) *Tokens {
	return &Tokens{
		secret: []byte(cfg.SessionSecret),
		issuer: cfg.Issuer,
		ttl:    cfg.SessionTTL,
		now:    time.Now,
	}
}

// Mint issues a signed token for the admin.
func (t *Tokens) Mint(adminID uuid.UUID, username string) (string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.ttl)

	claims := Claims{
		AdminID:  adminID.String(),
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   adminID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies the token and returns its session.
func (t *Tokens) Parse(token string) (*Session, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(
		token,
		claims,
		func(tok *jwt.Token) (interface{}, error) {
			if tok.Method != signingMethod {
				return nil, fmt.Errorf("unexpected signing method %s", tok.Header["alg"])
			}
			return t.secret, nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	adminID, err := uuid.Parse(claims.AdminID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad admin id", ErrInvalidToken)
	}

	session := &Session{AdminID: adminID, Username: claims.Username}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}
