package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Account roles. The three paid roles share their names with plan ids.
const (
	RoleOwner      = "owner"
	RoleBroker     = "broker"
	RoleRoomSharer = "room_sharer"
	RoleSuperadmin = "superadmin"
)

const (
	jwtIssuer   = "flatup-api"
	jwtAudience = "flatup-users"

	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var (
	ErrTokenExpired     = errors.New("token expired")
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidTokenType = errors.New("invalid token type")
	ErrEmptyJWTSecret   = errors.New("jwt secret cannot be empty")
)

// Identity is what a token says about its bearer.
type Identity struct {
	UserID int
	Email  string
	Role   string
}

type Claims struct {
	UserID int       `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	Type   TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Role: c.Role}
}

func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleBroker, RoleRoomSharer, RoleSuperadmin:
		return true
	}
	return false
}

// RoleAfterPurchase is the role an account holds once planID is active.
// Superadmins are never downgraded by buying a plan.
func RoleAfterPurchase(current, planID string) string {
	if current == RoleSuperadmin {
		return current
	}
	return planID
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPassword(hashedPassword, plainPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(plainPassword)) == nil
}

func issue(id Identity, typ TokenType, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptyJWTSecret
	}

	now := time.Now()
	claims := &Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Role:   id.Role,
		Type:   typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			Audience:  []string{jwtAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func IssueAccessToken(id Identity, secret string) (string, error) {
	return issue(id, TokenAccess, secret, AccessTokenTTL)
}

func IssueRefreshToken(id Identity, secret string) (string, error) {
	return issue(id, TokenRefresh, secret, RefreshTokenTTL)
}

// IssueTokens returns an access/refresh pair for id.
func IssueTokens(id Identity, secret string) (access, refresh string, err error) {
	access, err = IssueAccessToken(id, secret)
	if err != nil {
		return "", "", err
	}
	refresh, err = IssueRefreshToken(id, secret)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// ParseToken verifies signature, issuer, audience and expiry, and that the
// token is of the wanted type.
func ParseToken(tokenString, secret string, want TokenType) (*Claims, error) {
	if secret == "" {
		return nil, ErrEmptyJWTSecret
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(jwtIssuer),
		jwt.WithAudience(jwtAudience),
		jwt.WithExpirationRequired(),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != want {
		return nil, ErrInvalidTokenType
	}

	return claims, nil
}
