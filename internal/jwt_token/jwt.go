package jwttoken

import (
	"errors"
	"time"

	"attestor/pkg/domain"
	dErrors "attestor/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents the JWT claims for authenticated-session tokens. The
// subject of a session is a commitment, never a wallet: privacy-preserving
// authentication must not leak the caller's on-chain identity into tokens.
type Claims struct {
	Commitment string `json:"commitment"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// JWTService handles session token creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// GenerateSessionToken mints a signed token for an authenticated commitment.
// The returned jti identifies the session for revocation tracking.
func (s *JWTService) GenerateSessionToken(
	commitment string,
	role domain.Role,
	expiresIn time.Duration) (token string, jti string, err error) {
	jti = uuid.NewString()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Commitment: commitment,
		Role:       role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        jti,
		},
	})

	token, err = newToken.SignedString(s.signingKey)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	return claims, nil
}

// ExtractRole parses a token and returns the role bound to its commitment.
func (s *JWTService) ExtractRole(tokenString string) (domain.Role, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return domain.RoleUnassigned, err
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.RoleUnassigned, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return role, nil
}
