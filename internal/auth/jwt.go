package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token purposes
const (
	PurposeAccess   = "access"
	PurposeActivate = "activate"
	PurposeReset    = "reset"
)

const (
	// ActivationTTL bounds how long an emailed activation link stays valid
	ActivationTTL = 72 * time.Hour
	// ResetTTL bounds how long an emailed password reset link stays valid
	ResetTTL = 30 * time.Minute
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongPurpose = errors.New("token issued for a different purpose")
)

// Claims carried by every token this service issues
type Claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// TokenManager signs and verifies HS256 tokens
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager creates a new token manager
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// IssueAccess returns a bearer token for the user
func (m *TokenManager) IssueAccess(userID uuid.UUID) (string, error) {
	return m.issue(userID, PurposeAccess, m.ttl)
}

// IssueActivation returns a single-purpose token for the activation email
func (m *TokenManager) IssueActivation(userID uuid.UUID) (string, error) {
	return m.issue(userID, PurposeActivate, ActivationTTL)
}

// IssueReset returns a short-lived token for the password reset email
func (m *TokenManager) IssueReset(userID uuid.UUID) (string, error) {
	return m.issue(userID, PurposeReset, ResetTTL)
}

func (m *TokenManager) issue(userID uuid.UUID, purpose string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the user id it was issued for
func (m *TokenManager) Parse(tokenString, purpose string) (uuid.UUID, error) {
	// Remove "Bearer " prefix if present
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		// Verify the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	if claims.Purpose != purpose {
		return uuid.Nil, ErrWrongPurpose
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return userID, nil
}
