package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// DeviceClaims are the claims carried by a mobile device token. The
// platform's account service issues these; this service only verifies them.
type DeviceClaims struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id,omitempty"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// ParseDeviceToken verifies an HS256 bearer token and returns its claims.
func (s *TokenService) ParseDeviceToken(tokenString string) (*DeviceClaims, error) {
	if tokenString == "" {
		return nil, errors.New("missing token")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &DeviceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*DeviceClaims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
