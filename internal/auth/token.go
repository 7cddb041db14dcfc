package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims for both OTP and access tokens.
type Claims struct {
	UserID int64 `json:"userId"`
	jwt.RegisteredClaims
}

// TokenConfig holds signing configuration for the two token kinds: the
// short-lived OTP token issued while a code is pending, and the long-lived
// access token issued after the code is verified.
type TokenConfig struct {
	OTPSecret    []byte
	AccessSecret []byte
	Issuer       string
	Audience     string
	OTPTTL       time.Duration
	AccessTTL    time.Duration
}

// GenerateOTPToken creates the short-lived token that accompanies an OTP code.
func GenerateOTPToken(cfg *TokenConfig, userID int64) (string, error) {
	return generate(cfg, cfg.OTPSecret, userID, cfg.OTPTTL)
}

// VerifyOTPToken parses and validates an OTP token.
func VerifyOTPToken(cfg *TokenConfig, tokenString string) (*Claims, error) {
	return verify(cfg, cfg.OTPSecret, tokenString)
}

// GenerateAccessToken creates the long-lived access credential.
func GenerateAccessToken(cfg *TokenConfig, userID int64) (string, error) {
	return generate(cfg, cfg.AccessSecret, userID, cfg.AccessTTL)
}

// VerifyAccessToken parses and validates an access token.
func VerifyAccessToken(cfg *TokenConfig, tokenString string) (*Claims, error) {
	return verify(cfg, cfg.AccessSecret, tokenString)
}

func generate(cfg *TokenConfig, secret []byte, userID int64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func verify(cfg *TokenConfig, secret []byte, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, fmt.Errorf("invalid issuer")
	}

	if cfg.Audience != "" {
		validAudience := false
		for _, aud := range claims.Audience {
			if aud == cfg.Audience {
				validAudience = true
				break
			}
		}
		if !validAudience {
			return nil, fmt.Errorf("invalid audience")
		}
	}

	return claims, nil
}
