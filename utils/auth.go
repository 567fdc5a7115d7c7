package utils

import (
	"adventcal/config"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer is the issuer claim of every token minted by the service.
const TokenIssuer = "adventcal"

// --- Refresh Secrets ---

// GenerateSecret returns a random hex string handed to anonymous users for re-authentication.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashSecret generates a bcrypt hash for the given secret.
func HashSecret(secret string, cost int) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		log.Error().Stack().Err(err).Msg("failed to hash secret")
		return "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return string(bytes), nil
}

// CheckSecretHash compares a plain secret with a stored bcrypt hash.
func CheckSecretHash(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}

// --- JWT Handling ---

// Claims defines the structure of the JWT claims.
type Claims struct {
	UserID    string `json:"user_id"`
	Anonymous bool   `json:"anonymous"`
	jwt.RegisteredClaims
}

// GenerateJWT creates a token for an anonymous identity and returns it with its expiry.
func GenerateJWT(uid string, cfg *config.Config) (string, time.Time, error) {
	if cfg.JwtSecret == "" {
		log.Error().Msg("JWT secret is empty, cannot generate token")
		return "", time.Time{}, errors.New("JWT secret is not configured")
	}

	now := time.Now()
	expirationTime := now.Add(cfg.TokenLifetime)
	claims := &Claims{
		UserID:    uid,
		Anonymous: true,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    TokenIssuer,
			Subject:   uid,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(cfg.JwtSecret))
	if err != nil {
		log.Error().Stack().Err(err).Msg("failed to sign JWT")
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expirationTime, nil
}

// ValidateJWT parses and validates a JWT token string.
func ValidateJWT(tokenString string, cfg *config.Config) (*Claims, error) {
	if cfg.JwtSecret == "" {
		log.Error().Msg("JWT secret is empty, cannot validate token")
		return nil, errors.New("JWT secret is not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(cfg.JwtSecret), nil
	}, jwt.WithIssuer(TokenIssuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			log.Debug().Msg("JWT validation failed: token expired")
			return nil, errors.New("token has expired")
		}
		log.Warn().Err(err).Msg("JWT validation failed")
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if !token.Valid || claims.UserID == "" {
		log.Warn().Msg("JWT validation failed: token marked as invalid")
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// AuthMiddleware validates the bearer token and stores the user id in the context as "userID".
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			GinUnauthorized(c, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			GinError(c, http.StatusBadRequest, "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := ValidateJWT(parts[1], cfg)
		if err != nil {
			GinUnauthorized(c, fmt.Sprintf("Invalid token: %v", err))
			return
		}

		c.Set("userID", claims.UserID)
		c.Next()
	}
}
