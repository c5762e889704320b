package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/fhayvy/CodeEntry/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// CallerAddressKey is the gin context key holding the authenticated address
const CallerAddressKey = "caller_address"

var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidSubject = errors.New("token subject is not a valid address")
)

// JWTConfig configures bearer token authentication
type JWTConfig struct {
	Secret string
	// Issuer, when set, must match the iss claim
	Issuer    string
	SkipPaths []string
	// ValidateSubject checks the sub claim before it becomes the caller
	ValidateSubject func(subject string) error
}

// JWTMiddleware authenticates HS256 bearer tokens and stores the sub
// claim as the caller address
func JWTMiddleware(cfg *JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, p := range cfg.SkipPaths {
			if c.Request.URL.Path == p {
				c.Next()
				return
			}
		}

		subject, err := ParseToken(cfg, bearerToken(c.GetHeader("Authorization")))
		if err != nil {
			msg := "Invalid or missing token"
			switch {
			case errors.Is(err, ErrTokenExpired):
				msg = "Token expired"
			case errors.Is(err, ErrInvalidSubject):
				msg = "Token subject is not a valid address"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Unauthorized(msg))
			return
		}

		SetCallerAddress(c, subject)
		c.Next()
	}
}

// ParseToken verifies the token and returns its subject
func ParseToken(cfg *JWTConfig, tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	if cfg.ValidateSubject != nil {
		if err := cfg.ValidateSubject(claims.Subject); err != nil {
			return "", ErrInvalidSubject
		}
	}

	return claims.Subject, nil
}

// IssueToken signs an HS256 token for subject
func IssueToken(secret, issuer, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// SetCallerAddress stores the authenticated address on the context
func SetCallerAddress(c *gin.Context, address string) {
	c.Set(CallerAddressKey, address)
}

// GetCallerAddress returns the authenticated address, if any
func GetCallerAddress(c *gin.Context) (string, bool) {
	address := c.GetString(CallerAddressKey)
	return address, address != ""
}
