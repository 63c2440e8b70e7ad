package middleware

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	apierrors "github.com/harvestline/escrow-ledger/internal/api/shared/errors"
	"github.com/harvestline/escrow-ledger/internal/logger"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	AUTH_TYPE_KEY  contextKey = "auth_type"
	CALLER_KEY     contextKey = "caller"
	JWT_CLAIMS_KEY contextKey = "jwt_claims"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string // RSA public key in PEM format
	// APIKeys entries have the form "<key>=<address>"; the key acts as that address
	APIKeys []string
}

// AuthResult holds the result of authentication
type AuthResult struct {
	Success  bool
	AuthType string // "jwt" or "apikey"
	Claims   *jwt.RegisteredClaims
	Caller   common.Address
	Error    error
}

// Authenticate validates the Authorization header and resolves the caller address
func Authenticate(authHeader string, cfg AuthConfig) AuthResult {
	result := AuthResult{}

	if authHeader == "" {
		result.Error = errors.New("missing Authorization header")
		return result
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		result.Error = errors.New("invalid Authorization header format")
		return result
	}

	credentials := strings.TrimSpace(parts[1])
	switch authType := strings.ToLower(parts[0]); authType {
	case "bearer":
		claims, err := validateJWT(credentials, cfg.JWTPublicKey)
		if err != nil {
			result.Error = err
			return result
		}
		if !common.IsHexAddress(claims.Subject) {
			result.Error = fmt.Errorf("token subject %q is not an address", claims.Subject)
			return result
		}
		result.AuthType = "jwt"
		result.Claims = claims
		result.Caller = common.HexToAddress(claims.Subject)

	case "apikey":
		caller, err := validateAPIKey(credentials, cfg.APIKeys)
		if err != nil {
			result.Error = err
			return result
		}
		result.AuthType = "apikey"
		result.Caller = caller

	default:
		result.Error = fmt.Errorf("unsupported authorization type: %s", authType)
		return result
	}

	result.Success = true
	return result
}

// Auth returns a gin middleware that requires a JWT or API key and records the caller
func Auth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := Authenticate(c.GetHeader("Authorization"), cfg)
		if !result.Success {
			logger.WarnCtx(c.Request.Context(), "Authentication failed",
				zap.Error(result.Error),
				zap.String("path", c.Request.URL.Path),
				zap.String("client_ip", c.ClientIP()),
			)
			apiErr := apierrors.NewUnauthorizedError("Authentication failed", result.Error.Error())
			c.AbortWithStatusJSON(401, gin.H{"error": apiErr})
			return
		}

		c.Set(string(AUTH_TYPE_KEY), result.AuthType)
		c.Set(string(CALLER_KEY), result.Caller)
		if result.Claims != nil {
			c.Set(string(JWT_CLAIMS_KEY), result.Claims)
		}
		c.Request = c.Request.WithContext(logger.WithFields(c.Request.Context(),
			zap.String("caller", result.Caller.Hex()),
			zap.String("auth_type", result.AuthType),
		))
		logger.DebugCtx(c.Request.Context(), "Authentication successful")

		c.Next()
	}
}

// CallerFrom returns the authenticated caller of the request
func CallerFrom(c *gin.Context) (common.Address, bool) {
	v, ok := c.Get(string(CALLER_KEY))
	if !ok {
		return common.Address{}, false
	}
	caller, ok := v.(common.Address)
	return caller, ok
}

// validateJWT validates an RS256 token; jwt/v5 checks exp and nbf while parsing
func validateJWT(tokenString string, publicKeyPEM string) (*jwt.RegisteredClaims, error) {
	if publicKeyPEM == "" {
		return nil, errors.New("JWT public key not configured")
	}

	publicKey, err := parseRSAPublicKey(publicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSA public key: %w", err)
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// parseRSAPublicKey parses an RSA public key from PEM format
func parseRSAPublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, errors.New("failed to parse PEM block containing public key")
	}

	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return x509.ParsePKCS1PublicKey(block.Bytes)
	}

	rsaKey, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}
	return rsaKey, nil
}

// validateAPIKey finds the address bound to apiKey
func validateAPIKey(apiKey string, entries []string) (common.Address, error) {
	if len(entries) == 0 {
		return common.Address{}, errors.New("no API keys configured")
	}
	for _, entry := range entries {
		key, address, ok := strings.Cut(entry, "=")
		if !ok || key == "" || key != apiKey {
			continue
		}
		if !common.IsHexAddress(address) {
			return common.Address{}, fmt.Errorf("API key is bound to malformed address %q", address)
		}
		return common.HexToAddress(address), nil
	}
	return common.Address{}, errors.New("invalid API key")
}
