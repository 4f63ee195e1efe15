package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	apperrors "ticketline/internal/errors"
	"ticketline/internal/logger"
	"ticketline/internal/models"
)

// Ctx key and helpers for the authenticated caller.
// Using unexported type to avoid collisions
type ctxKey string

const callerKey ctxKey = "caller"

// Caller is the authenticated principal of a request.
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

func ContextWithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

func CallerFromContext(ctx context.Context) (Caller, bool) {
	caller, ok := ctx.Value(callerKey).(Caller)
	if !ok || caller.UserID == "" {
		return Caller{}, false
	}
	return caller, true
}

// Claims are the JWT claims issued by the auth provider. Subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// IssueToken signs an HS256 token for userID.
func IssueToken(secret, userID, email, role string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
		Email: email,
		Role:  role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// ParseToken validates an HS256 token and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}
	return claims, nil
}

// JWTAuth attaches the caller from a bearer token. Requests without a token
// continue anonymously; a token that fails validation is rejected.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || secret == "" {
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		claims, err := ParseToken(secret, tokenString)
		if err != nil {
			_ = c.Error(err)
			abortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		role := claims.Role
		if role == "" {
			role = models.RoleUser
		}
		caller := Caller{UserID: claims.Subject, Role: role}
		c.Set("user_id", caller.UserID)
		ctx := ContextWithCaller(c.Request.Context(), caller)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(ctx, caller.UserID))
		c.Next()
	}
}

// HookSecret guards endpoints called by the auth provider with a shared secret
// in the X-Hook-Secret header.
func HookSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("X-Hook-Secret")
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			abortWithError(c, apperrors.ErrForbidden)
			return
		}
		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	pub := apperrors.Public(err)
	c.AbortWithStatusJSON(apperrors.HTTPStatus(pub.Code), models.ErrorResponse{
		Code:    string(pub.Code),
		Message: pub.Message,
	})
}
