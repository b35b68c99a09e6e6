package middleware

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in token claims. "office" is the ward-office operator
// account; staff tokens carry the staff member's field role.
const (
	RoleAdmin  = "admin"
	RoleOffice = "office"
)

var secret = []byte(getJWTSecret())

func getJWTSecret() string {
	if val := os.Getenv("JWT_SECRET"); val != "" {
		return val
	}
	return "supersecret" // fallback
}

// Claims is the verified identity triple the core consumes. SubjectID is the
// admin/office/staff record id; OfficeID is 0 for admin tokens.
type Claims struct {
	SubjectID uint
	Role      string
	OfficeID  uint
}

// GenerateToken signs a token carrying the verified identity triple.
func GenerateToken(subjectID uint, role string, officeID uint) (string, error) {
	claims := jwt.MapClaims{
		"subject_id": subjectID,
		"role":       role,
		"office_id":  officeID,
		"exp":        time.Now().Add(72 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ValidateToken parses a token string and extracts the identity triple.
func ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	subject, ok := mapClaims["subject_id"].(float64)
	if !ok {
		return nil, errors.New("token missing subject_id")
	}
	role, ok := mapClaims["role"].(string)
	if !ok {
		return nil, errors.New("token missing role")
	}
	officeID, _ := mapClaims["office_id"].(float64)
	return &Claims{SubjectID: uint(subject), Role: role, OfficeID: uint(officeID)}, nil
}

// RequireAuth ensures a valid JWT is present and stashes the verified triple
// in the gin context for downstream handlers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		claims, err := ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		c.Set("subject_id", claims.SubjectID)
		c.Set("role", claims.Role)
		c.Set("office_id", claims.OfficeID)
		c.Next()
	}
}

// RequireRole ensures the caller authenticated by RequireAuth has one of the
// given roles. It must be registered after RequireAuth in the chain.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString("role")
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

// CallerClaims reads the verified triple back out of the gin context.
func CallerClaims(c *gin.Context) Claims {
	return Claims{
		SubjectID: c.GetUint("subject_id"),
		Role:      c.GetString("role"),
		OfficeID:  c.GetUint("office_id"),
	}
}
