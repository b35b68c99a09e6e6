package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "driver", 7)
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.SubjectID)
	require.Equal(t, "driver", claims.Role)
	require.Equal(t, uint(7), claims.OfficeID)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	_, err := ValidateToken("not-a-token")
	require.Error(t, err)
}

func newProtectedRouter(handlerRan *bool, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireAuth(), RequireRole(roles...), func(c *gin.Context) {
		if handlerRan != nil {
			*handlerRan = true
		}
		claims := CallerClaims(c)
		c.JSON(http.StatusOK, gin.H{"subject_id": claims.SubjectID})
	})
	return r
}

func TestRequireAuthMissingHeader(t *testing.T) {
	r := newProtectedRouter(nil, RoleOffice)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleForbidsOtherRoles(t *testing.T) {
	var handlerRan bool
	r := newProtectedRouter(&handlerRan, RoleAdmin)
	token, err := GenerateToken(1, RoleOffice, 1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.False(t, handlerRan, "role-gated handler must not execute for a mismatched role")
	require.JSONEq(t, `{"error":"Insufficient permissions"}`, w.Body.String())
}

func TestRequireRoleAllowsListedRole(t *testing.T) {
	var handlerRan bool
	r := newProtectedRouter(&handlerRan, RoleOffice, RoleAdmin)
	token, err := GenerateToken(1, RoleOffice, 1)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, handlerRan)
}
