package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/brightclass/brightclass-api/internal/models"
)

func performRBAC(t *testing.T, claims *models.JWTClaims, paramID string, allowed ...string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	if paramID != "" {
		c.Params = gin.Params{{Key: "id", Value: paramID}}
	}
	RBAC(allowed...)(c)
	return w.Code
}

func TestRBACAllowsListedRole(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}
	code := performRBAC(t, claims, "", string(models.RoleSuperAdmin), string(models.RoleAdmin))
	assert.Equal(t, http.StatusOK, code)
}

func TestRBACRejectsOtherRoles(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleCashier}
	code := performRBAC(t, claims, "", string(models.RoleSuperAdmin), string(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, code)
}

func TestRBACRequiresClaims(t *testing.T) {
	code := performRBAC(t, nil, "", string(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRBACSelfAccess(t *testing.T) {
	claims := &models.JWTClaims{UserID: "u1", Role: models.RoleTeacher}
	assert.Equal(t, http.StatusOK, performRBAC(t, claims, "u1", string(models.RoleAdmin), "SELF"))
	assert.Equal(t, http.StatusForbidden, performRBAC(t, claims, "u2", string(models.RoleAdmin), "SELF"))
}
