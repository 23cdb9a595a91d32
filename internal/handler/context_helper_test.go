package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightclass/brightclass-api/internal/middleware"
	"github.com/brightclass/brightclass-api/internal/models"
)

func newTestContext(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req, err := http.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	require.NoError(t, err)
	c.Request = req
	return c
}

func TestClaimsFromContext(t *testing.T) {
	c := newTestContext(t, "")
	assert.Nil(t, claimsFromContext(c))

	c.Set(middleware.ContextUserKey, "not-claims")
	assert.Nil(t, claimsFromContext(c))

	claims := &models.JWTClaims{UserID: "u1", SchoolID: "school-1", Role: models.RoleAdmin}
	c.Set(middleware.ContextUserKey, claims)
	got := claimsFromContext(c)
	require.NotNil(t, got)
	assert.Equal(t, "school-1", got.SchoolID)
}

func TestParseIntQuery(t *testing.T) {
	c := newTestContext(t, "page=3&size=abc")
	assert.Equal(t, 3, parseIntQuery(c, "page", 1))
	assert.Equal(t, 20, parseIntQuery(c, "size", 20))
	assert.Equal(t, 1, parseIntQuery(c, "missing", 1))
}

func TestParseDateQuery(t *testing.T) {
	c := newTestContext(t, "from=2026-04-01&to=yesterday")
	from := parseDateQuery(c, "from")
	require.NotNil(t, from)
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Nil(t, parseDateQuery(c, "to"))
	assert.Nil(t, parseDateQuery(c, "missing"))
}

func TestParseBoolQuery(t *testing.T) {
	c := newTestContext(t, "active=true&verified=0&bad=maybe")
	active := parseBoolQuery(c, "active")
	require.NotNil(t, active)
	assert.True(t, *active)
	verified := parseBoolQuery(c, "verified")
	require.NotNil(t, verified)
	assert.False(t, *verified)
	assert.Nil(t, parseBoolQuery(c, "bad"))
	assert.Nil(t, parseBoolQuery(c, "missing"))
}
