package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VishalVrk/rfid-cart/pkg/middleware"
)

func TestRouter_HealthAndMetrics(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/health/live", http.StatusOK},
		{"/health/ready", http.StatusOK},
		{"/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_PprofNotMountedByDefault(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/debug/pprof/", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart/items", nil)
	req.Header.Set("Origin", "http://kiosk.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestAdminValidator(t *testing.T) {
	secret := "jwt-secret"
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "ops-7",
		"role":    middleware.RoleAdmin,
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	staticOnly := adminValidator(RouterConfig{AdminToken: testAdminToken})
	_, err = staticOnly(signed)
	assert.Error(t, err)

	both := adminValidator(RouterConfig{AdminToken: testAdminToken, AdminJWTSecret: secret})
	c, err := both(signed)
	require.NoError(t, err)
	assert.Equal(t, "ops-7", c.UserID)

	c, err = both(testAdminToken)
	require.NoError(t, err)
	assert.Equal(t, middleware.RoleAdmin, c.Role)
}
