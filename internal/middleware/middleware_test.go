package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repurposer/internal/repositories"
	"repurposer/internal/services"
)

type mapVerifier map[string]string

func (m mapVerifier) VerifyIdentity(token string) (*services.AccountRef, error) {
	plan, ok := m[token]
	if !ok {
		return nil, nil
	}
	return &services.AccountRef{Email: token, Plan: plan}, nil
}

func newGateway() *services.AccessGateway {
	return services.NewAccessGateway(mapVerifier{"a@x.com": services.PlanFree}, services.NewQuotaService(3, 0, nil), "k")
}

func serve(r *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrValidation, http.StatusBadRequest},
		{services.ErrInvalidOTP, http.StatusBadRequest},
		{services.ErrUnauthorized, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrConflict, http.StatusConflict},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrQuotaExceeded, http.StatusTooManyRequests},
		{services.ErrOTPThrottled, http.StatusTooManyRequests},
		{services.ErrMailNotConfigured, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: timeout", services.ErrUpstreamUnavailable), http.StatusBadGateway},
		{fmt.Errorf("%w: %w", services.ErrStorage, repositories.ErrCorruptStore), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.status, StatusOf(tc.err))
		})
	}
}

func TestStatusFor_ValidationCarriesMessage(t *testing.T) {
	status, msg := StatusFor(&services.ValidationError{Field: "age", Message: "Valid age required"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Valid age required", msg)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(newGateway()))
	r.GET("/plan", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": c.GetString(ContextEmail), "plan": c.GetString(ContextPlan)})
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health", nil).Code, "unprotected path")

	w := serve(r, http.MethodGet, "/plan", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Missing or invalid auth token"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/plan?email=b@x.com", map[string]string{"X-Auth-Token": "a@x.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error":"Token does not match requested email"}`, w.Body.String())

	w = serve(r, http.MethodGet, "/plan", map[string]string{"X-Auth-Token": "ghost@x.com"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(r, http.MethodGet, "/plan?email=A@X.com", map[string]string{"Authorization": "Bearer a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"email":"a@x.com","plan":"free"}`, w.Body.String())
}

func TestRequireAdminKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/users", RequireAdminKey(newGateway()), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin/users", nil).Code)
	assert.Equal(t, http.StatusForbidden, serve(r, http.MethodGet, "/admin/users", map[string]string{"X-Admin-Key": "nope"}).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/admin/users", map[string]string{"X-Admin-Key": " k "}).Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"http://app.test"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/x", map[string]string{"Origin": "http://app.test"})
	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Admin-Key")

	w = serve(r, http.MethodGet, "/x", map[string]string{"Origin": "http://other.test"})
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodOptions, "/x", map[string]string{"Origin": "http://app.test"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	open := gin.New()
	open.Use(CORS([]string{"*"}))
	open.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
	w = serve(open, http.MethodGet, "/x", map[string]string{"Origin": "http://whatever.test"})
	assert.Equal(t, "http://whatever.test", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/x", func(c *gin.Context) {
		assert.NotNil(t, Logger(c))
		c.Status(http.StatusOK)
	})

	w := serve(r, http.MethodGet, "/x", nil)
	assert.Len(t, w.Header().Get(HeaderRequestID), 36)

	w = serve(r, http.MethodGet, "/x", map[string]string{HeaderRequestID: "abc"})
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
}
