package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sosline/internal/services"
	"sosline/internal/utils"
	"sosline/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAuthRequired_HeaderAndQuery(t *testing.T) {
	tok, err := utils.GenerateToken("u1", utils.RoleResponder, "+15550001111", "secret", 0)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/me", AuthRequired("secret", logger.Discard()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":   c.GetString("user_id"),
			"user_type": c.GetString("user_type"),
			"phone":     c.GetString("phone"),
		})
	})

	cases := []struct {
		name   string
		header string
		query  string
		status int
	}{
		{name: "bearer header", header: "Bearer " + tok, status: http.StatusOK},
		{name: "query token", query: "?token=" + tok, status: http.StatusOK},
		{name: "missing", status: http.StatusUnauthorized},
		{name: "not bearer", header: tok, status: http.StatusUnauthorized},
		{name: "wrong secret", header: "Bearer " + mustToken(t, "other"), status: http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me"+tc.query, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tc.status, w.Code)
			if tc.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":"u1","user_type":"responder","phone":"+15550001111"}`, w.Body.String())
			}
		})
	}
}

func mustToken(t *testing.T, secret string) string {
	t.Helper()
	tok, err := utils.GenerateToken("u1", utils.RoleResponder, "", secret, 0)
	require.NoError(t, err)
	return tok
}

func TestResponderRequired(t *testing.T) {
	policy := services.NewRoleAccessPolicy([]string{utils.RoleResponder}, nil)

	serve := func(role string) int {
		router := gin.New()
		router.GET("/", func(c *gin.Context) {
			if role != "" {
				c.Set("user_id", "u1")
				c.Set("user_type", role)
			}
		}, ResponderRequired(policy), func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, serve(utils.RoleResponder))
	assert.Equal(t, http.StatusForbidden, serve(utils.RoleOriginator))
	assert.Equal(t, http.StatusUnauthorized, serve(""))
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "%v", c.Request.Context().Value(logger.RequestIDKey))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware([]string{"https://dispatch.example.com"}))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://dispatch.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dispatch.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggingMiddleware_TagsRequestID(t *testing.T) {
	log, err := logger.NewLogger(&logger.Config{Level: logger.InfoLevel, Format: "json"})
	require.NoError(t, err)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	router := gin.New()
	router.Use(RequestIDMiddleware(), LoggingMiddleware(log))
	router.GET("/api/v1/sos/active", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sos/active", nil)
	req.Header.Set("X-Request-ID", "req-42")
	router.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-42", entry["request_id"])
}
