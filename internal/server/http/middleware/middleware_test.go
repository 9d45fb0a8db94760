package middleware

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/polkiloo/snackbar/internal/idempotency"
	pkgAuth "github.com/polkiloo/snackbar/internal/pkg/auth"
	testhelpers "github.com/polkiloo/snackbar/internal/test"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestAuthRequired(t *testing.T) {
	router := gin.New()
	router.Use(AuthRequired(testhelpers.TokenParserStub{}))
	router.GET("/", func(c *gin.Context) {})

	resp := serve(router, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	router = gin.New()
	router.Use(AuthRequired(testhelpers.TokenParserStub{Err: pkgAuth.ErrInvalidToken}))
	router.GET("/", func(c *gin.Context) {})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	if resp = serve(router, req); resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", resp.Code)
	}

	router = gin.New()
	router.Use(AuthRequired(testhelpers.TokenParserStub{Err: context.DeadlineExceeded}))
	router.GET("/", func(c *gin.Context) {})
	if resp = serve(router, req); resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}

	var (
		storedID   int64
		storedRole string
	)
	router = gin.New()
	router.Use(AuthRequired(testhelpers.TokenParserStub{Claims: pkgAuth.Claims{StaffID: 42, Role: "MANAGER"}}))
	router.GET("/", func(c *gin.Context) {
		storedID = c.GetInt64(StaffIDContextKey)
		storedRole = c.GetString(RoleContextKey)
		c.Status(http.StatusOK)
	})
	if resp = serve(router, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if storedID != 42 || storedRole != "MANAGER" {
		t.Fatalf("expected staff 42 MANAGER, got %d %q", storedID, storedRole)
	}
}

func TestRequireRole(t *testing.T) {
	newRouter := func(role string) *gin.Engine {
		router := gin.New()
		router.Use(func(c *gin.Context) {
			c.Set(RoleContextKey, role)
			c.Next()
		})
		router.Use(RequireRole("MANAGER"))
		router.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return router
	}

	if resp := serve(newRouter("CASHIER"), httptest.NewRequest(http.MethodGet, "/", nil)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", resp.Code)
	}
	if resp := serve(newRouter("manager"), httptest.NewRequest(http.MethodGet, "/", nil)); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for manager, got %d", resp.Code)
	}
	if resp := serve(newRouter(""), httptest.NewRequest(http.MethodGet, "/", nil)); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without role, got %d", resp.Code)
	}
}

func TestSetAuthCookie(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	SetAuthCookie(c, "token")
	if got := recorder.Header().Get("Authorization"); got != "Bearer token" {
		t.Fatalf("expected auth header, got %q", got)
	}
	result := recorder.Result()
	t.Cleanup(func() {
		_ = result.Body.Close()
	})
	cookies := result.Cookies()
	if len(cookies) == 0 || cookies[0].Value != "token" {
		t.Fatalf("expected cookie with token, got %+v", cookies)
	}
}

func TestExtractToken(t *testing.T) {
	recorder := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(recorder)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	if token := extractToken(c); token != "" {
		t.Fatalf("expected empty token, got %q", token)
	}
	c.Request.Header.Set("Authorization", "Bearer abc")
	if token := extractToken(c); token != "abc" {
		t.Fatalf("expected token from header, got %q", token)
	}
	c.Request.Header.Del("Authorization")
	c.Request.AddCookie(&http.Cookie{Name: authCookieName, Value: "cookie"})
	if token := extractToken(c); token != "cookie" {
		t.Fatalf("expected token from cookie, got %q", token)
	}
}

func TestDecompressRequest(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, _ = gz.Write([]byte("payload"))
	_ = gz.Close()

	router := gin.New()
	router.Use(DecompressRequest())
	var body string
	router.POST("/", func(c *gin.Context) {
		data, _ := io.ReadAll(c.Request.Body)
		body = string(data)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(bytes.NewReader(buf.Bytes())))
	req.Header.Set("Content-Encoding", "gzip")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK || body != "payload" {
		t.Fatalf("expected decompressed payload, got %q", body)
	}

	req = httptest.NewRequest(http.MethodPost, "/", io.NopCloser(bytes.NewReader([]byte("plain"))))
	resp = httptest.NewRecorder()
	body = ""
	router.ServeHTTP(resp, req)
	if body != "plain" {
		t.Fatalf("expected plain body, got %q", body)
	}
}

func TestDecompressRequestRejectsCorruptBody(t *testing.T) {
	router := gin.New()
	router.Use(DecompressRequest())
	reached := false
	router.POST("/", func(c *gin.Context) { reached = true })

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("definitely not gzip"))
	req.Header.Set("Content-Encoding", "gzip")
	if resp := serve(router, req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if reached {
		t.Fatalf("handler must not run for a corrupt body")
	}
}

func TestCompressResponse(t *testing.T) {
	router := gin.New()
	router.Use(CompressResponse())
	payload := strings.Repeat("coxinha ", 200)
	router.GET("/api/menu", func(c *gin.Context) { c.String(http.StatusOK, payload) })
	router.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/api/menu", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp := serve(router, req)
	if resp.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, got headers %v", resp.Header())
	}
	reader, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	data, _ := io.ReadAll(reader)
	if string(data) != payload {
		t.Fatalf("unexpected decompressed body length %d", len(data))
	}

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp = serve(router, req)
	if resp.Header().Get("Content-Encoding") != "" || resp.Body.String() != "ok" {
		t.Fatalf("health probe must not be compressed")
	}
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(RequestLogger(zap.New(core)))
	router.GET("/ok/:id", func(c *gin.Context) {
		c.Set(StaffIDContextKey, int64(9))
		c.Status(http.StatusOK)
	})
	router.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	router.GET("/broken", func(c *gin.Context) {
		_ = c.Error(io.ErrUnexpectedEOF)
		c.Status(http.StatusInternalServerError)
	})

	serve(router, httptest.NewRequest(http.MethodGet, "/ok/5", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/missing", nil))
	serve(router, httptest.NewRequest(http.MethodGet, "/broken", nil))

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantLevels := []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, e := range entries {
		if e.Level != wantLevels[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, wantLevels[i], e.Level)
		}
	}
	first := entries[0].ContextMap()
	if first["route"] != "/ok/:id" || first["path"] != "/ok/5" || first["staff_id"] != int64(9) {
		t.Fatalf("unexpected fields %v", first)
	}
	if _, ok := entries[2].ContextMap()["errors"]; !ok {
		t.Fatalf("expected handler errors to be logged")
	}
}

func TestIdempotency(t *testing.T) {
	router := gin.New()
	router.Use(Idempotency())
	var got idempotency.Key
	router.POST("/orders/:id/settle", func(c *gin.Context) {
		got = IdempotencyKey(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/orders/7/settle", nil)
	req.Header.Set(IdempotencyHeader, "  k-1 ")
	if resp := serve(router, req); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got != (idempotency.Key{Value: "k-1", Operation: "POST /orders/7/settle"}) {
		t.Fatalf("unexpected key %+v", got)
	}

	first := got
	req = httptest.NewRequest(http.MethodPost, "/orders/8/settle", nil)
	req.Header.Set(IdempotencyHeader, "k-1")
	serve(router, req)
	if got.Value != first.Value || got.Operation == first.Operation {
		t.Fatalf("expected the same key on another order to be a distinct operation, got %+v and %+v", first, got)
	}

	got = idempotency.Key{}
	req = httptest.NewRequest(http.MethodPost, "/orders/7/settle", nil)
	serve(router, req)
	if got.Value != "" {
		t.Fatalf("expected empty key without header, got %+v", got)
	}

	req = httptest.NewRequest(http.MethodPost, "/orders/7/settle", nil)
	req.Header.Set(IdempotencyHeader, strings.Repeat("x", 256))
	if resp := serve(router, req); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized key, got %d", resp.Code)
	}

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if key := IdempotencyKey(c); key != (idempotency.Key{}) {
		t.Fatalf("expected zero key outside the middleware, got %+v", key)
	}
}
