package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"
)

type fakeRateLimitStore struct {
	count int
	err   error

	scopes []string
	keys   []string
}

func (f *fakeRateLimitStore) Increment(ctx context.Context, scope, key string) (int, error) {
	f.scopes = append(f.scopes, scope)
	f.keys = append(f.keys, key)
	return f.count, f.err
}

func newRateLimitedRouter(store *fakeRateLimitStore, limit int, t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(store, "login", limit, zaptest.NewLogger(t)))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimitAllowsBelowLimit(t *testing.T) {
	store := &fakeRateLimitStore{count: 3}
	router := newRateLimitedRouter(store, 5, t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if len(store.scopes) != 1 || store.scopes[0] != "login" {
		t.Fatalf("expected one increment under login scope, got %v", store.scopes)
	}
}

func TestRateLimitRejectsAboveLimit(t *testing.T) {
	store := &fakeRateLimitStore{count: 6}
	router := newRateLimitedRouter(store, 5, t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rr.Code)
	}
}

func TestRateLimitAllowsOnStoreFailure(t *testing.T) {
	store := &fakeRateLimitStore{err: errors.New("redis down")}
	router := newRateLimitedRouter(store, 5, t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 when store fails, got %d", rr.Code)
	}
}

func TestRateLimitPassthroughWithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RateLimit(nil, "login", 5, zaptest.NewLogger(t)))
	router.GET("/", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
