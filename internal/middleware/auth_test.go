package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ackberry/cinetune/pkg/jwt"
)

func newAuthTestRouter(t *testing.T) (*gin.Engine, *jwt.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	manager := jwt.NewManager("test-secret", 15*time.Minute, time.Hour, "cinetune-test")
	mw := NewAuthMiddleware(manager)

	r := gin.New()
	r.GET("/protected", mw.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})
	return r, manager
}

func doAuthRequest(r *gin.Engine, authorize func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorize != nil {
		authorize(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequireAuthAcceptsAccessToken(t *testing.T) {
	r, manager := newAuthTestRouter(t)

	access, _, _, err := manager.GenerateTokenPair("user-1", "alice")
	if err != nil {
		t.Fatalf("failed to generate tokens: %v", err)
	}

	w := doAuthRequest(r, func(req *http.Request) {
		req.Header.Set(AuthHeaderKey, BearerPrefix+access)
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for access token, got %d", w.Code)
	}
}

func TestRequireAuthRejectsRefreshToken(t *testing.T) {
	r, manager := newAuthTestRouter(t)

	_, refresh, _, err := manager.GenerateTokenPair("user-1", "alice")
	if err != nil {
		t.Fatalf("failed to generate tokens: %v", err)
	}

	w := doAuthRequest(r, func(req *http.Request) {
		req.Header.Set(AuthHeaderKey, BearerPrefix+refresh)
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for refresh token as bearer credential, got %d", w.Code)
	}
}

func TestRequireAuthAcceptsTokenQueryParam(t *testing.T) {
	r, manager := newAuthTestRouter(t)

	access, _, _, err := manager.GenerateTokenPair("user-1", "alice")
	if err != nil {
		t.Fatalf("failed to generate tokens: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected?token="+access, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for token query param, got %d", w.Code)
	}
}

func TestRequireAuthRejectsMissingOrGarbageToken(t *testing.T) {
	r, _ := newAuthTestRouter(t)

	if w := doAuthRequest(r, nil); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without credentials, got %d", w.Code)
	}

	w := doAuthRequest(r, func(req *http.Request) {
		req.Header.Set(AuthHeaderKey, BearerPrefix+"not-a-token")
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for malformed token, got %d", w.Code)
	}
}
