package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newTestRouter(resolve Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", RequireUser("secret", "classroom-api", resolve), func(c *gin.Context) {
		claims, _ := ClaimsFrom(c)
		c.JSON(http.StatusOK, gin.H{"sub": claims.Subject, "role": claims.Role})
	})
	return r
}

func TestRequireUserCookieTransport(t *testing.T) {
	token, _, _ := Issue("user-1", "principal", "classroom-api", "secret", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	resp := httptest.NewRecorder()

	newTestRouter(nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRequireUserBearerTransport(t *testing.T) {
	token, _, _ := Issue("user-1", "teacher", "classroom-api", "secret", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	newTestRouter(nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRequireUserMissingCredential(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp := httptest.NewRecorder()

	newTestRouter(nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRequireUserBadToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	resp := httptest.NewRecorder()

	newTestRouter(nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRequireUserStrictModeRejectsDeletedUser(t *testing.T) {
	resolve := func(ctx context.Context, userID string) (string, error) {
		return "", errors.New("not found")
	}
	token, _, _ := Issue("user-1", "principal", "classroom-api", "secret", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	newTestRouter(resolve).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestRequireUserStrictModeOverridesStaleRole(t *testing.T) {
	resolve := func(ctx context.Context, userID string) (string, error) {
		return "student", nil
	}
	// token still claims teacher
	token, _, _ := Issue("user-1", "teacher", "classroom-api", "secret", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()

	newTestRouter(resolve).ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body := resp.Body.String(); !strings.Contains(body, `"role":"student"`) {
		t.Fatalf("expected resolved role in context, got %s", body)
	}
}
