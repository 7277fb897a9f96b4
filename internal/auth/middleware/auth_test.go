package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"search-indexer/internal/auth"
)

const testSecret = "test-signing-secret"

func signToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":   uuid.NewString(),
		"tenant_id": uuid.NewString(),
		"role":      role,
		"exp":       time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newMiddleware() *AuthMiddleware {
	return NewAuthMiddleware(auth.NewClient(auth.Config{
		SigningSecret: testSecret,
		CacheTTL:      time.Minute,
	}))
}

func runRequest(t *testing.T, mw echo.MiddlewareFunc, header string) (*httptest.ResponseRecorder, *auth.UserContext) {
	t.Helper()
	e := echo.New()
	var seen *auth.UserContext
	handler := mw(func(c echo.Context) error {
		seen = UserFromContext(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, seen
}

func TestRequireAuth_ValidToken(t *testing.T) {
	mw := newMiddleware()

	rec, user := runRequest(t, mw.RequireAuth(), "Bearer "+signToken(t, "Member"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if user == nil || user.Role != "Member" {
		t.Errorf("identity not injected: %+v", user)
	}
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	mw := newMiddleware()

	rec, _ := runRequest(t, mw.RequireAuth(), "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	mw := newMiddleware()

	rec, _ := runRequest(t, mw.RequireAuth(), "Bearer not.a.jwt")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	mw := newMiddleware()

	tests := []struct {
		name     string
		identity *auth.UserContext
		want     int
	}{
		{"matching role", &auth.UserContext{Role: "admin"}, http.StatusOK},
		{"wrong role", &auth.UserContext{Role: "Member"}, http.StatusForbidden},
		{"unauthenticated", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			handler := mw.RequireRole("admin")(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.identity != nil {
				ctx := context.WithValue(req.Context(), UserContextKey, tt.identity)
				req = req.WithContext(ctx)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := handler(c); err != nil {
				e.HTTPErrorHandler(err, c)
			}
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
