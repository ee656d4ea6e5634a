package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/notify/internal/testutil/testlog"
)

func TestStaticTokenValidate(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name    string
		static  string
		token   string
		wantErr bool
	}{
		{"match", "secret", "secret", false},
		{"mismatch", "secret", "wrong", true},
		{"empty presented", "secret", "", true},
		{"empty configured", "", "anything", true},
		{"both empty", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := StaticToken{Token: tc.static}.Validate(tc.token)
			if tc.wantErr && !errors.Is(err, ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestFuncValidator(t *testing.T) {
	testlog.Start(t)
	var seen string
	v := FuncValidator(func(token string) error {
		seen = token
		if token != "ok" {
			return ErrUnauthorized
		}
		return nil
	})
	if err := v.Validate("ok"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := v.Validate("nope"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if seen != "nope" {
		t.Fatalf("validator did not receive token, got %q", seen)
	}
}

func TestBearerToken(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		header string
		want   string
	}{
		{"Bearer secret", "secret"},
		{"bearer secret", "secret"},
		{"Bearer   secret  ", "secret"},
		{"Basic secret", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := bearerToken(tc.header); got != tc.want {
			t.Fatalf("bearerToken(%q) = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(StaticToken{Token: "secret"}))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer secret", http.StatusOK},
		{"wrong token", "Bearer other", http.StatusUnauthorized},
		{"no header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
