package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fpang/ig-link-hub/internal/errutil"
)

func requestWithAuth(header string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/user-data", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	return req
}

func TestBearerToken_Valid(t *testing.T) {
	token, err := BearerToken(requestWithAuth("Bearer IGQVJ-abc123"))
	if err != nil {
		t.Fatalf("BearerToken: %v", err)
	}
	if token != "IGQVJ-abc123" {
		t.Errorf("expected token IGQVJ-abc123, got %q", token)
	}
}

func TestBearerToken_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"lowercase scheme", "bearer abc"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := BearerToken(requestWithAuth(c.header))
			if err == nil {
				t.Fatal("expected error")
			}
			kind, ok := errutil.KindOf(err)
			if !ok || kind != errutil.KindUnauthorized {
				t.Errorf("expected KindUnauthorized, got %v", err)
			}
		})
	}
}
