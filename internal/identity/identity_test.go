package identity

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware_AssignsCookie(t *testing.T) {
	var seen string
	handler := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ParticipantFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !isValidParticipantID(seen) {
		t.Fatalf("expected valid participant ID in context, got %q", seen)
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == ParticipantCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected participant cookie to be set")
	}
	if cookie.Value != seen {
		t.Errorf("cookie %q does not match context ID %q", cookie.Value, seen)
	}
	if !cookie.HttpOnly {
		t.Error("participant cookie must be HttpOnly")
	}
}

func TestMiddleware_ReusesValidCookie(t *testing.T) {
	const id = "anon_0123456789abcdef0123456789abcdef"

	var seen string
	handler := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ParticipantFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ParticipantCookieName, Value: id})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if seen != id {
		t.Errorf("expected cookie ID reused, got %q", seen)
	}
	for _, c := range w.Result().Cookies() {
		if c.Name == ParticipantCookieName {
			t.Error("valid cookie must not be reissued")
		}
	}
}

func TestMiddleware_HeaderTakesPrecedence(t *testing.T) {
	const headerID = "anon_ffffffffffffffffffffffffffffffff"

	var seen string
	handler := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ParticipantFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ParticipantHeaderName, headerID)
	req.AddCookie(&http.Cookie{Name: ParticipantCookieName, Value: "anon_0123456789abcdef0123456789abcdef"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != headerID {
		t.Errorf("expected header ID, got %q", seen)
	}
}

func TestMiddleware_RejectsMalformedID(t *testing.T) {
	var seen string
	handler := Middleware(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ParticipantFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: ParticipantCookieName, Value: "admin"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen == "admin" {
		t.Fatal("malformed cookie value must not be trusted")
	}
	if !isValidParticipantID(seen) {
		t.Errorf("expected fresh valid ID, got %q", seen)
	}
}

func TestIsValidParticipantID(t *testing.T) {
	cases := []struct {
		id   string
		want bool
	}{
		{"anon_0123456789abcdef0123456789abcdef", true},
		{"anon_0123456789ABCDEF0123456789ABCDEF", false},
		{"anon_short", false},
		{"user_0123456789abcdef0123456789abcdef", false},
		{"", false},
	}
	for _, c := range cases {
		if got := isValidParticipantID(c.id); got != c.want {
			t.Errorf("isValidParticipantID(%q) = %v, want %v", c.id, got, c.want)
		}
	}
}
