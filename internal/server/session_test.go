package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	sm := NewSessionManager()
	token := sm.Create()
	if token == "" {
		t.Fatal("empty token")
	}
	if !sm.Validate(token) {
		t.Error("fresh token must validate")
	}
	sm.Delete(token)
	if sm.Validate(token) {
		t.Error("deleted token must not validate")
	}
}

func TestSessionExpiry(t *testing.T) {
	sm := NewSessionManager()
	token := sm.Create()
	sm.mu.Lock()
	sm.sessions[token].expiresAt = time.Now().Add(-time.Minute)
	sm.mu.Unlock()
	if sm.Validate(token) {
		t.Error("expired token must not validate")
	}
}

func TestValidateEmptyToken(t *testing.T) {
	if NewSessionManager().Validate("") {
		t.Error("empty token must not validate")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	sm := NewSessionManager()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	if sm.Login(w, r, "admin", "wrong", "admin", "secret") {
		t.Error("wrong password must fail")
	}
	if sm.Login(w, r, "other", "secret", "admin", "secret") {
		t.Error("wrong username must fail")
	}
}

func TestLoginSetsCookie(t *testing.T) {
	sm := NewSessionManager()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	if !sm.Login(w, r, "admin", "secret", "admin", "secret") {
		t.Fatal("valid credentials must succeed")
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != sessionCookieName || cookies[0].Value == "" {
		t.Errorf("cookies = %v", cookies)
	}
	if !sm.Validate(cookies[0].Value) {
		t.Error("cookie token must validate")
	}
}

func TestAuthMiddleware(t *testing.T) {
	sm := NewSessionManager()
	called := false
	handler := sm.AuthMiddleware()(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if called || w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated request: called=%v code=%d", called, w.Code)
	}

	token := sm.Create()
	r := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	r.AddCookie(&http.Cookie{Name: sessionCookieName, Value: token})
	w = httptest.NewRecorder()
	handler(w, r)
	if !called {
		t.Error("authenticated request must pass through")
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name   string
		origin string
		host   string
		want   bool
	}{
		{"no origin header", "", "bridge.local", true},
		{"localhost", "http://localhost:3000", "bridge.local", true},
		{"loopback ip", "http://127.0.0.1:8080", "bridge.local", true},
		{"same origin", "http://bridge.local", "bridge.local:8080", true},
		{"private ip", "http://192.168.1.20", "bridge.local", true},
		{"public host", "https://evil.example.com", "bridge.local", false},
		{"garbage origin", "http://[::bad", "bridge.local", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			r.Host = tt.host
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			if got := checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
