package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func csrfHandler() http.Handler {
	mw := NewCSRFMiddleware(CSRFConfig{})
	return mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCSRFMiddleware_SafeMethodSkipsValidation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := httptest.NewRecorder()

	csrfHandler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// GETでトークンCookieが未設定なら払い出す
func TestCSRFMiddleware_SafeMethodSetsCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := httptest.NewRecorder()

	csrfHandler().ServeHTTP(rec, req)

	var found bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName && c.Value != "" {
			found = true
			if c.HttpOnly {
				t.Error("csrf cookie must be readable from the frontend")
			}
		}
	}
	if !found {
		t.Error("csrf cookie was not set")
	}
}

func TestCSRFMiddleware_MutatingMethodRequiresMatchingTokens(t *testing.T) {
	tests := []struct {
		name       string
		cookie     string
		header     string
		wantStatus int
	}{
		{"一致するトークン", "token-abc", "token-abc", http.StatusOK},
		{"Cookie欠落", "", "token-abc", http.StatusForbidden},
		{"ヘッダー欠落", "token-abc", "", http.StatusForbidden},
		{"トークン不一致", "token-abc", "token-xyz", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/publish", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set(csrfHeaderName, tt.header)
			}
			rec := httptest.NewRecorder()

			csrfHandler().ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestCSRFTokenHandler_IssuesAndReusesToken(t *testing.T) {
	handler := NewCSRFTokenHandler(CSRFConfig{})

	// 初回: 新規トークンを払い出す
	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	token := body["token"]
	if token == "" {
		t.Fatal("token should not be empty")
	}

	// 2回目: 既存のCookieの値をそのまま返す
	req2 := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req2.AddCookie(&http.Cookie{Name: csrfCookieName, Value: token})
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req2)

	var body2 map[string]string
	if err := json.NewDecoder(rec2.Body).Decode(&body2); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body2["token"] != token {
		t.Errorf("token = %q, want reuse of %q", body2["token"], token)
	}
}
