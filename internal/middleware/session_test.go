package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/creatorflow/internal/model"
)

// mockSessionFinder はSessionFinderのモック。
type mockSessionFinder struct {
	findByTokenFunc func(ctx context.Context, token string) (*model.Session, error)
}

func (m *mockSessionFinder) FindByToken(ctx context.Context, token string) (*model.Session, error) {
	if m.findByTokenFunc != nil {
		return m.findByTokenFunc(ctx, token)
	}
	return nil, nil
}

func validSessionFinder(userID string) *mockSessionFinder {
	return &mockSessionFinder{
		findByTokenFunc: func(ctx context.Context, token string) (*model.Session, error) {
			now := time.Now()
			return &model.Session{Token: token, UserID: userID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}, nil
		},
	}
}

func TestSessionMiddleware_ValidSessionInjectsUserID(t *testing.T) {
	mw := NewSessionMiddleware(validSessionFinder("user-1"))

	var gotUserID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, _ = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "tok-1"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if gotUserID != "user-1" {
		t.Errorf("user ID in context = %q, want %q", gotUserID, "user-1")
	}
}

// 未認証の理由（Cookie欠落・不明トークン・期限切れ）は応答から区別できない
func TestSessionMiddleware_Returns401WithUniformBody(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name   string
		cookie *http.Cookie
		finder *mockSessionFinder
	}{
		{
			name:   "Cookie欠落",
			cookie: nil,
			finder: &mockSessionFinder{},
		},
		{
			name:   "空のCookie",
			cookie: &http.Cookie{Name: SessionCookieName, Value: ""},
			finder: &mockSessionFinder{},
		},
		{
			name:   "不明なトークン",
			cookie: &http.Cookie{Name: SessionCookieName, Value: "unknown"},
			finder: &mockSessionFinder{},
		},
		{
			name:   "期限切れセッション",
			cookie: &http.Cookie{Name: SessionCookieName, Value: "expired"},
			finder: &mockSessionFinder{
				findByTokenFunc: func(ctx context.Context, token string) (*model.Session, error) {
					return &model.Session{Token: token, UserID: "user-1", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}, nil
				},
			},
		},
		{
			name:   "ストレージ障害",
			cookie: &http.Cookie{Name: SessionCookieName, Value: "tok-1"},
			finder: &mockSessionFinder{
				findByTokenFunc: func(ctx context.Context, token string) (*model.Session, error) {
					return nil, errors.New("db down")
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := NewSessionMiddleware(tt.finder)
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("next handler should not be called")
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Error != "Unauthorized" {
				t.Errorf("error = %q, want %q", body.Error, "Unauthorized")
			}
		})
	}
}

func TestUserIDFromContext_NotSet(t *testing.T) {
	if _, err := UserIDFromContext(context.Background()); err == nil {
		t.Error("expected error for context without user ID")
	}
}

func TestContextWithUserID_RoundTrip(t *testing.T) {
	ctx := ContextWithUserID(context.Background(), "user-1")

	userID, err := UserIDFromContext(ctx)
	if err != nil {
		t.Fatalf("UserIDFromContext returned error: %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}
}
