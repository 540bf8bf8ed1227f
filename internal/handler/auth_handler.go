package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/creatorflow/internal/auth"
	"github.com/hitoshi/creatorflow/internal/middleware"
	"github.com/hitoshi/creatorflow/internal/model"
)

const (
	// nonceCookieName はログイン試行状態を保持するCookieの名前。
	nonceCookieName = "oidc_nonce"

	// nonceCookieMaxAge はログイン試行状態の有効期間（秒）。
	// コールバックが10分以内に完了しない場合は再ログインが必要。
	nonceCookieMaxAge = 600
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// StartLogin は認可URLと使い捨てのログイン状態を生成する。
	StartLogin(ctx context.Context, returnTo string) (*auth.AuthRequest, error)
	// HandleCallback は認可コードを交換しユーザーとセッションを確立する。
	HandleCallback(ctx context.Context, nonce *auth.LoginNonce, code string) (*model.Session, error)
	// Logout はセッションを削除する。
	Logout(ctx context.Context, token string) error
	// LogoutURL はIdPのログアウトURLを返す。
	LogoutURL(ctx context.Context) (string, error)
	// CurrentUser はセッショントークンから現在のユーザーを取得する。
	// 未ログイン・期限切れはエラーではなくnilを返す。
	CurrentUser(ctx context.Context, token string) (*model.User, error)
}

// LoginMetrics はログインフローのメトリクス記録インターフェース。
type LoginMetrics interface {
	RecordLogin()
	RecordCallbackFailure(reason string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// BaseURL はログイン完了後のリダイレクト先のベースURL（フロントエンド）。
	BaseURL      string
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はOIDCログインフローとセッション管理のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	codec   *auth.NonceCodec
	metrics LoginMetrics
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。metricsはnil可。
func NewAuthHandler(service AuthServiceInterface, codec *auth.NonceCodec, metrics LoginMetrics, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		codec:   codec,
		metrics: metrics,
		config:  config,
	}
}

// userResponse はユーザー情報のAPIレスポンス。
type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Picture     string `json:"picture,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	LastLoginAt string `json:"lastLoginAt,omitempty"`
}

func newUserResponse(user *model.User) userResponse {
	resp := userResponse{
		ID:      user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
	}
	if !user.CreatedAt.IsZero() {
		resp.CreatedAt = user.CreatedAt.Format(time.RFC3339)
	}
	if !user.LastLoginAt.IsZero() {
		resp.LastLoginAt = user.LastLoginAt.Format(time.RFC3339)
	}
	return resp
}

// Login はOIDCログインフローを開始する。
// GET /auth/login?returnTo=/path
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	returnTo := auth.SanitizeReturnTo(r.URL.Query().Get("returnTo"), "/")

	req, err := h.service.StartLogin(r.Context(), returnTo)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	value, err := h.codec.Serialize(req.Nonce)
	if err != nil {
		slog.Error("failed to serialize login state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     nonceCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   nonceCookieMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, req.URL, http.StatusFound)
}

// Callback はIdPからの認可コールバックを処理する。
// GET /auth/callback?code=...&state=...
//
// 検証順序: ログイン状態Cookieの読み取り（読んだ時点で失効）→
// code/stateの存在 → ログイン状態の有効性 → state一致 → コード交換。
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	var nonce *auth.LoginNonce
	if cookie, err := r.Cookie(nonceCookieName); err == nil {
		nonce = h.codec.Parse(cookie.Value)
	}
	// 単回使用: 成否に関わらずログイン状態Cookieは失効させる
	http.SetCookie(w, h.expiredCookie(nonceCookieName, true))

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		h.callbackFailure(w, "missing_code", model.NewMissingAuthCodeError())
		return
	}
	if nonce == nil {
		h.callbackFailure(w, "invalid_login_state", model.NewInvalidLoginStateError())
		return
	}
	if state != nonce.State {
		h.callbackFailure(w, "state_mismatch", model.NewStateMismatchError())
		return
	}

	session, err := h.service.HandleCallback(r.Context(), nonce, code)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordCallbackFailure("exchange_failed")
		}
		handleServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.Token,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	if h.metrics != nil {
		h.metrics.RecordLogin()
	}

	// ReturnToはCookie経由で戻ってくるため改めて検証する
	returnTo := auth.SanitizeReturnTo(nonce.ReturnTo, "/")
	http.Redirect(w, r, h.config.BaseURL+returnTo, http.StatusFound)
}

func (h *AuthHandler) callbackFailure(w http.ResponseWriter, reason string, apiErr *model.APIError) {
	if h.metrics != nil {
		h.metrics.RecordCallbackFailure(reason)
	}
	middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// Logout はセッションを破棄しIdPのログアウトURLへ誘導する。
// GET /auth/logout
//
// セッション削除の失敗はログアウトを妨げない（Cookieは常に失効させる）。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			slog.Warn("failed to delete session on logout", slog.String("error", err.Error()))
		}
	}

	http.SetCookie(w, h.expiredCookie(middleware.SessionCookieName, true))
	http.SetCookie(w, h.expiredCookie(nonceCookieName, true))

	redirectTo, err := h.service.LogoutURL(r.Context())
	if err != nil {
		slog.Warn("failed to build logout URL", slog.String("error", err.Error()))
		redirectTo = h.config.BaseURL
	}

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, map[string]string{"redirectTo": redirectTo})
		return
	}
	http.Redirect(w, r, redirectTo, http.StatusFound)
}

// Me は現在ログイン中のユーザーを返す。
// GET /auth/me
//
// 未ログイン・期限切れ・不正トークンは区別せず一律401を返す。
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.CurrentUser(r.Context(), cookie.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if user == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]userResponse{"user": newUserResponse(user)})
}

// expiredCookie は指定した名前のCookieを失効させるSet-Cookie値を生成する。
func (h *AuthHandler) expiredCookie(name string, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   -1,
		HttpOnly: httpOnly,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
