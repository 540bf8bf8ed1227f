package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/creatorflow/internal/auth"
	"github.com/hitoshi/creatorflow/internal/middleware"
)

// HealthChecker はヘルスチェックで使う依存（DB接続など）のインターフェース。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	StatusMetrics     middleware.HTTPStatusRecorder

	// 認証
	AuthService AuthServiceInterface
	NonceCodec  *auth.NonceCodec
	AuthMetrics LoginMetrics
	AuthConfig  AuthHandlerConfig

	// プロフィール・認可情報
	ProfileService ProfileServiceInterface

	// プロジェクト
	ProjectService ProjectServiceInterface

	// 同報投稿
	Fanout FanoutInterface

	// ヘルスチェック
	Health HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Logging → Recovery → (Session → CSRF → RateLimit)
//
// 認証ルート（/auth/*）とヘルスチェックはセッションガードの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルートに効くミドルウェア
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusMetrics))
	r.Use(middleware.NewRecoveryMiddleware())

	authHandler := NewAuthHandler(deps.AuthService, deps.NonceCodec, deps.AuthMetrics, deps.AuthConfig)
	profileHandler := NewProfileHandler(deps.ProfileService)
	projectHandler := NewProjectHandler(deps.ProjectService)
	publishHandler := NewPublishHandler(deps.Fanout)

	// --- 認証不要のルート ---

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.Health != nil {
			if err := deps.Health.PingContext(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// 認証ルート（OIDCフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.Get("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// CSRFトークンの払い出し
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// プロフィール・認可情報
		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.GetProfile)
			r.Post("/", profileHandler.UpdateProfile)
			r.Get("/credentials", profileHandler.ListCredentials)
			r.Put("/credentials/{platform}", profileHandler.SaveCredential)
		})

		// プロジェクト管理
		r.Route("/api/projects", func(r chi.Router) {
			r.Get("/", projectHandler.List)
			r.Post("/", projectHandler.Create)
			r.Get("/{projectID}", projectHandler.Get)
			r.Delete("/{projectID}", projectHandler.Delete)
		})

		// 同報投稿はより厳しい専用レートリミットを重ねる
		r.With(deps.RateLimiter.PublishMiddleware()).Post("/api/publish", publishHandler.Publish)
	})

	return r
}
