package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// OIDC
	OIDCIssuer            string
	OIDCDomain            string // Hosted UIドメインの明示指定（省略時はディスカバリから導出）
	OIDCClientID          string
	OIDCClientSecret      string
	OIDCRedirectURL       string
	OIDCLogoutRedirectURL string
	OIDCScopes            []string

	// Session
	SessionSecret string // nonceクッキーのHMAC署名鍵
	SessionMaxAge int    // セッション有効期間（秒）

	// Timeouts
	UpstreamTimeout time.Duration // IdP等の外部呼び出しのタイムアウト
	PublishTimeout  time.Duration // ソーシャル投稿1件あたりのタイムアウト

	// Worker
	ReapInterval time.Duration // 期限切れセッション掃除の実行間隔

	// Rate Limit
	RateLimitGeneral int // API全般（req/min/user）
	RateLimitPublish int // 投稿エンドポイント（req/min/user）

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.OIDCIssuer = os.Getenv("OIDC_ISSUER")
	if cfg.OIDCIssuer == "" {
		missing = append(missing, "OIDC_ISSUER")
	}

	cfg.OIDCClientID = os.Getenv("OIDC_CLIENT_ID")
	if cfg.OIDCClientID == "" {
		missing = append(missing, "OIDC_CLIENT_ID")
	}

	cfg.OIDCClientSecret = os.Getenv("OIDC_CLIENT_SECRET")
	if cfg.OIDCClientSecret == "" {
		missing = append(missing, "OIDC_CLIENT_SECRET")
	}

	cfg.OIDCRedirectURL = os.Getenv("OIDC_REDIRECT_URL")
	if cfg.OIDCRedirectURL == "" {
		missing = append(missing, "OIDC_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.OIDCIssuer = strings.TrimRight(cfg.OIDCIssuer, "/")
	cfg.OIDCDomain = strings.TrimRight(os.Getenv("OIDC_DOMAIN"), "/")
	cfg.OIDCLogoutRedirectURL = getEnvString("OIDC_LOGOUT_REDIRECT_URL", cfg.BaseURL+"/")
	cfg.OIDCScopes = strings.Fields(getEnvString("OIDC_SCOPES", "openid email profile"))
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.PublishTimeout = getEnvDuration("PUBLISH_TIMEOUT", 10*time.Second)
	cfg.ReapInterval = getEnvDuration("REAP_INTERVAL", time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitPublish = getEnvInt("RATE_LIMIT_PUBLISH", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
