// Package auth はOIDC認証フローとセッション管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/hitoshi/creatorflow/internal/model"
)

// Claims はIDトークンから抽出した本人情報。
type Claims struct {
	Sub     string
	Email   string
	Name    string
	Picture string
}

// AuthRequest は認可リクエスト1回分の使い捨てパラメータ。
// state/codeVerifier/nonceは呼び出しごとに新規生成され、再利用してはならない。
type AuthRequest struct {
	URL   string
	Nonce *LoginNonce
}

// OIDCClient はOIDCプロバイダーとのやり取りのインターフェース。
// テストではモック実装に差し替える。
type OIDCClient interface {
	// BuildAuthURL は認可URLと使い捨てのログイン状態を生成する。
	BuildAuthURL(ctx context.Context, returnTo string) (*AuthRequest, error)
	// ExchangeCode は認可コードをトークンに交換し、IDトークンの署名と
	// nonceクレームを検証した上で本人情報を返す。
	ExchangeCode(ctx context.Context, code, codeVerifier, nonce string) (*Claims, error)
	// LogoutURL はIdPのHosted UIログアウトURLを返す。
	LogoutURL(ctx context.Context) (string, error)
}

// ProviderConfig はOIDCプロバイダーの設定。
type ProviderConfig struct {
	Issuer            string
	Domain            string // Hosted UIドメインの明示指定（省略時はディスカバリから導出）
	ClientID          string
	ClientSecret      string
	RedirectURL       string
	LogoutRedirectURL string
	Scopes            []string
	Timeout           time.Duration // ディスカバリ・トークン交換のタイムアウト
}

// discovered はディスカバリ成功後にキャッシュするクライアント構成。
type discovered struct {
	oauth              oauth2.Config
	verifier           *oidc.IDTokenVerifier
	authEndpoint       string
	endSessionEndpoint string
}

// OIDCProvider はOIDCディスカバリとトークン交換を行うOIDCClient実装。
// ディスカバリ結果はプロセス生存期間中メモ化される。失敗時はキャッシュせず、
// 次の呼び出しで再試行する。
type OIDCProvider struct {
	config ProviderConfig

	mu     sync.Mutex
	cached *discovered
}

// NewOIDCProvider はOIDCProviderを生成する。
// ディスカバリは初回利用時まで遅延される（起動時にIdPへ到達できなくても
// プロセスは起動できる）。
func NewOIDCProvider(config ProviderConfig) *OIDCProvider {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &OIDCProvider{config: config}
}

// client はディスカバリ済みのクライアント構成を返す。初回のみディスカバリを行う。
func (p *OIDCProvider) client(ctx context.Context) (*discovered, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil {
		return p.cached, nil
	}

	dctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	provider, err := oidc.NewProvider(dctx, p.config.Issuer)
	if err != nil {
		slog.Error("oidc discovery failed",
			slog.String("issuer", p.config.Issuer),
			slog.String("error", err.Error()),
		)
		return nil, p.upstreamError(err)
	}

	// end_session_endpointは任意メタデータのため存在しない場合もある
	var extra struct {
		EndSessionEndpoint string `json:"end_session_endpoint"`
	}
	if err := provider.Claims(&extra); err != nil {
		extra.EndSessionEndpoint = ""
	}

	p.cached = &discovered{
		oauth: oauth2.Config{
			ClientID:     p.config.ClientID,
			ClientSecret: p.config.ClientSecret,
			RedirectURL:  p.config.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       p.config.Scopes,
		},
		verifier:           provider.Verifier(&oidc.Config{ClientID: p.config.ClientID}),
		authEndpoint:       provider.Endpoint().AuthURL,
		endSessionEndpoint: extra.EndSessionEndpoint,
	}

	slog.Info("oidc discovery completed",
		slog.String("issuer", p.config.Issuer),
	)

	return p.cached, nil
}

// BuildAuthURL は認可URLと使い捨てのログイン状態を生成する。
// state/PKCE verifier/nonceは毎回新規生成する。
func (p *OIDCProvider) BuildAuthURL(ctx context.Context, returnTo string) (*AuthRequest, error) {
	c, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	state, err := randomURLToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	nonce, err := randomURLToken(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	codeVerifier := oauth2.GenerateVerifier()

	authURL := c.oauth.AuthCodeURL(state,
		oauth2.S256ChallengeOption(codeVerifier),
		oauth2.SetAuthURLParam("nonce", nonce),
	)

	// Hosted UIドメインが明示されている場合は認可URLのホストを差し替える
	// （Cognitoはissuerとhosted UIでホストが異なる）
	if p.config.Domain != "" {
		authURL, err = replaceHost(authURL, p.config.Domain)
		if err != nil {
			return nil, fmt.Errorf("failed to apply hosted UI domain: %w", err)
		}
	}

	return &AuthRequest{
		URL: authURL,
		Nonce: &LoginNonce{
			State:        state,
			CodeVerifier: codeVerifier,
			Nonce:        nonce,
			ReturnTo:     returnTo,
		},
	}, nil
}

// ExchangeCode は認可コードをトークンに交換し、IDトークンを検証して本人情報を返す。
func (p *OIDCProvider) ExchangeCode(ctx context.Context, code, codeVerifier, nonce string) (*Claims, error) {
	c, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	ectx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	token, err := c.oauth.Exchange(ectx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		slog.Warn("token exchange failed", slog.String("error", err.Error()))
		return nil, p.upstreamError(err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		slog.Warn("token response did not include an ID token")
		return nil, model.NewIdentityProviderError()
	}

	idToken, err := c.verifier.Verify(ectx, rawIDToken)
	if err != nil {
		slog.Warn("id token verification failed", slog.String("error", err.Error()))
		return nil, p.upstreamError(err)
	}

	// nonce検証: 認可リクエストで送った値とIDトークンのクレームが一致すること。
	// 不一致はトークンリプレイの兆候であり認証エラーとして扱う。
	if idToken.Nonce != nonce {
		slog.Warn("id token nonce mismatch")
		return nil, model.NewIdentityProviderError()
	}

	var raw struct {
		Email           string `json:"email"`
		Name            string `json:"name"`
		GivenName       string `json:"given_name"`
		FamilyName      string `json:"family_name"`
		Picture         string `json:"picture"`
		CognitoUsername string `json:"cognito:username"`
	}
	if err := idToken.Claims(&raw); err != nil {
		slog.Warn("failed to parse id token claims", slog.String("error", err.Error()))
		return nil, model.NewClaimsError("email")
	}

	if idToken.Subject == "" {
		return nil, model.NewClaimsError("sub")
	}

	email := raw.Email
	if email == "" {
		email = raw.CognitoUsername
	}
	if email == "" {
		return nil, model.NewClaimsError("email")
	}

	name := raw.Name
	if name == "" && raw.GivenName != "" && raw.FamilyName != "" {
		name = raw.GivenName + " " + raw.FamilyName
	}
	if name == "" {
		name = raw.CognitoUsername
	}

	return &Claims{
		Sub:     idToken.Subject,
		Email:   email,
		Name:    name,
		Picture: raw.Picture,
	}, nil
}

// LogoutURL はIdPのログアウトURLを返す。
// Cognito形式の {hosted UI}/logout?client_id&logout_uri を組み立てる。
// Hosted UIドメインが不明な場合は認可エンドポイントのホストから導出する。
func (p *OIDCProvider) LogoutURL(ctx context.Context) (string, error) {
	c, err := p.client(ctx)
	if err != nil {
		return "", err
	}

	base := p.config.Domain
	if base == "" {
		u, err := url.Parse(c.authEndpoint)
		if err != nil {
			return "", fmt.Errorf("failed to derive hosted UI domain: %w", err)
		}
		base = u.Scheme + "://" + u.Host
	}

	logout, err := url.Parse(base + "/logout")
	if err != nil {
		return "", fmt.Errorf("failed to build logout URL: %w", err)
	}
	q := logout.Query()
	q.Set("client_id", p.config.ClientID)
	q.Set("logout_uri", p.config.LogoutRedirectURL)
	logout.RawQuery = q.Encode()

	return logout.String(), nil
}

// upstreamError はIdP呼び出しの失敗をエラー分類に対応付ける。
// タイムアウトは再試行可能なUpstreamTimeout、それ以外はIdentityProviderError。
func (p *OIDCProvider) upstreamError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewUpstreamTimeoutError("identity provider")
	}
	return model.NewIdentityProviderError()
}

// replaceHost はrawURLのスキームとホストをhostBaseのものに差し替える。
func replaceHost(rawURL, hostBase string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	want, err := url.Parse(hostBase)
	if err != nil {
		return "", err
	}
	u.Scheme = want.Scheme
	u.Host = want.Host
	return u.String(), nil
}

// compile-time interface check
var _ OIDCClient = (*OIDCProvider)(nil)
