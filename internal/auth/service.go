package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/creatorflow/internal/model"
	"github.com/hitoshi/creatorflow/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oidc     OIDCClient
	userRepo repository.UserRepository
	credRepo repository.SocialCredentialRepository
	sessRepo repository.SessionRepository
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	oidc OIDCClient,
	userRepo repository.UserRepository,
	credRepo repository.SocialCredentialRepository,
	sessRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		oidc:     oidc,
		userRepo: userRepo,
		credRepo: credRepo,
		sessRepo: sessRepo,
		config:   config,
	}
}

// StartLogin は認可URLと使い捨てのログイン状態を生成する。
// returnToは呼び出し側で検証済みの相対パスであること。
func (s *Service) StartLogin(ctx context.Context, returnTo string) (*AuthRequest, error) {
	return s.oidc.BuildAuthURL(ctx, returnTo)
}

// HandleCallback はOIDCコールバックを処理し、セッションを発行する。
// stateの検証はハンドラー側で完了している前提。
// 認可コードをトークンに交換し、クレームからユーザーを冪等にUPSERTして
// 新しいセッションを作成する。
func (s *Service) HandleCallback(ctx context.Context, nonce *LoginNonce, code string) (*model.Session, error) {
	// 1. 認可コードをトークンに交換し、本人情報を取得
	claims, err := s.oidc.ExchangeCode(ctx, code, nonce.CodeVerifier, nonce.Nonce)
	if err != nil {
		return nil, err
	}

	// 2. ユーザーを冪等にUPSERT（subをキーとする単一のアトミック文）
	now := time.Now()
	user, err := s.userRepo.UpsertOnLogin(ctx, &model.User{
		ID:          claims.Sub,
		Email:       strings.ToLower(claims.Email),
		Name:        claims.Name,
		Picture:     claims.Picture,
		LastLoginAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	// 3. フェデレーション情報をプロフィールに紐付ける（ベストエフォート）
	if err := s.linkFederation(ctx, user, claims, now); err != nil {
		slog.Warn("failed to link federation info",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return session, nil
}

// linkFederation はIdPのフェデレーション情報をcognito認可情報として記録する。
func (s *Service) linkFederation(ctx context.Context, user *model.User, claims *Claims, now time.Time) error {
	data, err := json.Marshal(model.CognitoCredentials{
		Sub:     claims.Sub,
		Email:   strings.ToLower(claims.Email),
		Name:    claims.Name,
		Picture: claims.Picture,
	})
	if err != nil {
		return err
	}

	_, err = s.credRepo.Upsert(ctx, &model.SocialCredential{
		UserID:    user.ID,
		Platform:  model.PlatformCognito,
		Data:      data,
		UpdatedAt: now,
	})
	return err
}

// Logout はセッションを破棄する。存在しないトークンの破棄は成功として扱う。
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if err := s.sessRepo.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// LogoutURL はIdPのログアウトURLを返す。
func (s *Service) LogoutURL(ctx context.Context) (string, error) {
	return s.oidc.LogoutURL(ctx)
}

// CurrentUser はセッショントークンから現在のユーザーを取得する。
// トークンが不明・期限切れ・所有者不在のいずれの場合もnilを返し、
// 理由は区別しない（呼び出し側は一律401で応答する）。
func (s *Service) CurrentUser(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, nil
	}

	session, err := s.sessRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil || session.Expired(time.Now()) {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
	}

	if err := s.sessRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}
