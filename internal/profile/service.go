// Package profile はユーザープロフィールとソーシャル認可情報の
// ドメインロジックを提供する。
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/creatorflow/internal/model"
	"github.com/hitoshi/creatorflow/internal/repository"
	"github.com/hitoshi/creatorflow/internal/security"
)

// Service はプロフィール管理のサービス層。
type Service struct {
	userRepo  repository.UserRepository
	credRepo  repository.SocialCredentialRepository
	sanitizer security.TextSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	credRepo repository.SocialCredentialRepository,
	sanitizer security.TextSanitizerService,
) *Service {
	return &Service{
		userRepo:  userRepo,
		credRepo:  credRepo,
		sanitizer: sanitizer,
	}
}

// GetProfile は現在のユーザーのプロフィールを取得する。
func (s *Service) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}
	return user, nil
}

// UpdateProfile は表示名とアイコン画像を更新する。
// 少なくとも一方の指定が必要。emailとlast_login_atは既存値を維持し、
// ログイン時と同じUPSERT経路を再利用する。
func (s *Service) UpdateProfile(ctx context.Context, userID string, name, picture *string) (*model.User, error) {
	if name == nil && picture == nil {
		return nil, model.NewValidationError("Provide at least one of: name, picture.")
	}

	existing, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if existing == nil {
		return nil, model.NewUserNotFoundError()
	}

	// 表示名はHTMLタグを除去して保存する
	newName := existing.Name
	if name != nil {
		newName = s.sanitizer.Sanitize(*name)
	}
	newPicture := existing.Picture
	if picture != nil {
		newPicture = *picture
	}

	updated, err := s.userRepo.UpsertOnLogin(ctx, &model.User{
		ID:          existing.ID,
		Email:       existing.Email,
		Name:        newName,
		Picture:     newPicture,
		LastLoginAt: existing.LastLoginAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	slog.Info("profile updated",
		slog.String("user_id", userID),
	)

	return updated, nil
}

// ListCredentials はユーザーの全ソーシャル認可情報を返す。
func (s *Service) ListCredentials(ctx context.Context, userID string) ([]*model.SocialCredential, error) {
	creds, err := s.credRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

// SaveCredential はプラットフォームの認可情報を検証のうえ冪等に保存する。
// 形状が不正な場合はInvalidCredentialDataエラーを返し、保存は行わない。
func (s *Service) SaveCredential(ctx context.Context, userID string, platform model.Platform, data json.RawMessage) (*model.SocialCredential, error) {
	if err := model.ValidateCredentialData(platform, data); err != nil {
		return nil, model.NewInvalidCredentialDataError(err.Error())
	}

	cred, err := s.credRepo.Upsert(ctx, &model.SocialCredential{
		UserID:    userID,
		Platform:  platform,
		Data:      data,
		UpdatedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}

	slog.Info("social credential saved",
		slog.String("user_id", userID),
		slog.String("platform", string(platform)),
	)

	return cred, nil
}
