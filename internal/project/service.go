// Package project はコンテンツプロジェクト管理のドメインロジックを提供する。
package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/creatorflow/internal/model"
	"github.com/hitoshi/creatorflow/internal/repository"
	"github.com/hitoshi/creatorflow/internal/security"
)

// CreateInput はプロジェクト作成の入力。
type CreateInput struct {
	Title       string
	Description string
	CoverURL    string
	ContentURL  string
}

// Service はプロジェクト管理のサービス層。
// すべての操作は所有者のみに許可される。
type Service struct {
	repo      repository.ProjectRepository
	sanitizer security.TextSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ProjectRepository, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
	}
}

// Create はプロジェクトを作成する。タイトルは必須。
// タイトルと説明文は保存前にHTMLタグを除去する。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Project, error) {
	title := s.sanitizer.Sanitize(input.Title)
	if strings.TrimSpace(title) == "" {
		return nil, model.NewValidationError("Missing title.")
	}

	project := &model.Project{
		ID:          uuid.NewString(),
		UserID:      userID,
		Title:       title,
		Description: s.sanitizer.Sanitize(input.Description),
		CoverURL:    input.CoverURL,
		ContentURL:  input.ContentURL,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	slog.Info("project created",
		slog.String("user_id", userID),
		slog.String("project_id", project.ID),
	)

	return project, nil
}

// List はユーザーのプロジェクト一覧を作成日時降順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Project, error) {
	projects, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Get はプロジェクトを取得する。
// 存在しない場合と他ユーザーの所有物の場合は区別せずnot foundを返す。
func (s *Service) Get(ctx context.Context, userID, projectID string) (*model.Project, error) {
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if project == nil || project.UserID != userID {
		return nil, model.NewProjectNotFoundError(projectID)
	}
	return project, nil
}

// Delete はプロジェクトを削除する。所有者以外の削除要求はnot found扱い。
func (s *Service) Delete(ctx context.Context, userID, projectID string) error {
	// 所有権の確認
	if _, err := s.Get(ctx, userID, projectID); err != nil {
		return err
	}

	if err := s.repo.DeleteByID(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	slog.Info("project deleted",
		slog.String("user_id", userID),
		slog.String("project_id", projectID),
	)

	return nil
}
