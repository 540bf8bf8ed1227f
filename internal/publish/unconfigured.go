package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/creatorflow/internal/model"
)

// UnconfiguredPublisher は投稿APIが未接続のプラットフォームのプレースホルダー。
// YouTubeとTikTokはOAuthとアップロードセッションのワークフローを要するため、
// 投稿要求には常にErrNotConfiguredを返す。認可情報の保存自体は可能で、
// ファンアウト結果にはプラットフォームごとの失敗として現れる。
type UnconfiguredPublisher struct {
	platform model.Platform
}

// NewUnconfiguredPublisher は指定プラットフォームのプレースホルダーを生成する。
func NewUnconfiguredPublisher(platform model.Platform) *UnconfiguredPublisher {
	return &UnconfiguredPublisher{platform: platform}
}

// Name はプラットフォーム識別子を返す。
func (p *UnconfiguredPublisher) Name() model.Platform {
	return p.platform
}

// Publish は常にErrNotConfiguredを返す。
func (p *UnconfiguredPublisher) Publish(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
	return nil, fmt.Errorf("%s: %w", p.platform, ErrNotConfigured)
}

var _ Publisher = (*UnconfiguredPublisher)(nil)
