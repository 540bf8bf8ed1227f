// Package publish はソーシャルプラットフォームへの投稿機能を提供する。
// プラットフォームごとの薄いAPIクライアントと、複数プラットフォームへの
// 並行ファンアウトを含む。
package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hitoshi/creatorflow/internal/model"
)

// Post は投稿する内容。テキスト投稿が基本で、Instagramのように
// 画像URLを必須とするプラットフォームはImageURLを参照する。
type Post struct {
	Text     string
	ImageURL string
}

// Output は投稿成功時のプラットフォーム側の識別情報。
type Output struct {
	ID  string
	URL string
}

// ErrNotConfigured は投稿APIが未実装のプラットフォームであることを示す。
var ErrNotConfigured = errors.New("publishing is not configured for this platform")

// Publisher はプラットフォームごとの投稿クライアントのインターフェース。
// credsには保存時に形状検証済みの認可情報JSONが渡される。
type Publisher interface {
	Name() model.Platform
	Publish(ctx context.Context, creds json.RawMessage, post Post) (*Output, error)
}

// decodeCreds は保存済み認可情報をプラットフォーム固有の型へデコードする。
// 保存時に検証済みのため失敗は想定外だが、破損データは投稿失敗として扱う。
func decodeCreds(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("stored credentials are corrupt: %w", err)
	}
	return nil
}
