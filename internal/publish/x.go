package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dghubble/oauth1"

	"github.com/hitoshi/creatorflow/internal/model"
)

// xTweetEndpoint はX API v2のツイート作成エンドポイント。
const xTweetEndpoint = "https://api.twitter.com/2/tweets"

// XPublisher はX(旧Twitter)のAPI v2でテキストを投稿する。
// ユーザーコンテキストのOAuth 1.0a署名を使用する。
type XPublisher struct {
	logger   *slog.Logger
	endpoint string // テスト用にエンドポイントを差し替え可能

	// newClient はOAuth 1.0a署名付きHTTPクライアントを生成する。
	// テストでは署名検証用に差し替える。
	newClient func(ctx context.Context, c model.XCredentials) *http.Client
}

// NewXPublisher はXPublisherを生成する。
func NewXPublisher(logger *slog.Logger) *XPublisher {
	return &XPublisher{
		logger:   logger,
		endpoint: xTweetEndpoint,
		newClient: func(ctx context.Context, c model.XCredentials) *http.Client {
			config := oauth1.NewConfig(c.AppKey, c.AppSecret)
			token := oauth1.NewToken(c.AccessToken, c.AccessSecret)
			return config.Client(ctx, token)
		},
	}
}

// Name はプラットフォーム識別子を返す。
func (p *XPublisher) Name() model.Platform {
	return model.PlatformX
}

// Publish はテキストをツイートとして投稿する。
// 成功時はツイートIDと閲覧URLを返す。
func (p *XPublisher) Publish(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
	var c model.XCredentials
	if err := decodeCreds(creds, &c); err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]string{"text": post.Text})
	if err != nil {
		return nil, fmt.Errorf("failed to encode tweet body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.newClient(ctx, c).Do(req)
	if err != nil {
		p.logger.Warn("x api call failed", slog.String("error", err.Error()))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read x api response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("x api returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("x api returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse x api response: %w", err)
	}
	if result.Data.ID == "" {
		return nil, fmt.Errorf("x api response did not include a tweet id")
	}

	return &Output{
		ID:  result.Data.ID,
		URL: fmt.Sprintf("https://x.com/i/web/status/%s", result.Data.ID),
	}, nil
}

// truncate はエラーメッセージに含めるレスポンスボディを上限長で切り詰める。
func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ Publisher = (*XPublisher)(nil)
