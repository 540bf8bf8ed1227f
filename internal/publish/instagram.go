package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/creatorflow/internal/model"
)

// instagramGraphBase はInstagram Graph APIのベースURL。
const instagramGraphBase = "https://graph.facebook.com/v21.0"

// InstagramPublisher はInstagram Graph APIで写真を投稿する。
// メディアコンテナの作成と公開の2段階ワークフローを実行するため、
// 投稿には画像URLが必須となる。
type InstagramPublisher struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にベースURLを差し替え可能
}

// NewInstagramPublisher はInstagramPublisherを生成する。
func NewInstagramPublisher(httpClient *http.Client, logger *slog.Logger) *InstagramPublisher {
	return &InstagramPublisher{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    instagramGraphBase,
	}
}

// Name はプラットフォーム識別子を返す。
func (p *InstagramPublisher) Name() model.Platform {
	return model.PlatformInstagram
}

// Publish は画像URLからメディアコンテナを作成し、公開する。
// テキストはキャプションとして添付される。
func (p *InstagramPublisher) Publish(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
	var c model.InstagramCredentials
	if err := decodeCreds(creds, &c); err != nil {
		return nil, err
	}

	if post.ImageURL == "" {
		return nil, fmt.Errorf("instagram publishing requires an image URL")
	}

	// 1. メディアコンテナを作成
	containerID, err := p.graphPost(ctx, fmt.Sprintf("%s/%s/media", p.baseURL, c.BusinessAccountID), map[string]string{
		"image_url":    post.ImageURL,
		"caption":      post.Text,
		"access_token": c.AccessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create media container: %w", err)
	}

	// 2. コンテナを公開
	mediaID, err := p.graphPost(ctx, fmt.Sprintf("%s/%s/media_publish", p.baseURL, c.BusinessAccountID), map[string]string{
		"creation_id":  containerID,
		"access_token": c.AccessToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to publish media container: %w", err)
	}

	return &Output{ID: mediaID}, nil
}

// graphPost はGraph APIへJSONをPOSTし、レスポンスのidを返す。
func (p *InstagramPublisher) graphPost(ctx context.Context, url string, payload map[string]string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("instagram graph api call failed", slog.String("error", err.Error()))
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("instagram graph api returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return "", fmt.Errorf("graph api returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if result.ID == "" {
		return "", fmt.Errorf("graph api response did not include an id")
	}

	return result.ID, nil
}

var _ Publisher = (*InstagramPublisher)(nil)
