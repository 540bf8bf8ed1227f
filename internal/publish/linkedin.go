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

// linkedInAPIBase はLinkedIn REST APIのベースURL。
const linkedInAPIBase = "https://api.linkedin.com"

// LinkedInPublisher はLinkedInのugcPosts APIでテキストを投稿する。
type LinkedInPublisher struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にベースURLを差し替え可能
}

// NewLinkedInPublisher はLinkedInPublisherを生成する。
func NewLinkedInPublisher(httpClient *http.Client, logger *slog.Logger) *LinkedInPublisher {
	return &LinkedInPublisher{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    linkedInAPIBase,
	}
}

// Name はプラットフォーム識別子を返す。
func (p *LinkedInPublisher) Name() model.Platform {
	return model.PlatformLinkedIn
}

// Publish はテキストをメンバーのUGC投稿として公開する。
// 公開範囲はコネクションのみ（MemberNetworkVisibility: CONNECTIONS）。
func (p *LinkedInPublisher) Publish(ctx context.Context, creds json.RawMessage, post Post) (*Output, error) {
	var c model.LinkedInCredentials
	if err := decodeCreds(creds, &c); err != nil {
		return nil, err
	}

	payload := map[string]any{
		"author":         c.MemberURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]any{
			"com.linkedin.ugc.ShareContent": map[string]any{
				"shareCommentary":    map[string]string{"text": post.Text},
				"shareMediaCategory": "NONE",
			},
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "CONNECTIONS",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode ugc post body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v2/ugcPosts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build ugc post request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("linkedin api call failed", slog.String("error", err.Error()))
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read linkedin api response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("linkedin api returned error status",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("linkedin api returned status %d: %s", resp.StatusCode, truncate(respBody, 200))
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse linkedin api response: %w", err)
	}

	return &Output{ID: result.ID}, nil
}

var _ Publisher = (*LinkedInPublisher)(nil)
