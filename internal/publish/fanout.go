package publish

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/creatorflow/internal/model"
	"github.com/hitoshi/creatorflow/internal/repository"
)

// Result はプラットフォームごとの投稿結果。
// 失敗はリクエスト全体の失敗ではなく、このエントリに閉じ込められる。
// CodeはAPIErrorのエラーコードで、タイムアウト（UPSTREAM_TIMEOUT）と
// それ以外の失敗（PUBLISH_FAILED）を区別する。
type Result struct {
	OK    bool   `json:"ok"`
	ID    string `json:"id,omitempty"`
	URL   string `json:"url,omitempty"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// PublishMetrics は投稿結果のメトリクス記録インターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type PublishMetrics interface {
	RecordPublish(platform string, outcome string)
	RecordPublishLatency(platform string, duration time.Duration)
}

// FanoutConfig はファンアウトの設定。
type FanoutConfig struct {
	PerPlatformTimeout time.Duration // プラットフォーム1件あたりのタイムアウト
}

// Fanout は複数プラットフォームへの並行投稿を調整する。
// 各プラットフォームの投稿は独立しており、一部の失敗が他の成功を妨げない。
type Fanout struct {
	publishers map[model.Platform]Publisher
	credRepo   repository.SocialCredentialRepository
	metrics    PublishMetrics
	logger     *slog.Logger
	config     FanoutConfig
}

// NewFanout はFanoutを生成する。
func NewFanout(
	publishers []Publisher,
	credRepo repository.SocialCredentialRepository,
	metrics PublishMetrics,
	logger *slog.Logger,
	config FanoutConfig,
) *Fanout {
	if config.PerPlatformTimeout <= 0 {
		config.PerPlatformTimeout = 10 * time.Second
	}

	byName := make(map[model.Platform]Publisher, len(publishers))
	for _, p := range publishers {
		byName[p.Name()] = p
	}

	return &Fanout{
		publishers: byName,
		credRepo:   credRepo,
		metrics:    metrics,
		logger:     logger,
		config:     config,
	}
}

// PublishAll は要求された各プラットフォームへ並行に投稿し、
// プラットフォームごとの結果マップを返す。
// 認可情報の未保存・投稿API未実装・API呼び出し失敗はいずれも
// 該当プラットフォームの失敗エントリとなる。
func (f *Fanout) PublishAll(ctx context.Context, userID string, platforms []model.Platform, post Post) map[model.Platform]Result {
	results := make(map[model.Platform]Result, len(platforms))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, platform := range dedupe(platforms) {
		wg.Add(1)
		go func(platform model.Platform) {
			defer wg.Done()

			result := f.publishOne(ctx, userID, platform, post)

			mu.Lock()
			results[platform] = result
			mu.Unlock()
		}(platform)
	}

	wg.Wait()

	return results
}

// publishOne は1プラットフォーム分の投稿を実行する。
func (f *Fanout) publishOne(ctx context.Context, userID string, platform model.Platform, post Post) Result {
	publisher, ok := f.publishers[platform]
	if !ok {
		return f.failure(platform, model.NewPublishFailedError(platform, "publishing is not supported for this platform"))
	}

	cred, err := f.credRepo.FindByUserAndPlatform(ctx, userID, platform)
	if err != nil {
		f.logger.Error("failed to load credentials for publish",
			slog.String("user_id", userID),
			slog.String("platform", string(platform)),
			slog.String("error", err.Error()),
		)
		return f.failure(platform, model.NewPublishFailedError(platform, "failed to load stored credentials"))
	}
	if cred == nil {
		return f.failure(platform, model.NewPublishFailedError(platform, "no stored credentials for this platform"))
	}

	pctx, cancel := context.WithTimeout(ctx, f.config.PerPlatformTimeout)
	defer cancel()

	start := time.Now()
	output, err := publisher.Publish(pctx, cred.Data, post)
	if f.metrics != nil {
		f.metrics.RecordPublishLatency(string(platform), time.Since(start))
	}

	if err != nil {
		f.logger.Warn("publish failed",
			slog.String("user_id", userID),
			slog.String("platform", string(platform)),
			slog.String("error", err.Error()),
		)
		// タイムアウトはリトライで回復しうるため、ハード失敗と区別して返す
		if errors.Is(err, context.DeadlineExceeded) {
			return f.failure(platform, model.NewUpstreamTimeoutError(string(platform)))
		}
		return f.failure(platform, model.NewPublishFailedError(platform, err.Error()))
	}

	if f.metrics != nil {
		f.metrics.RecordPublish(string(platform), "success")
	}
	f.logger.Info("publish succeeded",
		slog.String("user_id", userID),
		slog.String("platform", string(platform)),
		slog.String("post_id", output.ID),
	)

	return Result{OK: true, ID: output.ID, URL: output.URL}
}

// failure は失敗エントリを作り、メトリクスに記録する。
// メトリクスのoutcomeラベルはタイムアウトとそれ以外で分ける。
func (f *Fanout) failure(platform model.Platform, apiErr *model.APIError) Result {
	outcome := "failure"
	if apiErr.Code == model.ErrCodeUpstreamTimeout {
		outcome = "timeout"
	}
	if f.metrics != nil {
		f.metrics.RecordPublish(string(platform), outcome)
	}
	return Result{OK: false, Code: apiErr.Code, Error: apiErr.Message}
}

// dedupe はプラットフォームリストの重複を除去する。順序は保持する。
func dedupe(platforms []model.Platform) []model.Platform {
	seen := make(map[model.Platform]bool, len(platforms))
	out := make([]model.Platform, 0, len(platforms))
	for _, p := range platforms {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
