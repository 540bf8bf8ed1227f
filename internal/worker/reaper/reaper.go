// Package reaper は期限切れセッションの自動削除ジョブを提供する。
// セッションガードは期限切れ行を拒否するため、このジョブは正しさではなく
// テーブル肥大化の防止のために存在する。定期バッチとして冪等に実行される。
package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredSessionDeleter は期限切れセッションの削除を抽象化するインターフェース。
type ExpiredSessionDeleter interface {
	// DeleteExpired は指定時刻より前に期限切れとなったセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ReapMetrics は削除件数のメトリクス記録インターフェース。
type ReapMetrics interface {
	RecordSessionsReaped(count int64)
}

// ReapJob は期限切れセッションの削除ジョブ。
type ReapJob struct {
	sessions ExpiredSessionDeleter
	metrics  ReapMetrics
	logger   *slog.Logger
}

// NewReapJob は新しいReapJobを生成する。metricsはnil可。
func NewReapJob(sessions ExpiredSessionDeleter, metrics ReapMetrics, logger *slog.Logger) *ReapJob {
	return &ReapJob{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run は現在時刻を基準に期限切れセッションを削除する。
// 削除対象がない場合でもエラーにならない。
func (j *ReapJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.sessions.DeleteExpired(ctx, start)
	if err != nil {
		j.logger.Error("session reap failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	if j.metrics != nil {
		j.metrics.RecordSessionsReaped(deleted)
	}

	j.logger.Info("session reap completed",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
