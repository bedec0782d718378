// Package cleanup は期限切れセッションの自動削除ジョブを提供する。
// cron式のスケジュールでsessionsテーブルから期限切れの行を削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/rentacar/internal/metrics"
	"github.com/robfig/cron/v3"
)

// SessionDeleter は期限切れセッションの削除を抽象化するインターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionDeleter interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupJob は期限切れセッションの削除ジョブ。
// 冪等: 削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	sessions SessionDeleter
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
}

// NewCleanupJob は新しいCleanupJobを生成する。mcがnilの場合は記録なしとなる。
func NewCleanupJob(sessions SessionDeleter, logger *slog.Logger, mc metrics.MetricsCollector) *CleanupJob {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &CleanupJob{
		sessions: sessions,
		logger:   logger,
		metrics:  mc,
	}
}

// Run は期限切れセッションを削除し、削除件数をログとメトリクスに記録する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deletedCount, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("セッションクリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	j.metrics.RecordSessionsCleaned(deletedCount)

	duration := time.Since(start)
	j.logger.Info("セッションクリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Scheduler はCleanupJobをcron式のスケジュールで実行する。
type Scheduler struct {
	job    *CleanupJob
	logger *slog.Logger
}

// NewScheduler はSchedulerを生成する。
func NewScheduler(job *CleanupJob, logger *slog.Logger) *Scheduler {
	return &Scheduler{job: job, logger: logger}
}

// Start は起動直後に1回ジョブを実行し、以降はscheduleに従って実行する。
// scheduleは標準のcron式（5フィールド）または@hourlyなどの記述子。
// コンテキストがキャンセルされると実行中のジョブの完了を待って戻る。
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.runJob(ctx) }); err != nil {
		return fmt.Errorf("クリーンアップスケジュールが不正です %q: %w", schedule, err)
	}

	s.logger.Info("クリーンアップスケジューラを開始しました",
		slog.String("schedule", schedule),
	)

	// 起動直後に1回実行
	s.runJob(ctx)

	c.Start()
	<-ctx.Done()

	<-c.Stop().Done()
	s.logger.Info("クリーンアップスケジューラを停止しました")
	return nil
}

func (s *Scheduler) runJob(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	// エラーはRun内でログに記録済み
	_ = s.job.Run(ctx)
}
