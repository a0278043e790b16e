package expire

import (
	"context"
	"log/slog"
	"time"
)

// Job は定期実行されるバッチジョブのインターフェース。
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler は複数のバッチジョブを一定間隔で順次実行する。
// ジョブは冪等であることを前提とし、個々のジョブの失敗は
// ログに記録するだけで他のジョブの実行は継続する。
type Scheduler struct {
	jobs   []Job
	logger *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(logger *slog.Logger, jobs ...Job) *Scheduler {
	return &Scheduler{
		jobs:   jobs,
		logger: logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("バッチスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("job_count", len(s.jobs)),
	)

	// 起動直後に1回実行
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("バッチスケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は登録されたすべてのジョブを順次1回実行する。
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, job := range s.jobs {
		if err := job.Run(ctx); err != nil {
			s.logger.Error("バッチジョブの実行に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}
}
