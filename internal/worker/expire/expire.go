// Package expire は読書目標の期限切れ処理ジョブを提供する。
// 締切を過ぎてもactiveのままの目標を定期バッチでexpiredに遷移させる。
// 目標の進捗加算時にも期限チェックは行われるため、このジョブは
// 加算が発生しなかった目標を拾う補完的な役割を持つ。
package expire

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// GoalExpiryJob は締切超過した読書目標をexpiredに遷移させるジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な更新処理を保証する。
type GoalExpiryJob struct {
	db     Executor
	logger *slog.Logger
}

// NewGoalExpiryJob は新しいGoalExpiryJobを生成する。
func NewGoalExpiryJob(db Executor, logger *slog.Logger) *GoalExpiryJob {
	return &GoalExpiryJob{
		db:     db,
		logger: logger,
	}
}

// Run は締切を過ぎたactiveな目標をexpiredに更新する。
// completedの目標は対象外（完了が期限切れに巻き戻ることはない）。
// 冪等: 更新対象がない場合でもエラーにならない。
func (j *GoalExpiryJob) Run(ctx context.Context) error {
	start := time.Now()

	query := `UPDATE goals SET status = 'expired', updated_at = now()
		WHERE status = 'active' AND deadline_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("目標の期限切れ処理に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("目標の期限切れ処理に失敗: %w", err)
	}

	expiredCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("更新件数の取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("更新件数の取得に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("目標の期限切れ処理が完了しました",
		slog.Int64("expired_count", expiredCount),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
