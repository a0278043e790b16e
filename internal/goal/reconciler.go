// Package goal は読書目標の管理と進捗反映機能を提供する。
package goal

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/onideus/bookbuddy/internal/clock"
	"github.com/onideus/bookbuddy/internal/model"
	"github.com/onideus/bookbuddy/internal/repository"
)

// CompletionRecorder は目標達成のメトリクス記録インターフェース。
type CompletionRecorder interface {
	IncGoalCompletions()
}

// Reconciler は本のステータス変更を読書目標の進捗に反映する。
// 本のステータスが変わるたびに同期的に呼び出される。
//
// 反映規則:
//   - readへの遷移: 同一ユーザーのactive/completedな全目標に対して、
//     まだこの本がカウントされていなければ進捗を1加算する（複数目標へのファンアウト）。
//     加算により進捗が目標に達したactiveな目標はcompletedになる。
//   - readからの離脱: この本がカウントされている全目標から進捗を1減算する。
//     達成済みの目標は、期限内であればactiveに戻る。
//   - 目標の作成より前に読了した本は遡及的にカウントされない。
//     進捗レコードは遷移が観測された時点でのみ作成され、過去の履歴は走査しない。
//
// カウンタの加算・減算・達成判定はリポジトリ層の単一UPDATE文で行われるため、
// 同一目標への同時リクエストが読み取り後書き込みで競合することはない。
// ファンアウトは目標ごとに独立であり、目標をまたぐ原子性は持たない。
type Reconciler struct {
	goalRepo repository.GoalRepository
	metrics  CompletionRecorder
	clock    clock.Clock
}

// NewReconciler はReconcilerの新しいインスタンスを生成する。
// metricsはnilを許容する。
func NewReconciler(goalRepo repository.GoalRepository, metrics CompletionRecorder, clk clock.Clock) *Reconciler {
	return &Reconciler{
		goalRepo: goalRepo,
		metrics:  metrics,
		clock:    clk,
	}
}

// BookFinished は本がreadに遷移したことを全対象目標へ反映する。
func (r *Reconciler) BookFinished(ctx context.Context, userID, bookID string) error {
	goals, err := r.goalRepo.ListReconcilableByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("進捗反映対象の目標取得に失敗: %w", err)
	}

	now := r.clock.Now()
	for _, g := range goals {
		counted, err := r.goalRepo.AddProgress(ctx, g.ID, bookID, uuid.New().String(), now)
		if err != nil {
			return fmt.Errorf("目標への進捗加算に失敗: %w", err)
		}
		if !counted {
			continue
		}

		// 一覧取得時点のスナップショットで達成をまたいだ目標を記録する
		if g.Status == model.GoalStatusActive && g.ProgressCount+1 >= g.TargetCount {
			slog.Info("読書目標を達成",
				"user_id", userID,
				"goal_id", g.ID,
				"target_count", g.TargetCount,
			)
			if r.metrics != nil {
				r.metrics.IncGoalCompletions()
			}
		}
	}

	return nil
}

// BookUnfinished は本がreadから離脱したことを、
// この本をカウントしている全目標へ反映する。
func (r *Reconciler) BookUnfinished(ctx context.Context, userID, bookID string) error {
	goalIDs, err := r.goalRepo.ListGoalIDsByBookID(ctx, bookID)
	if err != nil {
		return fmt.Errorf("進捗レコードの検索に失敗: %w", err)
	}

	now := r.clock.Now()
	for _, goalID := range goalIDs {
		if _, err := r.goalRepo.RemoveProgress(ctx, goalID, bookID, now); err != nil {
			return fmt.Errorf("目標からの進捗減算に失敗: %w", err)
		}
	}

	if len(goalIDs) > 0 {
		slog.Debug("目標進捗を減算",
			"user_id", userID,
			"book_id", bookID,
			"goals", len(goalIDs),
		)
	}

	return nil
}
