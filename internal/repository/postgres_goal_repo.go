package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/onideus/bookbuddy/internal/model"
)

// PostgresGoalRepo はPostgreSQLを使用した読書目標リポジトリ。
// 進捗カウンタの更新は単一の条件付きUPDATE文で行い、
// 別リクエストとの読み取り後書き込み競合を排除する。
type PostgresGoalRepo struct {
	db *sql.DB
}

// NewPostgresGoalRepo はPostgresGoalRepoを生成する。
func NewPostgresGoalRepo(db *sql.DB) *PostgresGoalRepo {
	return &PostgresGoalRepo{db: db}
}

// goalColumns はgoalsテーブルのSELECT列リスト。scanGoalRowと対応させること。
const goalColumns = `id, user_id, name, target_count, progress_count, bonus_count,
	status, deadline_at, deadline_timezone, completed_at, created_at, updated_at`

// scanGoalRow は1行分の目標データをmodel.Goalに読み込む。
func scanGoalRow(row rowScanner) (*model.Goal, error) {
	goal := &model.Goal{}
	var completedAt sql.NullTime

	err := row.Scan(
		&goal.ID, &goal.UserID, &goal.Name,
		&goal.TargetCount, &goal.ProgressCount, &goal.BonusCount,
		&goal.Status, &goal.DeadlineAt, &goal.DeadlineTimezone,
		&completedAt, &goal.CreatedAt, &goal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		goal.CompletedAt = &completedAt.Time
	}

	return goal, nil
}

// FindByID は指定IDの目標を取得する。見つからない場合はnilを返す。
func (r *PostgresGoalRepo) FindByID(ctx context.Context, id string) (*model.Goal, error) {
	goal, err := scanGoalRow(r.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("目標の取得に失敗しました: %w", err)
	}
	return goal, nil
}

// queryGoals は目標一覧クエリを実行する。
func (r *PostgresGoalRepo) queryGoals(ctx context.Context, query string, args ...interface{}) ([]*model.Goal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []*model.Goal
	for rows.Next() {
		goal, err := scanGoalRow(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, goal)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return goals, nil
}

// ListByUserID はユーザーの目標一覧をcreated_at降順で返す。
func (r *PostgresGoalRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Goal, error) {
	goals, err := r.queryGoals(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE user_id = $1 ORDER BY created_at DESC, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("目標の一覧取得に失敗しました: %w", err)
	}
	return goals, nil
}

// ListReconcilableByUserID は進捗反映の対象となる目標（active/completed）の一覧を返す。
// 期限切れ（expired）の目標は進捗反映の対象外。
func (r *PostgresGoalRepo) ListReconcilableByUserID(ctx context.Context, userID string) ([]*model.Goal, error) {
	goals, err := r.queryGoals(ctx,
		`SELECT `+goalColumns+` FROM goals
		 WHERE user_id = $1 AND status IN ('active', 'completed')
		 ORDER BY created_at, id`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("進捗反映対象の目標取得に失敗しました: %w", err)
	}
	return goals, nil
}

// Create は目標を作成する。
func (r *PostgresGoalRepo) Create(ctx context.Context, goal *model.Goal) error {
	var completedAt sql.NullTime
	if goal.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *goal.CompletedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO goals (id, user_id, name, target_count, progress_count, bonus_count,
		                    status, deadline_at, deadline_timezone, completed_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		goal.ID, goal.UserID, goal.Name,
		goal.TargetCount, goal.ProgressCount, goal.BonusCount,
		string(goal.Status), goal.DeadlineAt, goal.DeadlineTimezone,
		completedAt, goal.CreatedAt, goal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("目標の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateMeta は目標の名前・目標冊数・bonus_count・ステータス・completed_atを更新する。
// progress_countには触れない（進捗はAddProgress/RemoveProgressのみが変更する）。
func (r *PostgresGoalRepo) UpdateMeta(ctx context.Context, goal *model.Goal) error {
	var completedAt sql.NullTime
	if goal.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *goal.CompletedAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE goals
		 SET name = $2, target_count = $3,
		     bonus_count = GREATEST(progress_count - $3, 0),
		     status = $4, completed_at = $5, updated_at = $6
		 WHERE id = $1`,
		goal.ID, goal.Name, goal.TargetCount,
		string(goal.Status), completedAt, goal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("目標の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("goal not found: %s", goal.ID)
	}
	return nil
}

// Delete は指定IDの目標を削除する。goal_progressはCASCADE削除される。
func (r *PostgresGoalRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM goals WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("目標の削除に失敗しました: %w", err)
	}
	return nil
}

// AddProgress は本を目標の進捗に加算する。
// goal_progress行の挿入とカウンタ更新を同一トランザクションで行う。
// カウンタ更新は1つの条件付きUPDATE文であり、加算・bonus再計算・達成判定が
// アトミックに適用される。すでにカウント済みの場合は何もせずfalseを返す。
func (r *PostgresGoalRepo) AddProgress(ctx context.Context, goalID, bookID, progressID string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// ON CONFLICT DO NOTHINGにより、同一の(goal_id, book_id)の二重加算を防ぐ
	result, err := tx.ExecContext(ctx,
		`INSERT INTO goal_progress (id, goal_id, book_id, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (goal_id, book_id) DO NOTHING`,
		progressID, goalID, bookID, now,
	)
	if err != nil {
		return false, fmt.Errorf("進捗レコードの作成に失敗しました: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("挿入件数の取得に失敗しました: %w", err)
	}
	if inserted == 0 {
		// すでにこの本はカウント済み
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE goals SET
		     progress_count = progress_count + 1,
		     bonus_count = GREATEST(progress_count + 1 - target_count, 0),
		     completed_at = CASE WHEN status = 'active' AND progress_count + 1 >= target_count
		                         THEN $2 ELSE completed_at END,
		     status = CASE WHEN status = 'active' AND progress_count + 1 >= target_count
		                   THEN 'completed' ELSE status END,
		     updated_at = $2
		 WHERE id = $1`,
		goalID, now,
	)
	if err != nil {
		return false, fmt.Errorf("進捗カウンタの加算に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// RemoveProgress は本を目標の進捗から取り消す。
// goal_progress行の削除とカウンタ更新を同一トランザクションで行う。
// 達成済みの目標は、減算後の進捗が目標未満かつ期限内の場合のみactiveへ戻す。
// 期限を過ぎた目標の達成は取り消さない（目標の成否はその期限時点で判定される）。
// 行が存在しない場合は何もせずfalseを返す。
func (r *PostgresGoalRepo) RemoveProgress(ctx context.Context, goalID, bookID string, now time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM goal_progress WHERE goal_id = $1 AND book_id = $2`,
		goalID, bookID,
	)
	if err != nil {
		return false, fmt.Errorf("進捗レコードの削除に失敗しました: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	if deleted == 0 {
		// この本はこの目標にカウントされていない
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE goals SET
		     progress_count = GREATEST(progress_count - 1, 0),
		     bonus_count = GREATEST(progress_count - 1 - target_count, 0),
		     completed_at = CASE WHEN status = 'completed' AND progress_count - 1 < target_count AND deadline_at > $2
		                         THEN NULL ELSE completed_at END,
		     status = CASE WHEN status = 'completed' AND progress_count - 1 < target_count AND deadline_at > $2
		                   THEN 'active' ELSE status END,
		     updated_at = $2
		 WHERE id = $1`,
		goalID, now,
	)
	if err != nil {
		return false, fmt.Errorf("進捗カウンタの減算に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return true, nil
}

// ListGoalIDsByBookID は指定の本が進捗に含まれている目標IDの一覧を返す。
func (r *PostgresGoalRepo) ListGoalIDsByBookID(ctx context.Context, bookID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT goal_id FROM goal_progress WHERE book_id = $1 ORDER BY created_at`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("進捗レコードの検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var goalIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("進捗レコードの読み込みに失敗しました: %w", err)
		}
		goalIDs = append(goalIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("進捗レコードの読み込みに失敗しました: %w", err)
	}

	return goalIDs, nil
}

// compile-time interface check
var _ GoalRepository = (*PostgresGoalRepo)(nil)
