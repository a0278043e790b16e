package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/onideus/bookbuddy/internal/model"
)

// PostgresActivityRepo はPostgreSQLを使用した読書アクティビティリポジトリ。
type PostgresActivityRepo struct {
	db *sql.DB
}

// NewPostgresActivityRepo はPostgresActivityRepoを生成する。
func NewPostgresActivityRepo(db *sql.DB) *PostgresActivityRepo {
	return &PostgresActivityRepo{db: db}
}

// UpsertAdd は指定日のアクティビティにページ数・分数を加算する。
// (user_id, day)ごとに1行のみ保持し、既存行があれば加算で更新する。
// dayはUTC午前0時に正規化済みであること。更新後の行を返す。
func (r *PostgresActivityRepo) UpsertAdd(ctx context.Context, activity *model.ReadingActivity, now time.Time) (*model.ReadingActivity, error) {
	updated := &model.ReadingActivity{}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO reading_activities (id, user_id, day, pages_read, minutes_read, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (user_id, day) DO UPDATE SET
		     pages_read = reading_activities.pages_read + EXCLUDED.pages_read,
		     minutes_read = reading_activities.minutes_read + EXCLUDED.minutes_read,
		     updated_at = EXCLUDED.updated_at
		 RETURNING id, user_id, day, pages_read, minutes_read, created_at, updated_at`,
		activity.ID, activity.UserID, activity.Day,
		activity.PagesRead, activity.MinutesRead, now,
	).Scan(
		&updated.ID, &updated.UserID, &updated.Day,
		&updated.PagesRead, &updated.MinutesRead,
		&updated.CreatedAt, &updated.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("アクティビティの記録に失敗しました: %w", err)
	}

	// DATE列は時刻情報を持たないため、UTC午前0時として扱う
	updated.Day = updated.Day.UTC()

	return updated, nil
}

// ListByUserID はユーザーの全アクティビティを日付昇順で返す。
func (r *PostgresActivityRepo) ListByUserID(ctx context.Context, userID string) ([]*model.ReadingActivity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, day, pages_read, minutes_read, created_at, updated_at
		 FROM reading_activities
		 WHERE user_id = $1
		 ORDER BY day`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("アクティビティの一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var activities []*model.ReadingActivity
	for rows.Next() {
		activity := &model.ReadingActivity{}
		err := rows.Scan(
			&activity.ID, &activity.UserID, &activity.Day,
			&activity.PagesRead, &activity.MinutesRead,
			&activity.CreatedAt, &activity.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("アクティビティの読み込みに失敗しました: %w", err)
		}
		activity.Day = activity.Day.UTC()
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アクティビティの読み込みに失敗しました: %w", err)
	}

	return activities, nil
}

// compile-time interface check
var _ ActivityRepository = (*PostgresActivityRepo)(nil)
