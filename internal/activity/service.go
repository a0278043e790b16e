package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/onideus/bookbuddy/internal/clock"
	"github.com/onideus/bookbuddy/internal/model"
	"github.com/onideus/bookbuddy/internal/repository"
)

// Service は読書記録の登録とストリーク統計の取得を提供する。
type Service struct {
	activityRepo repository.ActivityRepository
	clock        clock.Clock
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(activityRepo repository.ActivityRepository, clk clock.Clock) *Service {
	return &Service{
		activityRepo: activityRepo,
		clock:        clk,
	}
}

// RecordParams は読書記録の入力。
type RecordParams struct {
	Day         time.Time // ゼロ値の場合は今日
	PagesRead   int
	MinutesRead int
}

// Record は1日分の読書記録を加算登録する。
// 同じ日の記録はページ数・分数が加算される（上書きではない）。
// 未来の日付は拒否する。
func (s *Service) Record(ctx context.Context, userID string, params RecordParams) (*model.ReadingActivity, error) {
	if params.PagesRead < 0 || params.MinutesRead < 0 {
		return nil, model.NewValidationError("ページ数・分数は0以上で指定してください")
	}
	if params.PagesRead == 0 && params.MinutesRead == 0 {
		return nil, model.NewValidationError("ページ数または分数のいずれかを指定してください")
	}

	now := s.clock.Now()
	day := params.Day
	if day.IsZero() {
		day = now
	}
	day = normalizeDay(day)
	if day.After(normalizeDay(now)) {
		return nil, model.NewValidationError("未来の日付には記録できません")
	}

	activity := &model.ReadingActivity{
		ID:          uuid.New().String(),
		UserID:      userID,
		Day:         day,
		PagesRead:   params.PagesRead,
		MinutesRead: params.MinutesRead,
	}

	updated, err := s.activityRepo.UpsertAdd(ctx, activity, now)
	if err != nil {
		return nil, fmt.Errorf("読書記録の登録に失敗: %w", err)
	}
	return updated, nil
}

// List はユーザーの読書記録一覧を返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.ReadingActivity, error) {
	activities, err := s.activityRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("読書記録の一覧取得に失敗: %w", err)
	}
	return activities, nil
}

// GetStreak は現在のストリーク統計を返す。
func (s *Service) GetStreak(ctx context.Context, userID string) (*model.StreakStats, error) {
	activities, err := s.activityRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("読書記録の一覧取得に失敗: %w", err)
	}
	return CalculateStreak(activities, s.clock.Now()), nil
}
