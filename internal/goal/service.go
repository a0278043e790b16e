package goal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/onideus/bookbuddy/internal/clock"
	"github.com/onideus/bookbuddy/internal/model"
	"github.com/onideus/bookbuddy/internal/repository"
)

// maxTargetCount は目標冊数の上限。
const maxTargetCount = 9999

// maxGoalNameLength は目標名の最大文字数。
const maxGoalNameLength = 200

// Service は読書目標のCRUD操作を提供する。
// 進捗カウンタの変更はReconcilerの責務であり、このサービスは触れない。
type Service struct {
	goalRepo repository.GoalRepository
	clock    clock.Clock
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(goalRepo repository.GoalRepository, clk clock.Clock) *Service {
	return &Service{
		goalRepo: goalRepo,
		clock:    clk,
	}
}

// CreateParams は目標作成の入力。
type CreateParams struct {
	Name         string
	TargetCount  int
	DeadlineDays int    // 今日からの日数
	Timezone     string // IANAタイムゾーン名
}

// Create は読書目標を作成する。
// 期限は「ユーザーのタイムゾーンでの現在時刻 + N日」の日の終わりをUTCに変換した値。
// 変換後の時刻が現在より厳密に後でない場合は拒否する。
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*model.Goal, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, model.NewValidationError("目標名は必須です")
	}
	if len([]rune(name)) > maxGoalNameLength {
		return nil, model.NewValidationError(fmt.Sprintf("目標名は%d文字以内で指定してください", maxGoalNameLength))
	}
	if params.TargetCount < 1 || params.TargetCount > maxTargetCount {
		return nil, model.NewInvalidTargetError(params.TargetCount)
	}

	loc, err := time.LoadLocation(params.Timezone)
	if err != nil {
		return nil, model.NewInvalidDeadlineError(fmt.Sprintf("不明なタイムゾーンです: %s", params.Timezone))
	}

	now := s.clock.Now()
	deadline := endOfDay(now.In(loc).AddDate(0, 0, params.DeadlineDays)).UTC()
	if !deadline.After(now) {
		return nil, model.NewInvalidDeadlineError("期限が過去になっています")
	}

	goal := &model.Goal{
		ID:               uuid.New().String(),
		UserID:           userID,
		Name:             name,
		TargetCount:      params.TargetCount,
		Status:           model.GoalStatusActive,
		DeadlineAt:       deadline,
		DeadlineTimezone: params.Timezone,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.goalRepo.Create(ctx, goal); err != nil {
		return nil, fmt.Errorf("目標の作成に失敗: %w", err)
	}

	slog.Info("読書目標を作成",
		"user_id", userID,
		"goal_id", goal.ID,
		"target_count", goal.TargetCount,
		"deadline_at", goal.DeadlineAt,
	)

	return goal, nil
}

// Get は目標を取得する。所有者以外のアクセスは拒否する。
func (s *Service) Get(ctx context.Context, userID, goalID string) (*model.Goal, error) {
	goal, err := s.goalRepo.FindByID(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("目標の取得に失敗: %w", err)
	}
	if goal == nil {
		return nil, model.NewGoalNotFoundError(goalID)
	}
	if goal.UserID != userID {
		return nil, model.NewForbiddenError()
	}
	return goal, nil
}

// List はユーザーの目標一覧を返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Goal, error) {
	goals, err := s.goalRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("目標の一覧取得に失敗: %w", err)
	}
	return goals, nil
}

// EditParams は目標編集の入力。nilのフィールドは変更しない。
type EditParams struct {
	Name        *string
	TargetCount *int
}

// Edit は進行中の目標の名前・目標冊数を変更する。
// 進行中でない目標は編集できない。目標冊数の変更はbonus_countを再計算し、
// 進捗がすでに新しい目標冊数に達している場合はその場で達成となる。
// progress_countには触れない。
func (s *Service) Edit(ctx context.Context, userID, goalID string, params EditParams) (*model.Goal, error) {
	goal, err := s.Get(ctx, userID, goalID)
	if err != nil {
		return nil, err
	}
	if goal.Status != model.GoalStatusActive {
		return nil, model.NewGoalNotActiveError()
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, model.NewValidationError("目標名は必須です")
		}
		if len([]rune(name)) > maxGoalNameLength {
			return nil, model.NewValidationError(fmt.Sprintf("目標名は%d文字以内で指定してください", maxGoalNameLength))
		}
		goal.Name = name
	}

	now := s.clock.Now()
	if params.TargetCount != nil {
		target := *params.TargetCount
		if target < 1 || target > maxTargetCount {
			return nil, model.NewInvalidTargetError(target)
		}
		goal.TargetCount = target
		goal.BonusCount = max(0, goal.ProgressCount-target)
		if goal.ProgressCount >= target {
			goal.Status = model.GoalStatusCompleted
			goal.CompletedAt = &now
		}
	}

	goal.UpdatedAt = now
	if err := s.goalRepo.UpdateMeta(ctx, goal); err != nil {
		return nil, fmt.Errorf("目標の更新に失敗: %w", err)
	}

	slog.Info("読書目標を更新",
		"user_id", userID,
		"goal_id", goal.ID,
		"target_count", goal.TargetCount,
		"status", goal.Status,
	)

	return goal, nil
}

// Delete は目標を削除する。進捗レコードはCASCADE削除される。
func (s *Service) Delete(ctx context.Context, userID, goalID string) error {
	if _, err := s.Get(ctx, userID, goalID); err != nil {
		return err
	}
	if err := s.goalRepo.Delete(ctx, goalID); err != nil {
		return fmt.Errorf("目標の削除に失敗: %w", err)
	}

	slog.Info("読書目標を削除", "user_id", userID, "goal_id", goalID)
	return nil
}

// endOfDay は同じ場所・同じ日付の23:59:59を返す。
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}
