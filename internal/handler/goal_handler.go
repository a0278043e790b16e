package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/onideus/bookbuddy/internal/goal"
	"github.com/onideus/bookbuddy/internal/middleware"
	"github.com/onideus/bookbuddy/internal/model"
)

// GoalServiceInterface は目標ハンドラーが必要とするサービスインターフェース。
type GoalServiceInterface interface {
	Create(ctx context.Context, userID string, params goal.CreateParams) (*model.Goal, error)
	Get(ctx context.Context, userID, goalID string) (*model.Goal, error)
	List(ctx context.Context, userID string) ([]*model.Goal, error)
	Edit(ctx context.Context, userID, goalID string, params goal.EditParams) (*model.Goal, error)
	Delete(ctx context.Context, userID, goalID string) error
}

// GoalHandler は読書目標管理のHTTPハンドラー。
type GoalHandler struct {
	service GoalServiceInterface
}

// NewGoalHandler はGoalHandlerを生成する。
func NewGoalHandler(service GoalServiceInterface) *GoalHandler {
	return &GoalHandler{service: service}
}

// createGoalRequest は目標作成リクエストのボディ。
type createGoalRequest struct {
	Name         string `json:"name"`
	TargetCount  int    `json:"target_count"`
	DeadlineDays int    `json:"deadline_days"`
	Timezone     string `json:"timezone"`
}

// editGoalRequest は目標編集リクエストのボディ。nilのフィールドは変更しない。
type editGoalRequest struct {
	Name        *string `json:"name"`
	TargetCount *int    `json:"target_count"`
}

// goalResponse は目標1件分のAPIレスポンス。
type goalResponse struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	TargetCount        int        `json:"target_count"`
	ProgressCount      int        `json:"progress_count"`
	BonusCount         int        `json:"bonus_count"`
	ProgressPercentage int        `json:"progress_percentage"`
	Status             string     `json:"status"`
	DeadlineAt         time.Time  `json:"deadline_at"`
	DeadlineTimezone   string     `json:"deadline_timezone"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// toGoalResponse はmodel.GoalからAPIレスポンスに変換する。
func toGoalResponse(g *model.Goal) goalResponse {
	return goalResponse{
		ID:                 g.ID,
		Name:               g.Name,
		TargetCount:        g.TargetCount,
		ProgressCount:      g.ProgressCount,
		BonusCount:         g.BonusCount,
		ProgressPercentage: g.ProgressPercentage(),
		Status:             string(g.Status),
		DeadlineAt:         g.DeadlineAt,
		DeadlineTimezone:   g.DeadlineTimezone,
		CompletedAt:        g.CompletedAt,
		CreatedAt:          g.CreatedAt,
		UpdatedAt:          g.UpdatedAt,
	}
}

// CreateGoal は目標の作成を処理する。
// POST /api/goals
func (h *GoalHandler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Create(r.Context(), userID, goal.CreateParams{
		Name:         req.Name,
		TargetCount:  req.TargetCount,
		DeadlineDays: req.DeadlineDays,
		Timezone:     req.Timezone,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toGoalResponse(created))
}

// ListGoals は目標の一覧を取得する。
// GET /api/goals
func (h *GoalHandler) ListGoals(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	goals, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		resp = append(resp, toGoalResponse(g))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetGoal は目標の詳細を取得する。
// GET /api/goals/:id
func (h *GoalHandler) GetGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	g, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGoalResponse(g))
}

// EditGoal は進行中の目標の名前・目標冊数を編集する。
// PATCH /api/goals/:id
func (h *GoalHandler) EditGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req editGoalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.Edit(r.Context(), userID, chi.URLParam(r, "id"), goal.EditParams{
		Name:        req.Name,
		TargetCount: req.TargetCount,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGoalResponse(updated))
}

// DeleteGoal は目標を削除する。
// DELETE /api/goals/:id
func (h *GoalHandler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
