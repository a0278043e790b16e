package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/onideus/bookbuddy/internal/activity"
	"github.com/onideus/bookbuddy/internal/middleware"
	"github.com/onideus/bookbuddy/internal/model"
)

// ActivityServiceInterface は読書記録ハンドラーが必要とするサービスインターフェース。
type ActivityServiceInterface interface {
	Record(ctx context.Context, userID string, params activity.RecordParams) (*model.ReadingActivity, error)
	List(ctx context.Context, userID string) ([]*model.ReadingActivity, error)
	GetStreak(ctx context.Context, userID string) (*model.StreakStats, error)
}

// ActivityHandler は読書記録・ストリークのHTTPハンドラー。
type ActivityHandler struct {
	service ActivityServiceInterface
}

// NewActivityHandler はActivityHandlerを生成する。
func NewActivityHandler(service ActivityServiceInterface) *ActivityHandler {
	return &ActivityHandler{service: service}
}

// recordActivityRequest は読書記録リクエストのボディ。
// dayは "2006-01-02" 形式。省略時は今日の日付として扱う。
type recordActivityRequest struct {
	Day         string `json:"day"`
	PagesRead   int    `json:"pages_read"`
	MinutesRead int    `json:"minutes_read"`
}

// activityResponse は読書記録1日分のAPIレスポンス。
type activityResponse struct {
	ID          string `json:"id"`
	Day         string `json:"day"`
	PagesRead   int    `json:"pages_read"`
	MinutesRead int    `json:"minutes_read"`
}

// streakResponse はストリーク統計のAPIレスポンス。
type streakResponse struct {
	CurrentStreak int    `json:"current_streak"`
	LongestStreak int    `json:"longest_streak"`
	TotalDaysRead int    `json:"total_days_read"`
	AtRisk        bool   `json:"at_risk"`
	Message       string `json:"message"`
}

// toActivityResponse はmodel.ReadingActivityからAPIレスポンスに変換する。
func toActivityResponse(a *model.ReadingActivity) activityResponse {
	return activityResponse{
		ID:          a.ID,
		Day:         a.Day.Format("2006-01-02"),
		PagesRead:   a.PagesRead,
		MinutesRead: a.MinutesRead,
	}
}

// RecordActivity は読書記録の追加を処理する。同日の記録は加算される。
// POST /api/activity
func (h *ActivityHandler) RecordActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req recordActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	var day time.Time
	if req.Day != "" {
		day, err = time.Parse("2006-01-02", req.Day)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest,
				model.NewValidationError("dayは YYYY-MM-DD 形式で指定してください"))
			return
		}
	}

	recorded, err := h.service.Record(r.Context(), userID, activity.RecordParams{
		Day:         day,
		PagesRead:   req.PagesRead,
		MinutesRead: req.MinutesRead,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toActivityResponse(recorded))
}

// ListActivity は読書記録の一覧をday昇順で取得する。
// GET /api/activity
func (h *ActivityHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	activities, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		resp = append(resp, toActivityResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetStreak は読書ストリークの統計を取得する。
// GET /api/activity/streak
func (h *ActivityHandler) GetStreak(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	stats, err := h.service.GetStreak(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, streakResponse{
		CurrentStreak: stats.CurrentStreak,
		LongestStreak: stats.LongestStreak,
		TotalDaysRead: stats.TotalDaysRead,
		AtRisk:        stats.AtRisk,
		Message:       stats.Message,
	})
}
