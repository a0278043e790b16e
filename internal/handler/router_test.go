package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/onideus/bookbuddy/internal/middleware"
	"github.com/onideus/bookbuddy/internal/model"
)

type routerSessionFinder struct{}

func (f *routerSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if id != "valid-session" {
		return nil, nil
	}
	return &model.Session{
		ID:        id,
		UserID:    "user-1",
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

// newTestRouter はモック依存で構成したルーターを返す。
func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(100),
		GeneralBurst:    100,
		ImportRate:      rate.Limit(1),
		ImportBurst:     1,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		SessionFinder:     &routerSessionFinder{},
		CORSAllowedOrigin: "http://localhost:3000",
		RateLimiter:       rl,

		AuthService: &mockAuthService{
			getCurrentUserFn: func(ctx context.Context, sessionID string) (*model.User, error) {
				return &model.User{ID: "user-1", Email: "reader@example.com", Name: "Reader"}, nil
			},
		},
		AuthConfig: testAuthConfig(),

		BookService: &mockBookService{
			listFn: func(ctx context.Context, userID, status string) ([]*model.Book, error) {
				return []*model.Book{}, nil
			},
		},
		SearchClient: &mockSearchClient{},

		ImportService: &mockImportService{
			importFn: func(ctx context.Context, userID, csvContent string) (*model.ImportResult, error) {
				return &model.ImportResult{}, nil
			},
		},
		ImportMaxBytes: 1 << 20,

		GoalService: &mockGoalService{
			listFn: func(ctx context.Context, userID string) ([]*model.Goal, error) {
				return []*model.Goal{}, nil
			},
		},
		ActivityService: &mockActivityService{
			getStreakFn: func(ctx context.Context, userID string) (*model.StreakStats, error) {
				return &model.StreakStats{}, nil
			},
		},
		UserService: &mockUserService{},
	})
}

// attachCSRFToken はCSRF検証を通過するCookieとヘッダーの組をリクエストに付与する。
func attachCSRFToken(req *http.Request) {
	const token = "test-csrf-token"
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	req.Header.Set("X-CSRF-Token", token)
}

func TestRouter_NoSessionCookie_Returns401(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRouter_ValidSession_DispatchesToHandler(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_AuthRoutesSkipSessionMiddleware(t *testing.T) {
	router := newTestRouter(t)

	// /auth/me はセッションミドルウェアの外側にあり、
	// Cookieがあればハンドラー自身がセッションを検証する
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_StreakRoute_Dispatches(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/activity/streak", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_ImportRateLimit_Returns429AfterBurst(t *testing.T) {
	router := newTestRouter(t)

	doImport := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/imports/goodreads", strings.NewReader(testCSV))
		req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
		attachCSRFToken(req)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if got := doImport(); got != http.StatusOK {
		t.Fatalf("1回目: status = %d, want %d", got, http.StatusOK)
	}
	if got := doImport(); got != http.StatusTooManyRequests {
		t.Errorf("2回目: status = %d, want %d", got, http.StatusTooManyRequests)
	}
}

func TestRouter_StateChangingRequestWithoutCSRFToken_Returns403(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/activity", strings.NewReader(`{"book_id":"b1"}`))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRouter_CSRFTokenMismatch_Returns403(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/me", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: "token-a"})
	req.Header.Set("X-CSRF-Token", "token-b")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRouter_CSRFTokenEndpoint_IssuesToken(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body.Token == "" {
		t.Error("トークンが空で返された")
	}

	var cookieSet bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" && c.Value == body.Token {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Error("csrf_token Cookieが設定されていない")
	}
}

func TestRouter_SafeMethodSkipsCSRFCheck(t *testing.T) {
	router := newTestRouter(t)

	// GETはトークンなしで通り、次回用のCSRF Cookieが設定される
	req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "valid-session"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var cookieSet bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf_token" && c.Value != "" {
			cookieSet = true
		}
	}
	if !cookieSet {
		t.Error("安全なメソッドでcsrf_token Cookieが設定されていない")
	}
}

func TestRouter_HealthEndpoint_NoAuthRequired(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("body = %q, want status ok", rec.Body.String())
	}
}

func TestRouter_CORSHeaders(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/books", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q, want http://localhost:3000", got)
	}
}
