package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/onideus/bookbuddy/internal/middleware"
)

// HealthChecker はヘルスチェックエンドポイントが依存するインターフェース。
// *sql.DB を受け付けることができる。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	HTTPMetrics       middleware.HTTPMetricsRecorder
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 本
	BookService  BookServiceInterface
	SearchClient SearchClientInterface

	// インポート
	ImportService  ImportServiceInterface
	ImportMetrics  ImportMetricsRecorder
	ImportMaxBytes int64

	// 目標
	GoalService GoalServiceInterface

	// 読書記録
	ActivityService ActivityServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS
//	→ SessionMiddleware → CSRFMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）と運用エンドポイント（/health, /metrics）は
// 認証ミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger, deps.HTTPMetrics))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	bookHandler := NewBookHandler(deps.BookService)
	searchHandler := NewSearchHandler(deps.SearchClient)
	importHandler := NewImportHandler(deps.ImportService, deps.ImportMetrics, deps.ImportMaxBytes)
	goalHandler := NewGoalHandler(deps.GoalService)
	activityHandler := NewActivityHandler(deps.ActivityService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 認証不要のルート ---

	// ヘルスチェック（DockerのHEALTHCHECKとロードバランサー向け）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	// Cookieベースのセッション認証のため、状態変更メソッドはCSRFトークンを必須とする。
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// GET /api/csrf-token - フロントエンドがヘッダー送信用のトークンを取得する
		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

		// 本棚管理
		r.Route("/api/books", func(r chi.Router) {
			r.Get("/", bookHandler.ListBooks)
			r.Post("/", bookHandler.CreateBook)

			// GET /api/books/search - 外部カタログの書籍検索
			r.Get("/search", searchHandler.SearchBooks)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", bookHandler.GetBook)
				r.Patch("/", bookHandler.UpdateBook)
				r.Delete("/", bookHandler.DeleteBook)

				r.Put("/status", bookHandler.UpdateBookStatus)
				r.Put("/progress", bookHandler.UpdateBookProgress)
				r.Put("/rating", bookHandler.RateBook)
			})
		})

		// Goodreads CSVインポート（インポート専用レート制限を追加）
		r.With(deps.RateLimiter.ImportMiddleware()).
			Post("/api/imports/goodreads", importHandler.ImportGoodreads)

		// 読書目標管理
		r.Route("/api/goals", func(r chi.Router) {
			r.Get("/", goalHandler.ListGoals)
			r.Post("/", goalHandler.CreateGoal)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", goalHandler.GetGoal)
				r.Patch("/", goalHandler.EditGoal)
				r.Delete("/", goalHandler.DeleteGoal)
			})
		})

		// 読書記録・ストリーク
		r.Route("/api/activity", func(r chi.Router) {
			r.Get("/", activityHandler.ListActivity)
			r.Post("/", activityHandler.RecordActivity)
			r.Get("/streak", activityHandler.GetStreak)
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
