package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/onideus/bookbuddy/internal/middleware"
	"github.com/onideus/bookbuddy/internal/model"
)

// ImportServiceInterface はインポートハンドラーが必要とするサービスインターフェース。
type ImportServiceInterface interface {
	Import(ctx context.Context, userID, csvContent string) (*model.ImportResult, error)
}

// ImportMetricsRecorder はインポート結果をメトリクスに記録するインターフェース。
type ImportMetricsRecorder interface {
	ObserveImport(imported, skipped, failed int, duration time.Duration)
}

// ImportHandler はGoodreads CSVインポートのHTTPハンドラー。
type ImportHandler struct {
	service  ImportServiceInterface
	metrics  ImportMetricsRecorder // nil可
	maxBytes int64
}

// NewImportHandler はImportHandlerを生成する。
// maxBytesはアップロードされるCSVの最大サイズ（バイト）。
func NewImportHandler(service ImportServiceInterface, metrics ImportMetricsRecorder, maxBytes int64) *ImportHandler {
	return &ImportHandler{
		service:  service,
		metrics:  metrics,
		maxBytes: maxBytes,
	}
}

// importErrorResponse はインポートで失敗した1行分のレスポンス。
type importErrorResponse struct {
	Row    int    `json:"row"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
	Reason string `json:"reason"`
}

// importResultResponse はインポート結果の集計レスポンス。
type importResultResponse struct {
	Imported int                   `json:"imported"`
	Skipped  int                   `json:"skipped"`
	Errors   []importErrorResponse `json:"errors"`
}

// ImportGoodreads はGoodreads CSVのインポートを処理する。
// 部分成功ポリシー: 行単位の失敗があっても200を返し、失敗行はerrorsに記録する。
// POST /api/imports/goodreads
//
// リクエストボディはmultipart/form-dataのfileフィールド、
// またはtext/csvの生ボディのどちらでも受け付ける。
func (h *ImportHandler) ImportGoodreads(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	content, err := h.readCSVContent(r)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewImportFormatError(err.Error()))
		return
	}

	start := time.Now()
	result, err := h.service.Import(r.Context(), userID, content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveImport(result.Imported, result.Skipped, len(result.Errors), time.Since(start))
	}

	slog.Info("CSVインポートが完了しました",
		slog.String("user_id", userID),
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", len(result.Errors)),
	)

	errs := make([]importErrorResponse, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, importErrorResponse{
			Row:    e.Row,
			Title:  e.Title,
			Author: e.Author,
			Reason: e.Reason,
		})
	}

	writeJSON(w, http.StatusOK, importResultResponse{
		Imported: result.Imported,
		Skipped:  result.Skipped,
		Errors:   errs,
	})
}

// readCSVContent はリクエストからCSVコンテンツを読み取る。
// サイズ上限はmaxBytesで制限する。
func (h *ImportHandler) readCSVContent(r *http.Request) (string, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, h.maxBytes)

	ct := r.Header.Get("Content-Type")
	if len(ct) >= 19 && ct[:19] == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxBytes); err != nil {
			return "", err
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			return "", err
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
