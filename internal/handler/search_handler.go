package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onideus/bookbuddy/internal/model"
	"github.com/onideus/bookbuddy/internal/search"
)

// SearchClientInterface は書籍検索ハンドラーが必要とするクライアントインターフェース。
type SearchClientInterface interface {
	Search(ctx context.Context, query string) ([]*search.Result, error)
}

// SearchHandler は外部カタログの書籍検索のHTTPハンドラー。
type SearchHandler struct {
	client SearchClientInterface
}

// NewSearchHandler はSearchHandlerを生成する。
func NewSearchHandler(client SearchClientInterface) *SearchHandler {
	return &SearchHandler{client: client}
}

// SearchBooks は外部カタログから書籍候補を検索する。
// GET /api/books/search?q=query
func (h *SearchHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewValidationError("検索クエリ q は必須です"))
		return
	}

	results, err := h.client.Search(r.Context(), query)
	if err != nil {
		slog.Error("書籍検索に失敗しました",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusBadGateway, model.NewSearchFailedError())
		return
	}

	writeJSON(w, http.StatusOK, results)
}
