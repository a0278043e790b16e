package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/onideus/bookbuddy/internal/book"
	"github.com/onideus/bookbuddy/internal/middleware"
	"github.com/onideus/bookbuddy/internal/model"
)

// BookServiceInterface は本ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	Create(ctx context.Context, userID string, params book.CreateParams) (*model.Book, error)
	Get(ctx context.Context, userID, bookID string) (*model.Book, error)
	List(ctx context.Context, userID, status string) ([]*model.Book, error)
	Update(ctx context.Context, userID, bookID string, params book.UpdateParams) (*model.Book, error)
	UpdateStatus(ctx context.Context, userID, bookID, newStatus string) (*model.Book, error)
	UpdateProgress(ctx context.Context, userID, bookID string, currentPage int) (*model.Book, error)
	Rate(ctx context.Context, userID, bookID string, rating int, review string) (*model.Book, error)
	Delete(ctx context.Context, userID, bookID string) error
}

// BookHandler は本（読書エントリ）管理のHTTPハンドラー。
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

// createBookRequest は本の登録リクエストのボディ。
type createBookRequest struct {
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Genres     []string `json:"genres"`
	ISBN       string   `json:"isbn"`
	ISBN13     string   `json:"isbn13"`
	ExternalID string   `json:"external_id"`
	CoverURL   string   `json:"cover_url"`
	Publisher  string   `json:"publisher"`
	PageCount  *int     `json:"page_count"`
	Status     string   `json:"status"`
}

// updateBookRequest は本のメタデータ編集リクエストのボディ。nilのフィールドは変更しない。
type updateBookRequest struct {
	Title     *string  `json:"title"`
	Authors   []string `json:"authors"`
	Genres    []string `json:"genres"`
	CoverURL  *string  `json:"cover_url"`
	Publisher *string  `json:"publisher"`
	PageCount *int     `json:"page_count"`
	Review    *string  `json:"review"`
}

// updateStatusRequest はステータス変更リクエストのボディ。
type updateStatusRequest struct {
	Status string `json:"status"`
}

// updateProgressRequest は読書進捗更新リクエストのボディ。
type updateProgressRequest struct {
	CurrentPage int `json:"current_page"`
}

// rateBookRequest は評価・レビュー登録リクエストのボディ。
type rateBookRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// bookResponse は本1冊分のAPIレスポンス。
type bookResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Authors     []string   `json:"authors"`
	Genres      []string   `json:"genres"`
	ISBN        string     `json:"isbn,omitempty"`
	ISBN13      string     `json:"isbn13,omitempty"`
	ExternalID  string     `json:"external_id,omitempty"`
	CoverURL    string     `json:"cover_url,omitempty"`
	Publisher   string     `json:"publisher,omitempty"`
	PageCount   *int       `json:"page_count,omitempty"`
	CurrentPage int        `json:"current_page"`
	Status      string     `json:"status"`
	Rating      *int       `json:"rating,omitempty"`
	Review      string     `json:"review,omitempty"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	AddedAt     time.Time  `json:"added_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// toBookResponse はmodel.BookからAPIレスポンスに変換する。
func toBookResponse(b *model.Book) bookResponse {
	return bookResponse{
		ID:          b.ID,
		Title:       b.Title,
		Authors:     b.Authors,
		Genres:      b.Genres,
		ISBN:        b.ISBN,
		ISBN13:      b.ISBN13,
		ExternalID:  b.ExternalID,
		CoverURL:    b.CoverURL,
		Publisher:   b.Publisher,
		PageCount:   b.PageCount,
		CurrentPage: b.CurrentPage,
		Status:      string(b.Status),
		Rating:      b.Rating,
		Review:      b.Review,
		FinishedAt:  b.FinishedAt,
		AddedAt:     b.AddedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// CreateBook は本の登録を処理する。
// POST /api/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req createBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Create(r.Context(), userID, book.CreateParams{
		Title:      req.Title,
		Authors:    req.Authors,
		Genres:     req.Genres,
		ISBN:       req.ISBN,
		ISBN13:     req.ISBN13,
		ExternalID: req.ExternalID,
		CoverURL:   req.CoverURL,
		Publisher:  req.Publisher,
		PageCount:  req.PageCount,
		Status:     req.Status,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toBookResponse(created))
}

// ListBooks は本の一覧を取得する。statusクエリパラメータで絞り込みできる。
// GET /api/books?status=reading
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	books, err := h.service.List(r.Context(), userID, r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]bookResponse, 0, len(books))
	for _, b := range books {
		resp = append(resp, toBookResponse(b))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetBook は本の詳細を取得する。
// GET /api/books/:id
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	b, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(b))
}

// UpdateBook は本のメタデータを編集する。
// PATCH /api/books/:id
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), book.UpdateParams{
		Title:     req.Title,
		Authors:   req.Authors,
		Genres:    req.Genres,
		CoverURL:  req.CoverURL,
		Publisher: req.Publisher,
		PageCount: req.PageCount,
		Review:    req.Review,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(updated))
}

// UpdateBookStatus は本の読書ステータスを変更する。
// PUT /api/books/:id/status
func (h *BookHandler) UpdateBookStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), userID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(updated))
}

// UpdateBookProgress は読書中の本の現在ページを更新する。
// PUT /api/books/:id/progress
func (h *BookHandler) UpdateBookProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req updateProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.UpdateProgress(r.Context(), userID, chi.URLParam(r, "id"), req.CurrentPage)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(updated))
}

// RateBook は読了済みの本に評価とレビューを登録する。
// PUT /api/books/:id/rating
func (h *BookHandler) RateBook(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	var req rateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.Rate(r.Context(), userID, chi.URLParam(r, "id"), req.Rating, req.Review)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toBookResponse(updated))
}

// DeleteBook は本を削除する。
// DELETE /api/books/:id
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
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
