// Package book は本（読書エントリ）のCRUDとライフサイクル遷移を提供する。
package book

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/onideus/bookbuddy/internal/clock"
	"github.com/onideus/bookbuddy/internal/model"
	"github.com/onideus/bookbuddy/internal/repository"
	"github.com/onideus/bookbuddy/internal/security"
	"github.com/onideus/bookbuddy/internal/validation"
)

// DuplicateChecker は重複判定のインターフェース。
type DuplicateChecker interface {
	IsDuplicate(ctx context.Context, userID string, candidate *model.Book) (bool, error)
}

// ProgressReconciler は本のステータス変更を読書目標へ反映するインターフェース。
type ProgressReconciler interface {
	BookFinished(ctx context.Context, userID, bookID string) error
	BookUnfinished(ctx context.Context, userID, bookID string) error
}

// Service は本のCRUD操作とステータス遷移を提供する。
// readへの遷移・readからの離脱・削除はProgressReconcilerを通じて
// 読書目標の進捗に同期的に反映される。
type Service struct {
	bookRepo   repository.BookRepository
	resolver   DuplicateChecker
	reconciler ProgressReconciler
	sanitizer  security.ReviewSanitizerService
	urlGuard   security.URLGuardService
	clock      clock.Clock
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	bookRepo repository.BookRepository,
	resolver DuplicateChecker,
	reconciler ProgressReconciler,
	sanitizer security.ReviewSanitizerService,
	urlGuard security.URLGuardService,
	clk clock.Clock,
) *Service {
	return &Service{
		bookRepo:   bookRepo,
		resolver:   resolver,
		reconciler: reconciler,
		sanitizer:  sanitizer,
		urlGuard:   urlGuard,
		clock:      clk,
	}
}

// CreateParams は本の登録入力。
type CreateParams struct {
	Title      string
	Authors    []string
	Genres     []string
	ISBN       string
	ISBN13     string
	ExternalID string
	CoverURL   string
	Publisher  string
	PageCount  *int
	Status     string // 省略時はwant_to_read
}

// Create は本を登録する。重複の場合はDUPLICATE_BOOKエラーを返す。
// 初期ステータスがreadの場合はfinishedAtを設定し、目標の進捗に反映する。
func (s *Service) Create(ctx context.Context, userID string, params CreateParams) (*model.Book, error) {
	now := s.clock.Now()

	status := model.BookStatusWantToRead
	if params.Status != "" {
		status = model.BookStatus(params.Status)
		if !model.ValidBookStatus(status) {
			return nil, model.NewInvalidStatusError(params.Status)
		}
	}

	title, err := validation.ValidateText(params.Title, "タイトル", validation.MaxTitleLength)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}
	if title == "" {
		return nil, model.NewValidationError("タイトルは必須です")
	}

	var authors []string
	for _, raw := range params.Authors {
		author, err := validation.ValidateText(raw, "著者", validation.MaxAuthorLength)
		if err != nil {
			return nil, model.NewValidationError(err.Error())
		}
		if author != "" {
			authors = append(authors, author)
		}
	}
	if len(authors) == 0 {
		return nil, model.NewValidationError("著者は1人以上必要です")
	}

	isbn, err := validation.ValidateISBN(params.ISBN)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}
	isbn13, err := validation.ValidateISBN(params.ISBN13)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}

	publisher, err := validation.ValidateText(params.Publisher, "出版社", validation.MaxPublisherLength)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}

	if params.PageCount != nil && (*params.PageCount < 0 || *params.PageCount > 50000) {
		return nil, model.NewValidationError(fmt.Sprintf("ページ数が範囲外です: %d", *params.PageCount))
	}

	coverURL := validation.SanitizeField(params.CoverURL)
	if coverURL != "" {
		if err := s.urlGuard.ValidateCoverURL(coverURL); err != nil {
			return nil, model.NewInvalidCoverURLError(err.Error())
		}
	}

	book := &model.Book{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Authors:     authors,
		Genres:      params.Genres,
		ISBN:        isbn,
		ISBN13:      isbn13,
		ExternalID:  validation.SanitizeField(params.ExternalID),
		CoverURL:    coverURL,
		Publisher:   publisher,
		PageCount:   params.PageCount,
		CurrentPage: 0,
		Status:      status,
		AddedAt:     now,
		UpdatedAt:   now,
	}
	if status == model.BookStatusRead {
		book.FinishedAt = &now
	}

	isDup, err := s.resolver.IsDuplicate(ctx, userID, book)
	if err != nil {
		return nil, fmt.Errorf("重複判定に失敗: %w", err)
	}
	if isDup {
		return nil, model.NewDuplicateBookError(title)
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("本の登録に失敗: %w", err)
	}

	// 読了状態での登録も目標進捗へ反映する
	if status == model.BookStatusRead {
		if err := s.reconciler.BookFinished(ctx, userID, book.ID); err != nil {
			return nil, err
		}
	}

	slog.Info("本を登録",
		"user_id", userID,
		"book_id", book.ID,
		"status", book.Status,
	)

	return book, nil
}

// Get は本を取得する。所有者以外のアクセスは拒否する。
func (s *Service) Get(ctx context.Context, userID, bookID string) (*model.Book, error) {
	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("本の取得に失敗: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError(bookID)
	}
	if book.UserID != userID {
		return nil, model.NewForbiddenError()
	}
	return book, nil
}

// List はユーザーの本の一覧を返す。statusが空でない場合は絞り込む。
func (s *Service) List(ctx context.Context, userID, status string) ([]*model.Book, error) {
	filter := model.BookStatus(status)
	if status != "" && !model.ValidBookStatus(filter) {
		return nil, model.NewInvalidStatusError(status)
	}

	books, err := s.bookRepo.ListByUserID(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("本の一覧取得に失敗: %w", err)
	}
	return books, nil
}

// UpdateParams は本のメタデータ編集の入力。nilのフィールドは変更しない。
type UpdateParams struct {
	Title     *string
	Authors   []string
	Genres    []string
	CoverURL  *string
	Publisher *string
	PageCount *int
	Review    *string
}

// Update は本のメタデータを編集する。ステータス・評価・進捗は
// それぞれ専用の操作（UpdateStatus / Rate / UpdateProgress）で変更する。
func (s *Service) Update(ctx context.Context, userID, bookID string, params UpdateParams) (*model.Book, error) {
	book, err := s.Get(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		title, err := validation.ValidateText(*params.Title, "タイトル", validation.MaxTitleLength)
		if err != nil {
			return nil, model.NewValidationError(err.Error())
		}
		if title == "" {
			return nil, model.NewValidationError("タイトルは必須です")
		}
		book.Title = title
	}

	if params.Authors != nil {
		var authors []string
		for _, raw := range params.Authors {
			author, err := validation.ValidateText(raw, "著者", validation.MaxAuthorLength)
			if err != nil {
				return nil, model.NewValidationError(err.Error())
			}
			if author != "" {
				authors = append(authors, author)
			}
		}
		if len(authors) == 0 {
			return nil, model.NewValidationError("著者は1人以上必要です")
		}
		book.Authors = authors
	}

	if params.Genres != nil {
		book.Genres = params.Genres
	}

	if params.CoverURL != nil {
		coverURL := validation.SanitizeField(*params.CoverURL)
		if coverURL != "" {
			if err := s.urlGuard.ValidateCoverURL(coverURL); err != nil {
				return nil, model.NewInvalidCoverURLError(err.Error())
			}
		}
		book.CoverURL = coverURL
	}

	if params.Publisher != nil {
		publisher, err := validation.ValidateText(*params.Publisher, "出版社", validation.MaxPublisherLength)
		if err != nil {
			return nil, model.NewValidationError(err.Error())
		}
		book.Publisher = publisher
	}

	if params.PageCount != nil {
		if *params.PageCount < 0 || *params.PageCount > 50000 {
			return nil, model.NewValidationError(fmt.Sprintf("ページ数が範囲外です: %d", *params.PageCount))
		}
		book.PageCount = params.PageCount
	}

	if params.Review != nil {
		review, err := validation.ValidateText(*params.Review, "レビュー", validation.MaxReviewLength)
		if err != nil {
			return nil, model.NewValidationError(err.Error())
		}
		book.Review = s.sanitizer.Sanitize(review)
	}

	book.UpdatedAt = s.clock.Now()
	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("本の更新に失敗: %w", err)
	}

	return book, nil
}

// UpdateStatus は本のステータスを遷移させる。
// 遷移規則:
//   - readingへの遷移: currentPageを0にリセット
//   - readへの遷移: finishedAtを現在時刻に設定し、目標進捗へ加算
//   - readからの離脱: 評価・finishedAtをクリアし、目標進捗から減算
//
// 同一ステータスへの遷移は何も変更しない。
func (s *Service) UpdateStatus(ctx context.Context, userID, bookID, newStatus string) (*model.Book, error) {
	status := model.BookStatus(newStatus)
	if !model.ValidBookStatus(status) {
		return nil, model.NewInvalidStatusError(newStatus)
	}

	book, err := s.Get(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if book.Status == status {
		return book, nil
	}

	now := s.clock.Now()
	wasRead := book.Status == model.BookStatusRead

	book.Status = status
	book.UpdatedAt = now

	switch status {
	case model.BookStatusReading:
		book.CurrentPage = 0
	case model.BookStatusRead:
		book.FinishedAt = &now
	}

	// readから離脱する場合、評価と読了日は意味を失う
	if wasRead {
		book.Rating = nil
		book.FinishedAt = nil
	}

	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("ステータスの更新に失敗: %w", err)
	}

	if status == model.BookStatusRead {
		if err := s.reconciler.BookFinished(ctx, userID, bookID); err != nil {
			return nil, err
		}
	} else if wasRead {
		if err := s.reconciler.BookUnfinished(ctx, userID, bookID); err != nil {
			return nil, err
		}
	}

	slog.Info("ステータスを変更",
		"user_id", userID,
		"book_id", bookID,
		"status", status,
	)

	return book, nil
}

// UpdateProgress は読書中の本の現在ページを更新する。
func (s *Service) UpdateProgress(ctx context.Context, userID, bookID string, currentPage int) (*model.Book, error) {
	book, err := s.Get(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if book.Status != model.BookStatusReading {
		return nil, model.NewInvalidPageError("読書中の本のみ進捗を更新できます")
	}
	if currentPage < 0 {
		return nil, model.NewInvalidPageError(fmt.Sprintf("ページは0以上で指定してください: %d", currentPage))
	}
	if book.PageCount != nil && currentPage > *book.PageCount {
		return nil, model.NewInvalidPageError(fmt.Sprintf("ページが総ページ数を超えています: %d > %d", currentPage, *book.PageCount))
	}

	book.CurrentPage = currentPage
	book.UpdatedAt = s.clock.Now()
	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("進捗の更新に失敗: %w", err)
	}

	return book, nil
}

// Rate は読了した本に評価とレビューを設定する。
// 評価は読了した本に対してのみ1〜5で設定できる。
func (s *Service) Rate(ctx context.Context, userID, bookID string, rating int, review string) (*model.Book, error) {
	book, err := s.Get(ctx, userID, bookID)
	if err != nil {
		return nil, err
	}
	if book.Status != model.BookStatusRead {
		return nil, model.NewInvalidRatingError("読了していない本には評価を設定できません")
	}
	if rating < 1 || rating > 5 {
		return nil, model.NewInvalidRatingError(fmt.Sprintf("評価が範囲外です: %d", rating))
	}

	sanitized, err := validation.ValidateText(review, "レビュー", validation.MaxReviewLength)
	if err != nil {
		return nil, model.NewValidationError(err.Error())
	}

	book.Rating = &rating
	book.Review = s.sanitizer.Sanitize(sanitized)
	book.UpdatedAt = s.clock.Now()
	if err := s.bookRepo.Update(ctx, book); err != nil {
		return nil, fmt.Errorf("評価の更新に失敗: %w", err)
	}

	slog.Info("本を評価",
		"user_id", userID,
		"book_id", bookID,
		"rating", rating,
	)

	return book, nil
}

// Delete は本を削除する。読了済みの本は削除前に目標進捗から減算する。
// 進捗レコード自体はCASCADE削除される。
func (s *Service) Delete(ctx context.Context, userID, bookID string) error {
	book, err := s.Get(ctx, userID, bookID)
	if err != nil {
		return err
	}

	if book.Status == model.BookStatusRead {
		if err := s.reconciler.BookUnfinished(ctx, userID, bookID); err != nil {
			return err
		}
	}

	if err := s.bookRepo.Delete(ctx, bookID); err != nil {
		return fmt.Errorf("本の削除に失敗: %w", err)
	}

	slog.Info("本を削除", "user_id", userID, "book_id", bookID)
	return nil
}
