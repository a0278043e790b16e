package goodreads

import (
	"fmt"
	"strings"
	"time"

	"github.com/onideus/bookbuddy/internal/model"
	"github.com/onideus/bookbuddy/internal/validation"
)

// statusShelves はジャンルとして扱わない本棚名。
// Goodreadsのbookshelves列にはステータス棚とユーザー定義棚が混在するため、
// ステータス棚とfavoritesを除いた残りをジャンルとして取り込む。
var statusShelves = map[string]bool{
	"to-read":           true,
	"currently-reading": true,
	"read":              true,
	"favorites":         true,
}

// shelfToStatus はExclusive Shelf値から内部ステータスへの1:1マッピング。
var shelfToStatus = map[string]model.BookStatus{
	"to-read":           model.BookStatusWantToRead,
	"currently-reading": model.BookStatusReading,
	"read":              model.BookStatusRead,
}

// ValidateRow は生のCSV行をフィールド単位で検証し、
// バリデーション済みのGoodreadsBookを返す。
// 最初に失敗したフィールドのエラーを返し、行の処理は中断される。
func ValidateRow(row model.GoodreadsRow, now time.Time) (*model.GoodreadsBook, error) {
	bookID := validation.SanitizeField(row.BookID)
	if bookID == "" {
		return nil, fmt.Errorf("Book Idがありません")
	}

	title, err := validation.ValidateText(row.Title, "タイトル", validation.MaxTitleLength)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, fmt.Errorf("タイトルがありません")
	}

	author, err := validation.ValidateText(row.Author, "著者", validation.MaxAuthorLength)
	if err != nil {
		return nil, err
	}
	if author == "" {
		return nil, fmt.Errorf("著者がありません")
	}

	shelf, err := validation.ValidateShelf(row.ExclusiveShelf)
	if err != nil {
		return nil, err
	}

	isbn, err := validation.ValidateISBN(validation.ExtractISBN(row.ISBN))
	if err != nil {
		return nil, err
	}
	isbn13, err := validation.ValidateISBN(validation.ExtractISBN(row.ISBN13))
	if err != nil {
		return nil, err
	}

	rating, err := validation.ValidateRating(row.MyRating)
	if err != nil {
		return nil, err
	}

	publisher, err := validation.ValidateText(row.Publisher, "出版社", validation.MaxPublisherLength)
	if err != nil {
		return nil, err
	}

	pages, err := validation.ValidatePageCount(row.NumberOfPages)
	if err != nil {
		return nil, err
	}

	if _, err := validation.ValidateYear(row.YearPublished, now); err != nil {
		return nil, err
	}

	dateRead, err := validation.ValidateDate(row.DateRead, now)
	if err != nil {
		return nil, err
	}
	dateAdded, err := validation.ValidateDate(row.DateAdded, now)
	if err != nil {
		return nil, err
	}

	review, err := validation.ValidateText(row.MyReview, "レビュー", validation.MaxReviewLength)
	if err != nil {
		return nil, err
	}

	bookshelves, err := parseBookshelves(row.Bookshelves)
	if err != nil {
		return nil, err
	}

	return &model.GoodreadsBook{
		BookID:            bookID,
		Title:             title,
		Author:            author,
		AdditionalAuthors: splitAuthors(row.AdditionalAuthors),
		ISBN:              isbn,
		ISBN13:            isbn13,
		MyRating:          rating,
		Publisher:         publisher,
		NumberOfPages:     pages,
		DateRead:          dateRead,
		DateAdded:         dateAdded,
		Bookshelves:       bookshelves,
		ExclusiveShelf:    shelf,
		MyReview:          review,
	}, nil
}

// MapToBook はバリデーション済みのGoodreads書籍データを内部の本レコードに変換する。
// ステータス依存のフィールド規則:
//   - finishedAt: ステータスがreadかつ読了日がある場合のみ設定
//   - rating: ステータスがreadかつ評価>0の場合のみ設定（小数は切り捨て）
//   - currentPage: ステータスに関わらず常に0で初期化
//
// userIDが空、または著者リストが空になる場合はエラーを返す。
func MapToBook(gb *model.GoodreadsBook, userID, bookID string, now time.Time) (*model.Book, error) {
	if userID == "" {
		return nil, fmt.Errorf("ユーザーIDがありません")
	}

	status, ok := shelfToStatus[gb.ExclusiveShelf]
	if !ok {
		return nil, fmt.Errorf("不明な本棚です: %q", gb.ExclusiveShelf)
	}

	authors := make([]string, 0, 1+len(gb.AdditionalAuthors))
	if gb.Author != "" {
		authors = append(authors, gb.Author)
	}
	authors = append(authors, gb.AdditionalAuthors...)
	if len(authors) == 0 {
		return nil, fmt.Errorf("著者がありません")
	}

	var genres []string
	for _, shelf := range gb.Bookshelves {
		if !statusShelves[strings.ToLower(shelf)] {
			genres = append(genres, shelf)
		}
	}

	book := &model.Book{
		ID:          bookID,
		UserID:      userID,
		Title:       gb.Title,
		Authors:     authors,
		Genres:      genres,
		ISBN:        gb.ISBN,
		ISBN13:      gb.ISBN13,
		ExternalID:  "external-" + gb.BookID,
		Publisher:   gb.Publisher,
		PageCount:   gb.NumberOfPages,
		CurrentPage: 0,
		Status:      status,
		Review:      gb.MyReview,
		AddedAt:     now,
		UpdatedAt:   now,
	}

	if gb.DateAdded != nil {
		book.AddedAt = *gb.DateAdded
	}

	if status == model.BookStatusRead {
		if gb.DateRead != nil {
			book.FinishedAt = gb.DateRead
		}
		if gb.MyRating > 0 {
			rating := int(gb.MyRating)
			if rating >= 1 {
				book.Rating = &rating
			}
		}
	}

	return book, nil
}

// splitAuthors はカンマ区切りの著者リストを分割する。空要素は除外する。
func splitAuthors(raw string) []string {
	var authors []string
	for _, part := range strings.Split(raw, ",") {
		if name := validation.SanitizeField(part); name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

// parseBookshelves はカンマ区切りの本棚リストを分割し、各名前の長さを検証する。
func parseBookshelves(raw string) ([]string, error) {
	var shelves []string
	for _, part := range strings.Split(raw, ",") {
		name, err := validation.ValidateText(part, "本棚名", validation.MaxBookshelfLength)
		if err != nil {
			return nil, err
		}
		if name != "" {
			shelves = append(shelves, name)
		}
	}
	return shelves, nil
}
