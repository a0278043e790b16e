package goodreads

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/onideus/bookbuddy/internal/clock"
	"github.com/onideus/bookbuddy/internal/model"
	"github.com/onideus/bookbuddy/internal/repository"
	"github.com/onideus/bookbuddy/internal/security"
	"github.com/onideus/bookbuddy/internal/validation"
)

// ImportService はGoodreads CSVのインポート処理を統括する。
// パース → 行単位の検証 → マッピング → 重複判定 → 永続化を
// 行ごとに順番に実行し、部分成功の結果を集計する。
//
// 行単位の失敗は結果に記録して処理を継続する（部分成功ポリシー）。
// インポート全体を囲むトランザクションは張らず、各行の結果は
// 永続化された時点で独立に確定する。
// ファイル全体の問題（空ファイル・パース不能・必須ヘッダー欠落）のみ
// エラーとして返す。
//
// インポートで取り込んだ読了本は過去の履歴であり、読書目標の進捗には
// 反映しない。目標進捗はインポート後のステータス変更からのみ加算される。
type ImportService struct {
	bookRepo  repository.BookRepository
	resolver  *DuplicateResolver
	sanitizer security.ReviewSanitizerService
	clock     clock.Clock
}

// NewImportService はImportServiceの新しいインスタンスを生成する。
func NewImportService(
	bookRepo repository.BookRepository,
	resolver *DuplicateResolver,
	sanitizer security.ReviewSanitizerService,
	clk clock.Clock,
) *ImportService {
	return &ImportService{
		bookRepo:  bookRepo,
		resolver:  resolver,
		sanitizer: sanitizer,
		clock:     clk,
	}
}

// Import はCSVの内容を1行ずつ処理し、集計結果を返す。
// エラーリストの行番号はユーザーに見える行番号であり、
// ヘッダー行を1行目として数える（最初のデータ行は2行目）。
func (s *ImportService) Import(ctx context.Context, userID, csvContent string) (*model.ImportResult, error) {
	rows, err := ParseCSV(csvContent)
	if err != nil {
		return nil, model.NewImportFormatError(err.Error())
	}

	now := s.clock.Now()
	result := &model.ImportResult{}

	for i, row := range rows {
		rowNum := i + 2

		gb, err := ValidateRow(row, now)
		if err != nil {
			result.Errors = append(result.Errors, model.ImportError{
				Row:    rowNum,
				Title:  validation.SanitizeField(row.Title),
				Author: validation.SanitizeField(row.Author),
				Reason: err.Error(),
			})
			continue
		}

		book, err := MapToBook(gb, userID, uuid.New().String(), now)
		if err != nil {
			result.Errors = append(result.Errors, model.ImportError{
				Row:    rowNum,
				Title:  gb.Title,
				Author: gb.Author,
				Reason: err.Error(),
			})
			continue
		}
		book.Review = s.sanitizer.Sanitize(book.Review)

		isDup, err := s.resolver.IsDuplicate(ctx, userID, book)
		if err != nil {
			result.Errors = append(result.Errors, model.ImportError{
				Row:    rowNum,
				Title:  gb.Title,
				Author: gb.Author,
				Reason: err.Error(),
			})
			continue
		}
		if isDup {
			// 重複はエラーではなくスキップとして数える
			result.Skipped++
			continue
		}

		if err := s.bookRepo.Create(ctx, book); err != nil {
			result.Errors = append(result.Errors, model.ImportError{
				Row:    rowNum,
				Title:  gb.Title,
				Author: gb.Author,
				Reason: err.Error(),
			})
			continue
		}
		result.Imported++
	}

	slog.Info("Goodreadsインポート完了",
		"user_id", userID,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"errors", len(result.Errors),
	)

	return result, nil
}
