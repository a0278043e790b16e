package goodreads

import (
	"context"
	"fmt"
	"strings"

	"github.com/onideus/bookbuddy/internal/model"
	"github.com/onideus/bookbuddy/internal/repository"
)

// DuplicateResolver は候補の本がユーザーの本棚と重複するかを判定する。
// 判定は以下の固定順で行い、最初に一致した時点で打ち切る:
//  1. ISBN-10の完全一致 - 出版された版に対する最も強い一意シグナル
//  2. ISBN-13の完全一致 - 第1段階とは別個の検索
//  3. 正規化タイトル＋正規化著者の完全一致 - ISBNを持たない本のフォールバック
//  4. 外部ソースIDの完全一致 - ISBNのない同一外部レコードの再インポートを検出
type DuplicateResolver struct {
	bookRepo repository.BookRepository
}

// NewDuplicateResolver はDuplicateResolverの新しいインスタンスを生成する。
func NewDuplicateResolver(bookRepo repository.BookRepository) *DuplicateResolver {
	return &DuplicateResolver{bookRepo: bookRepo}
}

// IsDuplicate は候補の本がユーザーの既存の本と重複するかを返す。
func (r *DuplicateResolver) IsDuplicate(ctx context.Context, userID string, candidate *model.Book) (bool, error) {
	// 第1優先: ISBN-10
	if candidate.ISBN != "" {
		existing, err := r.bookRepo.FindByUserAndISBN(ctx, userID, candidate.ISBN)
		if err != nil {
			return false, fmt.Errorf("ISBNでの重複判定に失敗しました: %w", err)
		}
		if existing != nil {
			return true, nil
		}
	}

	// 第2優先: ISBN-13
	if candidate.ISBN13 != "" {
		existing, err := r.bookRepo.FindByUserAndISBN13(ctx, userID, candidate.ISBN13)
		if err != nil {
			return false, fmt.Errorf("ISBN-13での重複判定に失敗しました: %w", err)
		}
		if existing != nil {
			return true, nil
		}
	}

	// 第3優先: 正規化タイトル＋主著者
	if candidate.Title != "" && len(candidate.Authors) > 0 {
		normTitle := NormalizeText(candidate.Title)
		normAuthor := NormalizeText(candidate.Authors[0])
		existing, err := r.bookRepo.FindByUserAndTitleAuthor(ctx, userID, normTitle, normAuthor)
		if err != nil {
			return false, fmt.Errorf("タイトル・著者での重複判定に失敗しました: %w", err)
		}
		if existing != nil {
			return true, nil
		}
	}

	// 第4優先: 外部ソースID
	if candidate.ExternalID != "" {
		existing, err := r.bookRepo.FindByUserAndExternalID(ctx, userID, candidate.ExternalID)
		if err != nil {
			return false, fmt.Errorf("外部IDでの重複判定に失敗しました: %w", err)
		}
		if existing != nil {
			return true, nil
		}
	}

	return false, nil
}

// NormalizeText はタイトル・著者の比較用正規形を返す。
// 小文字化し、連続する空白を1つに圧縮し、前後の空白を除く。
func NormalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
