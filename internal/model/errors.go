// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, book, goal, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBookNotFound     = "BOOK_NOT_FOUND"
	ErrCodeDuplicateBook    = "DUPLICATE_BOOK"
	ErrCodeInvalidStatus    = "INVALID_STATUS"
	ErrCodeInvalidRating    = "INVALID_RATING"
	ErrCodeInvalidPage      = "INVALID_PAGE"
	ErrCodeValidationFailed = "VALIDATION_FAILED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeGoalNotFound     = "GOAL_NOT_FOUND"
	ErrCodeGoalNotActive    = "GOAL_NOT_ACTIVE"
	ErrCodeInvalidDeadline  = "INVALID_DEADLINE"
	ErrCodeInvalidTarget    = "INVALID_TARGET"
	ErrCodeImportFormat     = "IMPORT_FORMAT"
	ErrCodeSearchFailed     = "SEARCH_FAILED"
	ErrCodeInvalidCoverURL  = "INVALID_COVER_URL"
	ErrCodeUserNotFound     = "USER_NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewBookNotFoundError は本未検出エラーを生成する。
func NewBookNotFoundError(bookID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  fmt.Sprintf("指定された本が見つかりません: %s", bookID),
		Category: "book",
		Action:   "本のIDを確認してください。",
	}
}

// NewDuplicateBookError は重複登録エラーを生成する。
func NewDuplicateBookError(title string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateBook,
		Message:  fmt.Sprintf("この本はすでに登録されています: %s", title),
		Category: "book",
		Action:   "本棚から該当の本を確認してください。",
	}
}

// NewInvalidStatusError は無効なステータスエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには want_to_read、reading、read のいずれかを指定してください。",
	}
}

// NewInvalidRatingError は無効な評価エラーを生成する。
// 評価は読了した本に対してのみ1〜5で設定できる。
func NewInvalidRatingError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("無効な評価です: %s", reason),
		Category: "validation",
		Action:   "評価は読了した本に対して1〜5の整数で指定してください。",
	}
}

// NewInvalidPageError は無効なページ数エラーを生成する。
func NewInvalidPageError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPage,
		Message:  fmt.Sprintf("無効なページ指定です: %s", reason),
		Category: "validation",
		Action:   "現在のページは0以上、総ページ数以下で指定してください。",
	}
}

// NewValidationError は汎用のバリデーションエラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewForbiddenError は所有権違反エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "このリソースに対する操作は許可されていません。",
		Category: "auth",
		Action:   "自分が登録したリソースのみ操作できます。",
	}
}

// NewGoalNotFoundError は目標未検出エラーを生成する。
func NewGoalNotFoundError(goalID string) *APIError {
	return &APIError{
		Code:     ErrCodeGoalNotFound,
		Message:  fmt.Sprintf("指定された目標が見つかりません: %s", goalID),
		Category: "goal",
		Action:   "目標のIDを確認してください。",
	}
}

// NewGoalNotActiveError は進行中でない目標への編集エラーを生成する。
func NewGoalNotActiveError() *APIError {
	return &APIError{
		Code:     ErrCodeGoalNotActive,
		Message:  "進行中でない目標は編集できません。",
		Category: "goal",
		Action:   "達成済み・期限切れの目標は削除のみ可能です。",
	}
}

// NewInvalidDeadlineError は無効な期限エラーを生成する。
func NewInvalidDeadlineError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDeadline,
		Message:  fmt.Sprintf("無効な期限です: %s", reason),
		Category: "validation",
		Action:   "期限は未来の日付になるように日数とタイムゾーンを指定してください。",
	}
}

// NewInvalidTargetError は無効な目標冊数エラーを生成する。
func NewInvalidTargetError(target int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTarget,
		Message:  fmt.Sprintf("無効な目標冊数です: %d", target),
		Category: "validation",
		Action:   "目標冊数は1〜9999の範囲で指定してください。",
	}
}

// NewImportFormatError はCSVファイル全体が処理不能な場合の致命的エラーを生成する。
// 行単位のエラーとは異なり、インポート全体が中断される。
func NewImportFormatError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeImportFormat,
		Message:  fmt.Sprintf("CSVファイルを処理できません: %s", reason),
		Category: "validation",
		Action:   "GoodreadsのエクスポートCSVであることを確認してください。",
	}
}

// NewSearchFailedError は外部検索失敗エラーを生成する。
func NewSearchFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeSearchFailed,
		Message:  "書籍検索に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidCoverURLError は無効なカバー画像URLエラーを生成する。
func NewInvalidCoverURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCoverURL,
		Message:  fmt.Sprintf("無効なカバー画像URLです: %s", reason),
		Category: "validation",
		Action:   "公開されているhttps形式の画像URLを指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
