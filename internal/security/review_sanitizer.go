package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ReviewSanitizerService はレビュー本文のサニタイズ機能のインターフェースを定義する。
// ユーザー入力のレビュー保存時と、GoodreadsインポートのMy Review列の取り込み時に使用される。
type ReviewSanitizerService interface {
	// Sanitize はレビュー本文をサニタイズして安全なHTMLを返す。
	// Goodreadsのレビューには簡単な整形タグ（br, b, i, strong, em, blockquote）が
	// 含まれることがあるため、それらのみを通過させ、script等の危険なタグ、
	// リンク、画像、全てのon*イベント属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// reviewSanitizer はReviewSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type reviewSanitizer struct {
	policy *bluemonday.Policy
}

// NewReviewSanitizer はReviewSanitizerServiceの新しいインスタンスを生成する。
// レビューは本文テキストであり、リンクや画像は不要なため、
// 許可するのはテキスト整形タグのみの狭いポリシーとする。
func NewReviewSanitizer() *reviewSanitizer {
	p := bluemonday.NewPolicy()

	// 許可タグ: テキスト整形のみ。a, img, script, iframe, style等は
	// 許可リストに含めないことで自動的に除去される。
	// on*イベント属性はbluemondayのデフォルトで許可されない。
	p.AllowElements(
		"p", "br",
		"b", "i", "strong", "em",
		"blockquote",
	)

	return &reviewSanitizer{
		policy: p,
	}
}

// Sanitize はレビュー本文をサニタイズして安全なHTMLを返す。
// サニタイズ後の前後空白は取り除く。
func (s *reviewSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ ReviewSanitizerService = (*reviewSanitizer)(nil)
