// Package model はドメインモデルを定義する。
package model

import "time"

// GoodreadsRow はGoodreads CSVエクスポートの1行を列名で型付けしたレコード。
// 文字列キーのマップではなく構造体として扱うことで、ヘッダーのずれをコンパイル時に検出する。
// 全フィールドは生の文字列であり、バリデーション前の値を保持する。
type GoodreadsRow struct {
	BookID            string
	Title             string
	Author            string
	AdditionalAuthors string
	ISBN              string // `="..."` 形式のスプレッドシート数式クオート付きの場合がある
	ISBN13            string
	MyRating          string
	Publisher         string
	NumberOfPages     string
	YearPublished     string
	DateRead          string
	DateAdded         string
	Bookshelves       string
	ExclusiveShelf    string
	MyReview          string
}

// GoodreadsBook はバリデーション済みのGoodreads書籍データを表す。
// 1回のインポート呼び出しの間だけ存在し、永続化されない。
type GoodreadsBook struct {
	BookID            string
	Title             string
	Author            string
	AdditionalAuthors []string
	ISBN              string
	ISBN13            string
	MyRating          float64
	Publisher         string
	NumberOfPages     *int
	DateRead          *time.Time
	DateAdded         *time.Time
	Bookshelves       []string
	ExclusiveShelf    string // to-read / currently-reading / read
	MyReview          string
}

// ImportError はインポートで失敗した1行の記録を表す。
// Rowはユーザーに報告する行番号（ヘッダー行を1行目とし、データは2行目から始まる）。
type ImportError struct {
	Row    int
	Title  string
	Author string
	Reason string
}

// ImportResult は1回のCSVインポートの集計結果を表す。
// 部分成功ポリシー: 行単位の失敗があっても残りの行は処理され、結果に記録される。
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []ImportError
}
