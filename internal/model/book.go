// Package model はドメインモデルを定義する。
package model

import "time"

// Book はユーザーが追跡する1冊の本（読書エントリ）を表す。
type Book struct {
	ID          string
	UserID      string
	Title       string
	Authors     []string // 主著者＋追加著者の順序付きリスト
	Genres      []string
	ISBN        string // ISBN-10（10桁）。未設定の場合は空文字列。
	ISBN13      string // ISBN-13（13桁）。未設定の場合は空文字列。
	ExternalID  string // 外部カタログID。Goodreadsインポート時は "external-{bookID}" 形式。
	CoverURL    string
	Publisher   string
	PageCount   *int
	CurrentPage int
	Status      BookStatus
	Rating      *int // 1〜5。status = read の場合のみ非nil。
	Review      string
	FinishedAt  *time.Time
	AddedAt     time.Time
	UpdatedAt   time.Time
}

// BookStatus は本の読書ステータスを表す。
type BookStatus string

const (
	// BookStatusWantToRead は「読みたい」ステータス。
	BookStatusWantToRead BookStatus = "want_to_read"
	// BookStatusReading は「読書中」ステータス。
	BookStatusReading BookStatus = "reading"
	// BookStatusRead は「読了」ステータス。
	BookStatusRead BookStatus = "read"
)

// ValidBookStatus はステータス文字列が有効かどうかを判定する。
func ValidBookStatus(s BookStatus) bool {
	switch s {
	case BookStatusWantToRead, BookStatusReading, BookStatusRead:
		return true
	}
	return false
}
