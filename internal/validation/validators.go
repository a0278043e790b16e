// Package validation はCSVフィールド単位の検証・サニタイズ関数を提供する。
// 全ての関数は副作用を持たない純粋関数であり、現在時刻が必要な検証は
// 引数としてnowを受け取る（内部で壁時計を参照しない）。
package validation

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// フィールドごとの最大文字数（トリム後のrune数）。
const (
	MaxTitleLength     = 500
	MaxAuthorLength    = 200
	MaxReviewLength    = 10000
	MaxPublisherLength = 200
	MaxBookshelfLength = 100
)

// MinDate は日付フィールドとして許容する最古の日付（境界を含む）。
var MinDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// dateLayouts はGoodreadsエクスポートで観測される日付形式。
var dateLayouts = []string{
	"2006/01/02",
	"2006-01-02",
}

// SanitizeField はフィールド値を正規化する。
// 前後の空白をトリムし、NUL文字を除去し、CRLF/CRをLFに正規化する。
// 結果が空文字列の場合、そのフィールドは「値なし」として扱われる。
func SanitizeField(raw string) string {
	s := strings.ReplaceAll(raw, "\x00", "")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}

// ExtractISBN はスプレッドシートの数式クォート規約（`="値"`）を外した
// ISBN値を返す。Goodreadsエクスポートは先頭ゼロ保護のためこの形式を使う。
func ExtractISBN(raw string) string {
	s := SanitizeField(raw)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return SanitizeField(s)
}

// ValidateISBN はISBN文字列を検証し、ハイフンと空白を除いた正規形を返す。
// 空値は許容され、空文字列を返す。値がある場合は正規化後がちょうど
// 10桁または13桁の数字でなければならない。
func ValidateISBN(raw string) (string, error) {
	s := SanitizeField(raw)
	if s == "" {
		return "", nil
	}

	normalized := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, s)

	if len(normalized) != 10 && len(normalized) != 13 {
		return "", fmt.Errorf("ISBNは10桁または13桁である必要があります: %q", s)
	}
	for _, r := range normalized {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("ISBNに数字以外の文字が含まれています: %q", s)
		}
	}

	return normalized, nil
}

// ValidateDate は日付文字列を検証し、パース結果を返す。
// 空値は許容され、nilを返す。値がある場合はパース可能であり、
// nowより後または1900-01-01より前（境界は有効）の日付は拒否される。
func ValidateDate(raw string, now time.Time) (*time.Time, error) {
	s := SanitizeField(raw)
	if s == "" {
		return nil, nil
	}

	var parsed time.Time
	var err error
	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, s)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("日付の形式が不正です: %q", s)
	}

	if parsed.After(now) {
		return nil, fmt.Errorf("未来の日付は指定できません: %q", s)
	}
	if parsed.Before(MinDate) {
		return nil, fmt.Errorf("1900年より前の日付は指定できません: %q", s)
	}

	return &parsed, nil
}

// ValidateRating は評価値を検証する。
// 空値は許容され、0を返す。値がある場合は数値かつ[0,5]の範囲で
// なければならない（小数も許容）。
func ValidateRating(raw string) (float64, error) {
	s := SanitizeField(raw)
	if s == "" {
		return 0, nil
	}

	rating, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("評価が数値ではありません: %q", s)
	}
	if rating < 0 || rating > 5 {
		return 0, fmt.Errorf("評価は0〜5の範囲である必要があります: %v", rating)
	}

	return rating, nil
}

// ValidatePageCount はページ数を検証する。
// 空値は許容され、nilを返す。値がある場合は0以上50000以下の
// 整数でなければならない。
func ValidatePageCount(raw string) (*int, error) {
	s := SanitizeField(raw)
	if s == "" {
		return nil, nil
	}

	pages, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("ページ数が数値ではありません: %q", s)
	}
	if pages < 0 {
		return nil, fmt.Errorf("ページ数は0以上である必要があります: %d", pages)
	}
	if pages > 50000 {
		return nil, fmt.Errorf("ページ数は50000以下である必要があります: %d", pages)
	}

	return &pages, nil
}

// validShelves はExclusive Shelf列として許容される値。
var validShelves = map[string]bool{
	"to-read":           true,
	"currently-reading": true,
	"read":              true,
}

// ValidateShelf はExclusive Shelf値を検証し、小文字正規化した値を返す。
// この列は必須であり、大文字小文字を区別せず
// to-read / currently-reading / read のいずれかでなければならない。
func ValidateShelf(raw string) (string, error) {
	s := strings.ToLower(SanitizeField(raw))
	if s == "" {
		return "", fmt.Errorf("本棚（Exclusive Shelf）は必須です")
	}
	if !validShelves[s] {
		return "", fmt.Errorf("不明な本棚です: %q（to-read / currently-reading / read のいずれか）", s)
	}
	return s, nil
}

// ValidateText はテキストフィールドを検証し、サニタイズ済みの値を返す。
// 空白のみの値は空文字列（値なし）として扱う。トリム後の文字数が
// maxLenを超える場合はエラーを返す。
func ValidateText(raw, fieldName string, maxLen int) (string, error) {
	s := SanitizeField(raw)
	if s == "" {
		return "", nil
	}
	if n := len([]rune(s)); n > maxLen {
		return "", fmt.Errorf("%sが長すぎます: %d文字（最大%d文字）", fieldName, n, maxLen)
	}
	return s, nil
}

// ValidateYear は出版年を検証する。
// 空値は許容され、nilを返す。値がある場合は数値かつ
// [1000, 現在年+5]の範囲でなければならない。
func ValidateYear(raw string, now time.Time) (*int, error) {
	s := SanitizeField(raw)
	if s == "" {
		return nil, nil
	}

	year, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("出版年が数値ではありません: %q", s)
	}
	maxYear := now.Year() + 5
	if year < 1000 || year > maxYear {
		return nil, fmt.Errorf("出版年は1000〜%dの範囲である必要があります: %d", maxYear, year)
	}

	return &year, nil
}
