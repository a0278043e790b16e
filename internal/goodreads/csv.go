// Package goodreads はGoodreads CSVエクスポートのインポート機能を提供する。
package goodreads

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/onideus/bookbuddy/internal/model"
	"github.com/onideus/bookbuddy/internal/validation"
)

// requiredHeaders はインポートに必須の列名。
// いずれかが欠けているエクスポートは互換性のない形式であり、
// 部分インポートせずファイル全体をエラーとする。
var requiredHeaders = []string{
	"Book Id",
	"Title",
	"Author",
	"Exclusive Shelf",
	"Date Added",
}

// ParseCSV はGoodreads CSVエクスポートの内容を型付きの行レコードにパースする。
// ファイルが空、データ行がない、パース不能、必須ヘッダーの欠落は
// いずれもファイル全体のエラーとして扱う。
func ParseCSV(content string) ([]model.GoodreadsRow, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("CSVファイルが空です")
	}

	reader := csv.NewReader(strings.NewReader(content))
	// Goodreadsのエクスポートはフィールド内に改行を含むことがある
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVのパースに失敗しました: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSVファイルが空です")
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("CSVにデータ行がありません")
	}

	index, err := buildHeaderIndex(records[0])
	if err != nil {
		return nil, err
	}

	rows := make([]model.GoodreadsRow, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, model.GoodreadsRow{
			BookID:            fieldAt(record, index, "book id"),
			Title:             fieldAt(record, index, "title"),
			Author:            fieldAt(record, index, "author"),
			AdditionalAuthors: fieldAt(record, index, "additional authors"),
			ISBN:              fieldAt(record, index, "isbn"),
			ISBN13:            fieldAt(record, index, "isbn13"),
			MyRating:          fieldAt(record, index, "my rating"),
			Publisher:         fieldAt(record, index, "publisher"),
			NumberOfPages:     fieldAt(record, index, "number of pages"),
			YearPublished:     fieldAt(record, index, "year published"),
			DateRead:          fieldAt(record, index, "date read"),
			DateAdded:         fieldAt(record, index, "date added"),
			Bookshelves:       fieldAt(record, index, "bookshelves"),
			ExclusiveShelf:    fieldAt(record, index, "exclusive shelf"),
			MyReview:          fieldAt(record, index, "my review"),
		})
	}

	return rows, nil
}

// buildHeaderIndex はヘッダー行から小文字正規化した列名→位置のマップを構築し、
// 必須列の存在を検証する。
func buildHeaderIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(validation.SanitizeField(name))
		if _, exists := index[key]; !exists {
			index[key] = i
		}
	}

	var missing []string
	for _, name := range requiredHeaders {
		if _, ok := index[strings.ToLower(name)]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("必須ヘッダーがありません: %s", strings.Join(missing, ", "))
	}

	return index, nil
}

// fieldAt は列名に対応するフィールド値を返す。列が存在しない、
// または行のフィールド数が足りない場合は空文字列を返す。
func fieldAt(record []string, index map[string]int, key string) string {
	i, ok := index[key]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
