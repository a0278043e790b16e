// Package search は外部カタログからの書籍検索機能を提供する。
// Open LibraryのSearch APIを呼び出し、登録フォームに事前入力できる
// 候補リストを返す。
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	// defaultLimit は1検索あたりの最大候補数。
	defaultLimit = 20
	// maxQueryLength は検索クエリの最大文字数。
	maxQueryLength = 200
)

// Result は外部カタログの書籍候補1件を表す。
type Result struct {
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	ISBN          string   `json:"isbn,omitempty"`
	ISBN13        string   `json:"isbn13,omitempty"`
	ExternalID    string   `json:"external_id"`
	CoverURL      string   `json:"cover_url,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PageCount     *int     `json:"page_count,omitempty"`
	YearPublished *int     `json:"year_published,omitempty"`
}

// openLibraryResponse はOpen Library Search APIのレスポンス。
type openLibraryResponse struct {
	Docs []openLibraryDoc `json:"docs"`
}

// openLibraryDoc は検索結果1件分のフィールド。
type openLibraryDoc struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	AuthorName    []string `json:"author_name"`
	ISBN          []string `json:"isbn"`
	Publisher     []string `json:"publisher"`
	NumberOfPages int      `json:"number_of_pages_median"`
	FirstPublish  int      `json:"first_publish_year"`
	CoverID       int      `json:"cover_i"`
}

// Client はOpen Library Search APIのクライアント。
// SSRF防止付きのHTTPクライアントを通じて呼び出す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
	maxSize    int64  // レスポンスボディの最大バイト数
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger, endpoint string, maxSize int64) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		maxSize:    maxSize,
	}
}

// Search はクエリ文字列で書籍を検索し、候補リストを返す。
// クエリが空の場合はエラーを返す。結果0件は空リストを返す（エラーではない）。
func (c *Client) Search(ctx context.Context, query string) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("検索クエリが空です")
	}
	if len([]rune(query)) > maxQueryLength {
		return nil, fmt.Errorf("検索クエリが長すぎます: %d文字", len([]rune(query)))
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(defaultLimit))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", "BookBuddy/1.0 Reading Tracker")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("書籍検索APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("書籍検索APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("書籍検索APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize))
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var parsed openLibraryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Error("書籍検索APIのレスポンスのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	results := make([]*Result, 0, len(parsed.Docs))
	for _, doc := range parsed.Docs {
		if doc.Title == "" {
			continue
		}
		results = append(results, docToResult(doc))
	}

	return results, nil
}

// docToResult はAPIレスポンスの1件を内部の候補形式に変換する。
func docToResult(doc openLibraryDoc) *Result {
	r := &Result{
		Title:      doc.Title,
		Authors:    doc.AuthorName,
		ExternalID: doc.Key,
	}

	// ISBNリストから10桁・13桁を1つずつ拾う
	for _, isbn := range doc.ISBN {
		switch len(isbn) {
		case 10:
			if r.ISBN == "" {
				r.ISBN = isbn
			}
		case 13:
			if r.ISBN13 == "" {
				r.ISBN13 = isbn
			}
		}
		if r.ISBN != "" && r.ISBN13 != "" {
			break
		}
	}

	if len(doc.Publisher) > 0 {
		r.Publisher = doc.Publisher[0]
	}
	if doc.NumberOfPages > 0 {
		pages := doc.NumberOfPages
		r.PageCount = &pages
	}
	if doc.FirstPublish > 0 {
		year := doc.FirstPublish
		r.YearPublished = &year
	}
	if doc.CoverID > 0 {
		r.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", doc.CoverID)
	}

	return r
}
