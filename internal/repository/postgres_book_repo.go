package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/onideus/bookbuddy/internal/model"
)

// PostgresBookRepo はPostgreSQLを使用した本リポジトリ。
type PostgresBookRepo struct {
	db *sql.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sql.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// bookColumns はbooksテーブルのSELECT列リスト。scanBookRowと対応させること。
const bookColumns = `id, user_id, title, authors, genres, isbn, isbn13, external_id,
	cover_url, publisher, page_count, current_page, status, rating, review,
	finished_at, added_at, updated_at`

// rowScanner は*sql.Rowと*sql.Rowsの両方を受け付けるScanの抽象。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBookRow は1行分の本データをmodel.Bookに読み込む。
func scanBookRow(row rowScanner) (*model.Book, error) {
	book := &model.Book{}
	var pageCount, rating sql.NullInt64
	var finishedAt sql.NullTime

	err := row.Scan(
		&book.ID, &book.UserID, &book.Title,
		pq.Array(&book.Authors), pq.Array(&book.Genres),
		&book.ISBN, &book.ISBN13, &book.ExternalID,
		&book.CoverURL, &book.Publisher,
		&pageCount, &book.CurrentPage, &book.Status, &rating, &book.Review,
		&finishedAt, &book.AddedAt, &book.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if pageCount.Valid {
		v := int(pageCount.Int64)
		book.PageCount = &v
	}
	if rating.Valid {
		v := int(rating.Int64)
		book.Rating = &v
	}
	if finishedAt.Valid {
		book.FinishedAt = &finishedAt.Time
	}

	return book, nil
}

// findOne は単一行検索クエリを実行する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) findOne(ctx context.Context, query string, args ...interface{}) (*model.Book, error) {
	book, err := scanBookRow(r.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return book, nil
}

// FindByID は指定IDの本を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	book, err := r.findOne(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("本の取得に失敗しました: %w", err)
	}
	return book, nil
}

// ListByUserID はユーザーの本の一覧をadded_at降順で返す。
// statusが空でない場合は該当ステータスのみに絞り込む。
func (r *PostgresBookRepo) ListByUserID(ctx context.Context, userID string, status model.BookStatus) ([]*model.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE user_id = $1`
	args := []interface{}{userID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY added_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("本の一覧取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var books []*model.Book
	for rows.Next() {
		book, err := scanBookRow(rows)
		if err != nil {
			return nil, fmt.Errorf("本の一覧の読み込みに失敗しました: %w", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("本の一覧の読み込みに失敗しました: %w", err)
	}

	return books, nil
}

// FindByUserAndISBN はユーザーの本棚からISBN-10の完全一致で検索する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByUserAndISBN(ctx context.Context, userID, isbn string) (*model.Book, error) {
	book, err := r.findOne(ctx,
		`SELECT `+bookColumns+` FROM books WHERE user_id = $1 AND isbn = $2 AND isbn <> '' LIMIT 1`,
		userID, isbn)
	if err != nil {
		return nil, fmt.Errorf("ISBNによる本の検索に失敗しました: %w", err)
	}
	return book, nil
}

// FindByUserAndISBN13 はユーザーの本棚からISBN-13の完全一致で検索する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByUserAndISBN13(ctx context.Context, userID, isbn13 string) (*model.Book, error) {
	book, err := r.findOne(ctx,
		`SELECT `+bookColumns+` FROM books WHERE user_id = $1 AND isbn13 = $2 AND isbn13 <> '' LIMIT 1`,
		userID, isbn13)
	if err != nil {
		return nil, fmt.Errorf("ISBN-13による本の検索に失敗しました: %w", err)
	}
	return book, nil
}

// FindByUserAndTitleAuthor は正規化済みタイトルと主著者の完全一致で検索する。
// 正規化（小文字化・空白圧縮・トリム）は呼び出し側とSQL側の双方で同じ規則を適用する。
// 見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByUserAndTitleAuthor(ctx context.Context, userID, normTitle, normAuthor string) (*model.Book, error) {
	book, err := r.findOne(ctx,
		`SELECT `+bookColumns+` FROM books
		 WHERE user_id = $1
		   AND lower(btrim(regexp_replace(title, '\s+', ' ', 'g'))) = $2
		   AND lower(btrim(regexp_replace(authors[1], '\s+', ' ', 'g'))) = $3
		 LIMIT 1`,
		userID, normTitle, normAuthor)
	if err != nil {
		return nil, fmt.Errorf("タイトルと著者による本の検索に失敗しました: %w", err)
	}
	return book, nil
}

// FindByUserAndExternalID は外部カタログIDの完全一致で検索する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByUserAndExternalID(ctx context.Context, userID, externalID string) (*model.Book, error) {
	book, err := r.findOne(ctx,
		`SELECT `+bookColumns+` FROM books WHERE user_id = $1 AND external_id = $2 AND external_id <> '' LIMIT 1`,
		userID, externalID)
	if err != nil {
		return nil, fmt.Errorf("外部IDによる本の検索に失敗しました: %w", err)
	}
	return book, nil
}

// Create は本を作成する。
func (r *PostgresBookRepo) Create(ctx context.Context, book *model.Book) error {
	var pageCount, rating sql.NullInt64
	if book.PageCount != nil {
		pageCount = sql.NullInt64{Int64: int64(*book.PageCount), Valid: true}
	}
	if book.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*book.Rating), Valid: true}
	}
	var finishedAt sql.NullTime
	if book.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *book.FinishedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, user_id, title, authors, genres, isbn, isbn13, external_id,
		                    cover_url, publisher, page_count, current_page, status, rating, review,
		                    finished_at, added_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		book.ID, book.UserID, book.Title,
		pq.Array(book.Authors), pq.Array(book.Genres),
		book.ISBN, book.ISBN13, book.ExternalID,
		book.CoverURL, book.Publisher,
		pageCount, book.CurrentPage, string(book.Status), rating, book.Review,
		finishedAt, book.AddedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("本の作成に失敗しました: %w", err)
	}
	return nil
}

// Update は本の全フィールドを上書き更新する。
func (r *PostgresBookRepo) Update(ctx context.Context, book *model.Book) error {
	var pageCount, rating sql.NullInt64
	if book.PageCount != nil {
		pageCount = sql.NullInt64{Int64: int64(*book.PageCount), Valid: true}
	}
	if book.Rating != nil {
		rating = sql.NullInt64{Int64: int64(*book.Rating), Valid: true}
	}
	var finishedAt sql.NullTime
	if book.FinishedAt != nil {
		finishedAt = sql.NullTime{Time: *book.FinishedAt, Valid: true}
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE books
		 SET title = $2, authors = $3, genres = $4, isbn = $5, isbn13 = $6, external_id = $7,
		     cover_url = $8, publisher = $9, page_count = $10, current_page = $11,
		     status = $12, rating = $13, review = $14, finished_at = $15, updated_at = $16
		 WHERE id = $1`,
		book.ID, book.Title,
		pq.Array(book.Authors), pq.Array(book.Genres),
		book.ISBN, book.ISBN13, book.ExternalID,
		book.CoverURL, book.Publisher,
		pageCount, book.CurrentPage,
		string(book.Status), rating, book.Review, finishedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("本の更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("book not found: %s", book.ID)
	}
	return nil
}

// Delete は指定IDの本を削除する。goal_progressはCASCADE削除される。
func (r *PostgresBookRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM books WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("本の削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)
