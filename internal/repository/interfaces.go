// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/onideus/bookbuddy/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するbooks、goals、reading_activities、sessionsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// BookRepository は本（読書エントリ）の永続化インターフェース。
// 重複判定に必要な3種類の検索（ISBN、正規化タイトル＋著者、外部ID）を提供する。
type BookRepository interface {
	// FindByID は指定IDの本を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Book, error)

	// ListByUserID はユーザーの本の一覧をadded_at降順で返す。
	// statusが空でない場合は該当ステータスのみに絞り込む。
	ListByUserID(ctx context.Context, userID string, status model.BookStatus) ([]*model.Book, error)

	// FindByUserAndISBN はユーザーの本棚からISBN-10の完全一致で検索する。見つからない場合はnilを返す。
	FindByUserAndISBN(ctx context.Context, userID, isbn string) (*model.Book, error)

	// FindByUserAndISBN13 はユーザーの本棚からISBN-13の完全一致で検索する。見つからない場合はnilを返す。
	FindByUserAndISBN13(ctx context.Context, userID, isbn13 string) (*model.Book, error)

	// FindByUserAndTitleAuthor は正規化（小文字化・空白圧縮）済みのタイトルと主著者の
	// 完全一致で検索する。見つからない場合はnilを返す。
	FindByUserAndTitleAuthor(ctx context.Context, userID, normTitle, normAuthor string) (*model.Book, error)

	// FindByUserAndExternalID は外部カタログIDの完全一致で検索する。見つからない場合はnilを返す。
	FindByUserAndExternalID(ctx context.Context, userID, externalID string) (*model.Book, error)

	// Create は本を作成する。
	Create(ctx context.Context, book *model.Book) error

	// Update は本の全フィールドを上書き更新する。
	Update(ctx context.Context, book *model.Book) error

	// Delete は指定IDの本を削除する。goal_progressはCASCADE削除される。
	Delete(ctx context.Context, id string) error
}

// GoalRepository は読書目標の永続化インターフェース。
// 進捗カウンタの更新は読み取り後書き込みの競合を避けるため、
// 単一の条件付きUPDATE文として実装される。
type GoalRepository interface {
	// FindByID は指定IDの目標を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Goal, error)

	// ListByUserID はユーザーの目標一覧をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Goal, error)

	// ListReconcilableByUserID は進捗反映の対象となる目標
	// （status が active または completed）の一覧を返す。
	ListReconcilableByUserID(ctx context.Context, userID string) ([]*model.Goal, error)

	// Create は目標を作成する。
	Create(ctx context.Context, goal *model.Goal) error

	// UpdateMeta は目標の名前・目標冊数・ステータス・bonus_count・completed_atを更新する。
	// progress_countには触れない（進捗はAddProgress/RemoveProgressのみが変更する）。
	UpdateMeta(ctx context.Context, goal *model.Goal) error

	// Delete は指定IDの目標を削除する。goal_progressはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// AddProgress は本を目標の進捗に加算する。
	// goal_progress行をON CONFLICT DO NOTHINGで挿入し、挿入できた場合のみ
	// progress_count加算・bonus_count再計算・達成判定を1つのUPDATE文で行う。
	// すでにカウント済みの場合は何もせずfalseを返す。
	AddProgress(ctx context.Context, goalID, bookID, progressID string, now time.Time) (bool, error)

	// RemoveProgress は本を目標の進捗から取り消す。
	// goal_progress行を削除できた場合のみprogress_count減算（下限0）・bonus_count再計算・
	// 達成取り消し判定（進捗が目標未満かつ期限内の場合のみactiveへ戻す）を
	// 1つのUPDATE文で行う。行が存在しない場合は何もせずfalseを返す。
	RemoveProgress(ctx context.Context, goalID, bookID string, now time.Time) (bool, error)

	// ListGoalIDsByBookID は指定の本が進捗に含まれている目標IDの一覧を返す。
	ListGoalIDsByBookID(ctx context.Context, bookID string) ([]string, error)
}

// ActivityRepository は読書記録の永続化インターフェース。
type ActivityRepository interface {
	// UpsertAdd は(user_id, day)をキーに読書記録を加算UPSERTする。
	// 既存行がある場合はpages_read/minutes_readに加算し、更新後の行を返す。
	UpsertAdd(ctx context.Context, activity *model.ReadingActivity, now time.Time) (*model.ReadingActivity, error)

	// ListByUserID はユーザーの読書記録一覧をday昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.ReadingActivity, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}
