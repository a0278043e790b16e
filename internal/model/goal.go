// Package model はドメインモデルを定義する。
package model

import "time"

// Goal はユーザーが設定した読書目標を表す。
// progressCountとbonusCountはgoal_progressの行数と常に整合する。
type Goal struct {
	ID               string
	UserID           string
	Name             string
	TargetCount      int // 1〜9999
	ProgressCount    int // 0以上
	BonusCount       int // max(0, ProgressCount - TargetCount)
	Status           GoalStatus
	DeadlineAt       time.Time // UTC
	DeadlineTimezone string    // IANAタイムゾーン名（例: "Asia/Tokyo"）
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// GoalStatus は目標のステータスを表す。
type GoalStatus string

const (
	// GoalStatusActive は進行中の目標。
	GoalStatusActive GoalStatus = "active"
	// GoalStatusCompleted は達成済みの目標。
	GoalStatusCompleted GoalStatus = "completed"
	// GoalStatusExpired は期限切れの目標。
	GoalStatusExpired GoalStatus = "expired"
)

// ProgressPercentage は目標の進捗率を返す。
// min(100, floor(progress/target*100)) を計算する。targetが0以下の場合は0を返す。
func (g *Goal) ProgressPercentage() int {
	if g.TargetCount <= 0 {
		return 0
	}
	pct := g.ProgressCount * 100 / g.TargetCount
	if pct > 100 {
		return 100
	}
	return pct
}

// GoalProgress は読了した本が特定の目標にカウントされていることを表すジャンクションレコード。
// (GoalID, BookID) の組み合わせで一意。1冊の本は複数の目標に同時に貢献できる。
type GoalProgress struct {
	ID        string
	GoalID    string
	BookID    string
	CreatedAt time.Time
}
