// Package model はドメインモデルを定義する。
package model

import "time"

// ReadingActivity はユーザーの1日分の読書記録を表す。
// (UserID, Day) の組み合わせで一意。同日の記録は加算UPSERTされる。
type ReadingActivity struct {
	ID          string
	UserID      string
	Day         time.Time // UTC午前0時に正規化された日付
	PagesRead   int
	MinutesRead int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StreakStats は読書ストリークの統計を表す。
// 読書記録から純粋に導出される値であり、永続化されない。
type StreakStats struct {
	CurrentStreak int
	LongestStreak int
	TotalDaysRead int
	AtRisk        bool // 最新の記録がちょうど昨日（ストリーク継続中だが今日は未記録）
	Message       string
}
