// Package activity は読書記録とストリーク統計を提供する。
package activity

import (
	"sort"
	"time"

	"github.com/onideus/bookbuddy/internal/model"
)

const dayUnit = 24 * time.Hour

// normalizeDay は時刻をUTC午前0時に切り詰める。
func normalizeDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// CalculateStreak は読書記録の一覧からストリーク統計を導出する純粋関数。
// 同一日の重複記録は1日として数える。永続化も副作用も持たない。
//
// 現在のストリークは、最新の記録日が今日でも昨日でもなければ0。
// そうでなければ最新の記録日から1日刻みで遡って連続した日数を数える。
// 「途切れそう」は最新の記録がちょうど昨日の場合
// （ストリークは生きているが今日はまだ記録がない）。
func CalculateStreak(activities []*model.ReadingActivity, today time.Time) *model.StreakStats {
	todayDay := normalizeDay(today)
	yesterday := todayDay.Add(-dayUnit)

	// 重複日を収束させた昇順のユニーク日リスト
	seen := make(map[time.Time]bool, len(activities))
	var days []time.Time
	for _, a := range activities {
		d := normalizeDay(a.Day)
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	stats := &model.StreakStats{TotalDaysRead: len(days)}
	if len(days) == 0 {
		stats.Message = streakMessage(stats)
		return stats
	}

	latest := days[len(days)-1]
	stats.AtRisk = latest.Equal(yesterday)

	// 現在のストリーク: 最新の記録が今日か昨日の場合のみ生きている
	if latest.Equal(todayDay) || latest.Equal(yesterday) {
		stats.CurrentStreak = 1
		for i := len(days) - 2; i >= 0; i-- {
			if days[i+1].Sub(days[i]) != dayUnit {
				break
			}
			stats.CurrentStreak++
		}
	}

	// 最長ストリーク: 昇順のユニーク日から最長の連続区間を探す
	run := 1
	stats.LongestStreak = 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == dayUnit {
			run++
		} else {
			run = 1
		}
		if run > stats.LongestStreak {
			stats.LongestStreak = run
		}
	}

	stats.Message = streakMessage(stats)
	return stats
}

// streakMessage はストリーク長に応じた応援メッセージを返す。
// 「途切れそう」の場合はストリーク長によらず注意メッセージで上書きする。
func streakMessage(stats *model.StreakStats) string {
	if stats.AtRisk && stats.CurrentStreak > 0 {
		return "ストリークが途切れそうです！今日も読んで記録を続けましょう。"
	}

	switch {
	case stats.CurrentStreak == 0:
		return "今日から読書を始めましょう！"
	case stats.CurrentStreak < 3:
		return "いいスタートです。この調子で続けましょう！"
	case stats.CurrentStreak < 7:
		return "順調です！1週間連続まであと少し。"
	case stats.CurrentStreak < 30:
		return "素晴らしい習慣です。1ヶ月連続を目指しましょう！"
	default:
		return "驚異的な継続力です！読書があなたの日常になっています。"
	}
}
