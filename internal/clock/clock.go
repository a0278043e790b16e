// Package clock は注入可能な時刻源を提供する。
// 日付バリデーション、目標期限の計算、ストリーク判定は壁時計を直接参照せず、
// このパッケージのClockを通して現在時刻を取得する。テストではFixedで時刻を固定できる。
package clock

import "time"

// Clock は現在時刻の取得インターフェース。
type Clock interface {
	// Now は現在時刻を返す。
	Now() time.Time
}

// systemClock はtime.Nowをそのまま返す実装。
type systemClock struct{}

// Now は現在時刻を返す。
func (systemClock) Now() time.Time {
	return time.Now()
}

// System はシステム時計を返す。本番コードではこれを注入する。
func System() Clock {
	return systemClock{}
}

// Fixed は常に同じ時刻を返すClockを返す。テスト用。
func Fixed(t time.Time) Clock {
	return fixedClock{t: t}
}

type fixedClock struct {
	t time.Time
}

// Now は固定された時刻を返す。
func (c fixedClock) Now() time.Time {
	return c.t
}
