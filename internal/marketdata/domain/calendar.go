package domain

import (
	"fmt"
	"time"
)

// hoursPerYear ACT/365F 基准下的年化小时数
const hoursPerYear = 365.0 * 24.0

// Act365Calendar ACT/365F 日历
// 按自然时间折算年化区间；交易时段加权由更精细的日历实现承担，
// 本实现满足 Calendar 契约的非负与同刻为零性质。
type Act365Calendar struct{}

// NewAct365Calendar 构造 ACT/365F 日历。
func NewAct365Calendar() Act365Calendar { return Act365Calendar{} }

// YearFraction 计算 from 到 to 的年化区间。
func (Act365Calendar) YearFraction(from, to time.Time) (float64, error) {
	if to.Before(from) {
		return 0, fmt.Errorf("from %s to %s: %w", from.Format(time.RFC3339), to.Format(time.RFC3339), ErrNegativeInterval)
	}
	return to.Sub(from).Hours() / hoursPerYear, nil
}
