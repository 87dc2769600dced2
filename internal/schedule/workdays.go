package schedule

import (
	"time"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// WorkdayStats 是侧边栏展示用的月度工作日统计
type WorkdayStats struct {
	Total      int `json:"total"`
	UntilToday int `json:"untilToday"`
}

// CountWorkdays 统计一个月内解析后班次为工作班（주/야/올）的天数。
// until 非零时只统计到 until（含）为止，用于"到今天为止"的口径。
// 解析失败的日期只跳过当天，不中断整个统计。
func (r *Resolver) CountWorkdays(year int, month time.Month, history []domain.TeamRecord, overrides domain.OverrideMap, until time.Time) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	total := 0

	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		if !until.IsZero() && d.After(until) {
			break
		}

		shift, err := r.Resolve(d, history, overrides)
		if err != nil {
			continue
		}
		if shift.IsWorkday() {
			total++
		}
	}

	return total
}

// WorkdayStatsFor 计算整月的工作日总数以及到 today 为止的工作日数
func (r *Resolver) WorkdayStatsFor(year int, month time.Month, history []domain.TeamRecord, overrides domain.OverrideMap, today time.Time) WorkdayStats {
	stats := WorkdayStats{
		Total: r.CountWorkdays(year, month, history, overrides, time.Time{}),
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1)
	todayKey := domain.DateKey(today)

	switch {
	case domain.DateKey(lastDay) < todayKey:
		// 整个月都在今天之前
		stats.UntilToday = stats.Total
	case domain.DateKey(first) > todayKey:
		// 未来的月份
		stats.UntilToday = 0
	default:
		norm := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
		stats.UntilToday = r.CountWorkdays(year, month, history, overrides, norm)
	}

	return stats
}
