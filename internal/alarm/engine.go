package alarm

import (
	"log/slog"
	"time"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// Match 是一次评估中命中的报警
type Match struct {
	Section string
	Time    string
	Message string
	Channel string
	To      string
}

// Engine 对一次时钟触发做无状态的规则评估。
// 跨 tick 的去重不在这里处理（见 Marker），因此外部调度器
// 在容差窗口内触发两次时同一条报警会命中两次。
type Engine struct {
	tolerance time.Duration
}

func NewEngine(tolerance time.Duration) *Engine {
	return &Engine{tolerance: tolerance}
}

// Evaluate 按 custom → weekday → night 的顺序返回命中的规则，
// 每个分区内保持配置中的顺序。时间格式损坏的规则只跳过自身。
// todayShift/yesterdayShift 传空值表示当天班次无法解析，
// 此时依赖班次判定的规则全部不命中，custom 规则不受影响。
func (e *Engine) Evaluate(now time.Time, sched *domain.AlarmSchedule, todayShift, yesterdayShift domain.ShiftCode) []Match {
	matches := make([]Match, 0)
	todayKey := domain.DateKey(now)

	for _, rule := range sched.Custom {
		if rule.Date != todayKey {
			continue
		}
		if e.timeMatches(now, rule.Time) {
			matches = append(matches, Match{
				Section: "custom",
				Time:    rule.Time,
				Message: rule.Message,
				Channel: rule.Channel,
				To:      rule.To,
			})
		}
	}

	if todayShift.CoversDay() {
		for _, rule := range sched.Weekday {
			if e.timeMatches(now, rule.Time) {
				matches = append(matches, Match{
					Section: "weekday",
					Time:    rule.Time,
					Message: rule.Message,
					Channel: rule.Channel,
					To:      rule.To,
				})
			}
		}
	}

	// night_today 看当天的班次，night_next 看前一天的班次：
	// 前一天上夜班时，第二天早上的提醒（下班、补觉闹钟）属于 night_next
	if todayShift.CoversNight() {
		for _, rule := range sched.NightToday {
			if e.timeMatches(now, rule.Time) {
				matches = append(matches, Match{
					Section: "night_today",
					Time:    rule.Time,
					Message: rule.Message,
					Channel: rule.Channel,
					To:      rule.To,
				})
			}
		}
	}
	if yesterdayShift.CoversNight() {
		for _, rule := range sched.NightNext {
			if e.timeMatches(now, rule.Time) {
				matches = append(matches, Match{
					Section: "night_next",
					Time:    rule.Time,
					Message: rule.Message,
					Channel: rule.Channel,
					To:      rule.To,
				})
			}
		}
	}

	return matches
}

// timeMatches 判断当前时刻是否落在规则时间的容差窗口内
func (e *Engine) timeMatches(now time.Time, ruleTime string) bool {
	parsed, err := time.Parse("15:04", ruleTime)
	if err != nil {
		slog.Warn("报警规则的时间格式无效，跳过该规则", "time", ruleTime, "error", err)
		return false
	}

	target := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, now.Location())
	diff := now.Sub(target)
	if diff < 0 {
		diff = -diff
	}

	return diff <= e.tolerance
}
