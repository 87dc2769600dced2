package schedule

import (
	"fmt"
	"time"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// UnknownTeamError 表示解析出的队伍在模式表中不存在
type UnknownTeamError struct {
	Team string
}

func (e *UnknownTeamError) Error() string {
	return fmt.Sprintf("队伍 %s 没有对应的轮换模式", e.Team)
}

// Resolver 根据轮换模式、队伍历史和覆盖表解析任意日期的班次
type Resolver struct {
	patterns    map[string][]domain.ShiftCode
	epoch       time.Time
	defaultTeam string
}

func NewResolver(patterns map[string][]domain.ShiftCode, defaultTeam string) *Resolver {
	return &Resolver{
		patterns:    patterns,
		epoch:       domain.Epoch,
		defaultTeam: defaultTeam,
	}
}

// Resolve 的优先级：显式覆盖 > 队伍历史 + 轮换模式。
// 覆盖命中时直接返回，不再做任何计算。
func (r *Resolver) Resolve(date time.Time, history []domain.TeamRecord, overrides domain.OverrideMap) (domain.ShiftCode, error) {
	if shift, ok := overrides[domain.DateKey(date)]; ok {
		return shift, nil
	}

	team := r.TeamFor(date, history)
	pattern, ok := r.patterns[team]
	if !ok || len(pattern) == 0 {
		return "", &UnknownTeamError{Team: team}
	}

	offset := domain.DaysBetween(r.epoch, date)
	index := ((offset % len(pattern)) + len(pattern)) % len(pattern)

	return pattern[index], nil
}
