package schedule

import (
	"sort"
	"time"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// TeamFor 解析某一天生效的队伍：按生效日期升序稳定排序后，
// 取最后一条生效日期不晚于查询日期的记录。
// 生效日期相同时，文档中排在后面（即后插入）的记录生效，
// 因此可以用追加记录的方式做追溯修正或预约未来的换队。
func (r *Resolver) TeamFor(date time.Time, history []domain.TeamRecord) string {
	if len(history) == 0 {
		return r.defaultTeam
	}

	sorted := make([]domain.TeamRecord, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartDate < sorted[j].StartDate
	})

	key := domain.DateKey(date)
	team := ""
	for _, rec := range sorted {
		if rec.StartDate <= key {
			team = rec.Team
		} else {
			break
		}
	}

	if team == "" {
		// 查询日期早于所有记录，退回默认队伍
		return r.defaultTeam
	}

	return team
}
