package domain

// TeamRecord 表示从某一天开始生效的队伍变更记录
type TeamRecord struct {
	StartDate string `json:"start_date"`
	Team      string `json:"team"`
}

// TeamHistoryDocument 是队伍设置文档的完整形式，
// 旧版文档只有一个 team 字段，读取时需要兼容
type TeamHistoryDocument struct {
	TeamHistory []TeamRecord `json:"team_history,omitempty"`
	Team        string       `json:"team,omitempty"`
}

// History 将文档归一化为历史记录列表
func (d *TeamHistoryDocument) History(defaultTeam string) []TeamRecord {
	if len(d.TeamHistory) > 0 {
		return d.TeamHistory
	}
	if d.Team != "" {
		return []TeamRecord{{StartDate: DateKey(Epoch), Team: d.Team}}
	}
	return []TeamRecord{{StartDate: DateKey(Epoch), Team: defaultTeam}}
}

// DefaultPatterns 返回四个队伍的默认轮换模式，
// 以 2000-01-03 为基准日，每四天一个周期
func DefaultPatterns() map[string][]ShiftCode {
	return map[string][]ShiftCode{
		"A": {ShiftDay, ShiftNight, ShiftOff, ShiftOff},
		"B": {ShiftOff, ShiftDay, ShiftNight, ShiftOff},
		"C": {ShiftOff, ShiftOff, ShiftDay, ShiftNight},
		"D": {ShiftNight, ShiftOff, ShiftOff, ShiftDay},
	}
}
