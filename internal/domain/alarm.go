package domain

// 通知渠道，默认走 telegram
const (
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
)

// TimedRule 是只带时间的报警规则（周期性的白班/夜班提醒）
type TimedRule struct {
	Time    string `json:"time"`
	Message string `json:"message"`
	Channel string `json:"channel,omitempty"`
	To      string `json:"to,omitempty"`
}

// DatedRule 是只在某个日历日期触发一次的报警规则
type DatedRule struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Message string `json:"message"`
	Channel string `json:"channel,omitempty"`
	To      string `json:"to,omitempty"`
}

// AlarmSchedule 是报警配置文档的完整形式。
// night_today 按当天的班次判定，night_next 按前一天的班次判定
// （前一天上夜班时，第二天早上的下班提醒属于 night_next）。
// 旧版文档只有一个 night 键，读取时归入 night_today。
type AlarmSchedule struct {
	Weekday    []TimedRule `json:"weekday"`
	NightToday []TimedRule `json:"night_today"`
	NightNext  []TimedRule `json:"night_next"`
	Custom     []DatedRule `json:"custom"`

	LegacyNight []TimedRule `json:"night,omitempty"`
}

// Normalize 吸收旧版字段并保证所有列表非 nil
func (s *AlarmSchedule) Normalize() {
	if len(s.LegacyNight) > 0 {
		s.NightToday = append(s.NightToday, s.LegacyNight...)
		s.LegacyNight = nil
	}
	if s.Weekday == nil {
		s.Weekday = make([]TimedRule, 0)
	}
	if s.NightToday == nil {
		s.NightToday = make([]TimedRule, 0)
	}
	if s.NightNext == nil {
		s.NightNext = make([]TimedRule, 0)
	}
	if s.Custom == nil {
		s.Custom = make([]DatedRule, 0)
	}
}
