package domain

import "time"

const DateLayout = "2006-01-02"

// Epoch 是轮换模式的基准日期（2000-01-03），所有的天数偏移都从这里算起
var Epoch = time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC)

// ParseDate 解析 YYYY-MM-DD 格式的日历日期
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, raw)
}

// DateKey 返回日期在文档中使用的键
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// DaysBetween 按整天计算两个日历日期之间的偏移，避免时区和夏令时造成的漂移
func DaysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
