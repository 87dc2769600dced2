package domain

import (
	"encoding/json"
	"fmt"
)

// ShiftCode 表示某一天的班次，올（FULL）在报警判定上同时算白班和夜班
type ShiftCode string

const (
	ShiftDay   ShiftCode = "DAY"
	ShiftNight ShiftCode = "NIGHT"
	ShiftOff   ShiftCode = "OFF"
	ShiftFull  ShiftCode = "FULL"
)

// 序列化边界上使用的韩文单字班次代码，与既有文档保持兼容
var localeCodes = map[ShiftCode]string{
	ShiftDay:   "주",
	ShiftNight: "야",
	ShiftOff:   "비",
	ShiftFull:  "올",
}

var fromLocaleCodes = map[string]ShiftCode{
	"주": ShiftDay,
	"야": ShiftNight,
	"비": ShiftOff,
	"올": ShiftFull,
}

func (s ShiftCode) Valid() bool {
	switch s {
	case ShiftDay, ShiftNight, ShiftOff, ShiftFull:
		return true
	}
	return false
}

// CoversDay 判断这个班次当天是否需要上白班
func (s ShiftCode) CoversDay() bool {
	return s == ShiftDay || s == ShiftFull
}

// CoversNight 判断这个班次当天是否需要上夜班
func (s ShiftCode) CoversNight() bool {
	return s == ShiftNight || s == ShiftFull
}

// IsWorkday 判断这个班次是否计入工作日（주/야/올）
func (s ShiftCode) IsWorkday() bool {
	return s == ShiftDay || s == ShiftNight || s == ShiftFull
}

// LocaleCode 返回文档中存储的韩文单字代码
func (s ShiftCode) LocaleCode() string {
	return localeCodes[s]
}

// ParseShiftCode 同时接受枚举名和韩文单字代码
func ParseShiftCode(raw string) (ShiftCode, error) {
	if code, ok := fromLocaleCodes[raw]; ok {
		return code, nil
	}
	code := ShiftCode(raw)
	if code.Valid() {
		return code, nil
	}
	return "", fmt.Errorf("无效的班次代码: %s", raw)
}

// OverrideMap 是覆盖文档的内存形式，键为 YYYY-MM-DD
type OverrideMap map[string]ShiftCode

func (m OverrideMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(m))
	for date, shift := range m {
		out[date] = shift.LocaleCode()
	}
	return json.Marshal(out)
}

func (m *OverrideMap) UnmarshalJSON(data []byte) error {
	raw := make(map[string]string)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(OverrideMap, len(raw))
	for date, value := range raw {
		shift, err := ParseShiftCode(value)
		if err != nil {
			return err
		}
		out[date] = shift
	}
	*m = out

	return nil
}
