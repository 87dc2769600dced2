package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/docstore"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// 报警配置文档中的分区名
const (
	SectionWeekday    = "weekday"
	SectionNightToday = "night_today"
	SectionNightNext  = "night_next"
	SectionCustom     = "custom"
)

// 这两个错误是调用方传入的数据有问题，不是存储层故障，
// 编辑界面要把它们当校验失败提示而不是服务器错误
var (
	ErrUnknownSection      = errors.New("无效的报警分区")
	ErrRuleIndexOutOfRange = errors.New("报警规则下标越界")
)

// GetAlarmSchedule 读取报警配置。文档不存在或损坏时退回空配置
func (r *Repository) GetAlarmSchedule(ctx context.Context) (*domain.AlarmSchedule, error) {
	name := r.cfg.GitHub.AlarmPath

	sched := &domain.AlarmSchedule{}

	doc, err := r.store.Read(ctx, name)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		sched.Normalize()
		return sched, nil
	case err != nil:
		return nil, err
	}

	if err := json.Unmarshal(doc.Content, sched); err != nil {
		slog.Warn("报警配置文档内容损坏，退回空配置", "document", name, "error", err)
		sched = &domain.AlarmSchedule{}
	}
	sched.Normalize()

	return sched, nil
}

// AddTimedRule 向 weekday/night_today/night_next 分区追加一条规则
func (r *Repository) AddTimedRule(ctx context.Context, section string, rule domain.TimedRule) error {
	return r.mutate(ctx, r.cfg.GitHub.AlarmPath, func(content []byte) ([]byte, error) {
		sched := decodeAlarmSchedule(content)
		switch section {
		case SectionWeekday:
			sched.Weekday = append(sched.Weekday, rule)
		case SectionNightToday:
			sched.NightToday = append(sched.NightToday, rule)
		case SectionNightNext:
			sched.NightNext = append(sched.NightNext, rule)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
		}
		return json.Marshal(sched)
	})
}

// AddDatedRule 向 custom 分区追加一条特定日期的规则
func (r *Repository) AddDatedRule(ctx context.Context, rule domain.DatedRule) error {
	return r.mutate(ctx, r.cfg.GitHub.AlarmPath, func(content []byte) ([]byte, error) {
		sched := decodeAlarmSchedule(content)
		sched.Custom = append(sched.Custom, rule)
		return json.Marshal(sched)
	})
}

// DeleteAlarmRule 按分区和下标删除一条规则
func (r *Repository) DeleteAlarmRule(ctx context.Context, section string, index int) error {
	return r.mutate(ctx, r.cfg.GitHub.AlarmPath, func(content []byte) ([]byte, error) {
		sched := decodeAlarmSchedule(content)
		switch section {
		case SectionWeekday:
			if index < 0 || index >= len(sched.Weekday) {
				return nil, fmt.Errorf("%w: %d", ErrRuleIndexOutOfRange, index)
			}
			sched.Weekday = append(sched.Weekday[:index], sched.Weekday[index+1:]...)
		case SectionNightToday:
			if index < 0 || index >= len(sched.NightToday) {
				return nil, fmt.Errorf("%w: %d", ErrRuleIndexOutOfRange, index)
			}
			sched.NightToday = append(sched.NightToday[:index], sched.NightToday[index+1:]...)
		case SectionNightNext:
			if index < 0 || index >= len(sched.NightNext) {
				return nil, fmt.Errorf("%w: %d", ErrRuleIndexOutOfRange, index)
			}
			sched.NightNext = append(sched.NightNext[:index], sched.NightNext[index+1:]...)
		case SectionCustom:
			if index < 0 || index >= len(sched.Custom) {
				return nil, fmt.Errorf("%w: %d", ErrRuleIndexOutOfRange, index)
			}
			sched.Custom = append(sched.Custom[:index], sched.Custom[index+1:]...)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
		}
		return json.Marshal(sched)
	})
}

func decodeAlarmSchedule(content []byte) *domain.AlarmSchedule {
	sched := &domain.AlarmSchedule{}
	if len(content) > 0 {
		if err := json.Unmarshal(content, sched); err != nil {
			slog.Warn("报警配置文档内容损坏，按空配置处理", "error", err)
			sched = &domain.AlarmSchedule{}
		}
	}
	sched.Normalize()
	return sched
}
