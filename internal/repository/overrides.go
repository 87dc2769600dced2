package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/docstore"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// GetOverrides 读取覆盖文档。文档不存在或内容损坏时退回空表，
// 保证一次损坏的编辑不会让整个解析流程失败
func (r *Repository) GetOverrides(ctx context.Context) (domain.OverrideMap, error) {
	name := r.cfg.GitHub.SchedulePath

	doc, err := r.store.Read(ctx, name)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return domain.OverrideMap{}, nil
	case err != nil:
		return nil, err
	}

	overrides := domain.OverrideMap{}
	if err := json.Unmarshal(doc.Content, &overrides); err != nil {
		slog.Warn("覆盖文档内容损坏，退回空覆盖表", "document", name, "error", err)
		return domain.OverrideMap{}, nil
	}

	return overrides, nil
}

// SetOverride 把一个日期的班次覆盖合并进文档
func (r *Repository) SetOverride(ctx context.Context, date string, shift domain.ShiftCode) error {
	return r.mutate(ctx, r.cfg.GitHub.SchedulePath, func(content []byte) ([]byte, error) {
		overrides := decodeOverrides(content)
		overrides[date] = shift
		return json.Marshal(overrides)
	})
}

// DeleteOverride 删除一个日期的覆盖，让这一天回到模式计算的结果
func (r *Repository) DeleteOverride(ctx context.Context, date string) error {
	return r.mutate(ctx, r.cfg.GitHub.SchedulePath, func(content []byte) ([]byte, error) {
		overrides := decodeOverrides(content)
		delete(overrides, date)
		return json.Marshal(overrides)
	})
}

func decodeOverrides(content []byte) domain.OverrideMap {
	overrides := domain.OverrideMap{}
	if len(content) == 0 {
		return overrides
	}
	if err := json.Unmarshal(content, &overrides); err != nil {
		slog.Warn("覆盖文档内容损坏，按空覆盖表处理", "error", err)
		return domain.OverrideMap{}
	}
	return overrides
}
