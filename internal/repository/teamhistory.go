package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/docstore"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

func (r *Repository) defaultHistory() []domain.TeamRecord {
	return []domain.TeamRecord{{
		StartDate: domain.DateKey(domain.Epoch),
		Team:      r.cfg.Schedule.DefaultTeam,
	}}
}

// GetTeamHistory 读取队伍历史。兼容旧版单队伍文档；
// 文档不存在或损坏时退回单条默认记录
func (r *Repository) GetTeamHistory(ctx context.Context) ([]domain.TeamRecord, error) {
	name := r.cfg.GitHub.TeamSettingsPath

	doc, err := r.store.Read(ctx, name)
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return r.defaultHistory(), nil
	case err != nil:
		return nil, err
	}

	parsed := domain.TeamHistoryDocument{}
	if err := json.Unmarshal(doc.Content, &parsed); err != nil {
		slog.Warn("队伍历史文档内容损坏，退回默认记录", "document", name, "error", err)
		return r.defaultHistory(), nil
	}

	return parsed.History(r.cfg.Schedule.DefaultTeam), nil
}

// AddTeamRecord 在历史末尾追加一条记录。记录可以生效在过去（追溯修正）
// 或未来（预约换队），相同生效日期时新追加的记录优先
func (r *Repository) AddTeamRecord(ctx context.Context, record domain.TeamRecord) error {
	return r.mutate(ctx, r.cfg.GitHub.TeamSettingsPath, func(content []byte) ([]byte, error) {
		history := r.decodeHistory(content)
		history = append(history, record)
		return json.Marshal(domain.TeamHistoryDocument{TeamHistory: history})
	})
}

// ReplaceTeamHistory 用整份新历史替换文档
func (r *Repository) ReplaceTeamHistory(ctx context.Context, records []domain.TeamRecord) error {
	return r.mutate(ctx, r.cfg.GitHub.TeamSettingsPath, func(content []byte) ([]byte, error) {
		return json.Marshal(domain.TeamHistoryDocument{TeamHistory: records})
	})
}

func (r *Repository) decodeHistory(content []byte) []domain.TeamRecord {
	if len(content) == 0 {
		return r.defaultHistory()
	}
	parsed := domain.TeamHistoryDocument{}
	if err := json.Unmarshal(content, &parsed); err != nil {
		slog.Warn("队伍历史文档内容损坏，按默认记录处理", "error", err)
		return r.defaultHistory()
	}
	return parsed.History(r.cfg.Schedule.DefaultTeam)
}
