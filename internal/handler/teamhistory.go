package handler

import (
	"net/http"

	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
)

// GetTeamHistory 返回规范化后的队伍历史
func (h *Handler) GetTeamHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.repository.GetTeamHistory(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "查询成功", history)
}

// AddTeamRecord 追加一条队伍记录，生效日期可以在过去或未来
func (h *Handler) AddTeamRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate string `json:"start_date" validate:"required"`
		Team      string `json:"team" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if _, err := domain.ParseDate(req.StartDate); err != nil {
		h.errorResponse(w, r, "无效的日期，应为 YYYY-MM-DD")
		return
	}

	record := domain.TeamRecord{
		StartDate: req.StartDate,
		Team:      req.Team,
	}
	if err := h.repository.AddTeamRecord(r.Context(), record); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "队伍记录已追加", nil)
}

// ReplaceTeamHistory 用请求中的整份历史替换现有文档
func (h *Handler) ReplaceTeamHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TeamHistory []struct {
			StartDate string `json:"start_date" validate:"required"`
			Team      string `json:"team" validate:"required"`
		} `json:"team_history" validate:"required,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	records := make([]domain.TeamRecord, 0, len(req.TeamHistory))
	for _, item := range req.TeamHistory {
		if _, err := domain.ParseDate(item.StartDate); err != nil {
			h.errorResponse(w, r, "无效的日期，应为 YYYY-MM-DD")
			return
		}
		records = append(records, domain.TeamRecord{
			StartDate: item.StartDate,
			Team:      item.Team,
		})
	}

	if err := h.repository.ReplaceTeamHistory(r.Context(), records); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "队伍历史已替换", nil)
}
