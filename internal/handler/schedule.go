package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/schedule"
)

type daySchedule struct {
	Date       string           `json:"date"`
	Shift      domain.ShiftCode `json:"shift"`
	Overridden bool             `json:"overridden"`
	Holidays   []string         `json:"holidays,omitempty"`
}

type monthSchedule struct {
	Year     int                   `json:"year"`
	Month    int                   `json:"month"`
	Team     string                `json:"team"`
	Days     []daySchedule         `json:"days"`
	Workdays schedule.WorkdayStats `json:"workdays"`
}

// GetMonthSchedule 返回整个月每天的解析结果，带节假日标注和工作日统计
func (h *Handler) GetMonthSchedule(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		h.errorResponse(w, r, "无效的年份")
		return
	}
	monthNum, err := strconv.Atoi(chi.URLParam(r, "month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		h.errorResponse(w, r, "无效的月份")
		return
	}
	month := time.Month(monthNum)

	history, err := h.repository.GetTeamHistory(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	overrides, err := h.repository.GetOverrides(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 节假日拿不到时只是少了标注，不影响班次解析
	holidays, err := h.holidays.Holidays(r.Context(), year)
	if err != nil {
		slog.Warn("节假日数据加载失败", "year", year, "error", err)
		holidays = map[string][]string{}
	}

	now := time.Now().In(h.location)
	result := monthSchedule{
		Year:     year,
		Month:    monthNum,
		Days:     make([]daySchedule, 0, 31),
		Workdays: h.resolver.WorkdayStatsFor(year, month, history, overrides, now),
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	result.Team = h.resolver.TeamFor(first, history)

	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		key := domain.DateKey(d)

		shift, err := h.resolver.Resolve(d, history, overrides)
		if err != nil {
			// 某一天解析失败只跳过这一天
			slog.Warn("班次解析失败", "date", key, "error", err)
			continue
		}

		_, overridden := overrides[key]
		result.Days = append(result.Days, daySchedule{
			Date:       key,
			Shift:      shift,
			Overridden: overridden,
			Holidays:   holidays[key],
		})
	}

	h.successResponse(w, r, "查询成功", result)
}

// GetDaySchedule 返回单个日期的解析结果
func (h *Handler) GetDaySchedule(w http.ResponseWriter, r *http.Request) {
	date, err := domain.ParseDate(chi.URLParam(r, "date"))
	if err != nil {
		h.errorResponse(w, r, "无效的日期，应为 YYYY-MM-DD")
		return
	}

	history, err := h.repository.GetTeamHistory(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	overrides, err := h.repository.GetOverrides(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	shift, err := h.resolver.Resolve(date, history, overrides)
	if err != nil {
		unknownErr := &schedule.UnknownTeamError{}
		if errors.As(err, &unknownErr) {
			h.errorResponse(w, r, unknownErr.Error())
			return
		}
		h.internalServerError(w, r, err)
		return
	}

	holidays, err := h.holidays.Holidays(r.Context(), date.Year())
	if err != nil {
		slog.Warn("节假日数据加载失败", "year", date.Year(), "error", err)
		holidays = map[string][]string{}
	}

	key := domain.DateKey(date)
	_, overridden := overrides[key]

	h.successResponse(w, r, "查询成功", daySchedule{
		Date:       key,
		Shift:      shift,
		Overridden: overridden,
		Holidays:   holidays[key],
	})
}

// SetOverride 为某一天设置显式的班次覆盖
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date  string `json:"date" validate:"required"`
		Shift string `json:"shift" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if _, err := domain.ParseDate(req.Date); err != nil {
		h.errorResponse(w, r, "无效的日期，应为 YYYY-MM-DD")
		return
	}
	shift, err := domain.ParseShiftCode(req.Shift)
	if err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	if err := h.repository.SetOverride(r.Context(), req.Date, shift); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "覆盖已保存", nil)
}

// DeleteOverride 删除某一天的覆盖，让这一天回到模式计算的结果
func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := domain.ParseDate(date); err != nil {
		h.errorResponse(w, r, "无效的日期，应为 YYYY-MM-DD")
		return
	}

	if err := h.repository.DeleteOverride(r.Context(), date); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "覆盖已删除", nil)
}
