package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/notifier"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/repository"
)

// GetAlarmSchedule 返回完整的报警配置
func (h *Handler) GetAlarmSchedule(w http.ResponseWriter, r *http.Request) {
	sched, err := h.repository.GetAlarmSchedule(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "查询成功", sched)
}

// AddTimedRule 向 weekday/night_today/night_next 分区追加规则
func (h *Handler) AddTimedRule(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	switch section {
	case repository.SectionWeekday, repository.SectionNightToday, repository.SectionNightNext:
	default:
		h.errorResponse(w, r, "无效的报警分区: "+section)
		return
	}

	var req struct {
		Time    string `json:"time" validate:"required"`
		Message string `json:"message" validate:"required"`
		Channel string `json:"channel" validate:"omitempty,oneof=telegram email"`
		To      string `json:"to" validate:"omitempty,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		h.errorResponse(w, r, "无效的时间，应为 HH:MM")
		return
	}

	rule := domain.TimedRule{
		Time:    req.Time,
		Message: req.Message,
		Channel: req.Channel,
		To:      req.To,
	}
	if err := h.repository.AddTimedRule(r.Context(), section, rule); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "报警规则已追加", nil)
}

// AddDatedRule 追加一条特定日期触发的规则
func (h *Handler) AddDatedRule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date    string `json:"date" validate:"required"`
		Time    string `json:"time" validate:"required"`
		Message string `json:"message" validate:"required"`
		Channel string `json:"channel" validate:"omitempty,oneof=telegram email"`
		To      string `json:"to" validate:"omitempty,email"`
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
	if _, err := time.Parse("15:04", req.Time); err != nil {
		h.errorResponse(w, r, "无效的时间，应为 HH:MM")
		return
	}

	rule := domain.DatedRule{
		Date:    req.Date,
		Time:    req.Time,
		Message: req.Message,
		Channel: req.Channel,
		To:      req.To,
	}
	if err := h.repository.AddDatedRule(r.Context(), rule); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "报警规则已追加", nil)
}

// DeleteAlarmRule 按分区和下标删除一条规则
func (h *Handler) DeleteAlarmRule(w http.ResponseWriter, r *http.Request) {
	section := chi.URLParam(r, "section")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.errorResponse(w, r, "无效的规则下标")
		return
	}

	if err := h.repository.DeleteAlarmRule(r.Context(), section, index); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.successResponse(w, r, "报警规则已删除", nil)
}

// SendTestNotification 投递一条测试消息，用于验证 worker 和出站渠道是否正常
func (h *Handler) SendTestNotification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Channel string `json:"channel" validate:"omitempty,oneof=telegram email"`
		To      string `json:"to" validate:"omitempty,email"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	channel := req.Channel
	if channel == "" {
		channel = domain.ChannelTelegram
	}

	publisher := notifier.NewQueuePublisher(h.config, h.notifyChannel)
	msg := domain.NotificationMessage{
		Channel: channel,
		Text:    "测试通知：如果你看到这条消息，说明通知链路工作正常",
		To:      req.To,
	}
	if err := publisher.Dispatch(r.Context(), msg); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "测试通知已投递", nil)
}
