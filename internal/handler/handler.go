package handler

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/holiday"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/repository"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/schedule"
	"golang.org/x/crypto/bcrypt"
)

type Handler struct {
	validate      *validator.Validate
	config        *config.Config
	repository    *repository.Repository
	translator    ut.Translator
	resolver      *schedule.Resolver
	holidays      *holiday.Client
	notifyChannel *amqp.Channel
	passwordHash  []byte
	location      *time.Location

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, resolver *schedule.Resolver, holidays *holiday.Client, notifyCh *amqp.Channel) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	// 配置中只保存明文口令，启动时生成一次哈希，登录时比对
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(cfg.Auth.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	location, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, err
	}

	return &Handler{
		validate:      validate,
		config:        cfg,
		repository:    repo,
		translator:    trans,
		resolver:      resolver,
		holidays:      holidays,
		notifyChannel: notifyCh,
		passwordHash:  passwordHash,
		location:      location,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 查看日历不需要登录
	h.Mux.Route("/schedule", func(r chi.Router) {
		r.Get("/{year}/{month}", h.GetMonthSchedule)
		r.Get("/days/{date}", h.GetDaySchedule)

		// 修改覆盖必须登录
		r.Group(func(r chi.Router) {
			r.Use(h.auth)
			r.Post("/overrides", h.SetOverride)
			r.Delete("/overrides/{date}", h.DeleteOverride)
		})
	})

	h.Mux.Route("/team-history", func(r chi.Router) {
		r.Get("/", h.GetTeamHistory)
		r.Group(func(r chi.Router) {
			r.Use(h.auth)
			r.Post("/", h.AddTeamRecord)
			r.Put("/", h.ReplaceTeamHistory)
		})
	})

	// 报警配置整体都在登录后才能访问
	h.Mux.Route("/alarms", func(r chi.Router) {
		r.Use(h.auth)
		r.Get("/", h.GetAlarmSchedule)
		r.Post("/timed/{section}", h.AddTimedRule)
		r.Post("/custom", h.AddDatedRule)
		r.Delete("/{section}/{index}", h.DeleteAlarmRule)
		r.Post("/test", h.SendTestNotification)
	})
}
