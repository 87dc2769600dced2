package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/alarm"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/config"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/docstore"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/domain"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/notifier"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/repository"
	"github.com/shiftcal-dev/shift-calendar/backend/internal/schedule"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// tick 由外部的 cron 每分钟拉起一次：解析今天和昨天的班次，
// 评估报警规则，把命中的规则投到通知队列后退出。
// 文档读取失败时整个 tick 放弃，下一分钟的 tick 会重试
func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法加载配置文件", "error", err)
		os.Exit(1)
	}

	location, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		logger.Error("无法加载时区", "timezone", cfg.Schedule.Timezone, "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * 创建文档存储
	 **********************************************/
	var store docstore.Store
	switch cfg.DocStore.Backend {
	case "github":
		store = docstore.NewGitHubStore(cfg)
	case "postgres":
		dbpool, err := sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			logger.Error("无法创建数据库连接池", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()

		store = docstore.NewPostgresStore(cfg, dbpool)
	default:
		logger.Error("无效的文档存储后端", "backend", cfg.DocStore.Backend)
		os.Exit(1)
	}

	repo := repository.NewRepository(cfg, store)
	resolver := schedule.NewResolver(domain.DefaultPatterns(), cfg.Schedule.DefaultTeam)

	ctx := context.Background()
	now := time.Now().In(location)

	/**********************************************
	 * 读取文档并解析今天和昨天的班次
	 **********************************************/
	history, err := repo.GetTeamHistory(ctx)
	if err != nil {
		logger.Error("无法读取队伍历史，放弃本次评估", "error", err)
		os.Exit(1)
	}
	overrides, err := repo.GetOverrides(ctx)
	if err != nil {
		logger.Error("无法读取覆盖表，放弃本次评估", "error", err)
		os.Exit(1)
	}
	sched, err := repo.GetAlarmSchedule(ctx)
	if err != nil {
		logger.Error("无法读取报警配置，放弃本次评估", "error", err)
		os.Exit(1)
	}

	todayShift := resolveOrEmpty(resolver, now, history, overrides)
	yesterdayShift := resolveOrEmpty(resolver, now.AddDate(0, 0, -1), history, overrides)

	/**********************************************
	 * 评估报警规则
	 **********************************************/
	engine := alarm.NewEngine(time.Duration(cfg.Alarm.Tolerance) * time.Second)
	matches := engine.Evaluate(now, sched, todayShift, yesterdayShift)
	if len(matches) == 0 {
		logger.Info("本次评估没有命中的报警", "time", now.Format("15:04"))
		return
	}

	/**********************************************
	 * 用 redis 标记收窄重复发送的窗口
	 **********************************************/
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})
	marker := alarm.NewMarker(rdb)

	pending := make([]alarm.Match, 0, len(matches))
	for _, match := range matches {
		markerCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Redis.OperationTimeout)*time.Second)
		fired, err := marker.AlreadyFired(markerCtx, now, match)
		cancel()
		if err != nil {
			// redis 挂了就退化为 at-least-once，照常投递
			logger.Warn("无法检查去重标记，照常投递", "section", match.Section, "error", err)
			pending = append(pending, match)
			continue
		}
		if fired {
			logger.Info("报警今天已经发过，跳过", "section", match.Section, "time", match.Time)
			continue
		}
		pending = append(pending, match)
	}
	if len(pending) == 0 {
		return
	}

	/**********************************************
	 * 连接 rabbitmq 并投递通知
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 rabbitmq", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法建立通道", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	if _, err := notifier.DeclareNotificationQueue(ch); err != nil {
		logger.Error("无法声明队列", "error", err)
		os.Exit(1)
	}

	msgs := make([]domain.NotificationMessage, 0, len(pending))
	for _, match := range pending {
		channel := match.Channel
		if channel == "" {
			channel = domain.ChannelTelegram
		}
		msgs = append(msgs, domain.NotificationMessage{
			Channel: channel,
			Text:    match.Message,
			To:      match.To,
		})
	}

	publisher := notifier.NewQueuePublisher(cfg, ch)
	sent := notifier.DispatchAll(ctx, publisher, msgs)
	logger.Info("本次评估完成", "matched", len(matches), "sent", sent)
}

// resolveOrEmpty 把"队伍未知"降级为空班次：
// 依赖班次判定的规则不命中，custom 规则仍然正常评估
func resolveOrEmpty(resolver *schedule.Resolver, date time.Time, history []domain.TeamRecord, overrides domain.OverrideMap) domain.ShiftCode {
	shift, err := resolver.Resolve(date, history, overrides)
	if err != nil {
		slog.Warn("班次解析失败，按未知班次处理", "date", domain.DateKey(date), "error", err)
		return ""
	}
	return shift
}
