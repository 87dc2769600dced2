package config

import (
	"errors"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	Server      struct {
		Port            string `env:"PORT" envDefault:"3000"`
		ReadTimeout     int    `env:"READ_TIMEOUT" envDefault:"10"`
		WriteTimeout    int    `env:"WRITE_TIMEOUT" envDefault:"15"`
		IdleTimeout     int    `env:"IDLE_TIMEOUT" envDefault:"60"`
		ShutdownTimeout int    `env:"SHUTDOWN_TIMEOUT" envDefault:"10"`
	} `envPrefix:"SERVER_"`
	Schedule struct {
		Timezone    string `env:"TIMEZONE" envDefault:"Asia/Seoul"`
		DefaultTeam string `env:"DEFAULT_TEAM" envDefault:"A"`
	} `envPrefix:"SCHEDULE_"`
	DocStore struct {
		// backend 可以是 github 或 postgres，两者实现相同的乐观并发语义
		Backend string `env:"BACKEND" envDefault:"github"`
	} `envPrefix:"DOCSTORE_"`
	GitHub struct {
		Token            string `env:"TOKEN"`
		Repo             string `env:"REPO"`
		SchedulePath     string `env:"SCHEDULE_PATH" envDefault:"shift_schedule.json"`
		TeamSettingsPath string `env:"TEAM_SETTINGS_PATH" envDefault:"team_settings.json"`
		AlarmPath        string `env:"ALARM_PATH" envDefault:"alarm_schedule.json"`
		RequestTimeout   int    `env:"REQUEST_TIMEOUT" envDefault:"10"`
	} `envPrefix:"GITHUB_"`
	Database struct {
		DSN            string `env:"DSN"`
		ConnectTimeout int    `env:"CONNECT_TIMEOUT" envDefault:"10"`
		QueryTimeout   int    `env:"QUERY_TIMEOUT" envDefault:"10"`
		MaxOpenConns   int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
		MaxIdleConns   int    `env:"MAX_IDLE_CONNS" envDefault:"10"`
		MaxIdleTime    int    `env:"MAX_IDLE_TIME" envDefault:"60"`
	} `envPrefix:"DATABASE_"`
	Telegram struct {
		BotToken       string `env:"BOT_TOKEN,required"`
		ChatID         string `env:"CHAT_ID,required"`
		RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"10"`
	} `envPrefix:"TELEGRAM_"`
	RabbitMQ struct {
		DSN            string `env:"DSN,required"`
		PublishTimeout int    `env:"PUBLISH_TIMEOUT" envDefault:"10"`
	} `envPrefix:"RABBITMQ_"`
	Redis struct {
		Host              string `env:"HOST" envDefault:"localhost"`
		Port              int    `env:"PORT" envDefault:"6379"`
		Password          string `env:"PASSWORD" envDefault:""`
		OperationTimeout  int    `env:"OPERATION_TIMEOUT" envDefault:"10"`
		HolidayExpiration int    `env:"HOLIDAY_EXPIRATION" envDefault:"86400"` // 24 小时
	} `envPrefix:"REDIS_"`
	Auth struct {
		Password      string `env:"PASSWORD,required"`
		JWTSecret     string `env:"JWT_SECRET,required"`
		JWTExpiration int    `env:"JWT_EXPIRATION" envDefault:"1209600"` // 14 天
	} `envPrefix:"AUTH_"`
	Alarm struct {
		Tolerance int `env:"TOLERANCE" envDefault:"60"` // 允许的触发时间误差（秒），用于覆盖 cron 的抖动
	} `envPrefix:"ALARM_"`
	Holiday struct {
		APIKey         string `env:"API_KEY"`
		RequestTimeout int    `env:"REQUEST_TIMEOUT" envDefault:"10"`
	} `envPrefix:"HOLIDAY_"`
	Email struct {
		SMTP struct {
			Username    string `env:"USERNAME"`
			Password    string `env:"PASSWORD"`
			Host        string `env:"HOST"`
			Port        int    `env:"PORT" envDefault:"465"`
			DialTimeout int    `env:"DIAL_TIMEOUT" envDefault:"10"`
		} `envPrefix:"SMTP_"`
	} `envPrefix:"EMAIL_"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		aggErr := env.AggregateError{}
		if ok := errors.As(err, &aggErr); ok {
			// 只返回第一个错误使得日志更清晰
			return nil, aggErr.Errors[0]
		}
	}

	return cfg, nil
}
