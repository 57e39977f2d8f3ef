// Package config provides configuration loading, validation, and defaults
// for studybuddy. Values come from defaults, an optional YAML file, a .env
// file and STUDY_* environment variables, in increasing priority.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Config holds the configuration of every studybuddy component.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Server    ServerConfig    `mapstructure:"server"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	YouTube   YouTubeConfig   `mapstructure:"youtube"`
	Exam      ExamConfig      `mapstructure:"exam"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	Mode            string        `mapstructure:"mode"             validate:"oneof=debug release test"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"     validate:"min=1s"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"    validate:"min=1s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"  validate:"min=1"`
}

// GeminiConfig configures the hosted model. The API key is checked when the
// client is built so commands that never call the model can run without it.
type GeminiConfig struct {
	APIKey               string        `mapstructure:"api_key"`
	ModelName            string        `mapstructure:"model_name"             validate:"required"`
	Temperature          float32       `mapstructure:"temperature"            validate:"min=0,max=2"`
	SystemInstruction    string        `mapstructure:"system_instruction"`
	MaxRetries           int           `mapstructure:"max_retries"            validate:"min=0,max=10"`
	RetryDelaySeconds    int           `mapstructure:"retry_delay_seconds"    validate:"min=0,max=60"`
	Timeout              time.Duration `mapstructure:"timeout"                validate:"min=1s,max=10m"`
	BreakerMaxFailures   int           `mapstructure:"breaker_max_failures"   validate:"min=1"`
	BreakerResetInterval time.Duration `mapstructure:"breaker_reset_interval" validate:"min=1s"`
}

type YouTubeConfig struct {
	BaseURL           string        `mapstructure:"base_url"            validate:"required,url"`
	Languages         []string      `mapstructure:"languages"           validate:"min=1,dive,required"`
	UserAgent         string        `mapstructure:"user_agent"          validate:"required"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"     validate:"min=1s"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gt=0"`
	Burst             int           `mapstructure:"burst"               validate:"min=1"`
	MaxRetries        int           `mapstructure:"max_retries"         validate:"min=0,max=10"`
}

type ExamConfig struct {
	QuestionCount int           `mapstructure:"question_count" validate:"min=1,max=50"`
	ReportPath    string        `mapstructure:"report_path"    validate:"required"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"    validate:"min=1m"`
}

// MemoryConfig selects the conversation buffer backend.
type MemoryConfig struct {
	Backend    string        `mapstructure:"backend"     validate:"oneof=memory sqlite"`
	WindowSize int           `mapstructure:"window_size" validate:"min=1,max=200"`
	Retention  time.Duration `mapstructure:"retention"   validate:"min=1m"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// CacheConfig configures the transcript cache. An empty RedisURL disables the
// Redis tier.
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"         validate:"min=1s"`
	MaxEntries int           `mapstructure:"max_entries" validate:"min=1"`
	RedisURL   string        `mapstructure:"redis_url"   validate:"omitempty,url"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" validate:"min=1"`
	Burst             int  `mapstructure:"burst"               validate:"min=1"`
}

type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule" validate:"required_if=Enabled true"`
}

type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TelegramConfig configures the optional Telegram front end. BotInfo is filled
// at runtime from getMe.
type TelegramConfig struct {
	Enabled     bool         `mapstructure:"enabled"`
	Token       string       `mapstructure:"token"         validate:"required_if=Enabled true"`
	AdminUserID int64        `mapstructure:"admin_user_id" validate:"min=0"`
	BotInfo     *models.User `mapstructure:"-"`
}

type MessagesConfig struct {
	Welcome         string `mapstructure:"welcome"           validate:"required"`
	Help            string `mapstructure:"help"              validate:"required"`
	GeneralError    string `mapstructure:"general_error"     validate:"required"`
	Unauthorized    string `mapstructure:"unauthorized"      validate:"required"`
	ProvideArgs     string `mapstructure:"provide_args"      validate:"required"`
	NoActiveSession string `mapstructure:"no_active_session" validate:"required"`
	SessionStarted  string `mapstructure:"session_started"   validate:"required"`
	AllAnswered     string `mapstructure:"all_answered"      validate:"required"`
	Thinking        string `mapstructure:"thinking"          validate:"required"`
	ResetConfirm    string `mapstructure:"reset_confirm"     validate:"required"`
}
