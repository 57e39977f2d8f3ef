package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration
const (
	DefaultLogLevel = "info"

	DefaultServerAddr            = ":8000"
	DefaultServerMode            = "release"
	DefaultServerReadTimeout     = 30 * time.Second
	DefaultServerWriteTimeout    = 5 * time.Minute // a final evaluation makes two model calls
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultGeminiModel                = "gemini-2.5-flash"
	DefaultGeminiTemperature          = 0.7
	DefaultGeminiMaxRetries           = 2
	DefaultGeminiRetryDelaySeconds    = 2
	DefaultGeminiTimeout              = 2 * time.Minute
	DefaultGeminiBreakerMaxFailures   = 5
	DefaultGeminiBreakerResetInterval = time.Minute

	DefaultYouTubeBaseURL           = "https://www.youtube.com"
	DefaultYouTubeUserAgent         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"
	DefaultYouTubeRequestTimeout    = 20 * time.Second
	DefaultYouTubeRequestsPerSecond = 2.0
	DefaultYouTubeBurst             = 4
	DefaultYouTubeMaxRetries        = 3

	DefaultExamQuestionCount = 15
	DefaultExamReportPath    = "exam_preparation.txt"
	DefaultExamSessionTTL    = 24 * time.Hour

	DefaultMemoryBackend    = "sqlite"
	DefaultMemoryWindowSize = 20
	DefaultMemoryRetention  = 7 * 24 * time.Hour

	DefaultDatabasePath = "studybuddy.db"

	DefaultCacheTTL        = 6 * time.Hour
	DefaultCacheMaxEntries = 256

	DefaultRateLimitRequestsPerMinute = 30
	DefaultRateLimitBurst             = 10
)

var DefaultAllowedOrigins = []string{"*"}

var DefaultYouTubeLanguages = []string{"en"}

// DefaultTasks lists the scheduled tasks enabled out of the box. Schedules use
// the six-field cron format with seconds.
var DefaultTasks = map[string]TaskConfig{
	"sql_maintenance":    {Enabled: true, Schedule: "0 0 4 * * *"},
	"conversation_prune": {Enabled: true, Schedule: "0 30 3 * * *"},
	"session_expiry":     {Enabled: true, Schedule: "0 */15 * * * *"},
	"cache_cleanup":      {Enabled: true, Schedule: "0 */5 * * * *"},
}

var DefaultMessages = MessagesConfig{
	Welcome:         "👋 Hi! Send /ask <youtube url> <question> to ask about a video, or /exam <topics> to practise for an exam.",
	Help:            "Commands:\n/ask <url> <question> - ask about a YouTube video\n/exam <topics> - start an exam session\n/skip - skip the current question\n/finish - final evaluation and notes\n/notes <topic> - study notes\n/reset - clear this chat's history",
	GeneralError:    "❌ Something went wrong. Please try again later.",
	Unauthorized:    "🚫 You are not authorized to use this command.",
	ProvideArgs:     "ℹ️ Missing arguments. See /help.",
	NoActiveSession: "ℹ️ No exam session in progress. Start one with /exam <topics>.",
	SessionStarted:  "📝 Exam started with %d questions. Reply with your answer, /skip to skip, /finish to end.",
	AllAnswered:     "✅ All questions answered. Send /finish for your evaluation and notes.",
	Thinking:        "⏳ Working on it...",
	ResetConfirm:    "🔄 Conversation history cleared.",
}

// setDefaults registers every key with viper. Keys without a default are not
// picked up from the environment by Unmarshal, so secrets get empty defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.mode", DefaultServerMode)
	v.SetDefault("server.read_timeout", DefaultServerReadTimeout)
	v.SetDefault("server.write_timeout", DefaultServerWriteTimeout)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)
	v.SetDefault("server.allowed_origins", DefaultAllowedOrigins)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", DefaultGeminiTemperature)
	v.SetDefault("gemini.system_instruction", "")
	v.SetDefault("gemini.max_retries", DefaultGeminiMaxRetries)
	v.SetDefault("gemini.retry_delay_seconds", DefaultGeminiRetryDelaySeconds)
	v.SetDefault("gemini.timeout", DefaultGeminiTimeout)
	v.SetDefault("gemini.breaker_max_failures", DefaultGeminiBreakerMaxFailures)
	v.SetDefault("gemini.breaker_reset_interval", DefaultGeminiBreakerResetInterval)

	v.SetDefault("youtube.base_url", DefaultYouTubeBaseURL)
	v.SetDefault("youtube.languages", DefaultYouTubeLanguages)
	v.SetDefault("youtube.user_agent", DefaultYouTubeUserAgent)
	v.SetDefault("youtube.request_timeout", DefaultYouTubeRequestTimeout)
	v.SetDefault("youtube.requests_per_second", DefaultYouTubeRequestsPerSecond)
	v.SetDefault("youtube.burst", DefaultYouTubeBurst)
	v.SetDefault("youtube.max_retries", DefaultYouTubeMaxRetries)

	v.SetDefault("exam.question_count", DefaultExamQuestionCount)
	v.SetDefault("exam.report_path", DefaultExamReportPath)
	v.SetDefault("exam.session_ttl", DefaultExamSessionTTL)

	v.SetDefault("memory.backend", DefaultMemoryBackend)
	v.SetDefault("memory.window_size", DefaultMemoryWindowSize)
	v.SetDefault("memory.retention", DefaultMemoryRetention)

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("cache.ttl", DefaultCacheTTL)
	v.SetDefault("cache.max_entries", DefaultCacheMaxEntries)
	v.SetDefault("cache.redis_url", "")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", DefaultRateLimitRequestsPerMinute)
	v.SetDefault("rate_limit.burst", DefaultRateLimitBurst)

	for name, task := range DefaultTasks {
		v.SetDefault("scheduler.tasks."+name+".enabled", task.Enabled)
		v.SetDefault("scheduler.tasks."+name+".schedule", task.Schedule)
	}

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_user_id", 0)

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.general_error", DefaultMessages.GeneralError)
	v.SetDefault("messages.unauthorized", DefaultMessages.Unauthorized)
	v.SetDefault("messages.provide_args", DefaultMessages.ProvideArgs)
	v.SetDefault("messages.no_active_session", DefaultMessages.NoActiveSession)
	v.SetDefault("messages.session_started", DefaultMessages.SessionStarted)
	v.SetDefault("messages.all_answered", DefaultMessages.AllAnswered)
	v.SetDefault("messages.thinking", DefaultMessages.Thinking)
	v.SetDefault("messages.reset_confirm", DefaultMessages.ResetConfirm)
}
