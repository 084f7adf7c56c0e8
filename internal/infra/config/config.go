package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
// Загружается один раз при старте и дальше не изменяется.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	TZ          string `envconfig:"TZ" default:"Asia/Taipei"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	Line struct {
		ChannelSecret string        `envconfig:"LINE_CHANNEL_SECRET"`
		ChannelToken  string        `envconfig:"LINE_CHANNEL_TOKEN"`
		APIBaseURL    string        `envconfig:"LINE_API_BASE_URL" default:"https://api.line.me"`
		Timeout       time.Duration `envconfig:"LINE_TIMEOUT" default:"15s"`
	} `envconfig:""`

	OpenAI struct {
		APIKey         string        `envconfig:"OPENAI_API_KEY"`
		BaseURL        string        `envconfig:"OPENAI_BASE_URL"`
		Model          string        `envconfig:"OPENAI_MODEL" default:"gpt-4.1-mini"`
		TranslateModel string        `envconfig:"OPENAI_TRANSLATE_MODEL" default:"gpt-4.1-mini"`
		Timeout        time.Duration `envconfig:"OPENAI_TIMEOUT" default:"30s"`
	} `envconfig:""`

	Kagi struct {
		APIKey         string        `envconfig:"KAGI_API_KEY"`
		BaseURL        string        `envconfig:"KAGI_BASE_URL" default:"https://kagi.com/api/v0"`
		Engine         string        `envconfig:"KAGI_ENGINE" default:"cecil"`
		TargetLanguage string        `envconfig:"KAGI_TARGET_LANGUAGE" default:"EN"`
		Timeout        time.Duration `envconfig:"KAGI_TIMEOUT" default:"30s"`
	} `envconfig:""`

	Feed struct {
		URL         string        `envconfig:"FEED_URL" default:"https://www.daemonology.net/hn-daily/index.rss"`
		MaxAttempts int           `envconfig:"FEED_MAX_ATTEMPTS" default:"4"`
		BaseDelay   time.Duration `envconfig:"FEED_BASE_DELAY" default:"500ms"`
		MaxDelay    time.Duration `envconfig:"FEED_MAX_DELAY" default:"5s"`
		MaxElapsed  time.Duration `envconfig:"FEED_MAX_ELAPSED" default:"30s"`
		CacheTTL    time.Duration `envconfig:"FEED_CACHE_TTL" default:"5m"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`

	Broadcast struct {
		Concurrency  int           `envconfig:"BROADCAST_CONCURRENCY" default:"4"`
		BatchTimeout time.Duration `envconfig:"BROADCAST_BATCH_TIMEOUT" default:"90s"`
		MaxStories   int           `envconfig:"BROADCAST_MAX_STORIES" default:"10"`
		DailyTime    string        `envconfig:"BROADCAST_DAILY_TIME" default:"08:00"`
		QueueKey     string        `envconfig:"BROADCAST_QUEUE_KEY" default:"broadcast_jobs"`
	} `envconfig:""`

	PromptsFile string `envconfig:"PROMPTS_FILE"`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
