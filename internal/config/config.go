package config

import (
	"flag"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	DebugMode bool `env:"DEBUG_MODE"` //Режим дебага

	TelegramToken      string `env:"TELEGRAM_BOT_TOKEN"`   // Токен Telegram-бота
	PollTimeoutSeconds int    `env:"POLL_TIMEOUT_SECONDS"` // Таймаут long polling Telegram, в секундах

	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`  // Ключ OpenRouter
	OpenRouterModel   string `env:"OPENROUTER_MODEL"`    // Модель LLM, напр. anthropic/claude-3.5-haiku
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL"` // Базовый URL OpenAI-совместимого API
	MaxTokens         int    `env:"MAX_TOKENS"`          // Лимит токенов ответа LLM

	GroqAPIKey  string `env:"GROQ_API_KEY"`  // Ключ Groq для Whisper; пусто — голосовые сообщения отключены
	GroqBaseURL string `env:"GROQ_BASE_URL"` // Базовый URL Groq (OpenAI-совместимый)

	PromptFile         string `env:"PROMPT_FILE"`          // Файл с системным промптом
	MaxHistoryMessages int    `env:"MAX_HISTORY_MESSAGES"` // Максимум сообщений в истории диалога

	MaxMessageLength int           `env:"MAX_MESSAGE_LENGTH"` // Потолок длины исходящего сообщения
	SplitTarget      int           `env:"SPLIT_TARGET"`       // Целевая длина части при разбиении (с запасом под префикс)
	ChunkDelay       time.Duration `env:"CHUNK_DELAY"`        // Пауза между частями длинного ответа

	ExportDir string `env:"EXPORT_DIR"` // Папка для временных Excel-файлов
}

// Defaults возвращает конфигурацию с предустановленными значениями по умолчанию.
// Эти значения перекрываются .env, переменными окружения и флагами CLI.
func Defaults() *Config {
	return &Config{
		DebugMode:          false,
		PollTimeoutSeconds: 60,
		OpenRouterModel:    "anthropic/claude-3.5-haiku",
		OpenRouterBaseURL:  "https://openrouter.ai/api/v1",
		MaxTokens:          4000,
		GroqBaseURL:        "https://api.groq.com/openai/v1",
		PromptFile:         "prompt.md",
		MaxHistoryMessages: 10,
		MaxMessageLength:   4096,
		SplitTarget:        4000,
		ChunkDelay:         500 * time.Millisecond,
		ExportDir:          ".",
	}
}

// NewConfig загружает конфигурацию приложения.
func NewConfig() *Config {
	_ = godotenv.Load()

	// Стартуем с дефолтов, затем перекрываем .env/окружением и флагами
	cfg := Defaults()
	_ = env.Parse(cfg)

	flag.BoolVar(&cfg.DebugMode, "debug-mode", cfg.DebugMode, "включить режим дебага для отображения доп. инфы")
	flag.IntVar(&cfg.PollTimeoutSeconds, "poll-timeout-seconds", cfg.PollTimeoutSeconds, "таймаут long polling Telegram в секундах")
	flag.StringVar(&cfg.OpenRouterModel, "openrouter-model", cfg.OpenRouterModel, "модель LLM в OpenRouter")
	flag.StringVar(&cfg.OpenRouterBaseURL, "openrouter-base-url", cfg.OpenRouterBaseURL, "базовый URL OpenAI-совместимого API")
	flag.IntVar(&cfg.MaxTokens, "max-tokens", cfg.MaxTokens, "лимит токенов ответа LLM")
	flag.StringVar(&cfg.GroqBaseURL, "groq-base-url", cfg.GroqBaseURL, "базовый URL Groq Whisper API")
	flag.StringVar(&cfg.PromptFile, "prompt-file", cfg.PromptFile, "путь к файлу с системным промптом")
	flag.IntVar(&cfg.MaxHistoryMessages, "max-history-messages", cfg.MaxHistoryMessages, "максимум хранимых сообщений в истории диалога")
	flag.IntVar(&cfg.MaxMessageLength, "max-message-length", cfg.MaxMessageLength, "потолок длины исходящего сообщения")
	flag.IntVar(&cfg.SplitTarget, "split-target", cfg.SplitTarget, "целевая длина части при разбиении длинного ответа")
	flag.DurationVar(&cfg.ChunkDelay, "chunk-delay", cfg.ChunkDelay, "пауза между частями длинного ответа, напр. 500ms")
	flag.StringVar(&cfg.ExportDir, "export-dir", cfg.ExportDir, "папка для временных Excel-файлов")
	flag.Parse()

	return cfg
}
