package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"ReportAssistant/internal/adapter/telegram"
	"ReportAssistant/internal/ai"
	"ReportAssistant/internal/config"
	"ReportAssistant/internal/service/assistant"
	"ReportAssistant/internal/service/export"
	"ReportAssistant/internal/service/history"
	"ReportAssistant/internal/service/report"
	"ReportAssistant/internal/service/stt/groq"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	// Проверяем наличие необходимых переменных окружения
	if cfg.TelegramToken == "" {
		sugar.Fatalw("TELEGRAM_BOT_TOKEN не установлен в .env файле!")
	}
	if cfg.OpenRouterAPIKey == "" {
		sugar.Fatalw("OPENROUTER_API_KEY не установлен в .env файле!")
	}

	// Загружаем системный промпт
	promptBytes, err := os.ReadFile(cfg.PromptFile)
	if err != nil {
		sugar.Fatalw("Не удалось загрузить системный промпт. Бот не может работать.", "file", cfg.PromptFile, "error", err)
	}
	systemPrompt := strings.TrimSpace(string(promptBytes))
	if systemPrompt == "" {
		sugar.Fatalw("Файл системного промпта пуст", "file", cfg.PromptFile)
	}
	sugar.Infow("Системный промпт загружен", "file", cfg.PromptFile)

	store := history.New(cfg.MaxHistoryMessages)
	llm := ai.NewClient(cfg, sugar)
	asst := assistant.New(store, llm, systemPrompt, sugar)
	parser := report.NewParser(sugar)
	exporter := export.New(cfg.ExportDir, sugar)

	// Голосовые сообщения работают только при настроенном Groq
	var stt telegram.Transcriber
	if cfg.GroqAPIKey != "" {
		client, err := groq.New(groq.Config{APIKey: cfg.GroqAPIKey, BaseURL: cfg.GroqBaseURL}, sugar)
		if err != nil {
			sugar.Fatalw("Не удалось создать клиент распознавания речи", "error", err)
		}
		stt = client
		sugar.Infow("Groq API ключ обнаружен - голосовые сообщения включены")
	} else {
		sugar.Warnw("Groq API ключ не установлен - голосовые сообщения отключены")
	}

	bot, err := telegram.New(cfg, asst, parser, exporter, stt, sugar)
	if err != nil {
		sugar.Fatalw("Не удалось создать Telegram-бота", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("Запуск бота", "model", cfg.OpenRouterModel, "maxHistory", cfg.MaxHistoryMessages)
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		sugar.Errorw("Бот завершился с ошибкой", "error", err)
		return
	}
	sugar.Infow("Бот остановлен")
}
