package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"ReportAssistant/internal/config"
	"ReportAssistant/internal/service/assistant"
	"ReportAssistant/internal/service/export"
	"ReportAssistant/internal/service/history"
	"ReportAssistant/internal/service/report"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Кнопки основной клавиатуры
const (
	btnNextStudent = "➡️ Следующий ученик"
	btnExportExcel = "📊 Экспорт в Excel"
)

// Transcriber распознаёт голосовые сообщения.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// Bot — транспортный адаптер Telegram: принимает текст, голос и фото,
// прогоняет их через ассистента и отправляет ответы обратно.
type Bot struct {
	api       *tgbotapi.BotAPI
	assistant *assistant.Assistant
	parser    *report.Parser
	exporter  *export.Exporter
	stt       Transcriber // nil — голосовые сообщения не настроены
	cfg       *config.Config
	logger    *zap.SugaredLogger
	http      *http.Client
}

func New(cfg *config.Config, asst *assistant.Assistant, parser *report.Parser, exporter *export.Exporter, stt Transcriber, logger *zap.SugaredLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	api.Debug = cfg.DebugMode
	return &Bot{
		api:       api,
		assistant: asst,
		parser:    parser,
		exporter:  exporter,
		stt:       stt,
		cfg:       cfg,
		logger:    logger,
		http:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Run запускает long polling до отмены контекста. Каждое входящее сообщение
// обрабатывается в отдельной горутине; порядок реплик одного пользователя
// обеспечивается сериализацией в истории.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Infow("Telegram connected", "as", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return context.Cause(ctx)
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message == nil {
				continue
			}
			go b.dispatch(ctx, upd.Message)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message) {
	switch {
	case msg.IsCommand():
		switch msg.Command() {
		case "start":
			b.handleStart(msg)
		case "clear":
			b.handleClear(msg)
		case "history":
			b.handleHistory(msg)
		}
	case msg.Text == btnNextStudent:
		b.handleNextStudent(msg)
	case msg.Text == btnExportExcel:
		b.handleExport(msg)
	case msg.Voice != nil:
		b.handleVoice(ctx, msg)
	case len(msg.Photo) > 0:
		b.handlePhoto(msg)
	case msg.Text != "":
		b.handleText(ctx, msg)
	}
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	userID := msg.From.ID
	b.assistant.NewSubject(userID) // очищаем историю при старте

	b.send(msg.Chat.ID,
		"👋 Привет! Я ИИ-ассистент преподавателей образовательного центра «Логос».\n\n"+
			"📝 Я помогу вам составить структурированный отчёт для родителей.\n\n"+
			"🎤 Чтобы сделать отчет, запишите голосовым сообщением ваше впечатление о работе ученика по следующим пунктам.")

	b.send(msg.Chat.ID,
		"📋 Структура отчёта (8 пунктов):\n\n"+
			"1. Работа ученика на занятиях. Общее впечатление за месяц "+
			"(вовлеченность в процесс занятия, каким образом проявлял активность за месяц)\n\n"+
			"2. Работа с домашними заданиями (впечатление от качества выполнения домашних заданий за месяц)\n\n"+
			"3. Комментарий к экзаменационной работе\n\n"+
			"4. Ожидаемый результат на этот месяц\n\n"+
			"5. Причины отсутствия прироста и неудовлетворительного результата\n\n"+
			"6. Рекомендации на будущий месяц ребёнку\n\n"+
			"7. Рекомендации родителям\n\n"+
			"8. Дополнительные комментарии\n\n"+
			"━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n"+
			"⚠️ Важно:\n"+
			"• Обязательно скажите, про кого идет речь и какой месяц.\n"+
			"• Отчёт получится лучше, если будете записывать с экзаменационной работой на руках.\n"+
			"• Старайтесь рассказывать подробно в баллах и в номерах заданий — обязательно упомяните.")
}

func (b *Bot) handleNextStudent(msg *tgbotapi.Message) {
	b.assistant.NewSubject(msg.From.ID)

	b.send(msg.Chat.ID,
		"✅ Переходим к следующему ученику!\n\n"+
			"История предыдущего отчёта очищена.")

	b.send(msg.Chat.ID,
		"📋 Структура отчёта (8 пунктов):\n\n"+
			"1. Работа ученика на занятиях\n"+
			"2. Работа с домашними заданиями\n"+
			"3. Комментарий к экзаменационной работе\n"+
			"4. Ожидаемый результат на этот месяц\n"+
			"5. Причины отсутствия прироста\n"+
			"6. Рекомендации ребёнку\n"+
			"7. Рекомендации родителям\n"+
			"8. Дополнительные комментарии\n\n"+
			"━━━━━━━━━━━━━━━━━━━━━━━━\n\n"+
			"💬 Какой месяц отчёта?\n"+
			"💬 Как зовут ученика?")
}

func (b *Bot) handleClear(msg *tgbotapi.Message) {
	b.assistant.NewSubject(msg.From.ID)
	b.send(msg.Chat.ID,
		"🗑️ История диалога очищена!\n\n"+
			"Начинаем разговор с чистого листа.")
}

func (b *Bot) handleHistory(msg *tgbotapi.Message) {
	turns := b.assistant.History(msg.From.ID)
	if len(turns) == 0 {
		b.send(msg.Chat.ID, "📭 История диалога пуста.")
		return
	}
	var userMsgs, assistantMsgs int
	for _, t := range turns {
		switch t.Role {
		case history.RoleUser:
			userMsgs++
		case history.RoleAssistant:
			assistantMsgs++
		}
	}
	b.send(msg.Chat.ID, fmt.Sprintf(
		"📊 История диалога:\n\n"+
			"💬 Ваших сообщений: %d\n"+
			"🤖 Ответов бота: %d\n"+
			"📝 Всего в контексте: %d сообщений",
		userMsgs, assistantMsgs, len(turns)))
}

func (b *Bot) handleText(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	b.logger.Infow("Получено текстовое сообщение", "user", userID)

	_, _ = b.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping))

	reply, err := b.assistant.HandleUtterance(ctx, userID, msg.Text)
	if err != nil {
		b.logger.Errorw("Ошибка при обработке текстового сообщения", "user", userID, "error", err)
		b.send(msg.Chat.ID, "❌ Произошла ошибка при обработке запроса. Попробуйте позже.")
		return
	}
	b.sendLong(msg.Chat.ID, reply)
}

func (b *Bot) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	b.logger.Infow("Получено голосовое сообщение", "user", userID)

	if b.stt == nil {
		b.send(msg.Chat.ID,
			"🎤 Голосовые сообщения не настроены.\n\n"+
				"📝 Для использования голосовых сообщений необходимо:\n"+
				"1. Получить Groq API ключ: https://console.groq.com/keys\n"+
				"2. Добавить его в .env файл: GROQ_API_KEY=ваш_ключ\n\n"+
				"💬 А пока отправьте ваш вопрос текстом!")
		return
	}

	b.send(msg.Chat.ID, "🎤 Обрабатываю голосовое сообщение...")

	text, err := b.transcribeVoice(ctx, msg.Voice.FileID)
	if err != nil {
		b.logger.Errorw("Ошибка при обработке голосового сообщения", "user", userID, "error", err)
		b.send(msg.Chat.ID, "❌ Не удалось распознать речь. Попробуйте еще раз или отправьте текстовое сообщение.")
		return
	}
	b.logger.Infow("Транскрибированный текст", "user", userID, "text", text)

	reply, err := b.assistant.HandleUtterance(ctx, userID, text)
	if err != nil {
		b.logger.Errorw("Ошибка при обработке запроса", "user", userID, "error", err)
		b.send(msg.Chat.ID, "❌ Произошла ошибка при обработке запроса. Попробуйте позже.")
		return
	}
	// Отправляем только ответ бота, без расшифровки
	b.sendLong(msg.Chat.ID, reply)
}

// transcribeVoice скачивает голосовой файл Telegram и отдаёт его в распознавание.
// Конвертация формата не нужна: Whisper принимает ogg/opus как есть.
func (b *Bot) transcribeVoice(ctx context.Context, fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("telegram: не удалось получить ссылку на файл: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("telegram: не удалось скачать голосовое сообщение: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("telegram: скачивание голосового сообщения: статус %d", resp.StatusCode)
	}
	return b.stt.Transcribe(ctx, resp.Body, "voice.oga")
}

func (b *Bot) handlePhoto(msg *tgbotapi.Message) {
	userID := msg.From.ID
	b.logger.Infow("Получено фото", "user", userID)

	b.send(msg.Chat.ID, "📷 Фото получено! Можете добавить текстовый или голосовой комментарий.")

	// Фото в LLM не уходит, но факт отправки фиксируем в истории
	note := "[Пользователь отправил фото экзаменационной работы/материала]"
	if msg.Caption != "" {
		note += "\nПодпись к фото: " + msg.Caption
	}
	b.assistant.NoteUser(userID, note)
}

func (b *Bot) handleExport(msg *tgbotapi.Message) {
	userID := msg.From.ID
	turns := b.assistant.History(userID)
	b.logger.Infow("Экспорт Excel", "user", userID, "turns", len(turns))

	if len(turns) == 0 {
		b.send(msg.Chat.ID, "❌ История пуста! Нечего экспортировать.")
		return
	}
	if !report.HasFinalReport(turns) {
		b.send(msg.Chat.ID,
			"❌ Финальный отчёт еще не создан!\n\n"+
				"Пожалуйста, заполните все 8 пунктов отчёта в диалоге с ботом, "+
				"затем попробуйте экспорт снова.")
		return
	}

	b.send(msg.Chat.ID, "⏳ Формирую отчёт в Excel, подождите...")

	rep, ok := b.parser.TryExtract(turns)
	if !ok {
		b.send(msg.Chat.ID, "❌ Финальный отчёт еще не создан! Попробуйте экспорт снова.")
		return
	}

	now := time.Now()
	path, err := b.exporter.Render(rep, userID, now)
	if err != nil {
		b.logger.Errorw("Ошибка при создании Excel файла", "user", userID, "error", err)
		b.send(msg.Chat.ID, "❌ Произошла ошибка при создании Excel файла. Попробуйте позже.")
		return
	}

	caption := "📊 Отчёт преподавателя"
	if rep.StudentName != "" {
		caption += " - " + rep.StudentName
	}
	caption += "\n📅 " + now.Format("02.01.2006 15:04")

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(path))
	doc.Caption = caption
	doc.ReplyMarkup = mainKeyboard()
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Errorw("Ошибка при отправке Excel файла", "user", userID, "error", err)
		b.send(msg.Chat.ID, "❌ Произошла ошибка при отправке файла. Попробуйте позже.")
		return
	}

	// Временный файл больше не нужен
	if err := os.Remove(path); err != nil {
		b.logger.Warnw("Не удалось удалить временный файл", "path", path, "error", err)
	}
	b.logger.Infow("Excel файл отправлен и удален", "path", path)
}

// sendLong отправляет ответ, разбивая его на нумерованные части с паузой между ними.
func (b *Bot) sendLong(chatID int64, text string) {
	parts := assistant.Split(text, b.cfg.MaxMessageLength, b.cfg.SplitTarget)
	for i, part := range parts {
		out := part
		if len(parts) > 1 {
			out = fmt.Sprintf("📄 Часть %d/%d:\n\n%s", i+1, len(parts), part)
		}
		b.send(chatID, out)
		if i < len(parts)-1 {
			time.Sleep(b.cfg.ChunkDelay)
		}
	}
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Errorw("Не удалось отправить сообщение", "chat", chatID, "error", err)
	}
}

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnNextStudent),
			tgbotapi.NewKeyboardButton(btnExportExcel),
		),
	)
}
