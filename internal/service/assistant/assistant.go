package assistant

import (
	"context"
	"time"

	"ReportAssistant/internal/service/history"

	"go.uber.org/zap"
)

// CompletionClient описывает внешний сервис LLM-завершений. Серверного состояния
// диалога нет: на каждый вызов уходит системный промпт и вся ограниченная история.
type CompletionClient interface {
	Complete(ctx context.Context, system string, turns []history.Turn) (string, error)
}

// Assistant — оркестратор диалога: ведёт историю пользователя и ходит в LLM.
type Assistant struct {
	store  *history.Store
	llm    CompletionClient
	system string
	logger *zap.SugaredLogger
}

func New(store *history.Store, llm CompletionClient, systemPrompt string, logger *zap.SugaredLogger) *Assistant {
	return &Assistant{store: store, llm: llm, system: systemPrompt, logger: logger}
}

// HandleUtterance обрабатывает одну реплику пользователя: добавляет её в историю,
// запрашивает LLM с полной историей и сохраняет ответ. При ошибке внешнего вызова
// реплика пользователя остаётся в истории, чтобы контекст не терялся при повторе.
// Конкурентные реплики одного пользователя сериализуются.
func (a *Assistant) HandleUtterance(ctx context.Context, userID int64, text string) (string, error) {
	release := a.store.Serialize(userID)
	defer release()

	a.store.Append(userID, history.RoleUser, text)
	turns := a.store.Get(userID)

	start := time.Now()
	a.logger.Infow("Запрос в LLM...", "user", userID, "turns", len(turns))
	reply, err := a.llm.Complete(ctx, a.system, turns)
	dur := time.Since(start)
	if err != nil {
		a.logger.Errorw("Ошибка ответа LLM", "user", userID, "duration", dur.String(), "error", err)
		return "", err
	}
	a.logger.Infow("Ответ LLM получен", "user", userID, "duration", dur.String(), "length", len(reply))

	a.store.Append(userID, history.RoleAssistant, reply)
	return reply, nil
}

// NoteUser добавляет реплику пользователя в историю без обращения к LLM
// (например, пометку о присланном фото).
func (a *Assistant) NoteUser(userID int64, text string) {
	release := a.store.Serialize(userID)
	defer release()
	a.store.Append(userID, history.RoleUser, text)
	a.logger.Infow("Реплика добавлена в историю", "user", userID)
}

// History возвращает текущую историю пользователя.
func (a *Assistant) History(userID int64) []history.Turn {
	return a.store.Get(userID)
}

// NewSubject сбрасывает историю пользователя (переход к следующему ученику).
func (a *Assistant) NewSubject(userID int64) {
	a.store.Clear(userID)
	a.logger.Infow("История пользователя очищена", "user", userID)
}
