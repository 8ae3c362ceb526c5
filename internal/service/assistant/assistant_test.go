package assistant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ReportAssistant/internal/service/history"
	"ReportAssistant/internal/service/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeCompletion — подменный LLM-клиент для тестов.
type fakeCompletion struct {
	reply string
	err   error

	calls      int
	lastSystem string
	lastTurns  []history.Turn
}

func (f *fakeCompletion) Complete(_ context.Context, system string, turns []history.Turn) (string, error) {
	f.calls++
	f.lastSystem = system
	f.lastTurns = turns
	return f.reply, f.err
}

func newAssistant(llm CompletionClient, max int) (*Assistant, *history.Store) {
	store := history.New(max)
	return New(store, llm, "системный промпт", zap.NewNop().Sugar()), store
}

func TestAssistant_HandleUtterance_Success(t *testing.T) {
	llm := &fakeCompletion{reply: "Уточните, как зовут ученика?"}
	a, store := newAssistant(llm, 10)

	reply, err := a.HandleUtterance(context.Background(), 1, "Хочу составить отчёт")
	require.NoError(t, err)
	assert.Equal(t, "Уточните, как зовут ученика?", reply)

	turns := store.Get(1)
	require.Len(t, turns, 2)
	assert.Equal(t, history.RoleUser, turns[0].Role)
	assert.Equal(t, "Хочу составить отчёт", turns[0].Content)
	assert.Equal(t, history.RoleAssistant, turns[1].Role)
	assert.Equal(t, reply, turns[1].Content)

	// в LLM ушли системный промпт и история с новой репликой
	assert.Equal(t, "системный промпт", llm.lastSystem)
	require.Len(t, llm.lastTurns, 1)
	assert.Equal(t, "Хочу составить отчёт", llm.lastTurns[0].Content)
}

func TestAssistant_HandleUtterance_FailureKeepsUserTurn(t *testing.T) {
	llm := &fakeCompletion{err: errors.New("таймаут")}
	a, store := newAssistant(llm, 10)

	_, err := a.HandleUtterance(context.Background(), 1, "первая попытка")
	require.Error(t, err)

	// реплика пользователя остаётся: при повторе контекст не теряется
	turns := store.Get(1)
	require.Len(t, turns, 1)
	assert.Equal(t, history.RoleUser, turns[0].Role)

	llm.err = nil
	llm.reply = "готово"
	_, err = a.HandleUtterance(context.Background(), 1, "повтор")
	require.NoError(t, err)
	require.Len(t, llm.lastTurns, 2)
	assert.Equal(t, "первая попытка", llm.lastTurns[0].Content)
}

func TestAssistant_HandleUtterance_BoundedContext(t *testing.T) {
	llm := &fakeCompletion{reply: "ок"}
	a, _ := newAssistant(llm, 4)

	for i := 0; i < 6; i++ {
		_, err := a.HandleUtterance(context.Background(), 1, fmt.Sprintf("сообщение %d", i))
		require.NoError(t, err)
	}
	// история ограничена, в LLM уходит не больше max реплик
	assert.LessOrEqual(t, len(llm.lastTurns), 4)
}

func TestAssistant_NoteUser(t *testing.T) {
	llm := &fakeCompletion{}
	a, store := newAssistant(llm, 10)

	a.NoteUser(1, "[Пользователь отправил фото экзаменационной работы/материала]")
	assert.Zero(t, llm.calls)
	turns := store.Get(1)
	require.Len(t, turns, 1)
	assert.Equal(t, history.RoleUser, turns[0].Role)
}

func TestAssistant_NewSubject(t *testing.T) {
	llm := &fakeCompletion{reply: "ок"}
	a, store := newAssistant(llm, 10)

	_, err := a.HandleUtterance(context.Background(), 1, "про Ивана")
	require.NoError(t, err)
	a.NewSubject(1)
	assert.Empty(t, store.Get(1))
}

// Полный сценарий: диалог -> финальный отчёт -> извлечение.
func TestAssistant_EndToEndReportFlow(t *testing.T) {
	llm := &fakeCompletion{reply: "Какой месяц отчёта?"}
	a, store := newAssistant(llm, 10)
	parser := report.NewParser(zap.NewNop().Sugar())

	// пустая история — отчёта нет
	_, ok := parser.TryExtract(a.History(1))
	assert.False(t, ok)

	// промежуточный обмен без маркеров
	_, err := a.HandleUtterance(context.Background(), 1, "Ученика зовут Иван")
	require.NoError(t, err)
	_, ok = parser.TryExtract(a.History(1))
	assert.False(t, ok)

	// финальный отчёт ассистента
	llm.reply = "1. Работа на занятиях: активно\n" +
		"2. Домашние задания: стабильно\n" +
		"3. Экзаменационная работа: 72 балла\n" +
		"4. Ожидаемый результат: рост\n" +
		"5. Причины: пропуски\n" +
		"6. Рекомендации ребёнку: повторять\n" +
		"7. Рекомендации родителям: контроль\n" +
		"8. Дополнительные комментарии: нет"
	_, err = a.HandleUtterance(context.Background(), 1, "Составь финальный отчёт")
	require.NoError(t, err)

	rep, ok := parser.TryExtract(store.Get(1))
	require.True(t, ok)
	assert.Len(t, rep.Points, 8)
	assert.Equal(t, "Иван", rep.StudentName)
}
