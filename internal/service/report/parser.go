package report

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"ReportAssistant/internal/service/history"

	"go.uber.org/zap"
)

// Point — один пункт разобранного отчёта.
type Point struct {
	Number int
	Title  string
	Body   string
}

// Report — результат разбора финального отчёта из истории диалога.
type Report struct {
	Points      []Point
	StudentName string // подсказка имени ученика, может быть пустой
}

// Ключевые слова, после которых в сообщении преподавателя ищется имя ученика.
var nameTriggers = []string{"зовут", "имя", "ученик", "ученица"}

var (
	pointStartRe = regexp.MustCompile(`^\d+\.`)
	// Паттерн пункта: «1. Заголовок» или «1. Заголовок:» далее содержимое
	pointRe = regexp.MustCompile(`(?s)^(\d+)\.\s*([^:\n]+):?\s*(.*)`)
)

// Parser извлекает финальный отчёт из истории диалога.
type Parser struct {
	logger *zap.SugaredLogger
}

func NewParser(logger *zap.SugaredLogger) *Parser {
	return &Parser{logger: logger}
}

// HasFinalReport проверяет наличие финального отчёта: последний по времени ответ
// ассистента должен содержать маркеры «1.» и «8.».
func HasFinalReport(turns []history.Turn) bool {
	return latestReport(turns) != ""
}

// latestReport возвращает текст последнего ответа ассистента с маркерами отчёта,
// либо пустую строку.
func latestReport(turns []history.Turn) string {
	for i := len(turns) - 1; i >= 0; i-- {
		t := turns[i]
		if t.Role != history.RoleAssistant {
			continue
		}
		if strings.Contains(t.Content, "1.") && strings.Contains(t.Content, "8.") {
			return t.Content
		}
	}
	return ""
}

// TryExtract разбирает историю диалога: находит последний финальный отчёт ассистента
// и раскладывает его на пункты. Возвращает ok=false, если отчёта в истории ещё нет.
// Непустые блоки, не совпавшие с паттерном пункта, пропускаются с предупреждением —
// частичный результат лучше, чем отказ.
func (p *Parser) TryExtract(turns []history.Turn) (Report, bool) {
	var rep Report

	// Имя ученика ищем по всей истории в хронологическом порядке, первое совпадение побеждает
	for _, t := range turns {
		if t.Role != history.RoleUser {
			continue
		}
		if name, ok := extractNameHint(t.Content); ok {
			rep.StudentName = name
			break
		}
	}

	raw := latestReport(turns)
	if raw == "" {
		return Report{}, false
	}

	// Убираем markdown-форматирование (**)
	clean := strings.ReplaceAll(raw, "**", "")

	for _, block := range splitPoints(clean) {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		m := pointRe.FindStringSubmatch(block)
		if m == nil {
			p.logger.Warnw("Блок не совпал с паттерном пункта", "block", head(block, 100))
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			p.logger.Warnw("Не удалось разобрать номер пункта", "block", head(block, 100), "error", err)
			continue
		}
		rep.Points = append(rep.Points, Point{
			Number: num,
			Title:  strings.TrimSpace(m[2]),
			Body:   strings.TrimSpace(m[3]),
		})
	}

	return rep, true
}

// splitPoints режет текст отчёта на блоки: новый блок начинается со строки
// вида «N.». Текст до первого номера попадает в отдельный блок и отсеется
// на этапе сопоставления с паттерном.
func splitPoints(text string) []string {
	lines := strings.Split(text, "\n")
	var blocks []string
	var cur []string
	for _, line := range lines {
		if pointStartRe.MatchString(line) && len(cur) > 0 {
			blocks = append(blocks, strings.Join(cur, "\n"))
			cur = nil
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, strings.Join(cur, "\n"))
	}
	return blocks
}

// extractNameHint ищет имя ученика: первое слово с заглавной буквы (длиннее 2 букв,
// только буквы) после ключевого слова. Эвристика заведомо грубая, имя используется
// только для названия файла.
func extractNameHint(content string) (string, bool) {
	words := strings.Fields(content)
	trigger := -1
	for i, w := range words {
		lw := strings.ToLower(w)
		for _, t := range nameTriggers {
			if strings.Contains(lw, t) {
				trigger = i
				break
			}
		}
		if trigger >= 0 {
			break
		}
	}
	if trigger < 0 {
		return "", false
	}
	for _, w := range words[trigger+1:] {
		if isNameLike(w) {
			return w, true
		}
	}
	return "", false
}

func isNameLike(word string) bool {
	runes := []rune(word)
	if len(runes) <= 2 {
		return false
	}
	if !unicode.IsUpper(runes[0]) {
		return false
	}
	for _, r := range runes {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func head(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
