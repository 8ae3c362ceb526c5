package assistant

import (
	"strings"
	"unicode/utf8"
)

// Split разбивает длинный текст на части для отправки в чат.
// Текст короче limit возвращается одной частью. Разрезы проходят только по
// границам строк, каждая часть не длиннее target (запас под префикс «Часть i/n»).
// Конкатенация частей через "\n" в точности восстанавливает исходный текст.
// Строка длиннее target не режется — уходит отдельной частью как есть.
func Split(text string, limit int, target int) []string {
	if limit <= 0 {
		limit = 4096
	}
	if target <= 0 || target > limit {
		target = limit
	}
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	lines := strings.Split(text, "\n")
	var parts []string
	var cur strings.Builder
	curLen, curLines := 0, 0
	for _, line := range lines {
		ll := utf8.RuneCountInString(line)
		if curLines > 0 && curLen+1+ll > target {
			parts = append(parts, cur.String())
			cur.Reset()
			curLen, curLines = 0, 0
		}
		if curLines > 0 {
			cur.WriteByte('\n')
			curLen++
		}
		cur.WriteString(line)
		curLen += ll
		curLines++
	}
	parts = append(parts, cur.String())
	return parts
}
