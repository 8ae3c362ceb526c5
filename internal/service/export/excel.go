package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"ReportAssistant/internal/service/report"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "Отчет преподавателя"

// Ширина столбцов: узкий для названий пунктов, широкий для комментариев
const (
	labelColWidth   = 45
	commentColWidth = 80
)

// Exporter выгружает разобранный отчёт в Excel-файл.
type Exporter struct {
	dir    string
	logger *zap.SugaredLogger
}

func New(dir string, logger *zap.SugaredLogger) *Exporter {
	if dir == "" {
		dir = "."
	}
	return &Exporter{dir: dir, logger: logger}
}

// Render создаёт Excel-файл с отчётом и возвращает путь к нему.
// Отчёт без пунктов даёт файл только с заголовком и шапкой таблицы.
func (e *Exporter) Render(rep report.Report, userID int64, now time.Time) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return "", fmt.Errorf("excel export: %w", err)
	}

	thin := []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return "", fmt.Errorf("excel export: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"366092"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    thin,
	})
	if err != nil {
		return "", fmt.Errorf("excel export: %w", err)
	}
	labelStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    thin,
	})
	if err != nil {
		return "", fmt.Errorf("excel export: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Size: 11},
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
		Border:    thin,
	})
	if err != nil {
		return "", fmt.Errorf("excel export: %w", err)
	}

	// Заголовок документа: объединённая строка с именем ученика и датой
	title := "Отчет преподавателя"
	if rep.StudentName != "" {
		title += " - " + rep.StudentName
	}
	title += " - " + now.Format("02.01.2006 15:04")

	if err := f.MergeCell(sheetName, "A1", "B1"); err != nil {
		return "", fmt.Errorf("excel export: %w", err)
	}
	_ = f.SetCellValue(sheetName, "A1", title)
	_ = f.SetCellStyle(sheetName, "A1", "B1", titleStyle)
	_ = f.SetRowHeight(sheetName, 1, 25)

	// Шапка таблицы
	_ = f.SetCellValue(sheetName, "A2", "Пункт отчёта")
	_ = f.SetCellValue(sheetName, "B2", "Комментарий")
	_ = f.SetCellStyle(sheetName, "A2", "B2", headerStyle)
	_ = f.SetRowHeight(sheetName, 2, 30)

	_ = f.SetColWidth(sheetName, "A", "A", labelColWidth)
	_ = f.SetColWidth(sheetName, "B", "B", commentColWidth)

	row := 3
	for _, pt := range rep.Points {
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%d. %s", pt.Number, pt.Title))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), pt.Body)
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), labelStyle)
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("B%d", row), fmt.Sprintf("B%d", row), cellStyle)
		// Высота строки пропорциональна длине комментария, с фиксированным минимумом
		_ = f.SetRowHeight(sheetName, row, rowHeight(pt.Body))
		row++
	}

	path := filepath.Join(e.dir, e.filename(rep, userID, now))
	if err := f.SaveAs(path); err != nil {
		// недописанный файл не должен уйти пользователю
		_ = os.Remove(path)
		return "", fmt.Errorf("excel export: %w", err)
	}

	e.logger.Infow("Создан Excel файл", "path", path, "points", len(rep.Points))
	return path, nil
}

// filename строит имя файла: ОТЧЕТ_<ИМЯ>.xlsx, либо ОТЧЕТ_<userID>_<дата> для
// истории без имени ученика — чтобы анонимные выгрузки не затирали друг друга.
func (e *Exporter) filename(rep report.Report, userID int64, now time.Time) string {
	if rep.StudentName != "" {
		return fmt.Sprintf("ОТЧЕТ_%s.xlsx", strings.ToUpper(rep.StudentName))
	}
	return fmt.Sprintf("ОТЧЕТ_%d_%s.xlsx", userID, now.Format("20060102_150405"))
}

func rowHeight(body string) float64 {
	h := float64(utf8.RuneCountInString(body)) / 4
	if h < 60 {
		return 60
	}
	return h
}
