// Package report формирует выгрузки результатов для преподавателя.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/raykov/gofpdf"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/PoluyanbIch/TerduQuizBot/internal/service"
)

const utf8Family = "ReportSans"

type column struct {
	title string
	width float64
	align string
}

var columns = []column{
	{"ID", 14, "R"},
	{"Student", 52, "L"},
	{"Category", 40, "L"},
	{"Score", 20, "C"},
	{"%", 16, "R"},
	{"Time", 16, "R"},
	{"Date", 32, "C"},
}

type Options struct {
	// FontPath TTF-шрифт с кириллицей. Без него имена транслитерируются в латиницу.
	FontPath string
}

// ResultsPDF пишет таблицу результатов со сводкой в w
func ResultsPDF(w io.Writer, rows []api.StudentResult, categories map[int]string, opts Options) error {
	pdf := render(rows, categories, opts)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func render(rows []api.StudentResult, categories map[int]string, opts Options) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Quiz results", true)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	family := "Arial"
	text := textEncoder(pdf)
	if opts.FontPath != "" {
		pdf.AddUTF8Font(utf8Family, "", opts.FontPath)
		pdf.AddUTF8Font(utf8Family, "B", opts.FontPath)
		pdf.AddUTF8Font(utf8Family, "I", opts.FontPath)
		family = utf8Family
		text = func(s string) string { return s }
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont(family, "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	header := func() {
		pdf.SetFont(family, "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, c := range columns {
			pdf.CellFormat(c.width, 8, c.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont(family, "", 9)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})

	pdf.AddPage()
	pdf.SetFont(family, "B", 16)
	pdf.CellFormat(0, 10, "Quiz results", "", 1, "L", false, 0, "")

	sum := service.Summarize(rows)
	pdf.SetFont(family, "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", time.Now().Format(service.DateLayout)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Results: %d   Average: %.1f%%   Average time: %s",
		sum.Count, sum.AveragePercentage, service.FormatClock(sum.AverageTimeSpent)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	header()
	for _, r := range rows {
		values := []string{
			fmt.Sprint(r.ID),
			text(fit(r.StudentFullName, 30)),
			text(fit(service.CategoryName(categories, r.CategoryID), 22)),
			fmt.Sprintf("%d/%d", r.TotalScore, r.TotalQuestions),
			fmt.Sprintf("%.1f", r.Percentage()),
			service.FormatClock(r.TimeSpent),
			service.FormatDate(r.CreatedAt),
		}
		for i, c := range columns {
			pdf.CellFormat(c.width, 7, values[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	return pdf
}

// textEncoder переводит строку в cp1252 для встроенных шрифтов, кириллицу предварительно транслитерирует
func textEncoder(pdf *gofpdf.Fpdf) func(string) string {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	return func(s string) string {
		return tr(Transliterate(s))
	}
}

// fit обрезает строку до n символов
func fit(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
