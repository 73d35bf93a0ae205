package telegram

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/PoluyanbIch/TerduQuizBot/internal/service"
)

const messageLimit = 4000

var esc = html.EscapeString

func questionText(s service.Snapshot) string {
	q, a, ok := s.CurrentQuestion()
	if !ok {
		return "Вопрос не найден"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "❓ <b>Вопрос %d/%d</b>   ⏱ %s\n", s.Current+1, len(s.Questions), service.FormatClock(s.TimeLeft))
	fmt.Fprintf(&b, "Отвечено: %d/%d (%d%%)\n\n", s.AnsweredCount(), len(s.Questions), s.Progress())
	b.WriteString(esc(q.Text))

	if !q.IsMultipleChoice() {
		b.WriteString("\n\n✍️ Отправьте ответ сообщением.")
		if a.UserAnswerText != nil && strings.TrimSpace(*a.UserAnswerText) != "" {
			fmt.Fprintf(&b, "\nВаш ответ: <i>%s</i>", esc(strings.TrimSpace(*a.UserAnswerText)))
		}
	}
	return b.String()
}

func questionKeyboard(s service.Snapshot) tgbotapi.InlineKeyboardMarkup {
	q, a, _ := s.CurrentQuestion()

	var rows [][]tgbotapi.InlineKeyboardButton
	for i, option := range q.Options() {
		label := service.OptionLabel(i, option)
		if a.UserAnswerIndex != nil && *a.UserAnswerIndex == i {
			label = "✅ " + label
		}
		data := fmt.Sprintf("ans_%d_%d", s.Current, i)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(label, data)))
	}

	var nav []tgbotapi.InlineKeyboardButton
	if s.Current > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "nav_prev"))
	}
	if !s.IsLast() {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Вперёд ➡️", "nav_next"))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	if s.IsLast() || s.TimeLeft == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏁 Завершить тест", "submit"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🚪 Выйти из теста", "exit_quiz"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func categoriesKeyboard(categories []api.Category) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, c := range categories {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📚 "+c.Name, fmt.Sprintf("cat_%d", c.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 В меню", "back_to_menu"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func resultText(res api.Result) string {
	return fmt.Sprintf(
		"🏁 <b>Тест завершён!</b>\n\n"+
			"📊 Результат: %d/%d\n"+
			"📈 Процент правильных: %.2f%%\n"+
			"⏱ Время: %s",
		res.Score, res.Total, res.Percentage, service.FormatClock(res.TimeSpent))
}

func reviewText(review service.Review) string {
	if len(review.Items) == 0 && len(review.Missing) == 0 {
		return "Подробный разбор недоступен."
	}

	var b strings.Builder
	b.WriteString("📝 <b>Разбор ответов</b>\n")
	for i, item := range review.Items {
		mark := "❌"
		if item.IsCorrect {
			mark = "✅"
		}
		fmt.Fprintf(&b, "\n%d. %s\n   Ваш ответ: %s %s\n", i+1, esc(item.Question), esc(item.UserAnswer), mark)
		if item.CorrectAnswer != "" && !item.IsCorrect {
			fmt.Fprintf(&b, "   Правильный ответ: %s\n", esc(item.CorrectAnswer))
		}
	}
	if len(review.Missing) > 0 {
		fmt.Fprintf(&b, "\n⚠️ Не найдены вопросы для %d ответов (id: %s)", len(review.Missing), joinInts(review.Missing))
	}
	return b.String()
}

func resultKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Новый тест", "start_quiz"),
			tgbotapi.NewInlineKeyboardButtonData("🔙 В меню", "back_to_menu"),
		),
	)
}

func resultsText(rows []api.StudentResult, names map[int]string, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📋 <b>%s</b>\n", esc(title))

	sum := service.Summarize(rows)
	fmt.Fprintf(&b, "Всего: %d, средний процент: %.1f%%, среднее время: %s\n",
		sum.Count, sum.AveragePercentage, service.FormatClock(sum.AverageTimeSpent))

	for _, r := range rows {
		fmt.Fprintf(&b, "\n#%d %s\n   %s: %d/%d (%.0f%%), %s, %s",
			r.ID, esc(r.StudentFullName), esc(service.CategoryName(names, r.CategoryID)),
			r.TotalScore, r.TotalQuestions, r.Percentage(),
			service.FormatClock(r.TimeSpent), service.FormatDate(r.CreatedAt))
	}
	return b.String()
}

func leaderboardText(top []service.LeaderboardEntry, names map[int]string) string {
	if len(top) == 0 {
		return "🏆 <b>Лидерборд</b>\n\nПока нет результатов."
	}

	var b strings.Builder
	b.WriteString("🏆 <b>Лучшие результаты</b>\n\n")
	for i, entry := range top {
		medal := "🔸"
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		fmt.Fprintf(&b, "%s %d. %s - %.0f%% (%d/%d), %s\n   📅 %s\n\n",
			medal, i+1, esc(entry.StudentFullName), entry.Percentage, entry.Score, entry.Total,
			esc(service.CategoryName(names, entry.CategoryID)), entry.Date)
	}
	return b.String()
}

func questionsText(qs []api.Question, names map[int]string) string {
	if len(qs) == 0 {
		return "Вопросов нет."
	}
	var b strings.Builder
	b.WriteString("❓ <b>Вопросы</b>\n")
	for _, q := range qs {
		kind := "текст"
		if q.IsMultipleChoice() {
			kind = fmt.Sprintf("%d вариантов", len(q.Options()))
		}
		answer, _ := service.CorrectAnswer(q)
		fmt.Fprintf(&b, "\n#%d [%s] %s\n   %s, ответ: %s",
			q.ID, esc(service.CategoryName(names, q.CategoryID)), esc(q.Text), kind, esc(answer))
	}
	return b.String()
}

// splitMessage режет длинный текст по строкам, чтобы уложиться в лимит Telegram
func splitMessage(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		n := len([]rune(line))
		if curLen+n > limit && curLen > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			curLen = 0
		}
		for n > limit {
			r := []rune(line)
			parts = append(parts, string(r[:limit]))
			line = string(r[limit:])
			n = len(r) - limit
		}
		cur.WriteString(line)
		curLen += n
	}
	if curLen > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func joinInts(ids []int) string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = fmt.Sprint(id)
	}
	return strings.Join(s, ", ")
}
