package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/PoluyanbIch/TerduQuizBot/internal/report"
	"github.com/PoluyanbIch/TerduQuizBot/internal/service"
)

const resultsPageSize = 30

// Категории

func (b *Bot) handleCategories(ctx context.Context, chatID int64, client *api.Client, _ string) {
	cats, err := client.ListCategories(ctx)
	if err != nil {
		b.sendError(chatID, "Не удалось загрузить категории", err)
		return
	}
	if len(cats) == 0 {
		b.sendMessage(chatID, "Категорий пока нет. /addcategory <название>")
		return
	}
	var sb strings.Builder
	sb.WriteString("📚 <b>Категории</b>\n")
	for _, c := range cats {
		fmt.Fprintf(&sb, "\n%d. %s", c.ID, esc(c.Name))
	}
	b.sendHTML(chatID, sb.String(), nil)
}

func (b *Bot) handleAddCategory(ctx context.Context, chatID int64, client *api.Client, args string) {
	if args == "" {
		b.sendMessage(chatID, "Использование: /addcategory <название>")
		return
	}
	cat, err := client.CreateCategory(ctx, args)
	if err != nil {
		b.sendError(chatID, "Не удалось создать категорию", err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Категория создана: %d. %s", cat.ID, cat.Name))
}

func (b *Bot) handleRenameCategory(ctx context.Context, chatID int64, client *api.Client, args string) {
	id, rest, ok := splitID(args)
	if !ok || rest == "" {
		b.sendMessage(chatID, "Использование: /renamecategory <id> <название>")
		return
	}
	cat, err := client.UpdateCategory(ctx, id, rest)
	if err != nil {
		b.sendError(chatID, "Не удалось переименовать категорию", err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Категория %d теперь называется %s", cat.ID, cat.Name))
}

func (b *Bot) handleDeleteCategory(ctx context.Context, chatID int64, client *api.Client, args string) {
	id, _, ok := splitID(args)
	if !ok {
		b.sendMessage(chatID, "Использование: /delcategory <id>")
		return
	}
	if err := client.DeleteCategory(ctx, id); err != nil {
		b.sendError(chatID, "Не удалось удалить категорию", err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("🗑 Категория %d удалена", id))
}

// handleLinks ссылки, открывающие тест по категории сразу
func (b *Bot) handleLinks(ctx context.Context, chatID int64, client *api.Client, _ string) {
	if b.opts.BotUsername == "" {
		b.sendMessage(chatID, "Имя бота не задано в настройках (telegram.bot_username)")
		return
	}
	cats, err := client.ListCategories(ctx)
	if err != nil {
		b.sendError(chatID, "Не удалось загрузить категории", err)
		return
	}
	var sb strings.Builder
	sb.WriteString("🔗 Ссылки на тесты:\n")
	for _, c := range cats {
		fmt.Fprintf(&sb, "\n%s: https://t.me/%s?start=%s%d", c.Name, b.opts.BotUsername, deepLinkPrefix, c.ID)
	}
	b.sendMessage(chatID, sb.String())
}

// Вопросы

func (b *Bot) handleQuestions(ctx context.Context, chatID int64, client *api.Client, args string) {
	categoryID := 0
	if args != "" {
		id, err := strconv.Atoi(args)
		if err != nil {
			b.sendMessage(chatID, "Использование: /questions [id категории]")
			return
		}
		categoryID = id
	}

	qs, err := client.AllQuestions(ctx)
	if err != nil {
		b.sendError(chatID, "Не удалось загрузить вопросы", err)
		return
	}
	names := make(map[int]string)
	var filtered []api.Question
	for _, q := range qs {
		if q.Category != nil {
			names[q.Category.ID] = q.Category.Name
		}
		if categoryID == 0 || q.CategoryID == categoryID {
			filtered = append(filtered, q)
		}
	}
	b.sendHTML(chatID, questionsText(filtered, names), nil)
}

func (b *Bot) handleAddQuestion(ctx context.Context, chatID int64, client *api.Client, args string) {
	categoryID, line, ok := splitID(args)
	if !ok || line == "" {
		b.sendMessage(chatID, "Использование: /addquestion <id категории> \"вопрос\" <номер> вар1 | вар2\n"+
			"или /addquestion <id категории> \"вопрос\" = ответ")
		return
	}
	in, err := service.ParseQuestionLine(line)
	if err != nil {
		b.sendMessage(chatID, "❌ Неверный формат: "+err.Error())
		return
	}
	in.CategoryID = categoryID

	q, err := client.CreateQuestion(ctx, in)
	if err != nil {
		b.sendError(chatID, "Не удалось создать вопрос", err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("✅ Вопрос #%d добавлен", q.ID))
}

// handleEditQuestion: /editquestion <id> <id категории> и строка вопроса в том же формате, что у /addquestion
func (b *Bot) handleEditQuestion(ctx context.Context, chatID int64, client *api.Client, args string) {
	id, rest, ok := splitID(args)
	categoryID, line, ok2 := splitID(rest)
	if !ok || !ok2 || line == "" {
		b.sendMessage(chatID, "Использование: /editquestion <id> <id категории> \"вопрос\" <номер> вар1 | вар2\n"+
			"или /editquestion <id> <id категории> \"вопрос\" = ответ")
		return
	}
	in, err := service.ParseQuestionLine(line)
	if err != nil {
		b.sendMessage(chatID, "❌ Неверный формат: "+err.Error())
		return
	}
	in.CategoryID = categoryID

	q, err := client.UpdateQuestion(ctx, id, in)
	if err != nil {
		b.sendError(chatID, "Не удалось изменить вопрос", err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("✏️ Вопрос #%d изменён", q.ID))
}

func (b *Bot) handleDeleteQuestion(ctx context.Context, chatID int64, client *api.Client, args string) {
	id, _, ok := splitID(args)
	if !ok {
		b.sendMessage(chatID, "Использование: /delquestion <id>")
		return
	}
	if err := client.DeleteQuestion(ctx, id); err != nil {
		b.sendError(chatID, "Не удалось удалить вопрос", err)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("🗑 Вопрос #%d удалён", id))
}

// handleDocument импорт вопросов из файла с подписью /import <id категории>
func (b *Bot) handleDocument(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	fields := strings.Fields(msg.Caption)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/import") {
		b.sendMessage(chatID, "Чтобы импортировать вопросы, добавьте к файлу подпись /import <id категории>")
		return
	}
	args := strings.Join(fields[1:], " ")
	b.teacherOnly(ctx, chatID, msg.From.ID, func(ctx context.Context, chatID int64, client *api.Client, args string) {
		b.importQuestions(ctx, chatID, client, msg.Document.FileID, args)
	}, args)
}

func (b *Bot) importQuestions(ctx context.Context, chatID int64, client *api.Client, fileID, args string) {
	categoryID, _, ok := splitID(args)
	if !ok {
		b.sendMessage(chatID, "Использование: файл с подписью /import <id категории>")
		return
	}

	data, err := b.downloadFile(ctx, fileID)
	if err != nil {
		b.log.WithError(err).Warn("download import file")
		b.sendMessage(chatID, "❌ Не удалось скачать файл")
		return
	}
	inputs, err := service.ParseQuestions(bytes.NewReader(data), categoryID)
	if err != nil {
		b.sendMessage(chatID, "❌ Ошибка в файле: "+err.Error())
		return
	}

	created := 0
	var failed []string
	for i, in := range inputs {
		if _, err := client.CreateQuestion(ctx, in); err != nil {
			failed = append(failed, fmt.Sprintf("%d: %s", i+1, api.Message(err)))
			continue
		}
		created++
	}

	text := fmt.Sprintf("📥 Импортировано вопросов: %d из %d", created, len(inputs))
	if len(failed) > 0 {
		text += "\nОшибки:\n" + strings.Join(failed, "\n")
	}
	b.sendMessage(chatID, text)
}

// Результаты

func (b *Bot) categoryNames(ctx context.Context, client *api.Client) map[int]string {
	cats, err := client.ListCategories(ctx)
	if err != nil {
		b.log.WithError(err).Warn("load categories for results")
		return map[int]string{}
	}
	return service.CategoryNames(cats)
}

func (b *Bot) handleResults(ctx context.Context, chatID int64, client *api.Client, args string) {
	var rows []api.StudentResult
	var err error
	title := "Результаты студентов"
	if args != "" {
		rows, err = client.ResultsByStudent(ctx, args)
		title = "Результаты: " + args
		if api.IsStatus(err, 404) {
			b.sendMessage(chatID, "Результаты не найдены")
			return
		}
	} else {
		rows, err = client.TeacherResults(ctx)
	}
	if err != nil {
		b.sendError(chatID, "Не удалось загрузить результаты", err)
		return
	}
	if len(rows) == 0 {
		b.sendMessage(chatID, "Результатов пока нет")
		return
	}

	service.SortByDate(rows)
	shown := rows
	if len(shown) > resultsPageSize {
		shown = shown[:resultsPageSize]
	}
	text := resultsText(shown, b.categoryNames(ctx, client), title)
	if len(rows) > len(shown) {
		text += fmt.Sprintf("\n\nПоказаны последние %d из %d. Полный список: /export", len(shown), len(rows))
	} else {
		text += "\n\nПодробнее: /result <id>"
	}
	b.sendHTML(chatID, text, nil)
}

func (b *Bot) handleResultDetails(ctx context.Context, chatID int64, client *api.Client, args string) {
	id, _, ok := splitID(args)
	if !ok {
		b.sendMessage(chatID, "Использование: /result <id>")
		return
	}
	rows, err := client.TeacherResults(ctx)
	if err != nil {
		b.sendError(chatID, "Не удалось загрузить результаты", err)
		return
	}
	for _, r := range rows {
		if r.ID != id {
			continue
		}
		names := b.categoryNames(ctx, client)
		header := fmt.Sprintf("👤 <b>%s</b>\n%s: %d/%d (%.2f%%)\n⏱ %s, 📅 %s\n\n",
			esc(r.StudentFullName), esc(service.CategoryName(names, r.CategoryID)),
			r.TotalScore, r.TotalQuestions, r.Percentage(),
			service.FormatClock(r.TimeSpent), service.FormatDate(r.CreatedAt))
		b.sendHTML(chatID, header+reviewText(service.ReconcileStudentResult(r)), nil)
		return
	}
	b.sendMessage(chatID, fmt.Sprintf("Результат #%d не найден", id))
}

func (b *Bot) handleTop(ctx context.Context, chatID int64, client *api.Client, args string) {
	rows, err := client.TeacherResults(ctx)
	if err != nil {
		b.sendError(chatID, "Не удалось загрузить результаты", err)
		return
	}
	if args != "" {
		if id, err := strconv.Atoi(args); err == nil {
			rows = service.FilterByCategory(rows, id)
		}
	}
	b.sendHTML(chatID, leaderboardText(service.Leaderboard(rows, 10), b.categoryNames(ctx, client)), nil)
}

func (b *Bot) handleExport(ctx context.Context, chatID int64, client *api.Client, _ string) {
	rows, err := client.TeacherResults(ctx)
	if err != nil {
		b.sendError(chatID, "Не удалось загрузить результаты", err)
		return
	}
	service.SortByDate(rows)

	var buf bytes.Buffer
	if err := report.ResultsPDF(&buf, rows, b.categoryNames(ctx, client), report.Options{FontPath: b.opts.ReportFont}); err != nil {
		b.log.WithError(err).Error("render results pdf")
		b.sendMessage(chatID, "❌ Не удалось сформировать отчёт")
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("results_%s.pdf", time.Now().Format("2006-01-02")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Результатов: %d", len(rows))
	if _, err := b.api.Send(doc); err != nil {
		b.log.WithError(err).Warn("send results pdf")
	}
}

// splitID отделяет числовой id от остатка строки
func splitID(args string) (int, string, bool) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 2)
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, "", false
	}
	rest := ""
	if len(fields) == 2 {
		rest = strings.TrimSpace(fields[1])
	}
	return id, rest, true
}
