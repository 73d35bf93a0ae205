package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/PoluyanbIch/TerduQuizBot/internal/auth"
	"github.com/PoluyanbIch/TerduQuizBot/internal/service"
)

// Sender часть tgbotapi.BotAPI, которой пользуется бот
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Options struct {
	Duration    time.Duration
	Shuffle     bool
	BotUsername string
	ReportFont  string
	Clock       service.Clock
	HTTPClient  *http.Client
}

type Bot struct {
	api    Sender
	client *api.Client
	auth   *auth.Service
	log    logrus.FieldLogger
	opts   Options

	mu       sync.Mutex
	sessions map[int64]*service.Controller
}

func NewBot(sender Sender, client *api.Client, authService *auth.Service, log logrus.FieldLogger, opts Options) *Bot {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Bot{
		api:      sender,
		client:   client,
		auth:     authService,
		log:      log,
		opts:     opts,
		sessions: make(map[int64]*service.Controller),
	}
}

// Start обрабатывает обновления, пока не закроется канал или не отменится ctx
func (b *Bot) Start(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	b.log.Info("bot started")
	for {
		select {
		case <-ctx.Done():
			b.closeAll()
			return
		case update, ok := <-updates:
			if !ok {
				b.closeAll()
				return
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.From == nil {
		return
	}
	userID := msg.From.ID

	if msg.Document != nil {
		b.handleDocument(ctx, msg)
		return
	}

	if !msg.IsCommand() {
		b.handleTextAnswer(ctx, chatID, msg.Text)
		return
	}

	args := msg.CommandArguments()
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, chatID, userID, args)
	case "quiz":
		b.handleQuizCommand(ctx, chatID, userID, args)
	case "help":
		b.sendHelp(chatID)
	case "login":
		b.handleLogin(ctx, msg, args)
	case "logout":
		b.handleLogout(ctx, chatID, userID)
	case "whoami":
		b.handleWhoAmI(ctx, chatID, userID)
	case "categories":
		b.teacherOnly(ctx, chatID, userID, b.handleCategories, args)
	case "addcategory":
		b.teacherOnly(ctx, chatID, userID, b.handleAddCategory, args)
	case "renamecategory":
		b.teacherOnly(ctx, chatID, userID, b.handleRenameCategory, args)
	case "delcategory":
		b.teacherOnly(ctx, chatID, userID, b.handleDeleteCategory, args)
	case "questions":
		b.teacherOnly(ctx, chatID, userID, b.handleQuestions, args)
	case "addquestion":
		b.teacherOnly(ctx, chatID, userID, b.handleAddQuestion, args)
	case "editquestion":
		b.teacherOnly(ctx, chatID, userID, b.handleEditQuestion, args)
	case "delquestion":
		b.teacherOnly(ctx, chatID, userID, b.handleDeleteQuestion, args)
	case "results":
		b.teacherOnly(ctx, chatID, userID, b.handleResults, args)
	case "result":
		b.teacherOnly(ctx, chatID, userID, b.handleResultDetails, args)
	case "top":
		b.teacherOnly(ctx, chatID, userID, b.handleTop, args)
	case "export":
		b.teacherOnly(ctx, chatID, userID, b.handleExport, args)
	case "links":
		b.teacherOnly(ctx, chatID, userID, b.handleLinks, args)
	case "import":
		b.sendMessage(chatID, "Отправьте файл с вопросами и подписью /import <id категории>")
	default:
		b.sendMessage(chatID, "Неизвестная команда. /help")
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil {
		return
	}
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID
	data := callback.Data

	callbackConfig := tgbotapi.NewCallback(callback.ID, "")
	if _, err := b.api.Request(callbackConfig); err != nil {
		b.log.WithError(err).Warn("answer callback")
	}

	switch {
	case data == "start_quiz":
		b.startQuiz(ctx, chatID, userID, 0, false)
	case strings.HasPrefix(data, "cat_"):
		b.handleSelectCategory(ctx, chatID, data)
	case strings.HasPrefix(data, "ans_"):
		b.handleChoice(chatID, data)
	case data == "nav_prev":
		b.handleNavigate(chatID, -1)
	case data == "nav_next":
		b.handleNavigate(chatID, 1)
	case data == "submit":
		b.handleSubmit(ctx, chatID)
	case data == "exit_quiz":
		b.exitQuiz(chatID)
	case data == "back_to_menu":
		b.endSession(chatID)
		b.sendMainMenu(chatID)
	case data == "help":
		b.sendHelp(chatID)
	default:
		b.sendMessage(chatID, "Неизвестная команда")
	}
}

func (b *Bot) sendMainMenu(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "📋 <b>Главное меню</b>")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Пройти тест", "start_quiz"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("ℹ️ Помощь", "help"),
		),
	)
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).Warn("send main menu")
	}
}

func (b *Bot) sendHelp(chatID int64) {
	text := "Команды студента:\n" +
		"/login student <логин> <пароль> - войти\n" +
		"/quiz - выбрать категорию и пройти тест\n" +
		"/quiz <id> - начать тест по категории\n" +
		"/whoami - кто я\n" +
		"/logout - выйти\n\n" +
		"Команды преподавателя:\n" +
		"/login teacher <логин> <пароль>\n" +
		"/categories, /addcategory <название>, /renamecategory <id> <название>, /delcategory <id>\n" +
		"/questions [id категории], /addquestion <id категории> \"вопрос\" <номер> вар1 | вар2\n" +
		"/addquestion <id категории> \"вопрос\" = ответ, /delquestion <id>\n" +
		"/editquestion <id> <id категории> \"вопрос\" <номер> вар1 | вар2 (или = ответ)\n" +
		"файл с подписью /import <id категории> - импорт вопросов\n" +
		"/results [имя студента], /result <id>, /top, /export, /links"
	b.sendMessage(chatID, text)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	for _, part := range splitMessage(text, messageLimit) {
		msg := tgbotapi.NewMessage(chatID, part)
		if _, err := b.api.Send(msg); err != nil {
			b.log.WithError(err).Warn("send message")
		}
	}
}

func (b *Bot) sendHTML(chatID int64, text string, markup any) {
	parts := splitMessage(text, messageLimit)
	for i, part := range parts {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		if i == len(parts)-1 && markup != nil {
			msg.ReplyMarkup = markup
		}
		if _, err := b.api.Send(msg); err != nil {
			b.log.WithError(err).Warn("send html message")
		}
	}
}

// sendError показывает ошибку API или входа понятным текстом
func (b *Bot) sendError(chatID int64, prefix string, err error) {
	switch {
	case errors.Is(err, auth.ErrNotLoggedIn):
		b.sendMessage(chatID, "🔒 Сначала войдите: /login student <логин> <пароль>")
	case errors.Is(err, auth.ErrTokenExpired):
		b.sendMessage(chatID, "⌛ Сессия истекла, войдите снова: /login")
	case errors.Is(err, auth.ErrForbidden):
		b.sendMessage(chatID, "⛔ Доступно только преподавателю")
	case api.IsUnauthorized(err):
		b.sendMessage(chatID, "🔒 Нет доступа: "+api.Message(err))
	default:
		b.sendMessage(chatID, fmt.Sprintf("❌ %s: %s", prefix, api.Message(err)))
	}
}

func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("get file url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := b.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}
