package telegram

import (
	"context"
	"errors"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/PoluyanbIch/TerduQuizBot/internal/service"
)

const deepLinkPrefix = "cat_"

// handleStart открывает меню или, для ссылки вида ?start=cat_<id>, сразу тест
func (b *Bot) handleStart(ctx context.Context, chatID, userID int64, payload string) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, deepLinkPrefix) {
		if id, err := strconv.Atoi(strings.TrimPrefix(payload, deepLinkPrefix)); err == nil {
			b.startQuiz(ctx, chatID, userID, id, true)
			return
		}
	}
	b.endSession(chatID)
	b.sendMainMenu(chatID)
}

func (b *Bot) handleQuizCommand(ctx context.Context, chatID, userID int64, args string) {
	args = strings.TrimSpace(args)
	if args == "" {
		b.startQuiz(ctx, chatID, userID, 0, false)
		return
	}
	id, err := strconv.Atoi(args)
	if err != nil {
		b.sendMessage(chatID, "Использование: /quiz [id категории]")
		return
	}
	b.startQuiz(ctx, chatID, userID, id, true)
}

// startQuiz создаёт новую сессию для чата. Прежняя сессия закрывается.
func (b *Bot) startQuiz(ctx context.Context, chatID, userID int64, categoryID int, hasCategory bool) {
	creds, claims, err := b.auth.Current(ctx, userID)
	if err != nil {
		b.sendError(chatID, "Не удалось начать тест", err)
		return
	}

	b.endSession(chatID)

	var ctrl *service.Controller
	ctrl = service.NewController(b.client.WithTokenSource(creds), service.Options{
		Duration:    b.opts.Duration,
		Clock:       b.opts.Clock,
		Notifier:    chatNotifier{bot: b, chatID: chatID},
		Logger:      b.log.WithFields(logrus.Fields{"chat_id": chatID, "user_id": userID}),
		StudentName: claims.DisplayName(),
		Shuffle:     b.opts.Shuffle,
		OnExpire: func(res *api.Result, err error) {
			b.onExpire(chatID, ctrl, res, err)
		},
	})

	b.mu.Lock()
	b.sessions[chatID] = ctrl
	b.mu.Unlock()

	if err := ctrl.Init(ctx, categoryID, hasCategory); err != nil && !service.IsNotFound(err) {
		if !errors.Is(err, service.ErrClosed) {
			b.log.WithError(err).WithField("chat_id", chatID).Warn("init session")
		}
	}
	b.render(chatID, ctrl)
}

func (b *Bot) session(chatID int64) *service.Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessions[chatID]
}

// endSession закрывает сессию чата, если она есть
func (b *Bot) endSession(chatID int64) {
	b.mu.Lock()
	ctrl := b.sessions[chatID]
	delete(b.sessions, chatID)
	b.mu.Unlock()

	if ctrl != nil {
		ctrl.Close()
	}
}

func (b *Bot) closeAll() {
	b.mu.Lock()
	sessions := b.sessions
	b.sessions = make(map[int64]*service.Controller)
	b.mu.Unlock()

	for _, ctrl := range sessions {
		ctrl.Close()
	}
}

// render показывает экран текущего этапа сессии
func (b *Bot) render(chatID int64, ctrl *service.Controller) {
	s := ctrl.Snapshot()
	switch s.Phase {
	case service.PhaseSelectCategory:
		if len(s.Categories) == 0 {
			if s.CategoriesFailed {
				msg := tgbotapi.NewMessage(chatID, "🔄 Нажмите, чтобы попробовать ещё раз.")
				msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
					tgbotapi.NewInlineKeyboardRow(
						tgbotapi.NewInlineKeyboardButtonData("🔄 Повторить", "start_quiz"),
						tgbotapi.NewInlineKeyboardButtonData("🔙 В меню", "back_to_menu"),
					),
				)
				if _, err := b.api.Send(msg); err != nil {
					b.log.WithError(err).Warn("send retry")
				}
				return
			}
			b.sendMessage(chatID, "Категорий пока нет.")
			return
		}
		msg := tgbotapi.NewMessage(chatID, "📚 Выберите категорию:")
		msg.ReplyMarkup = categoriesKeyboard(s.Categories)
		if _, err := b.api.Send(msg); err != nil {
			b.log.WithError(err).Warn("send categories")
		}
	case service.PhaseLoading:
		b.sendMessage(chatID, "⏳ Загрузка...")
	case service.PhaseTest:
		b.sendHTML(chatID, questionText(s), questionKeyboard(s))
	case service.PhaseResult:
		if s.Result == nil {
			return
		}
		b.sendHTML(chatID, resultText(*s.Result), nil)
		b.sendHTML(chatID, reviewText(s.Review), resultKeyboard())
	}
}

func (b *Bot) handleSelectCategory(ctx context.Context, chatID int64, data string) {
	ctrl := b.session(chatID)
	if ctrl == nil {
		b.sendMessage(chatID, "Сессия не найдена. Нажмите /quiz")
		return
	}
	id, err := strconv.Atoi(strings.TrimPrefix(data, deepLinkPrefix))
	if err != nil {
		return
	}
	if err := ctrl.SelectCategory(ctx, id); err != nil {
		if errors.Is(err, service.ErrAlreadyStarted) {
			b.sendMessage(chatID, "Тест уже идёт.")
			return
		}
		if errors.Is(err, service.ErrClosed) || errors.Is(err, service.ErrSuperseded) {
			return
		}
	}
	b.render(chatID, ctrl)
}

func (b *Bot) handleChoice(chatID int64, data string) {
	ctrl := b.session(chatID)
	if ctrl == nil || ctrl.Phase() != service.PhaseTest {
		return
	}
	parts := strings.Split(data, "_")
	if len(parts) != 3 {
		return
	}
	index, err1 := strconv.Atoi(parts[1])
	option, err2 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil {
		return
	}
	if !ctrl.RecordChoice(index, option) {
		return
	}
	// После ответа переходим к следующему вопросу
	if ctrl.Snapshot().Current == index {
		ctrl.Navigate(1)
	}
	b.render(chatID, ctrl)
}

func (b *Bot) handleTextAnswer(ctx context.Context, chatID int64, text string) {
	ctrl := b.session(chatID)
	if ctrl == nil || ctrl.Phase() != service.PhaseTest {
		b.sendMessage(chatID, "Неизвестная команда. /help")
		return
	}
	s := ctrl.Snapshot()
	q, _, ok := s.CurrentQuestion()
	if !ok {
		return
	}
	if q.IsMultipleChoice() {
		b.sendMessage(chatID, "Выберите вариант кнопкой под вопросом.")
		return
	}
	if !ctrl.RecordText(s.Current, text) {
		return
	}
	ctrl.Navigate(1)
	b.render(chatID, ctrl)
}

func (b *Bot) handleNavigate(chatID int64, delta int) {
	ctrl := b.session(chatID)
	if ctrl == nil || ctrl.Phase() != service.PhaseTest {
		return
	}
	ctrl.Navigate(delta)
	b.render(chatID, ctrl)
}

func (b *Bot) handleSubmit(ctx context.Context, chatID int64) {
	ctrl := b.session(chatID)
	if ctrl == nil {
		return
	}
	s := ctrl.Snapshot()
	if s.Phase != service.PhaseTest {
		return
	}
	if !s.IsLast() && s.TimeLeft > 0 {
		b.sendMessage(chatID, "Завершить тест можно на последнем вопросе.")
		return
	}

	_, err := ctrl.Submit(ctx, s.TimeLeft)
	switch {
	case err == nil:
		b.render(chatID, ctrl)
	case errors.Is(err, service.ErrSubmitInFlight):
		b.sendMessage(chatID, "⏳ Ответы уже отправляются...")
	case errors.Is(err, service.ErrNotInTest), errors.Is(err, service.ErrClosed):
	default:
		// уведомление уже показано, ответы сохранены
		b.sendMessage(chatID, "Попробуйте отправить ещё раз.")
	}
}

// onExpire вызывается из отсчёта, когда время вышло
func (b *Bot) onExpire(chatID int64, ctrl *service.Controller, res *api.Result, err error) {
	if b.session(chatID) != ctrl {
		return
	}
	if err != nil {
		if errors.Is(err, service.ErrSubmitInFlight) || errors.Is(err, service.ErrNotInTest) {
			return
		}
		b.sendMessage(chatID, "⌛ Время вышло, но ответы не отправлены. Нажмите «Завершить тест» ещё раз.")
		b.render(chatID, ctrl)
		return
	}
	b.sendMessage(chatID, "⌛ Время вышло! Ответы отправлены автоматически.")
	b.render(chatID, ctrl)
}

func (b *Bot) exitQuiz(chatID int64) {
	if b.session(chatID) == nil {
		b.sendMainMenu(chatID)
		return
	}
	b.endSession(chatID)

	msg := tgbotapi.NewMessage(chatID, "🚪 Тест прерван.\nВаш результат не сохранён.")
	msg.ReplyMarkup = resultKeyboard()
	if _, err := b.api.Send(msg); err != nil {
		b.log.WithError(err).Warn("send exit message")
	}
}
