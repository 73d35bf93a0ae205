package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/PoluyanbIch/TerduQuizBot/internal/auth"
)

// handleLogin: /login student|teacher <логин> <пароль>. Сообщение с паролем удаляется.
func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message, args string) {
	chatID := msg.Chat.ID
	userID := msg.From.ID

	fields := strings.Fields(args)
	if len(fields) > 1 {
		del := tgbotapi.NewDeleteMessage(chatID, msg.MessageID)
		if _, err := b.api.Request(del); err != nil {
			b.log.WithError(err).Debug("delete login message")
		}
	}
	if len(fields) != 3 {
		b.sendMessage(chatID, "Использование: /login student|teacher <логин> <пароль>")
		return
	}

	role, err := auth.ParseRole(fields[0])
	if err != nil {
		b.sendMessage(chatID, "Роль должна быть student или teacher")
		return
	}

	b.endSession(chatID)
	_, claims, err := b.auth.Login(ctx, userID, role, fields[1], fields[2])
	if err != nil {
		if api.IsUnauthorized(err) {
			b.sendMessage(chatID, "❌ Ошибка входа: "+api.Message(err))
			return
		}
		b.log.WithError(err).WithField("user_id", userID).Warn("login")
		b.sendMessage(chatID, "❌ Не удалось войти: "+api.Message(err))
		return
	}

	text := fmt.Sprintf("👋 Здравствуйте, %s!", claims.DisplayName())
	if role == auth.RoleTeacher {
		text += "\nПанель преподавателя: /help"
	}
	b.sendMessage(chatID, text)
	if role == auth.RoleStudent {
		b.sendMainMenu(chatID)
	}
}

func (b *Bot) handleLogout(ctx context.Context, chatID, userID int64) {
	b.endSession(chatID)
	if err := b.auth.Logout(ctx, userID); err != nil {
		b.log.WithError(err).WithField("user_id", userID).Warn("logout")
		b.sendMessage(chatID, "❌ Не удалось выйти")
		return
	}
	b.sendMessage(chatID, "👋 Вы вышли из аккаунта")
}

func (b *Bot) handleWhoAmI(ctx context.Context, chatID, userID int64) {
	creds, claims, err := b.auth.Current(ctx, userID)
	if err != nil {
		b.sendError(chatID, "Не удалось получить данные", err)
		return
	}

	role := "студент"
	if creds.Role == auth.RoleTeacher {
		role = "преподаватель"
	}
	text := fmt.Sprintf("👤 %s (%s)", claims.DisplayName(), role)
	if !claims.ExpiresAt.IsZero() {
		text += "\nВход действует до " + claims.ExpiresAt.Local().Format("02.01.2006 15:04")
	}
	b.sendMessage(chatID, text)
}

type teacherHandler func(ctx context.Context, chatID int64, client *api.Client, args string)

// teacherOnly пускает к команде только преподавателя
func (b *Bot) teacherOnly(ctx context.Context, chatID, userID int64, h teacherHandler, args string) {
	creds, _, err := b.auth.RequireTeacher(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			b.sendMessage(chatID, "🔒 Войдите как преподаватель: /login teacher <логин> <пароль>")
			return
		}
		b.sendError(chatID, "Нет доступа", err)
		return
	}
	h(ctx, chatID, b.client.WithTokenSource(creds), strings.TrimSpace(args))
}
