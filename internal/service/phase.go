package service

import (
	"errors"
	"fmt"
)

// Phase этап прохождения теста. Переходы только вперёд:
// select_category -> loading -> test -> result.
type Phase string

const (
	PhaseLoading        Phase = "loading"
	PhaseSelectCategory Phase = "select_category"
	PhaseTest           Phase = "test"
	PhaseResult         Phase = "result"
)

var (
	ErrNotInTest        = errors.New("session is not in test phase")
	ErrSubmitInFlight   = errors.New("submission already in progress")
	ErrCategoryNotFound = errors.New("category not found")
	ErrNoQuestions      = errors.New("category has no questions")
	ErrClosed           = errors.New("session closed")
	ErrAlreadyStarted   = errors.New("test already started")
	ErrSuperseded       = errors.New("request superseded by a newer one")
)

// Level важность уведомления для пользователя
type Level int

const (
	LevelInfo Level = iota
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int(l))
}

// Notifier показывает пользователю короткие уведомления
type Notifier interface {
	Notify(level Level, text string)
}

type NotifierFunc func(level Level, text string)

func (f NotifierFunc) Notify(level Level, text string) {
	f(level, text)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Level, string) {}
