package service

import (
	"context"
	"errors"
	"time"
)

// Clock создаёт тикеры обратного отсчёта. В тестах подменяется.
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type systemClock struct{}

// SystemClock тикеры на основе time.Ticker
func SystemClock() Clock {
	return systemClock{}
}

func (systemClock) NewTicker(d time.Duration) Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct {
	t *time.Ticker
}

func (s *systemTicker) C() <-chan time.Time {
	return s.t.C
}

func (s *systemTicker) Stop() {
	s.t.Stop()
}

// startCountdownLocked запускает отсчёт для текущей сессии. Вызывается под c.mu.
func (c *Controller) startCountdownLocked() {
	c.stopCountdownLocked()

	ctx, cancel := context.WithCancel(c.life)
	c.stopCountdown = cancel
	ticker := c.clock.NewTicker(time.Second)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				if !c.tick(ctx) {
					continue
				}
				c.expire()
				return
			}
		}
	}()
}

func (c *Controller) stopCountdownLocked() {
	if c.stopCountdown != nil {
		c.stopCountdown()
		c.stopCountdown = nil
	}
}

// tick уменьшает оставшееся время. Возвращает true, когда время вышло.
func (c *Controller) tick(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ctx.Err() != nil || c.phase != PhaseTest || c.timeLeft <= 0 {
		return false
	}
	c.timeLeft--
	return c.timeLeft == 0
}

// expire отправляет ответы с нулевым остатком времени. Отсчёт к этому моменту
// уже завершён, поэтому запрос живёт столько же, сколько контроллер.
func (c *Controller) expire() {
	c.log.WithField("session_id", c.SessionID()).Info("time is up, submitting")
	res, err := c.Submit(c.life, 0)
	if err != nil {
		c.log.WithError(err).Warn("auto submit failed")
	}
	if c.onExpire != nil && !errors.Is(err, ErrClosed) {
		c.onExpire(res, err)
	}
}
