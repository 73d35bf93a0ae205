package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/PoluyanbIch/TerduQuizBot/internal/auth"
	"github.com/PoluyanbIch/TerduQuizBot/internal/mockapi"
)

// newStudentClient поднимает тестовый сервер и возвращает клиента под студентом
// и счётчик POST /results
func newStudentClient(t *testing.T) (*api.Client, *atomic.Int32) {
	t.Helper()
	db, err := mockapi.OpenMemory()
	require.NoError(t, err)
	backend, err := mockapi.New(db, mockapi.Options{JWTSecret: "flow-secret"})
	require.NoError(t, err)
	require.NoError(t, backend.Seed())

	var posts atomic.Int32
	handler := backend.Handler()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/results" {
			posts.Add(1)
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	client := api.New(ts.URL, api.WithTimeout(2*time.Second))
	token, err := client.LoginStudent(context.Background(), api.LoginRequest{Username: "student", Password: "student"})
	require.NoError(t, err)
	creds := &auth.Credentials{Role: auth.RoleStudent, StudentToken: token}
	return client.WithTokenSource(creds), &posts
}

func TestSessionAgainstBackend(t *testing.T) {
	client, posts := newStudentClient(t)
	clock := newFakeClock()
	c := NewController(client, Options{Duration: time.Minute, Clock: clock, StudentName: "Student One"})
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Init(ctx, 1, true))
	clock.next(t)

	s := c.Snapshot()
	require.Equal(t, PhaseTest, s.Phase)
	require.Len(t, s.Questions, 3)
	for _, q := range s.Questions {
		assert.False(t, q.HasAnswerKey())
	}

	require.True(t, c.RecordChoice(0, 1))
	require.True(t, c.RecordChoice(1, 0))
	require.True(t, c.RecordText(2, " random access memory "))
	c.Navigate(2)

	res, err := c.Submit(ctx, 40)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 66.67, res.Percentage)
	assert.Equal(t, 20, res.TimeSpent)

	s = c.Snapshot()
	assert.Equal(t, PhaseResult, s.Phase)
	assert.Empty(t, s.Review.Missing)
	require.Len(t, s.Review.Items, 3)
	assert.Equal(t, "B. Processor", s.Review.Items[0].UserAnswer)
	assert.True(t, s.Review.Items[0].IsCorrect)
	assert.Equal(t, "A. Power slots", s.Review.Items[1].UserAnswer)
	assert.Equal(t, "B. PCIe slots", s.Review.Items[1].CorrectAnswer)
	assert.Equal(t, "random access memory", s.Review.Items[2].UserAnswer)
	assert.True(t, s.Review.Items[2].IsCorrect)
	assert.Equal(t, int32(1), posts.Load())
}

func TestManualSubmitRacingTimeout(t *testing.T) {
	client, posts := newStudentClient(t)
	clock := newFakeClock()
	expired := make(chan error, 1)
	c := NewController(client, Options{
		Duration: 2 * time.Second,
		Clock:    clock,
		OnExpire: func(_ *api.Result, err error) { expired <- err },
	})
	defer c.Close()

	require.NoError(t, c.Init(context.Background(), 1, true))
	tk := clock.next(t)
	require.True(t, sendTick(tk, time.Second))

	manual := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), c.TimeLeft())
		manual <- err
	}()
	// последний тик может не дойти, если ручная отправка уже остановила отсчёт
	sendTick(tk, 200*time.Millisecond)

	manualErr := <-manual
	assert.Eventually(t, func() bool { return c.Phase() == PhaseResult }, 2*time.Second, 10*time.Millisecond)

	select {
	case autoErr := <-expired:
		if manualErr == nil {
			assert.Error(t, autoErr)
		} else {
			assert.NoError(t, autoErr)
		}
	case <-time.After(300 * time.Millisecond):
		assert.NoError(t, manualErr)
	}
	assert.Equal(t, int32(1), posts.Load())
}
