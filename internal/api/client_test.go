package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PoluyanbIch/TerduQuizBot/internal/mockapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) AccessToken() (string, bool) { return string(s), s != "" }

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := mockapi.OpenMemory()
	require.NoError(t, err)
	srv, err := mockapi.New(db, mockapi.Options{JWTSecret: "test-secret"})
	require.NoError(t, err)
	require.NoError(t, srv.Seed())

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientStudentFlow(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()
	c := New(ts.URL, WithTimeout(2*time.Second))

	cats, err := c.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Hardware", cats[0].Name)

	_, err = c.TestQuestions(ctx, cats[0].ID)
	assert.True(t, IsUnauthorized(err), "anonymous call must be rejected, got %v", err)

	token, err := c.LoginStudent(ctx, LoginRequest{Username: "student", Password: "student"})
	require.NoError(t, err)
	student := c.WithTokenSource(staticToken(token))

	qs, err := student.TestQuestions(ctx, cats[0].ID)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	assert.True(t, qs[0].IsMultipleChoice())
	assert.False(t, qs[2].IsMultipleChoice())
	for _, q := range qs {
		assert.False(t, q.HasAnswerKey(), "answers must be redacted before submission")
	}

	one := 1
	text := "random access memory"
	res, err := student.SubmitResult(ctx, SessionPayload{
		StudentFullName: "Student One",
		SessionID:       "session_client_test",
		CategoryID:      cats[0].ID,
		TotalQuestions:  len(qs),
		TimeSpent:       30,
		Answers: []AnswerRecord{
			{QuestionID: qs[0].ID, UserAnswerIndex: &one},
			{QuestionID: qs[1].ID},
			{QuestionID: qs[2].ID, UserAnswerText: &text},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Score)
	assert.Equal(t, 3, res.Total)
	require.Len(t, res.DetailedAnswers, 3)
	require.NotNil(t, res.DetailedAnswers[1].IsCorrect)
	assert.False(t, *res.DetailedAnswers[1].IsCorrect)

	full, err := student.FullQuestions(ctx, cats[0].ID)
	require.NoError(t, err)
	for _, q := range full {
		assert.True(t, q.HasAnswerKey())
	}
}

func TestClientTeacherFlow(t *testing.T) {
	ts := newBackend(t)
	ctx := context.Background()
	c := New(ts.URL)

	_, err := c.LoginTeacher(ctx, LoginRequest{Username: "teacher", Password: "wrong"})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, "Login yoki parol noto'g'ri", Message(err))

	token, err := c.LoginTeacher(ctx, LoginRequest{Username: "teacher", Password: "teacher"})
	require.NoError(t, err)
	teacher := c.WithTokenSource(staticToken(token))

	cat, err := teacher.CreateCategory(ctx, "Databases")
	require.NoError(t, err)
	renamed, err := teacher.UpdateCategory(ctx, cat.ID, "SQL")
	require.NoError(t, err)
	assert.Equal(t, "SQL", renamed.Name)

	idx := 0
	q, err := teacher.CreateQuestion(ctx, QuestionInput{
		Question:           "SELECT is a ...",
		Options:            []string{"query", "index"},
		CorrectAnswerIndex: &idx,
		CategoryID:         cat.ID,
	})
	require.NoError(t, err)
	assert.True(t, q.IsMultipleChoice())

	answer := "primary key"
	q, err = teacher.UpdateQuestion(ctx, q.ID, QuestionInput{
		Question:          "Unique row identifier?",
		Options:           []string{},
		CorrectTextAnswer: &answer,
		CategoryID:        cat.ID,
	})
	require.NoError(t, err)
	assert.False(t, q.IsMultipleChoice())

	all, err := teacher.AllQuestions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)
	last := all[len(all)-1]
	require.NotNil(t, last.Category)
	assert.Equal(t, "SQL", last.Category.Name)

	require.NoError(t, teacher.DeleteQuestion(ctx, q.ID))
	require.NoError(t, teacher.DeleteCategory(ctx, cat.ID))
	assert.True(t, IsStatus(teacher.DeleteCategory(ctx, cat.ID), http.StatusNotFound))

	results, err := teacher.TeacherResults(ctx)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = teacher.ResultsByStudent(ctx, "Nobody Here")
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestClientErrors(t *testing.T) {
	t.Run("message array", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"statusCode":400,"message":["name should not be empty","name must be a string"]}`))
		}))
		defer ts.Close()

		_, err := New(ts.URL).CreateCategory(context.Background(), "")
		require.Error(t, err)
		assert.Equal(t, "name should not be empty; name must be a string", Message(err))
		assert.Contains(t, err.Error(), "create category: HTTP 400")
	})

	t.Run("login without token", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer ts.Close()

		_, err := New(ts.URL).LoginStudent(context.Background(), LoginRequest{})
		assert.ErrorIs(t, err, ErrNoToken)
	})

	t.Run("bearer header", func(t *testing.T) {
		var got string
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`[]`))
		}))
		defer ts.Close()

		_, err := New(ts.URL).WithTokenSource(staticToken("abc")).ListCategories(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "Bearer abc", got)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := New("http://127.0.0.1:1", WithRateLimit(1, 1)).ListCategories(ctx)
		assert.Error(t, err)
	})
}

func TestAnswerRecordJSON(t *testing.T) {
	two := 2
	text := "Paris"
	tests := []struct {
		name     string
		record   AnswerRecord
		expected string
	}{
		{
			name:     "unanswered",
			record:   AnswerRecord{QuestionID: 1},
			expected: `{"questionId":1,"userAnswerIndex":-1,"userAnswerText":""}`,
		},
		{
			name:     "choice",
			record:   AnswerRecord{QuestionID: 2, UserAnswerIndex: &two},
			expected: `{"questionId":2,"userAnswerIndex":2,"userAnswerText":""}`,
		},
		{
			name:     "text",
			record:   AnswerRecord{QuestionID: 3, UserAnswerText: &text},
			expected: `{"questionId":3,"userAnswerIndex":-1,"userAnswerText":"Paris"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.record)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, string(data))
		})
	}
}

func TestQuestionVariantDecoding(t *testing.T) {
	raw := `[
		{"id":1,"question":"2+2?","options":["3","4"],"correctAnswerIndex":1,"categoryId":5},
		{"id":2,"question":"Capital of France?","correctTextAnswer":"Paris","category":{"id":5,"name":"Geo"}},
		{"id":3,"question":"Empty options","options":[],"categoryId":5}
	]`
	var qs []Question
	require.NoError(t, json.Unmarshal([]byte(raw), &qs))
	require.Len(t, qs, 3)

	mc, ok := qs[0].Variant.(MultipleChoice)
	require.True(t, ok)
	assert.Equal(t, []string{"3", "4"}, mc.Options)
	require.NotNil(t, mc.CorrectIndex)
	assert.Equal(t, 1, *mc.CorrectIndex)

	ft, ok := qs[1].Variant.(FreeText)
	require.True(t, ok)
	require.NotNil(t, ft.CorrectText)
	assert.Equal(t, "Paris", *ft.CorrectText)
	assert.Equal(t, 5, qs[1].CategoryID)

	_, ok = qs[2].Variant.(FreeText)
	assert.True(t, ok, "empty options means free-text")
	assert.False(t, qs[2].HasAnswerKey())
}
