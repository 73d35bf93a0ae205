package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
)

func fullQuestions() []api.Question {
	return []api.Question{
		{ID: 1, Text: "CPU?", Variant: api.MultipleChoice{Options: []string{"Disk", "Processor"}, CorrectIndex: intPtr(1)}},
		{ID: 2, Text: "RAM?", Variant: api.FreeText{CorrectText: strPtr("Random Access Memory")}},
	}
}

func TestReconcile(t *testing.T) {
	res := api.Result{DetailedAnswers: []api.DetailedAnswer{
		{QuestionID: 2, UserAnswerText: strPtr("  random access memory "), IsCorrect: boolPtr(true)},
		{QuestionID: 42, UserAnswerIndex: intPtr(0), IsCorrect: boolPtr(false)},
		{QuestionID: 1, UserAnswerIndex: intPtr(0), IsCorrect: boolPtr(false)},
	}}

	review := Reconcile(res, fullQuestions())

	require.Len(t, review.Items, 2)
	assert.Equal(t, []int{42}, review.Missing)

	ft := review.Items[0]
	assert.Equal(t, 2, ft.QuestionID)
	assert.Equal(t, "random access memory", ft.UserAnswer)
	assert.Equal(t, "Random Access Memory", ft.CorrectAnswer)
	assert.True(t, ft.IsCorrect)
	assert.True(t, ft.Answered)

	mcItem := review.Items[1]
	assert.Equal(t, "A. Disk", mcItem.UserAnswer)
	assert.Equal(t, "B. Processor", mcItem.CorrectAnswer)
	assert.False(t, mcItem.IsCorrect)
}

func TestReconcileEmptyFullFetch(t *testing.T) {
	res := api.Result{Score: 1, DetailedAnswers: []api.DetailedAnswer{{QuestionID: 1}}}
	review := Reconcile(res, nil)

	assert.Empty(t, review.Items)
	assert.Equal(t, []int{1}, review.Missing)
}

func TestReconcileFallsBackToLocalCheck(t *testing.T) {
	res := api.Result{DetailedAnswers: []api.DetailedAnswer{
		{QuestionID: 1, UserAnswerIndex: intPtr(1)},
		{QuestionID: 2, UserAnswerText: strPtr("ROM")},
	}}

	review := Reconcile(res, fullQuestions())
	require.Len(t, review.Items, 2)
	assert.True(t, review.Items[0].IsCorrect)
	assert.False(t, review.Items[1].IsCorrect)
}

func TestReconcileServerFlagWins(t *testing.T) {
	res := api.Result{DetailedAnswers: []api.DetailedAnswer{
		{QuestionID: 1, UserAnswerIndex: intPtr(1), IsCorrect: boolPtr(false)},
	}}

	review := Reconcile(res, fullQuestions())
	require.Len(t, review.Items, 1)
	assert.False(t, review.Items[0].IsCorrect)
}

func TestReconcileStudentResult(t *testing.T) {
	r := api.StudentResult{
		DetailedAnswers:   []api.DetailedAnswer{{QuestionID: 1, UserAnswerIndex: intPtr(1)}},
		DetailedQuestions: fullQuestions(),
	}
	review := ReconcileStudentResult(r)
	require.Len(t, review.Items, 1)
	assert.True(t, review.Items[0].IsCorrect)
	assert.Empty(t, review.Missing)
}

func TestDisplayAnswer(t *testing.T) {
	q := fullQuestions()
	tests := []struct {
		name     string
		question api.Question
		index    *int
		text     *string
		want     string
		answered bool
	}{
		{"choice", q[0], intPtr(1), nil, "B. Processor", true},
		{"choice unset", q[0], nil, nil, Unanswered, false},
		{"choice minus one", q[0], intPtr(-1), nil, Unanswered, false},
		{"choice out of range", q[0], intPtr(5), nil, Unanswered, false},
		{"text", q[1], nil, strPtr(" DRAM "), "DRAM", true},
		{"text blank", q[1], nil, strPtr("   "), Unanswered, false},
		{"text unset", q[1], nil, nil, Unanswered, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, answered := DisplayAnswer(tt.question, tt.index, tt.text)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.answered, answered)
		})
	}
}

func TestCorrectAnswerRedacted(t *testing.T) {
	_, ok := CorrectAnswer(mc(1, "a", "b"))
	assert.False(t, ok)
	_, ok = CorrectAnswer(ft(2))
	assert.False(t, ok)

	_, known := IsCorrect(mc(1, "a", "b"), intPtr(0), nil)
	assert.False(t, known)
}

func TestOptionLabel(t *testing.T) {
	assert.Equal(t, "A. first", OptionLabel(0, "first"))
	assert.Equal(t, "D. fourth", OptionLabel(3, "fourth"))
	assert.Equal(t, "Z. last letter", OptionLabel(25, "last letter"))
	assert.Equal(t, "27. past z", OptionLabel(26, "past z"))
	assert.Equal(t, "30. thirtieth", OptionLabel(29, "thirtieth"))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "15:00", FormatClock(900))
	assert.Equal(t, "0:09", FormatClock(9))
	assert.Equal(t, "1:05", FormatClock(65))
	assert.Equal(t, "0:00", FormatClock(-3))
}
