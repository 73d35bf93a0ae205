package service

import (
	"fmt"
	"strings"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
)

const Unanswered = "нет ответа"

// ReviewItem строка разбора одного ответа
type ReviewItem struct {
	QuestionID int
	Question   string
	UserAnswer string
	Answered   bool
	// CorrectAnswer пустой, если сервер не прислал правильный ответ
	CorrectAnswer string
	IsCorrect     bool
}

// Review разбор результата. Missing содержит id вопросов из ответа сервера,
// которых нет среди полных вопросов.
type Review struct {
	Items   []ReviewItem
	Missing []int
}

// Reconcile сопоставляет ответы из результата с полными вопросами по id вопроса.
// Ответы без найденного вопроса не попадают в Items и перечисляются в Missing.
func Reconcile(res api.Result, full []api.Question) Review {
	return reconcile(res.DetailedAnswers, full)
}

// ReconcileStudentResult разбор сохранённого результата из списка преподавателя
func ReconcileStudentResult(r api.StudentResult) Review {
	return reconcile(r.DetailedAnswers, r.DetailedQuestions)
}

func reconcile(answers []api.DetailedAnswer, full []api.Question) Review {
	byID := make(map[int]api.Question, len(full))
	for _, q := range full {
		byID[q.ID] = q
	}

	var review Review
	for _, a := range answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			review.Missing = append(review.Missing, a.QuestionID)
			continue
		}

		display, answered := DisplayAnswer(q, a.UserAnswerIndex, a.UserAnswerText)
		correct, _ := CorrectAnswer(q)
		item := ReviewItem{
			QuestionID:    q.ID,
			Question:      q.Text,
			UserAnswer:    display,
			Answered:      answered,
			CorrectAnswer: correct,
		}
		if a.IsCorrect != nil {
			item.IsCorrect = *a.IsCorrect
		} else {
			item.IsCorrect, _ = IsCorrect(q, a.UserAnswerIndex, a.UserAnswerText)
		}
		review.Items = append(review.Items, item)
	}
	return review
}

// OptionLabel "A. текст" для варианта с индексом i. После Z варианты нумеруются.
func OptionLabel(i int, option string) string {
	if i < 0 || i >= 26 {
		return fmt.Sprintf("%d. %s", i+1, option)
	}
	return fmt.Sprintf("%c. %s", rune('A'+i), option)
}

// DisplayAnswer текст ответа пользователя для разбора
func DisplayAnswer(q api.Question, index *int, text *string) (string, bool) {
	switch v := q.Variant.(type) {
	case api.MultipleChoice:
		if index == nil || *index < 0 || *index >= len(v.Options) {
			return Unanswered, false
		}
		return OptionLabel(*index, v.Options[*index]), true
	default:
		if text == nil || strings.TrimSpace(*text) == "" {
			return Unanswered, false
		}
		return strings.TrimSpace(*text), true
	}
}

// CorrectAnswer текст правильного ответа, если сервер его прислал
func CorrectAnswer(q api.Question) (string, bool) {
	switch v := q.Variant.(type) {
	case api.MultipleChoice:
		if v.CorrectIndex == nil || *v.CorrectIndex < 0 || *v.CorrectIndex >= len(v.Options) {
			return "", false
		}
		return OptionLabel(*v.CorrectIndex, v.Options[*v.CorrectIndex]), true
	case api.FreeText:
		if v.CorrectText == nil {
			return "", false
		}
		return strings.TrimSpace(*v.CorrectText), true
	}
	return "", false
}

// IsCorrect проверяет ответ по полному вопросу. Второе значение false,
// если правильный ответ неизвестен.
func IsCorrect(q api.Question, index *int, text *string) (bool, bool) {
	switch v := q.Variant.(type) {
	case api.MultipleChoice:
		if v.CorrectIndex == nil {
			return false, false
		}
		return index != nil && *index == *v.CorrectIndex, true
	case api.FreeText:
		if v.CorrectText == nil {
			return false, false
		}
		if text == nil {
			return false, true
		}
		return strings.EqualFold(strings.TrimSpace(*text), strings.TrimSpace(*v.CorrectText)), true
	}
	return false, false
}

// FormatClock секунды в виде m:ss
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
