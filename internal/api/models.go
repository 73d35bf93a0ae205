package api

import (
	"encoding/json"
	"time"
)

type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Variant отличает вопрос с вариантами ответа от вопроса со свободным ответом
type Variant interface {
	isVariant()
}

// MultipleChoice вопрос с вариантами. CorrectIndex равен nil, если сервер скрыл ответ.
type MultipleChoice struct {
	Options      []string
	CorrectIndex *int
}

// FreeText вопрос с текстовым ответом. CorrectText равен nil, если сервер скрыл ответ.
type FreeText struct {
	CorrectText *string
}

func (MultipleChoice) isVariant() {}
func (FreeText) isVariant()       {}

type Question struct {
	ID         int
	Text       string
	CategoryID int
	Category   *Category
	Variant    Variant
}

// wireQuestion совпадает с JSON, который отдаёт сервер
type wireQuestion struct {
	ID                 int       `json:"id"`
	Question           string    `json:"question"`
	Options            []string  `json:"options,omitempty"`
	CorrectAnswerIndex *int      `json:"correctAnswerIndex,omitempty"`
	CorrectTextAnswer  *string   `json:"correctTextAnswer,omitempty"`
	CategoryID         int       `json:"categoryId"`
	Category           *Category `json:"category,omitempty"`
}

func (q *Question) UnmarshalJSON(data []byte) error {
	var w wireQuestion
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	q.ID = w.ID
	q.Text = w.Question
	q.CategoryID = w.CategoryID
	q.Category = w.Category
	if q.CategoryID == 0 && w.Category != nil {
		q.CategoryID = w.Category.ID
	}
	if len(w.Options) > 0 {
		q.Variant = MultipleChoice{Options: w.Options, CorrectIndex: w.CorrectAnswerIndex}
	} else {
		q.Variant = FreeText{CorrectText: w.CorrectTextAnswer}
	}
	return nil
}

func (q Question) MarshalJSON() ([]byte, error) {
	w := wireQuestion{
		ID:         q.ID,
		Question:   q.Text,
		CategoryID: q.CategoryID,
		Category:   q.Category,
	}
	switch v := q.Variant.(type) {
	case MultipleChoice:
		w.Options = v.Options
		w.CorrectAnswerIndex = v.CorrectIndex
	case FreeText:
		w.CorrectTextAnswer = v.CorrectText
	}
	return json.Marshal(w)
}

// Options возвращает варианты ответа или nil для текстового вопроса
func (q Question) Options() []string {
	if mc, ok := q.Variant.(MultipleChoice); ok {
		return mc.Options
	}
	return nil
}

func (q Question) IsMultipleChoice() bool {
	_, ok := q.Variant.(MultipleChoice)
	return ok
}

// HasAnswerKey сообщает, пришёл ли правильный ответ (вопрос не скрыт сервером)
func (q Question) HasAnswerKey() bool {
	switch v := q.Variant.(type) {
	case MultipleChoice:
		return v.CorrectIndex != nil
	case FreeText:
		return v.CorrectText != nil
	}
	return false
}

// QuestionInput тело запроса на создание и изменение вопроса
type QuestionInput struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex,omitempty"`
	CorrectTextAnswer  *string  `json:"correctTextAnswer,omitempty"`
	CategoryID         int      `json:"categoryId"`
}

// AnswerRecord ответ на один вопрос сессии. Не заданное поле означает "нет ответа".
type AnswerRecord struct {
	QuestionID      int
	UserAnswerIndex *int
	UserAnswerText  *string
}

func (a AnswerRecord) Answered() bool {
	if a.UserAnswerIndex != nil {
		return true
	}
	return a.UserAnswerText != nil && *a.UserAnswerText != ""
}

// MarshalJSON заменяет пустые поля на -1 и "", как ожидает сервер
func (a AnswerRecord) MarshalJSON() ([]byte, error) {
	out := struct {
		QuestionID      int    `json:"questionId"`
		UserAnswerIndex int    `json:"userAnswerIndex"`
		UserAnswerText  string `json:"userAnswerText"`
	}{QuestionID: a.QuestionID, UserAnswerIndex: -1}
	if a.UserAnswerIndex != nil {
		out.UserAnswerIndex = *a.UserAnswerIndex
	}
	if a.UserAnswerText != nil {
		out.UserAnswerText = *a.UserAnswerText
	}
	return json.Marshal(out)
}

// SessionPayload отправляется в POST /results
type SessionPayload struct {
	StudentFullName string         `json:"studentFullName"`
	SessionID       string         `json:"sessionId"`
	CategoryID      int            `json:"categoryId"`
	TotalQuestions  int            `json:"totalQuestions"`
	TimeSpent       int            `json:"timeSpent"`
	Answers         []AnswerRecord `json:"answers"`
}

type DetailedAnswer struct {
	QuestionID      int     `json:"questionId"`
	UserAnswerIndex *int    `json:"userAnswerIndex,omitempty"`
	UserAnswerText  *string `json:"userAnswerText,omitempty"`
	IsCorrect       *bool   `json:"isCorrect,omitempty"`
}

// Result оценка, посчитанная сервером
type Result struct {
	Score           int              `json:"score"`
	Total           int              `json:"total"`
	Percentage      float64          `json:"percentage"`
	TimeSpent       int              `json:"timeSpent"`
	DetailedAnswers []DetailedAnswer `json:"detailedAnswers"`
}

// StudentResult строка из списка результатов для преподавателя
type StudentResult struct {
	ID                int              `json:"id"`
	StudentFullName   string           `json:"studentFullName"`
	CategoryID        int              `json:"categoryId"`
	TotalScore        int              `json:"totalScore"`
	TotalQuestions    int              `json:"totalQuestions"`
	TimeSpent         int              `json:"timeSpent"`
	CreatedAt         time.Time        `json:"createdAt"`
	DetailedAnswers   []DetailedAnswer `json:"detailedAnswers,omitempty"`
	DetailedQuestions []Question       `json:"detailedQuestions,omitempty"`
}

// Percentage доля правильных ответов в процентах
func (r StudentResult) Percentage() float64 {
	if r.TotalQuestions == 0 {
		return 0
	}
	return float64(r.TotalScore) / float64(r.TotalQuestions) * 100
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type studentLoginResponse struct {
	StudentAccessToken string `json:"student_access_token"`
}

type teacherLoginResponse struct {
	AccessToken string `json:"access_token"`
}
