package mockapi

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:64"`
	FullName     string
	PasswordHash string
	Role         string `gorm:"size:16"`
}

type Category struct {
	ID   int    `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"size:255"`
}

// Question хранит варианты как JSON-строку
type Question struct {
	ID                 int `gorm:"primaryKey"`
	Question           string
	Options            string `gorm:"type:text"`
	CorrectAnswerIndex *int
	CorrectTextAnswer  *string
	CategoryID         int `gorm:"index"`
	Category           Category
}

func (q Question) OptionList() []string {
	if q.Options == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(q.Options), &out); err != nil {
		return nil
	}
	return out
}

// Check сравнивает ответ с ключом: индекс для вопросов с вариантами,
// текст без учёта регистра и пробелов по краям для остальных
func (q Question) Check(a answerJSON) bool {
	if len(q.OptionList()) > 0 {
		return q.CorrectAnswerIndex != nil && a.UserAnswerIndex == *q.CorrectAnswerIndex
	}
	if q.CorrectTextAnswer == nil {
		return false
	}
	given := strings.ToLower(strings.TrimSpace(a.UserAnswerText))
	return given != "" && given == strings.ToLower(strings.TrimSpace(*q.CorrectTextAnswer))
}

type Result struct {
	ID              int    `gorm:"primaryKey"`
	SessionID       string `gorm:"uniqueIndex;size:128"`
	Username        string `gorm:"index;size:64"`
	StudentFullName string `gorm:"index"`
	CategoryID      int
	TotalScore      int
	TotalQuestions  int
	TimeSpent       int
	Answers         string `gorm:"type:text"`
	CreatedAt       time.Time
}

// JSON-представления

type questionJSON struct {
	ID                 int       `json:"id"`
	Question           string    `json:"question"`
	Options            []string  `json:"options,omitempty"`
	CorrectAnswerIndex *int      `json:"correctAnswerIndex,omitempty"`
	CorrectTextAnswer  *string   `json:"correctTextAnswer,omitempty"`
	CategoryID         int       `json:"categoryId"`
	Category           *Category `json:"category,omitempty"`
}

func toQuestionJSON(q Question, withAnswers, withCategory bool) questionJSON {
	out := questionJSON{
		ID:         q.ID,
		Question:   q.Question,
		Options:    q.OptionList(),
		CategoryID: q.CategoryID,
	}
	if withAnswers {
		out.CorrectAnswerIndex = q.CorrectAnswerIndex
		out.CorrectTextAnswer = q.CorrectTextAnswer
	}
	if withCategory && q.Category.ID != 0 {
		c := q.Category
		out.Category = &c
	}
	return out
}

type questionInput struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *int     `json:"correctAnswerIndex"`
	CorrectTextAnswer  *string  `json:"correctTextAnswer"`
	CategoryID         int      `json:"categoryId"`
}

type answerJSON struct {
	QuestionID      int    `json:"questionId"`
	UserAnswerIndex int    `json:"userAnswerIndex"`
	UserAnswerText  string `json:"userAnswerText"`
}

type submitRequest struct {
	StudentFullName string       `json:"studentFullName"`
	SessionID       string       `json:"sessionId"`
	CategoryID      int          `json:"categoryId"`
	TotalQuestions  int          `json:"totalQuestions"`
	TimeSpent       int          `json:"timeSpent"`
	Answers         []answerJSON `json:"answers"`
}

type detailedAnswerJSON struct {
	QuestionID      int     `json:"questionId"`
	UserAnswerIndex *int    `json:"userAnswerIndex,omitempty"`
	UserAnswerText  *string `json:"userAnswerText,omitempty"`
	IsCorrect       bool    `json:"isCorrect"`
}

type resultJSON struct {
	Score           int                  `json:"score"`
	Total           int                  `json:"total"`
	Percentage      float64              `json:"percentage"`
	TimeSpent       int                  `json:"timeSpent"`
	DetailedAnswers []detailedAnswerJSON `json:"detailedAnswers"`
}

type studentResultJSON struct {
	ID                int                  `json:"id"`
	StudentFullName   string               `json:"studentFullName"`
	CategoryID        int                  `json:"categoryId"`
	TotalScore        int                  `json:"totalScore"`
	TotalQuestions    int                  `json:"totalQuestions"`
	TimeSpent         int                  `json:"timeSpent"`
	CreatedAt         time.Time            `json:"createdAt"`
	DetailedAnswers   []detailedAnswerJSON `json:"detailedAnswers"`
	DetailedQuestions []questionJSON       `json:"detailedQuestions"`
}
