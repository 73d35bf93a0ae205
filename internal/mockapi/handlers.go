package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

func pathID(r *http.Request, key string) int {
	id, _ := strconv.Atoi(mux.Vars(r)[key])
	return id
}

// Категории

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	var cats []Category
	if err := s.db.Order("id").Find(&cats).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name should not be empty")
		return
	}
	cat := Category{Name: strings.TrimSpace(req.Name)}
	if err := s.db.Create(&cat).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name should not be empty")
		return
	}

	var cat Category
	if err := s.db.First(&cat, pathID(r, "id")).Error; err != nil {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	cat.Name = strings.TrimSpace(req.Name)
	if err := s.db.Save(&cat).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("category_id = ?", id).Delete(&Question{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Category{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// Вопросы

// testQuestions отдаёт правильные ответы преподавателю и студенту, который уже
// сохранил результат по этой категории. Остальным ответы скрыты.
func (s *Server) testQuestions(w http.ResponseWriter, r *http.Request) {
	categoryID := pathID(r, "categoryId")

	var qs []Question
	if err := s.db.Where("category_id = ?", categoryID).Order("id").Find(&qs).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	claims := claimsFrom(r)
	withAnswers := claims.Role == RoleTeacher
	if !withAnswers {
		var n int64
		err := s.db.Model(&Result{}).
			Where("username = ? AND category_id = ?", claims.Username, categoryID).
			Count(&n).Error
		if err != nil {
			writeError(w, http.StatusInternalServerError, "database error")
			return
		}
		withAnswers = n > 0
	}

	out := make([]questionJSON, len(qs))
	for i, q := range qs {
		out[i] = toQuestionJSON(q, withAnswers, false)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) allQuestions(w http.ResponseWriter, r *http.Request) {
	var qs []Question
	if err := s.db.Preload("Category").Order("id").Find(&qs).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	out := make([]questionJSON, len(qs))
	for i, q := range qs {
		out[i] = toQuestionJSON(q, true, true)
	}
	writeJSON(w, http.StatusOK, out)
}

// validateQuestion возвращает текст ошибки для 400 или err, если не удалось проверить категорию
func (s *Server) validateQuestion(in questionInput) (string, error) {
	if strings.TrimSpace(in.Question) == "" {
		return "question should not be empty", nil
	}
	var n int64
	if err := s.db.Model(&Category{}).Where("id = ?", in.CategoryID).Count(&n).Error; err != nil {
		return "", err
	}
	if n == 0 {
		return "category not found", nil
	}
	if len(in.Options) > 0 {
		if in.CorrectAnswerIndex == nil || *in.CorrectAnswerIndex < 0 || *in.CorrectAnswerIndex >= len(in.Options) {
			return "correctAnswerIndex is out of range", nil
		}
		return "", nil
	}
	if in.CorrectTextAnswer == nil || strings.TrimSpace(*in.CorrectTextAnswer) == "" {
		return "correctTextAnswer should not be empty", nil
	}
	return "", nil
}

func applyQuestionInput(q *Question, in questionInput) {
	q.Question = strings.TrimSpace(in.Question)
	q.CategoryID = in.CategoryID
	if len(in.Options) > 0 {
		opts, _ := json.Marshal(in.Options)
		q.Options = string(opts)
		q.CorrectAnswerIndex = in.CorrectAnswerIndex
		q.CorrectTextAnswer = nil
		return
	}
	q.Options = ""
	q.CorrectAnswerIndex = nil
	q.CorrectTextAnswer = in.CorrectTextAnswer
}

func (s *Server) createQuestion(w http.ResponseWriter, r *http.Request) {
	var in questionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	msg, err := s.validateQuestion(in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	var q Question
	applyQuestionInput(&q, in)
	if err := s.db.Omit("Category").Create(&q).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusCreated, toQuestionJSON(q, true, false))
}

func (s *Server) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var q Question
	if err := s.db.First(&q, pathID(r, "id")).Error; err != nil {
		writeError(w, http.StatusNotFound, "Question not found")
		return
	}

	// PATCH: незаданные поля берутся из текущей записи
	in := questionInput{
		Question:           q.Question,
		Options:            q.OptionList(),
		CorrectAnswerIndex: q.CorrectAnswerIndex,
		CorrectTextAnswer:  q.CorrectTextAnswer,
		CategoryID:         q.CategoryID,
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	msg, err := s.validateQuestion(in)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	applyQuestionInput(&q, in)
	if err := s.db.Omit("Category").Save(&q).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, toQuestionJSON(q, true, false))
}

func (s *Server) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	res := s.db.Delete(&Question{}, pathID(r, "id"))
	if res.Error != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if res.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "Question not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// Результаты

func (s *Server) submitResult(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId should not be empty")
		return
	}

	var exists int64
	if err := s.db.Model(&Result{}).Where("session_id = ?", req.SessionID).Count(&exists).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if exists > 0 {
		writeError(w, http.StatusConflict, "Result for this session already exists")
		return
	}

	var qs []Question
	if err := s.db.Where("category_id = ?", req.CategoryID).Find(&qs).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if len(qs) == 0 {
		writeError(w, http.StatusBadRequest, "category has no questions")
		return
	}
	byID := make(map[int]Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}

	score := 0
	detailed := make([]detailedAnswerJSON, 0, len(req.Answers))
	for _, a := range req.Answers {
		q, ok := byID[a.QuestionID]
		if !ok {
			continue
		}
		correct := q.Check(a)
		if correct {
			score++
		}
		detailed = append(detailed, toDetailed(q, a, correct))
	}

	claims := claimsFrom(r)
	name := req.StudentFullName
	if name == "" {
		name = claims.Username
	}
	stored, _ := json.Marshal(req.Answers)
	res := Result{
		SessionID:       req.SessionID,
		Username:        claims.Username,
		StudentFullName: name,
		CategoryID:      req.CategoryID,
		TotalScore:      score,
		TotalQuestions:  len(qs),
		TimeSpent:       req.TimeSpent,
		Answers:         string(stored),
		CreatedAt:       s.now(),
	}
	if err := s.db.Create(&res).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	writeJSON(w, http.StatusCreated, resultJSON{
		Score:           score,
		Total:           len(qs),
		Percentage:      percentage(score, len(qs)),
		TimeSpent:       req.TimeSpent,
		DetailedAnswers: detailed,
	})
}

func toDetailed(q Question, a answerJSON, correct bool) detailedAnswerJSON {
	d := detailedAnswerJSON{QuestionID: a.QuestionID, IsCorrect: correct}
	if len(q.OptionList()) > 0 {
		idx := a.UserAnswerIndex
		d.UserAnswerIndex = &idx
	} else {
		text := a.UserAnswerText
		d.UserAnswerText = &text
	}
	return d
}

func percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(score)/float64(total)*10000) / 100
}

func (s *Server) teacherResults(w http.ResponseWriter, r *http.Request) {
	var rows []Result
	if err := s.db.Order("created_at desc").Find(&rows).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	out, err := s.studentResults(rows)
	if err != nil {
		s.log.WithError(err).Error("teacher results")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) resultsByStudent(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(mux.Vars(r)["name"])
	var rows []Result
	err := s.db.Where("LOWER(student_full_name) LIKE ? OR LOWER(username) = ?",
		"%"+strings.ToLower(name)+"%", strings.ToLower(name)).
		Order("created_at desc").Find(&rows).Error
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "Student not found")
		return
	}
	out, err := s.studentResults(rows)
	if err != nil {
		s.log.WithError(err).Error("results by student")
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// studentResults добавляет к каждой записи разбор ответов и вопросы в том же порядке
func (s *Server) studentResults(rows []Result) ([]studentResultJSON, error) {
	out := make([]studentResultJSON, 0, len(rows))
	for _, row := range rows {
		var answers []answerJSON
		if row.Answers != "" {
			if err := json.Unmarshal([]byte(row.Answers), &answers); err != nil {
				return nil, fmt.Errorf("result %d answers: %w", row.ID, err)
			}
		}

		ids := make([]int, len(answers))
		for i, a := range answers {
			ids[i] = a.QuestionID
		}
		var qs []Question
		if len(ids) > 0 {
			if err := s.db.Where("id IN ?", ids).Find(&qs).Error; err != nil {
				return nil, fmt.Errorf("result %d questions: %w", row.ID, err)
			}
		}
		byID := make(map[int]Question, len(qs))
		for _, q := range qs {
			byID[q.ID] = q
		}

		item := studentResultJSON{
			ID:              row.ID,
			StudentFullName: row.StudentFullName,
			CategoryID:      row.CategoryID,
			TotalScore:      row.TotalScore,
			TotalQuestions:  row.TotalQuestions,
			TimeSpent:       row.TimeSpent,
			CreatedAt:       row.CreatedAt,
		}
		for _, a := range answers {
			q, ok := byID[a.QuestionID]
			if !ok {
				continue
			}
			item.DetailedAnswers = append(item.DetailedAnswers, toDetailed(q, a, q.Check(a)))
			item.DetailedQuestions = append(item.DetailedQuestions, toQuestionJSON(q, true, false))
		}
		out = append(out, item)
	}
	return out, nil
}
