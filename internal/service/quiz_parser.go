package service

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
)

var ErrNoValidQuestions = errors.New("no valid questions found")

// ParseQuestions читает вопросы для импорта, по одному на строку:
//
//	"вопрос" <номер правильного> вариант 1 | вариант 2 | ...
//	"вопрос" = правильный ответ
//
// Номер правильного варианта считается с нуля. Пустые строки и строки
// с # пропускаются.
func ParseQuestions(r io.Reader, categoryID int) ([]api.QuestionInput, error) {
	var questions []api.QuestionInput
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		q, err := ParseQuestionLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		q.CategoryID = categoryID
		questions = append(questions, q)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading questions: %w", err)
	}

	if len(questions) == 0 {
		return nil, ErrNoValidQuestions
	}

	return questions, nil
}

// ParseQuestionLine разбирает одну строку с вопросом
func ParseQuestionLine(line string) (api.QuestionInput, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, `"`) {
		return api.QuestionInput{}, errors.New("invalid format: question must be quoted")
	}

	// Ищем закрывающую кавычку
	quoteEnd := strings.Index(line[1:], `"`) + 1
	if quoteEnd <= 0 {
		return api.QuestionInput{}, errors.New("invalid format: no closing quote")
	}

	text := strings.TrimSpace(line[1:quoteEnd])
	if utf8.RuneCountInString(text) == 0 {
		return api.QuestionInput{}, errors.New("question cannot be empty")
	}

	remaining := strings.TrimSpace(line[quoteEnd+1:])
	if remaining == "" {
		return api.QuestionInput{}, errors.New("no answer found")
	}

	// Текстовый ответ
	if strings.HasPrefix(remaining, "=") {
		answer := strings.TrimSpace(remaining[1:])
		if answer == "" {
			return api.QuestionInput{}, errors.New("answer cannot be empty")
		}
		return api.QuestionInput{Question: text, Options: []string{}, CorrectTextAnswer: &answer}, nil
	}

	fields := strings.SplitN(remaining, " ", 2)
	correct, err := strconv.Atoi(fields[0])
	if err != nil {
		return api.QuestionInput{}, fmt.Errorf("invalid correct option number %q", fields[0])
	}
	if len(fields) < 2 {
		return api.QuestionInput{}, errors.New("no options found")
	}

	var options []string
	for _, opt := range strings.Split(fields[1], "|") {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return api.QuestionInput{}, errors.New("option cannot be empty")
		}
		options = append(options, opt)
	}
	if len(options) < 2 {
		return api.QuestionInput{}, errors.New("at least two options required")
	}
	if correct < 0 || correct >= len(options) {
		return api.QuestionInput{}, fmt.Errorf("correct option must be between 0 and %d, got %d", len(options)-1, correct)
	}

	return api.QuestionInput{Question: text, Options: options, CorrectAnswerIndex: &correct}, nil
}
