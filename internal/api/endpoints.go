package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

func (c *Client) ListCategories(ctx context.Context) ([]Category, error) {
	var out []Category
	err := c.do(ctx, "list categories", http.MethodGet, "/categories", nil, &out)
	return out, err
}

func (c *Client) CreateCategory(ctx context.Context, name string) (*Category, error) {
	var out Category
	err := c.do(ctx, "create category", http.MethodPost, "/categories", map[string]string{"name": name}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCategory(ctx context.Context, id int, name string) (*Category, error) {
	var out Category
	path := fmt.Sprintf("/categories/%d", id)
	err := c.do(ctx, "update category", http.MethodPatch, path, map[string]string{"name": name}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	return c.do(ctx, "delete category", http.MethodDelete, fmt.Sprintf("/categories/%d", id), nil, nil)
}

// TestQuestions вопросы категории для прохождения теста (без правильных ответов)
func (c *Client) TestQuestions(ctx context.Context, categoryID int) ([]Question, error) {
	var out []Question
	err := c.do(ctx, "test questions", http.MethodGet, fmt.Sprintf("/questions/test/%d", categoryID), nil, &out)
	return out, err
}

// FullQuestions тот же адрес, что и TestQuestions, но вызывается после отправки результата.
// Правильные ответы в нём есть, только если сервер их отдал; см. Question.HasAnswerKey.
func (c *Client) FullQuestions(ctx context.Context, categoryID int) ([]Question, error) {
	var out []Question
	err := c.do(ctx, "full questions", http.MethodGet, fmt.Sprintf("/questions/test/%d", categoryID), nil, &out)
	return out, err
}

func (c *Client) AllQuestions(ctx context.Context) ([]Question, error) {
	var out []Question
	err := c.do(ctx, "all questions", http.MethodGet, "/questions/all", nil, &out)
	return out, err
}

func (c *Client) CreateQuestion(ctx context.Context, in QuestionInput) (*Question, error) {
	var out Question
	if err := c.do(ctx, "create question", http.MethodPost, "/questions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateQuestion(ctx context.Context, id int, in QuestionInput) (*Question, error) {
	var out Question
	if err := c.do(ctx, "update question", http.MethodPatch, fmt.Sprintf("/questions/%d", id), in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteQuestion(ctx context.Context, id int) error {
	return c.do(ctx, "delete question", http.MethodDelete, fmt.Sprintf("/questions/%d", id), nil, nil)
}

func (c *Client) SubmitResult(ctx context.Context, payload SessionPayload) (*Result, error) {
	var out Result
	if err := c.do(ctx, "submit result", http.MethodPost, "/results", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) TeacherResults(ctx context.Context) ([]StudentResult, error) {
	var out []StudentResult
	err := c.do(ctx, "teacher results", http.MethodGet, "/results/teacher-all", nil, &out)
	return out, err
}

func (c *Client) ResultsByStudent(ctx context.Context, name string) ([]StudentResult, error) {
	var out []StudentResult
	path := "/results/by-student/" + url.PathEscape(name)
	err := c.do(ctx, "results by student", http.MethodGet, path, nil, &out)
	return out, err
}

var ErrNoToken = errors.New("token was not returned")

// LoginStudent возвращает student_access_token
func (c *Client) LoginStudent(ctx context.Context, creds LoginRequest) (string, error) {
	var out studentLoginResponse
	if err := c.do(ctx, "student login", http.MethodPost, "/auth/student", creds, &out); err != nil {
		return "", err
	}
	if out.StudentAccessToken == "" {
		return "", fmt.Errorf("student login: %w", ErrNoToken)
	}
	return out.StudentAccessToken, nil
}

// LoginTeacher возвращает access_token
func (c *Client) LoginTeacher(ctx context.Context, creds LoginRequest) (string, error) {
	var out teacherLoginResponse
	if err := c.do(ctx, "teacher login", http.MethodPost, "/auth/login", creds, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("teacher login: %w", ErrNoToken)
	}
	return out.AccessToken, nil
}
