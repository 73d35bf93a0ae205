package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error ответ сервера с кодом не 2xx
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
}

// IsStatus проверяет, что err это ответ сервера с данным кодом
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized) || IsStatus(err, http.StatusForbidden)
}

// Message возвращает текст ошибки сервера, если он есть, иначе err.Error()
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// parseErrorMessage достаёт message из тела ответа. Сервер шлёт либо строку, либо массив строк.
func parseErrorMessage(body []byte) string {
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}

	var single string
	if err := json.Unmarshal(payload.Message, &single); err == nil && single != "" {
		return single
	}
	var many []string
	if err := json.Unmarshal(payload.Message, &many); err == nil && len(many) > 0 {
		return strings.Join(many, "; ")
	}
	return payload.Error
}
