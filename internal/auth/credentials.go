package auth

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleTeacher Role = "TEACHER"
)

// ParseRole принимает student/teacher в любом регистре
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleTeacher:
		return RoleTeacher, nil
	}
	return "", errors.New("role must be student or teacher")
}

// Credentials токены одного пользователя бота. Токен для запросов выбирается по Role.
type Credentials struct {
	UserID       int64  `gorm:"primaryKey;autoIncrement:false"`
	Role         Role   `gorm:"size:16"`
	StudentToken string `gorm:"type:text"`
	TeacherToken string `gorm:"type:text"`
	UpdatedAt    time.Time
}

func (Credentials) TableName() string {
	return "credentials"
}

// AccessToken реализует api.TokenSource
func (c *Credentials) AccessToken() (string, bool) {
	if c == nil {
		return "", false
	}
	var token string
	switch c.Role {
	case RoleStudent:
		token = c.StudentToken
	case RoleTeacher:
		token = c.TeacherToken
	}
	return token, token != ""
}
