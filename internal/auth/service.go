package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/sirupsen/logrus"
)

type LoginAPI interface {
	LoginStudent(ctx context.Context, creds api.LoginRequest) (string, error)
	LoginTeacher(ctx context.Context, creds api.LoginRequest) (string, error)
}

// Service объединяет вход через API и хранение токенов
type Service struct {
	api   LoginAPI
	store *Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(loginAPI LoginAPI, store *Store, log logrus.FieldLogger) *Service {
	return &Service{api: loginAPI, store: store, log: log, now: time.Now}
}

// Login входит под ролью и сохраняет токен. Токен другой роли сохраняется,
// но запросы пойдут с токеном выбранной роли.
func (s *Service) Login(ctx context.Context, userID int64, role Role, username, password string) (*Credentials, *Claims, error) {
	req := api.LoginRequest{Username: username, Password: password}

	var token string
	var err error
	switch role {
	case RoleStudent:
		token, err = s.api.LoginStudent(ctx, req)
	case RoleTeacher:
		token, err = s.api.LoginTeacher(ctx, req)
	default:
		return nil, nil, fmt.Errorf("unknown role %q", role)
	}
	if err != nil {
		return nil, nil, err
	}

	claims, err := DecodeClaims(token)
	if err != nil {
		return nil, nil, err
	}

	creds, err := s.store.Load(ctx, userID)
	if errors.Is(err, ErrNotLoggedIn) {
		creds = &Credentials{UserID: userID}
	} else if err != nil {
		return nil, nil, err
	}
	creds.Role = role
	if role == RoleStudent {
		creds.StudentToken = token
	} else {
		creds.TeacherToken = token
	}
	if err := s.store.Save(ctx, creds); err != nil {
		return nil, nil, err
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "role": role, "username": claims.Username}).Info("logged in")
	return creds, claims, nil
}

// Current возвращает сохранённые данные входа. Просроченный токен удаляется.
func (s *Service) Current(ctx context.Context, userID int64) (*Credentials, *Claims, error) {
	creds, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	token, ok := creds.AccessToken()
	if !ok {
		return nil, nil, ErrNotLoggedIn
	}
	claims, err := DecodeClaims(token)
	if err != nil {
		_ = s.store.Invalidate(ctx, userID)
		return nil, nil, ErrNotLoggedIn
	}
	if claims.Expired(s.now()) {
		if err := s.store.Invalidate(ctx, userID); err != nil {
			s.log.WithError(err).Warn("invalidate expired token")
		}
		return nil, nil, ErrTokenExpired
	}
	return creds, claims, nil
}

func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.store.Invalidate(ctx, userID)
}

// RequireTeacher пропускает только вход под ролью преподавателя с ролью teacher в токене
func (s *Service) RequireTeacher(ctx context.Context, userID int64) (*Credentials, *Claims, error) {
	creds, claims, err := s.Current(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if creds.Role != RoleTeacher || claims.Role != "teacher" {
		return nil, nil, ErrForbidden
	}
	return creds, claims, nil
}
