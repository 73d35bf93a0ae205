package auth

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
	"github.com/PoluyanbIch/TerduQuizBot/internal/config"
	"github.com/PoluyanbIch/TerduQuizBot/internal/storage"
)

type mockLoginAPI struct {
	mock.Mock
}

func (m *mockLoginAPI) LoginStudent(ctx context.Context, creds api.LoginRequest) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

func (m *mockLoginAPI) LoginTeacher(ctx context.Context, creds api.LoginRequest) (string, error) {
	args := m.Called(ctx, creds)
	return args.String(0), args.Error(1)
}

func signToken(t *testing.T, username, role string, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":      username,
		"username": username,
		"fullName": "Full " + username,
		"role":     role,
		"exp":      exp.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.Open(config.Storage{Driver: config.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	s := NewStore(db)
	require.NoError(t, s.Migrate())
	require.True(t, db.Migrator().HasTable(&Credentials{}))
	return s
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("Failed to open gorm database: %v", err)
	}

	return gormDB, mock
}

func TestCredentialsAccessToken(t *testing.T) {
	c := &Credentials{Role: RoleStudent, StudentToken: "s", TeacherToken: "t"}
	tok, ok := c.AccessToken()
	assert.True(t, ok)
	assert.Equal(t, "s", tok)

	c.Role = RoleTeacher
	tok, ok = c.AccessToken()
	assert.True(t, ok)
	assert.Equal(t, "t", tok)

	c.TeacherToken = ""
	_, ok = c.AccessToken()
	assert.False(t, ok)

	var nilCreds *Credentials
	_, ok = nilCreds.AccessToken()
	assert.False(t, ok)
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Teacher ")
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, r)

	r, err = ParseRole("student")
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, r)

	_, err = ParseRole("admin")
	assert.Error(t, err)
}

func TestDecodeClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	c, err := DecodeClaims(signToken(t, "ali", "TEACHER", exp))
	require.NoError(t, err)

	assert.Equal(t, "ali", c.Subject)
	assert.Equal(t, "ali", c.Username)
	assert.Equal(t, "teacher", c.Role)
	assert.Equal(t, "Full ali", c.DisplayName())
	assert.True(t, c.ExpiresAt.Equal(exp))
	assert.False(t, c.Expired(exp.Add(-time.Second)))
	assert.True(t, c.Expired(exp))

	_, err = DecodeClaims("not-a-token")
	assert.Error(t, err)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	_, err := s.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	require.NoError(t, s.Save(ctx, &Credentials{UserID: 1, Role: RoleStudent, StudentToken: "a"}))
	require.NoError(t, s.Save(ctx, &Credentials{UserID: 1, Role: RoleTeacher, StudentToken: "a", TeacherToken: "b"}))

	c, err := s.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, RoleTeacher, c.Role)
	assert.Equal(t, "b", c.TeacherToken)

	require.NoError(t, s.Invalidate(ctx, 1))
	_, err = s.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestStoreDatabaseErrors(t *testing.T) {
	db, dbMock := setupMockDB(t)
	s := NewStore(db)

	dbMock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `credentials`")).
		WillReturnError(errors.New("connection lost"))
	_, err := s.Load(context.Background(), 7)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotLoggedIn)

	dbMock.ExpectBegin()
	dbMock.ExpectExec(regexp.QuoteMeta("DELETE FROM `credentials`")).
		WillReturnError(errors.New("read only"))
	dbMock.ExpectRollback()
	err = s.Invalidate(context.Background(), 7)
	assert.ErrorContains(t, err, "invalidate credentials")

	assert.NoError(t, dbMock.ExpectationsWereMet())
}

func TestServiceLogin(t *testing.T) {
	ctx := context.Background()
	loginAPI := new(mockLoginAPI)
	svc := NewService(loginAPI, setupStore(t), silentLogger())

	studentToken := signToken(t, "student", "student", time.Now().Add(time.Hour))
	teacherToken := signToken(t, "teacher", "teacher", time.Now().Add(time.Hour))
	loginAPI.On("LoginStudent", ctx, api.LoginRequest{Username: "student", Password: "pw"}).Return(studentToken, nil)
	loginAPI.On("LoginTeacher", ctx, api.LoginRequest{Username: "teacher", Password: "pw"}).Return(teacherToken, nil)
	loginAPI.On("LoginTeacher", ctx, api.LoginRequest{Username: "teacher", Password: "bad"}).
		Return("", &api.Error{Op: "login teacher", StatusCode: 401, Message: "Login yoki parol noto'g'ri"})

	creds, claims, err := svc.Login(ctx, 10, RoleStudent, "student", "pw")
	require.NoError(t, err)
	assert.Equal(t, RoleStudent, creds.Role)
	assert.Equal(t, "student", claims.Username)

	_, _, err = svc.RequireTeacher(ctx, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	_, _, err = svc.Login(ctx, 10, RoleTeacher, "teacher", "bad")
	assert.True(t, api.IsUnauthorized(err))

	creds, _, err = svc.Login(ctx, 10, RoleTeacher, "teacher", "pw")
	require.NoError(t, err)
	assert.Equal(t, studentToken, creds.StudentToken)
	assert.Equal(t, teacherToken, creds.TeacherToken)

	_, claims, err = svc.RequireTeacher(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "teacher", claims.Role)

	require.NoError(t, svc.Logout(ctx, 10))
	_, _, err = svc.Current(ctx, 10)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	loginAPI.AssertExpectations(t)
}

func TestServiceTeacherRoleMismatch(t *testing.T) {
	ctx := context.Background()
	loginAPI := new(mockLoginAPI)
	svc := NewService(loginAPI, setupStore(t), silentLogger())

	// токен преподавателя с ролью student в payload
	token := signToken(t, "mallory", "student", time.Now().Add(time.Hour))
	loginAPI.On("LoginTeacher", ctx, mock.Anything).Return(token, nil)

	_, _, err := svc.Login(ctx, 3, RoleTeacher, "mallory", "pw")
	require.NoError(t, err)
	_, _, err = svc.RequireTeacher(ctx, 3)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestServiceExpiredToken(t *testing.T) {
	ctx := context.Background()
	loginAPI := new(mockLoginAPI)
	store := setupStore(t)
	svc := NewService(loginAPI, store, silentLogger())

	now := time.Now()
	token := signToken(t, "student", "student", now.Add(time.Minute))
	loginAPI.On("LoginStudent", ctx, mock.Anything).Return(token, nil)

	_, _, err := svc.Login(ctx, 5, RoleStudent, "student", "pw")
	require.NoError(t, err)

	svc.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, _, err = svc.Current(ctx, 5)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = store.Load(ctx, 5)
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}
