// Package mockapi реализует REST API тестов в памяти. Нужен для локальной
// разработки бота и для тестов клиента.
package mockapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	Logger    logrus.FieldLogger
	Now       func() time.Time
}

type Server struct {
	db     *gorm.DB
	router *mux.Router
	secret []byte
	ttl    time.Duration
	log    logrus.FieldLogger
	now    func() time.Time
}

// OpenMemory открывает sqlite в памяти с одним соединением
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func New(db *gorm.DB, opts Options) (*Server, error) {
	if err := db.AutoMigrate(&User{}, &Category{}, &Question{}, &Result{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 24 * time.Hour
	}
	if opts.Logger == nil {
		silent := logrus.New()
		silent.SetOutput(io.Discard)
		opts.Logger = silent
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		db:     db,
		secret: []byte(opts.JWTSecret),
		ttl:    opts.TokenTTL,
		log:    opts.Logger,
		now:    opts.Now,
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) DB() *gorm.DB {
	return s.db
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	r.HandleFunc("/auth/student", s.loginHandler(RoleStudent)).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.loginHandler(RoleTeacher)).Methods(http.MethodPost)
	r.HandleFunc("/categories", s.listCategories).Methods(http.MethodGet)

	authed := r.PathPrefix("").Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/questions/test/{categoryId:[0-9]+}", s.testQuestions).Methods(http.MethodGet)

	student := r.PathPrefix("").Subrouter()
	student.Use(s.authMiddleware, requireRole(RoleStudent))
	student.HandleFunc("/results", s.submitResult).Methods(http.MethodPost)

	teacher := r.PathPrefix("").Subrouter()
	teacher.Use(s.authMiddleware, requireRole(RoleTeacher))
	teacher.HandleFunc("/categories", s.createCategory).Methods(http.MethodPost)
	teacher.HandleFunc("/categories/{id:[0-9]+}", s.updateCategory).Methods(http.MethodPatch)
	teacher.HandleFunc("/categories/{id:[0-9]+}", s.deleteCategory).Methods(http.MethodDelete)
	teacher.HandleFunc("/questions/all", s.allQuestions).Methods(http.MethodGet)
	teacher.HandleFunc("/questions", s.createQuestion).Methods(http.MethodPost)
	teacher.HandleFunc("/questions/{id:[0-9]+}", s.updateQuestion).Methods(http.MethodPatch)
	teacher.HandleFunc("/questions/{id:[0-9]+}", s.deleteQuestion).Methods(http.MethodDelete)
	teacher.HandleFunc("/results/teacher-all", s.teacherResults).Methods(http.MethodGet)
	teacher.HandleFunc("/results/by-student/{name}", s.resultsByStudent).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	s.router = r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.WithFields(logrus.Fields{
			"method": r.Method,
			"uri":    r.RequestURI,
			"remote": r.RemoteAddr,
		}).Debug("mockapi request")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"statusCode": status,
		"message":    message,
	})
}
