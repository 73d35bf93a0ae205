package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
)

const DefaultDuration = 15 * time.Minute

// QuizAPI вызовы API, нужные одной сессии теста
type QuizAPI interface {
	ListCategories(ctx context.Context) ([]api.Category, error)
	TestQuestions(ctx context.Context, categoryID int) ([]api.Question, error)
	FullQuestions(ctx context.Context, categoryID int) ([]api.Question, error)
	SubmitResult(ctx context.Context, payload api.SessionPayload) (*api.Result, error)
}

type Options struct {
	Duration    time.Duration
	Clock       Clock
	Notifier    Notifier
	Logger      logrus.FieldLogger
	StudentName string
	// Shuffle перемешивает вопросы перед началом теста
	Shuffle bool
	Rand    *rand.Rand
	// OnExpire вызывается после автоматической отправки по таймеру
	OnExpire func(res *api.Result, err error)
}

// Controller ведёт одну сессию теста: выбор категории, загрузку вопросов,
// ответы, обратный отсчёт и отправку результата.
type Controller struct {
	api      QuizAPI
	clock    Clock
	notifier Notifier
	log      logrus.FieldLogger
	duration int
	student  string
	shuffle  bool
	rnd      *rand.Rand
	onExpire func(res *api.Result, err error)

	life   context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	phase         Phase
	closed        bool
	seq           int
	categories    []api.Category
	loadFailed    bool
	category      *api.Category
	questions     []api.Question
	answers       []api.AnswerRecord
	current       int
	timeLeft      int
	sessionID     string
	submitting    bool
	result        *api.Result
	review        Review
	stopCountdown context.CancelFunc
}

func NewController(quizAPI QuizAPI, opts Options) *Controller {
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	if opts.Shuffle && opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	life, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:      quizAPI,
		clock:    opts.Clock,
		notifier: opts.Notifier,
		log:      opts.Logger,
		duration: int(opts.Duration / time.Second),
		student:  opts.StudentName,
		shuffle:  opts.Shuffle,
		rnd:      opts.Rand,
		onExpire: opts.OnExpire,
		life:     life,
		cancel:   cancel,
		phase:    PhaseSelectCategory,
	}
}

// bind отменяет запрос и при отмене ctx, и при закрытии контроллера
func (c *Controller) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (c *Controller) notify(level Level, text string) {
	c.notifier.Notify(level, text)
}

// Init загружает категории и, если id категории передан (deep link), сразу
// начинает тест по ней. Неизвестный id возвращает на выбор категории.
func (c *Controller) Init(ctx context.Context, categoryID int, hasCategory bool) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if hasCategory {
		c.phase = PhaseLoading
	} else {
		c.phase = PhaseSelectCategory
	}
	c.mu.Unlock()

	categories, err := c.LoadCategories(ctx)
	if err != nil || !hasCategory {
		return err
	}

	for _, cat := range categories {
		if cat.ID == categoryID {
			return c.StartTest(ctx, cat)
		}
	}

	c.mu.Lock()
	c.phase = PhaseSelectCategory
	c.mu.Unlock()
	c.notify(LevelWarn, "Категория не найдена. Выберите категорию из списка.")
	return fmt.Errorf("category %d: %w", categoryID, ErrCategoryNotFound)
}

// LoadCategories загружает список категорий. При ошибке показывает уведомление
// и возвращает сессию к выбору категории.
func (c *Controller) LoadCategories(ctx context.Context) ([]api.Category, error) {
	rctx, cancel := c.bind(ctx)
	defer cancel()

	categories, err := c.api.ListCategories(rctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if err != nil {
		c.loadFailed = true
		if c.phase == PhaseLoading {
			c.phase = PhaseSelectCategory
		}
		c.mu.Unlock()
		c.log.WithError(err).Warn("load categories")
		c.notify(LevelError, "Не удалось загрузить категории: "+api.Message(err))
		return nil, fmt.Errorf("load categories: %w", err)
	}
	c.categories = append([]api.Category(nil), categories...)
	c.loadFailed = false
	c.mu.Unlock()

	return categories, nil
}

// SelectCategory начинает тест по категории из загруженного списка
func (c *Controller) SelectCategory(ctx context.Context, categoryID int) error {
	c.mu.Lock()
	var found *api.Category
	for i := range c.categories {
		if c.categories[i].ID == categoryID {
			cat := c.categories[i]
			found = &cat
			break
		}
	}
	c.mu.Unlock()

	if found == nil {
		c.notify(LevelWarn, "Категория не найдена. Выберите категорию из списка.")
		return fmt.Errorf("category %d: %w", categoryID, ErrCategoryNotFound)
	}
	return c.StartTest(ctx, *found)
}

// StartTest загружает вопросы категории и переводит сессию в test.
// Пустая категория или ошибка загрузки возвращают к выбору категории.
func (c *Controller) StartTest(ctx context.Context, category api.Category) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.phase == PhaseTest || c.phase == PhaseResult {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	known := false
	for _, cat := range c.categories {
		if cat.ID == category.ID {
			known = true
			break
		}
	}
	if !known {
		c.phase = PhaseSelectCategory
		c.mu.Unlock()
		c.notify(LevelWarn, "Категория не найдена. Выберите категорию из списка.")
		return fmt.Errorf("category %d: %w", category.ID, ErrCategoryNotFound)
	}
	c.phase = PhaseLoading
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	rctx, cancel := c.bind(ctx)
	defer cancel()
	questions, err := c.api.TestQuestions(rctx, category.ID)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if seq != c.seq {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.phase = PhaseSelectCategory
		c.mu.Unlock()
		c.log.WithError(err).WithField("category_id", category.ID).Warn("load questions")
		c.notify(LevelError, "Не удалось загрузить вопросы: "+api.Message(err))
		return fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		c.phase = PhaseSelectCategory
		c.mu.Unlock()
		c.notify(LevelWarn, "В этой категории пока нет вопросов.")
		return fmt.Errorf("category %d: %w", category.ID, ErrNoQuestions)
	}

	if c.shuffle {
		questions = ShuffleQuestions(questions, c.rnd)
	}
	cat := category
	c.category = &cat
	c.questions = questions
	c.answers = newAnswers(questions)
	c.current = 0
	c.timeLeft = c.duration
	c.sessionID = "session_" + uuid.NewString()
	c.result = nil
	c.review = Review{}
	c.phase = PhaseTest
	c.startCountdownLocked()
	sessionID := c.sessionID
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"category_id": category.ID,
		"questions":   len(questions),
	}).Info("test started")
	return nil
}

// newAnswers создаёт по одной пустой записи на вопрос в том же порядке
func newAnswers(questions []api.Question) []api.AnswerRecord {
	answers := make([]api.AnswerRecord, len(questions))
	for i, q := range questions {
		answers[i] = api.AnswerRecord{QuestionID: q.ID}
	}
	return answers
}

// RecordChoice запоминает выбранный вариант для вопроса с вариантами.
// Возвращает false, если индекс вопроса или варианта вне диапазона.
func (c *Controller) RecordChoice(index, option int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editableLocked(index) {
		return false
	}
	opts := c.questions[index].Options()
	if opts == nil || option < 0 || option >= len(opts) {
		return false
	}
	c.answers[index].UserAnswerIndex = &option
	c.answers[index].UserAnswerText = nil
	return true
}

// RecordText запоминает ответ на вопрос со свободным ответом
func (c *Controller) RecordText(index int, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.editableLocked(index) || c.questions[index].IsMultipleChoice() {
		return false
	}
	c.answers[index].UserAnswerText = &text
	c.answers[index].UserAnswerIndex = nil
	return true
}

func (c *Controller) editableLocked(index int) bool {
	return c.phase == PhaseTest && !c.submitting && !c.closed &&
		index >= 0 && index < len(c.answers) && index < len(c.questions)
}

// Navigate сдвигает текущий вопрос на delta в пределах теста и возвращает новый индекс
func (c *Controller) Navigate(delta int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseTest || len(c.questions) == 0 {
		return c.current
	}
	next := c.current + delta
	if next < 0 {
		next = 0
	}
	if last := len(c.questions) - 1; next > last {
		next = last
	}
	c.current = next
	return c.current
}

// Submit отправляет ответы. Одновременно выполняется только одна отправка.
// При ошибке отправки сессия остаётся в test, ответы сохраняются.
func (c *Controller) Submit(ctx context.Context, remaining int) (*api.Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.phase != PhaseTest {
		c.mu.Unlock()
		return nil, ErrNotInTest
	}
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	c.submitting = true
	payload := c.payloadLocked(remaining)
	categoryID := c.category.ID
	c.mu.Unlock()

	rctx, cancel := c.bind(ctx)
	defer cancel()
	log := c.log.WithField("session_id", payload.SessionID)

	res, err := c.api.SubmitResult(rctx, payload)
	if err != nil {
		c.mu.Lock()
		c.submitting = false
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		log.WithError(err).Error("submit result")
		c.notify(LevelError, "Не удалось отправить ответы: "+api.Message(err))
		return nil, fmt.Errorf("submit session: %w", err)
	}

	full, err := c.api.FullQuestions(rctx, categoryID)
	if err != nil {
		log.WithError(err).Warn("load questions for review")
		full = nil
	}
	review := Reconcile(*res, full)

	c.mu.Lock()
	c.submitting = false
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.stopCountdownLocked()
	c.result = res
	c.review = review
	c.phase = PhaseResult
	c.mu.Unlock()

	log.WithFields(logrus.Fields{
		"score":      res.Score,
		"total":      res.Total,
		"time_spent": payload.TimeSpent,
	}).Info("test submitted")
	if len(review.Missing) > 0 {
		c.notify(LevelWarn, fmt.Sprintf("Для %d ответов не найдены вопросы, они не показаны в разборе.", len(review.Missing)))
	}
	return res, nil
}

func (c *Controller) payloadLocked(remaining int) api.SessionPayload {
	if remaining < 0 {
		remaining = 0
	}
	if remaining > c.duration {
		remaining = c.duration
	}
	answers := make([]api.AnswerRecord, len(c.answers))
	copy(answers, c.answers)
	return api.SessionPayload{
		StudentFullName: c.student,
		SessionID:       c.sessionID,
		CategoryID:      c.category.ID,
		TotalQuestions:  len(c.questions),
		TimeSpent:       c.duration - remaining,
		Answers:         answers,
	}
}

// Close завершает сессию: останавливает отсчёт и отменяет запросы.
// Ответы, пришедшие после Close, отбрасываются.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.stopCountdownLocked()
	c.cancel()
}

func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// TimeLeft оставшееся время в секундах
func (c *Controller) TimeLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeLeft
}

// Snapshot копия состояния для отрисовки
type Snapshot struct {
	Phase      Phase
	Categories []api.Category
	Category   *api.Category
	Questions  []api.Question
	Answers    []api.AnswerRecord
	Current    int
	TimeLeft   int
	Duration   int
	SessionID  string
	Submitting bool
	Result     *api.Result
	Review     Review

	// CategoriesFailed последняя загрузка категорий завершилась ошибкой
	CategoriesFailed bool
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Phase:      c.phase,
		Categories: append([]api.Category(nil), c.categories...),
		Questions:  append([]api.Question(nil), c.questions...),
		Answers:    append([]api.AnswerRecord(nil), c.answers...),
		Current:    c.current,
		TimeLeft:   c.timeLeft,
		Duration:   c.duration,
		SessionID:  c.sessionID,
		Submitting: c.submitting,
		Review:     c.review,
	}
	s.CategoriesFailed = c.loadFailed
	if c.category != nil {
		cat := *c.category
		s.Category = &cat
	}
	if c.result != nil {
		res := *c.result
		s.Result = &res
	}
	return s
}

// CurrentQuestion текущий вопрос и ответ на него
func (s Snapshot) CurrentQuestion() (api.Question, api.AnswerRecord, bool) {
	if s.Current < 0 || s.Current >= len(s.Questions) || s.Current >= len(s.Answers) {
		return api.Question{}, api.AnswerRecord{}, false
	}
	return s.Questions[s.Current], s.Answers[s.Current], true
}

func (s Snapshot) IsLast() bool {
	return len(s.Questions) > 0 && s.Current == len(s.Questions)-1
}

func (s Snapshot) AnsweredCount() int {
	n := 0
	for _, a := range s.Answers {
		if a.Answered() {
			n++
		}
	}
	return n
}

// Progress доля отвеченных вопросов в процентах
func (s Snapshot) Progress() int {
	if len(s.Questions) == 0 {
		return 0
	}
	return s.AnsweredCount() * 100 / len(s.Questions)
}

// IsNotFound true для ошибок, после которых нужно снова выбрать категорию
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrNoQuestions)
}
