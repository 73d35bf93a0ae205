package service

import (
	"math/rand"
	"time"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
)

// ShuffleQuestions перемешивает порядок вопросов. Варианты ответа внутри
// вопроса не трогаются: сервер проверяет ответ по индексу варианта.
func ShuffleQuestions(questions []api.Question, r *rand.Rand) []api.Question {
	// Создаем копию, чтобы не изменять оригинал
	shuffled := make([]api.Question, len(questions))
	copy(shuffled, questions)

	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	// Фишер-Йейтс
	for i := len(shuffled) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}
