package report

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
)

func TestResultsPDF(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, ResultsPDF(&buf, nil, nil, Options{}))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	})

	t.Run("many pages", func(t *testing.T) {
		var rows []api.StudentResult
		for i := 1; i <= 80; i++ {
			rows = append(rows, api.StudentResult{
				ID:              i,
				StudentFullName: fmt.Sprintf("Student number %d with a rather long full name", i),
				CategoryID:      i%3 + 1,
				TotalScore:      i % 5,
				TotalQuestions:  5,
				TimeSpent:       60 + i,
				CreatedAt:       time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Minute),
			})
		}

		var buf bytes.Buffer
		require.NoError(t, ResultsPDF(&buf, rows, map[int]string{1: "Hardware", 2: "Networks"}, Options{}))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		assert.Greater(t, buf.Len(), 1000)
	})

	t.Run("cyrillic names", func(t *testing.T) {
		rows := []api.StudentResult{{
			ID:              1,
			StudentFullName: "Иван Петров",
			CategoryID:      1,
			TotalScore:      2,
			TotalQuestions:  3,
			TimeSpent:       95,
			CreatedAt:       time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		}}

		pdf := render(rows, map[int]string{1: "Сети"}, Options{})
		pdf.SetCompression(false)
		var buf bytes.Buffer
		require.NoError(t, pdf.Output(&buf))

		out := buf.String()
		assert.Contains(t, out, "Ivan Petrov")
		assert.Contains(t, out, "Seti")
		assert.NotContains(t, out, ".... ......")
	})

	t.Run("missing font", func(t *testing.T) {
		var buf bytes.Buffer
		err := ResultsPDF(&buf, nil, nil, Options{FontPath: "testdata/no-such-font.ttf"})
		assert.Error(t, err)
	})
}

func TestTransliterate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Иван Петров", "Ivan Petrov"},
		{"Щукин Юрий", "Shchukin Yuriy"},
		{"Ўктам Қодиров", "O'ktam Qodirov"},
		{"Объект", "Obekt"},
		{"Student One", "Student One"},
		{"Café", "Café"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Transliterate(tt.in))
		})
	}
}

func TestFit(t *testing.T) {
	assert.Equal(t, "short", fit("short", 10))
	assert.Equal(t, "abcd…", fit("abcdefgh", 5))
}
