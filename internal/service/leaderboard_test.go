package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
)

func sampleResults() []api.StudentResult {
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return []api.StudentResult{
		{ID: 1, StudentFullName: "Ali Valiyev", CategoryID: 1, TotalScore: 2, TotalQuestions: 4, TimeSpent: 100, CreatedAt: base},
		{ID: 2, StudentFullName: "ali valiyev", CategoryID: 1, TotalScore: 3, TotalQuestions: 4, TimeSpent: 200, CreatedAt: base.Add(time.Hour)},
		{ID: 3, StudentFullName: "Olga", CategoryID: 2, TotalScore: 2, TotalQuestions: 2, TimeSpent: 60, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 4, StudentFullName: "Bek", CategoryID: 2, TotalScore: 3, TotalQuestions: 4, TimeSpent: 0, CreatedAt: base.Add(-time.Hour)},
	}
}

func TestLeaderboard(t *testing.T) {
	top := Leaderboard(sampleResults(), 0)

	require.Len(t, top, 3)
	assert.Equal(t, "Olga", top[0].StudentFullName)
	assert.Equal(t, float64(100), top[0].Percentage)
	assert.Equal(t, "ali valiyev", top[1].StudentFullName)
	assert.Equal(t, 3, top[1].Score)
	assert.Equal(t, "Bek", top[2].StudentFullName)

	assert.Len(t, Leaderboard(sampleResults(), 2), 2)
	assert.Empty(t, Leaderboard(nil, 10))
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleResults())
	assert.Equal(t, 4, s.Count)
	// (50 + 75 + 100 + 75) / 4
	assert.Equal(t, 75.0, s.AveragePercentage)
	assert.Equal(t, 90, s.AverageTimeSpent)

	assert.Equal(t, Summary{}, Summarize(nil))

	s = Summarize([]api.StudentResult{
		{TotalScore: 1, TotalQuestions: 3},
		{TotalScore: 0, TotalQuestions: 0},
	})
	assert.Equal(t, 16.7, s.AveragePercentage)
}

func TestFilterAndSort(t *testing.T) {
	rows := sampleResults()
	assert.Len(t, FilterByCategory(rows, 0), 4)
	assert.Len(t, FilterByCategory(rows, 2), 2)
	assert.Empty(t, FilterByCategory(rows, 9))

	SortByDate(rows)
	assert.Equal(t, []int{3, 2, 1, 4}, []int{rows[0].ID, rows[1].ID, rows[2].ID, rows[3].ID})
}

func TestCategoryName(t *testing.T) {
	names := CategoryNames([]api.Category{{ID: 1, Name: "Hardware"}})
	assert.Equal(t, "Hardware", CategoryName(names, 1))
	assert.Equal(t, "Категория 7", CategoryName(names, 7))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", FormatDate(time.Time{}))
	ts := time.Date(2026, 5, 1, 10, 30, 0, 0, time.Local)
	assert.Equal(t, "01.05.2026 10:30", FormatDate(ts))
}
