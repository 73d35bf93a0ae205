package service

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/PoluyanbIch/TerduQuizBot/internal/api"
)

const DateLayout = "02.01.2006 15:04"

// LeaderboardEntry лучший результат студента
type LeaderboardEntry struct {
	StudentFullName string
	CategoryID      int
	Score           int
	Total           int
	Percentage      float64
	TimeSpent       int
	Date            string
}

// Leaderboard оставляет по одному лучшему результату на студента и сортирует
// по проценту, затем по баллам. limit <= 0 означает без ограничения.
func Leaderboard(results []api.StudentResult, limit int) []LeaderboardEntry {
	best := make(map[string]int)
	var entries []LeaderboardEntry

	for _, r := range results {
		entry := LeaderboardEntry{
			StudentFullName: r.StudentFullName,
			CategoryID:      r.CategoryID,
			Score:           r.TotalScore,
			Total:           r.TotalQuestions,
			Percentage:      r.Percentage(),
			TimeSpent:       r.TimeSpent,
			Date:            r.CreatedAt.Local().Format(DateLayout),
		}

		key := strings.ToLower(strings.TrimSpace(r.StudentFullName))
		i, found := best[key]
		if !found {
			best[key] = len(entries)
			entries = append(entries, entry)
			continue
		}
		// Обновляем если результат лучше
		if better(entry, entries[i]) {
			entries[i] = entry
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return better(entries[i], entries[j])
	})

	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}
	return entries
}

func better(a, b LeaderboardEntry) bool {
	if a.Percentage == b.Percentage {
		return a.Score > b.Score
	}
	return a.Percentage > b.Percentage
}

// Summary сводка по списку результатов
type Summary struct {
	Count             int
	AveragePercentage float64
	AverageTimeSpent  int
}

// Summarize считает число результатов, средний процент (до 0.1) и среднее время
func Summarize(results []api.StudentResult) Summary {
	if len(results) == 0 {
		return Summary{}
	}
	var pct float64
	var spent int
	for _, r := range results {
		pct += r.Percentage()
		spent += r.TimeSpent
	}
	n := len(results)
	return Summary{
		Count:             n,
		AveragePercentage: math.Round(pct/float64(n)*10) / 10,
		AverageTimeSpent:  spent / n,
	}
}

// FilterByCategory результаты одной категории. categoryID 0 возвращает все.
func FilterByCategory(results []api.StudentResult, categoryID int) []api.StudentResult {
	if categoryID == 0 {
		return results
	}
	var out []api.StudentResult
	for _, r := range results {
		if r.CategoryID == categoryID {
			out = append(out, r)
		}
	}
	return out
}

// SortByDate новые результаты первыми
func SortByDate(results []api.StudentResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})
}

// CategoryNames индекс id -> название
func CategoryNames(categories []api.Category) map[int]string {
	names := make(map[int]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	return names
}

// CategoryName название категории или "Категория <id>", если её нет в списке
func CategoryName(names map[int]string, id int) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Категория %d", id)
}

// FormatDate дата результата в формате списка
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(DateLayout)
}
