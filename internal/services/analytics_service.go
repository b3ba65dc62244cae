package services

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/croswell/taskmaster-api/internal/repository"
)

// TrendPeriod selects the bucket size for completion trends.
type TrendPeriod string

const (
	TrendPeriodDaily   TrendPeriod = "daily"
	TrendPeriodWeekly  TrendPeriod = "weekly"
	TrendPeriodMonthly TrendPeriod = "monthly"
)

// TrendPoint is a single bucket of completion trend data.
type TrendPoint struct {
	Date           string  `json:"date"`
	TasksCreated   int64   `json:"tasks_created"`
	TasksCompleted int64   `json:"tasks_completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// CompletionTrends is the trend series plus summary statistics.
type CompletionTrends struct {
	Period                TrendPeriod  `json:"period"`
	StartDate             string       `json:"start_date"`
	EndDate               string       `json:"end_date"`
	DataPoints            []TrendPoint `json:"data_points"`
	TotalCreated          int64        `json:"total_created"`
	TotalCompleted        int64        `json:"total_completed"`
	AverageCompletionRate float64      `json:"average_completion_rate"`
	BestDay               *TrendPoint  `json:"best_day,omitempty"`
	WorstDay              *TrendPoint  `json:"worst_day,omitempty"`
}

// PerformanceOverview is the quick dashboard summary. The week is anchored
// to Monday and the month to its first day, not rolling windows.
type PerformanceOverview struct {
	TodayCreated        int64   `json:"today_created"`
	TodayCompleted      int64   `json:"today_completed"`
	WeekCreated         int64   `json:"week_created"`
	WeekCompleted       int64   `json:"week_completed"`
	MonthCreated        int64   `json:"month_created"`
	MonthCompleted      int64   `json:"month_completed"`
	CompletionRateToday float64 `json:"completion_rate_today"`
	CompletionRateWeek  float64 `json:"completion_rate_week"`
	CompletionRateMonth float64 `json:"completion_rate_month"`
	OverdueTasks        int64   `json:"overdue_tasks"`
	CurrentStreak       int     `json:"current_streak"`
}

// HourlyProductivity is one hour's share of all completed tasks.
type HourlyProductivity struct {
	Hour           int     `json:"hour"`
	TasksCompleted int64   `json:"tasks_completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// WeekdayProductivity is one weekday's share of all completed tasks.
// DayNumber is 0 for Monday through 6 for Sunday.
type WeekdayProductivity struct {
	DayOfWeek      string  `json:"day_of_week"`
	DayNumber      int     `json:"day_number"`
	TasksCompleted int64   `json:"tasks_completed"`
	CompletionRate float64 `json:"completion_rate"`
}

// ProductivityInsights holds rule-based observations about recent activity.
type ProductivityInsights struct {
	Insights        []string `json:"insights"`
	Recommendations []string `json:"recommendations"`
	GoalSuggestions []string `json:"goals_suggestions"`
}

// DashboardOverview is the condensed header block of the dashboard.
type DashboardOverview struct {
	TotalTasks     int64   `json:"total_tasks"`
	CompletedTasks int64   `json:"completed_tasks"`
	CompletionRate float64 `json:"completion_rate"`
	CurrentStreak  int     `json:"current_streak"`
}

// DashboardData bundles every analytics view into one response.
type DashboardData struct {
	UserID              uint64                `json:"user_id"`
	GeneratedAt         time.Time             `json:"generated_at"`
	Overview            DashboardOverview     `json:"overview"`
	WeeklyTrends        *CompletionTrends     `json:"weekly_trends"`
	MonthlyTrends       *CompletionTrends     `json:"monthly_trends"`
	HourlyProductivity  []HourlyProductivity  `json:"hourly_productivity"`
	WeekdayProductivity []WeekdayProductivity `json:"weekly_productivity"`
	Insights            []string              `json:"insights"`
	Recommendations     []string              `json:"recommendations"`
}

var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// AnalyticsService derives productivity statistics from task activity.
type AnalyticsService struct {
	taskRepo repository.TaskRepository
}

// NewAnalyticsService creates a new AnalyticsService
func NewAnalyticsService(taskRepo repository.TaskRepository) *AnalyticsService {
	return &AnalyticsService{
		taskRepo: taskRepo,
	}
}

// Overview returns today's, this week's (since Monday) and this month's
// activity, the overdue count and the current completion streak (consecutive
// days ending today with at least one completed task).
func (s *AnalyticsService) Overview(ownerID uint64) (*PerformanceOverview, error) {
	now := time.Now()
	today := startOfDay(now)
	weekStart := startOfWeek(today)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	// Streak lookback is bounded; a 90-day unbroken run is reported as 90.
	// It also covers the month window, which is at most 31 days.
	streakStart := today.AddDate(0, 0, -89)

	counts, err := s.taskRepo.DailyCounts(ownerID, streakStart, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load daily counts: %w", err)
	}

	byDay := make(map[string]repository.DailyTaskCount, len(counts))
	for _, row := range counts {
		byDay[dayKey(row.Day)] = row
	}

	overview := &PerformanceOverview{}

	todayRow := byDay[today.Format("2006-01-02")]
	overview.TodayCreated = todayRow.Created
	overview.TodayCompleted = todayRow.Completed
	overview.CompletionRateToday = completionRate(todayRow.Completed, todayRow.Created)

	for d := weekStart; !d.After(today); d = d.AddDate(0, 0, 1) {
		row := byDay[d.Format("2006-01-02")]
		overview.WeekCreated += row.Created
		overview.WeekCompleted += row.Completed
	}
	overview.CompletionRateWeek = completionRate(overview.WeekCompleted, overview.WeekCreated)

	for d := monthStart; !d.After(today); d = d.AddDate(0, 0, 1) {
		row := byDay[d.Format("2006-01-02")]
		overview.MonthCreated += row.Created
		overview.MonthCompleted += row.Completed
	}
	overview.CompletionRateMonth = completionRate(overview.MonthCompleted, overview.MonthCreated)

	for d := today; !d.Before(streakStart); d = d.AddDate(0, 0, -1) {
		if byDay[d.Format("2006-01-02")].Completed == 0 {
			break
		}
		overview.CurrentStreak++
	}

	overdue, err := s.taskRepo.CountOverdue(ownerID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to count overdue tasks: %w", err)
	}
	overview.OverdueTasks = overdue

	return overview, nil
}

// Trends returns the completion trend series for the requested period.
// Zero start/end fall back to the period's default range ending today.
func (s *AnalyticsService) Trends(ownerID uint64, period TrendPeriod, start, end time.Time) (*CompletionTrends, error) {
	if period != TrendPeriodDaily && period != TrendPeriodWeekly && period != TrendPeriodMonthly {
		period = TrendPeriodWeekly
	}

	today := startOfDay(time.Now())
	if end.IsZero() {
		end = today
	} else {
		end = startOfDay(end)
	}
	if start.IsZero() {
		switch period {
		case TrendPeriodDaily:
			start = end.AddDate(0, 0, -6)
		case TrendPeriodMonthly:
			start = end.AddDate(0, 0, -89)
		default:
			start = end.AddDate(0, 0, -29)
		}
	} else {
		start = startOfDay(start)
	}

	counts, err := s.taskRepo.DailyCounts(ownerID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load daily counts: %w", err)
	}

	byDay := make(map[string]repository.DailyTaskCount, len(counts))
	for _, row := range counts {
		byDay[dayKey(row.Day)] = row
	}

	buckets := make(map[string]*TrendPoint)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		var key string
		switch period {
		case TrendPeriodWeekly:
			key = startOfWeek(d).Format("2006-01-02")
		case TrendPeriodMonthly:
			key = time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, d.Location()).Format("2006-01-02")
		default:
			key = d.Format("2006-01-02")
		}
		point, ok := buckets[key]
		if !ok {
			point = &TrendPoint{Date: key}
			buckets[key] = point
		}
		row := byDay[d.Format("2006-01-02")]
		point.TasksCreated += row.Created
		point.TasksCompleted += row.Completed
	}

	points := make([]TrendPoint, 0, len(buckets))
	for _, point := range buckets {
		point.CompletionRate = completionRate(point.TasksCompleted, point.TasksCreated)
		points = append(points, *point)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date < points[j].Date })

	trends := &CompletionTrends{
		Period:     period,
		StartDate:  start.Format("2006-01-02"),
		EndDate:    end.Format("2006-01-02"),
		DataPoints: points,
	}

	var rateSum float64
	for i := range points {
		trends.TotalCreated += points[i].TasksCreated
		trends.TotalCompleted += points[i].TasksCompleted
		rateSum += points[i].CompletionRate

		if trends.BestDay == nil || points[i].CompletionRate > trends.BestDay.CompletionRate {
			trends.BestDay = &points[i]
		}
		if trends.WorstDay == nil || points[i].CompletionRate < trends.WorstDay.CompletionRate {
			trends.WorstDay = &points[i]
		}
	}
	if len(points) > 0 {
		trends.AverageCompletionRate = roundRate(rateSum / float64(len(points)))
	}

	return trends, nil
}

// Hourly returns the distribution of completed tasks over the 24 hours of
// the day. All 24 buckets are present; rates are each hour's share of the
// total.
func (s *AnalyticsService) Hourly(ownerID uint64) ([]HourlyProductivity, error) {
	counts, err := s.taskRepo.CompletedByHour(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hourly completions: %w", err)
	}

	var total int64
	for _, count := range counts {
		total += count
	}

	result := make([]HourlyProductivity, 24)
	for hour := 0; hour < 24; hour++ {
		result[hour] = HourlyProductivity{
			Hour:           hour,
			TasksCompleted: counts[hour],
			CompletionRate: completionRate(counts[hour], total),
		}
	}

	return result, nil
}

// Weekday returns the distribution of completed tasks over the days of the
// week, Monday first.
func (s *AnalyticsService) Weekday(ownerID uint64) ([]WeekdayProductivity, error) {
	counts, err := s.taskRepo.CompletedByWeekday(ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load weekday completions: %w", err)
	}

	// The repository keys Sunday as 0; reindex so Monday is 0.
	byDay := make(map[int]int64, len(counts))
	var total int64
	for dow, count := range counts {
		byDay[(dow+6)%7] = count
		total += count
	}

	result := make([]WeekdayProductivity, 7)
	for day := 0; day < 7; day++ {
		result[day] = WeekdayProductivity{
			DayOfWeek:      weekdayNames[day],
			DayNumber:      day,
			TasksCompleted: byDay[day],
			CompletionRate: completionRate(byDay[day], total),
		}
	}

	return result, nil
}

// Insights derives rule-based observations, recommendations and goal
// suggestions from the overview and productivity distributions.
func (s *AnalyticsService) Insights(ownerID uint64) (*ProductivityInsights, error) {
	overview, err := s.Overview(ownerID)
	if err != nil {
		return nil, err
	}
	hourly, err := s.Hourly(ownerID)
	if err != nil {
		return nil, err
	}
	weekday, err := s.Weekday(ownerID)
	if err != nil {
		return nil, err
	}

	return buildInsights(overview, hourly, weekday), nil
}

// Dashboard bundles overview, trends, productivity distributions and
// insights into a single response.
func (s *AnalyticsService) Dashboard(ownerID uint64) (*DashboardData, error) {
	overview, err := s.Overview(ownerID)
	if err != nil {
		return nil, err
	}
	weeklyTrends, err := s.Trends(ownerID, TrendPeriodWeekly, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	monthlyTrends, err := s.Trends(ownerID, TrendPeriodMonthly, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	hourly, err := s.Hourly(ownerID)
	if err != nil {
		return nil, err
	}
	weekday, err := s.Weekday(ownerID)
	if err != nil {
		return nil, err
	}

	insights := buildInsights(overview, hourly, weekday)

	return &DashboardData{
		UserID:      ownerID,
		GeneratedAt: time.Now().UTC(),
		Overview: DashboardOverview{
			TotalTasks:     overview.WeekCreated,
			CompletedTasks: overview.WeekCompleted,
			CompletionRate: overview.CompletionRateWeek,
			CurrentStreak:  overview.CurrentStreak,
		},
		WeeklyTrends:        weeklyTrends,
		MonthlyTrends:       monthlyTrends,
		HourlyProductivity:  hourly,
		WeekdayProductivity: weekday,
		Insights:            insights.Insights,
		Recommendations:     insights.Recommendations,
	}, nil
}

func buildInsights(overview *PerformanceOverview, hourly []HourlyProductivity, weekday []WeekdayProductivity) *ProductivityInsights {
	result := &ProductivityInsights{
		Insights:        []string{},
		Recommendations: []string{},
		GoalSuggestions: []string{},
	}

	switch {
	case overview.CompletionRateWeek > 80:
		result.Insights = append(result.Insights, "Excellent: over 80% of this week's tasks are completed.")
	case overview.CompletionRateWeek > 60:
		result.Insights = append(result.Insights, "Good job: most of this week's tasks are getting completed.")
	default:
		result.Insights = append(result.Insights, "There is room for improvement in your completion rate.")
		result.Recommendations = append(result.Recommendations, "Break larger tasks into smaller, manageable chunks.")
	}

	switch {
	case overview.CurrentStreak >= 7:
		result.Insights = append(result.Insights, fmt.Sprintf("Amazing streak: tasks completed %d days in a row.", overview.CurrentStreak))
	case overview.CurrentStreak >= 3:
		result.Insights = append(result.Insights, fmt.Sprintf("Great consistency: %d days in a row.", overview.CurrentStreak))
	default:
		result.Recommendations = append(result.Recommendations, "Complete at least one task every day to build momentum.")
	}

	var bestHour *HourlyProductivity
	for i := range hourly {
		if bestHour == nil || hourly[i].TasksCompleted > bestHour.TasksCompleted {
			bestHour = &hourly[i]
		}
	}
	if bestHour != nil && bestHour.TasksCompleted > 0 {
		result.Insights = append(result.Insights, fmt.Sprintf("Your peak productivity hour is %02d:00.", bestHour.Hour))
	}

	var bestDay *WeekdayProductivity
	for i := range weekday {
		if bestDay == nil || weekday[i].TasksCompleted > bestDay.TasksCompleted {
			bestDay = &weekday[i]
		}
	}
	if bestDay != nil && bestDay.TasksCompleted > 0 {
		result.Insights = append(result.Insights, fmt.Sprintf("%s is your most productive day of the week.", bestDay.DayOfWeek))
	}

	if overview.CompletionRateWeek < 80 {
		result.GoalSuggestions = append(result.GoalSuggestions, "Reach an 80% completion rate this week")
	}
	if overview.CurrentStreak < 7 {
		result.GoalSuggestions = append(result.GoalSuggestions, "Build a 7-day completion streak")
	}
	result.GoalSuggestions = append(result.GoalSuggestions, "Complete at least 3 tasks during your peak productivity hour")

	return result
}

// dayKey normalizes a repository day value to YYYY-MM-DD. Postgres and
// sqlite both return the date first, but the postgres scan may carry a
// midnight time suffix.
func dayKey(day string) string {
	if len(day) > 10 {
		return day[:10]
	}
	return day
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the Monday of the week containing t.
func startOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	return startOfDay(t).AddDate(0, 0, 1-weekday)
}

func completionRate(completed, created int64) float64 {
	if created == 0 {
		return 0
	}
	return roundRate(float64(completed) / float64(created) * 100)
}

func roundRate(rate float64) float64 {
	return math.Round(rate*100) / 100
}
