package services

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// TaskWeight is a task's share of project progress: its estimate when one
// is set, otherwise one unit.
func TaskWeight(estimatedHours float64) float64 {
	if estimatedHours > 0 {
		return estimatedHours
	}
	return 1
}

// ProgressPct returns done/total as a percentage, 0 for a project without tasks.
func ProgressPct(doneWeight, totalWeight float64) float64 {
	if totalWeight <= 0 {
		return 0
	}
	pct := doneWeight / totalWeight * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// BudgetFigures are the derived spend fields of a project.
type BudgetFigures struct {
	BudgetUsed      decimal.Decimal `json:"budget_used"`
	BudgetCommitted decimal.Decimal `json:"budget_committed"`
	BudgetRemaining decimal.Decimal `json:"budget_remaining"`
	BudgetUsedPct   *float64        `json:"budget_used_pct"`
	OverBudget      bool            `json:"over_budget"`
}

// ComputeBudget derives spend figures. used is money actually paid out on
// expenses, committed is the face value of all expenses. The percentage is
// left nil when there is no budget to compare against and is not rounded, so
// pct > 100 holds exactly when used > total.
func ComputeBudget(total, used, committed decimal.Decimal) BudgetFigures {
	f := BudgetFigures{
		BudgetUsed:      used,
		BudgetCommitted: committed,
		BudgetRemaining: total.Sub(used),
	}
	if total.IsPositive() {
		pct := used.Div(total).Mul(hundred).InexactFloat64()
		f.BudgetUsedPct = &pct
		f.OverBudget = used.GreaterThan(total)
	}
	return f
}

// ScheduleSummary compares elapsed working time with reported progress.
type ScheduleSummary struct {
	WorkingDaysTotal   int      `json:"working_days_total"`
	WorkingDaysElapsed int      `json:"working_days_elapsed"`
	SchedulePct        *float64 `json:"schedule_pct"`
	BehindSchedule     bool     `json:"behind_schedule"`
}

// Schedule is nil when the project has no planned end date.
func (c *WorkCalendar) Schedule(start time.Time, end *time.Time, countryCode string, progressPct float64, now time.Time) *ScheduleSummary {
	if start.IsZero() || end == nil || end.Before(start) {
		return nil
	}

	s := &ScheduleSummary{
		WorkingDaysTotal: c.WorkingDays(start, *end, countryCode),
	}
	switch {
	case now.Before(start):
		s.WorkingDaysElapsed = 0
	case now.After(*end):
		s.WorkingDaysElapsed = s.WorkingDaysTotal
	default:
		s.WorkingDaysElapsed = c.WorkingDays(start, now, countryCode)
	}

	pct := 0.0
	if s.WorkingDaysTotal > 0 {
		pct = float64(s.WorkingDaysElapsed) / float64(s.WorkingDaysTotal) * 100
	} else if !now.Before(start) {
		pct = 100
	}
	s.SchedulePct = &pct
	s.BehindSchedule = progressPct < pct
	return s
}
