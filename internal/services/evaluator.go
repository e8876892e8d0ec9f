package services

import (
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"konfihub/internal/models"

	"go.uber.org/zap"
)

// Evaluator decides whether a single badge definition is satisfied by a
// participant's ledger snapshot. Evaluation is pure and total: every
// criteria kind maps to one function over (history, totals), and a badge
// with an unknown kind or a malformed payload evaluates to false while
// the problem is logged as a data-quality issue.
//
// All calendar-aware kinds (streak, week_points) use ISO-8601 weeks as
// the single canonical week numbering.
type Evaluator struct {
	logger       *zap.Logger
	now          func() time.Time
	configErrors atomic.Int64
}

// NewEvaluator creates a new evaluator.
func NewEvaluator(logger *zap.Logger) *Evaluator {
	return &Evaluator{
		logger: logger,
		now:    time.Now,
	}
}

// criteriaFunc evaluates one criteria kind against a ledger snapshot.
type criteriaFunc func(e *Evaluator, history []*models.ActivityRecord, totals models.PointTotals, badge *models.BadgeDefinition) bool

// criteriaFuncs is the exhaustive dispatch table: one entry per kind in
// models.AllCriteriaKinds.
var criteriaFuncs = map[models.CriteriaKind]criteriaFunc{
	models.CriteriaTotalPoints:         evalTotalPoints,
	models.CriteriaGottesdienstPoints:  evalGottesdienstPoints,
	models.CriteriaGemeindePoints:      evalGemeindePoints,
	models.CriteriaBothCategories:      evalBothCategories,
	models.CriteriaActivityCount:       evalActivityCount,
	models.CriteriaUniqueActivities:    evalUniqueActivities,
	models.CriteriaSpecificActivity:    evalSpecificActivity,
	models.CriteriaCategoryActivities:  evalCategoryActivities,
	models.CriteriaActivityCombination: evalActivityCombination,
	models.CriteriaTimeBased:           evalTimeBased,
	models.CriteriaStreak:              evalStreak,
	models.CriteriaMonthPoints:         evalMonthPoints,
	models.CriteriaWeekPoints:          evalWeekPoints,
	models.CriteriaBonusPoints:         evalBonusPoints,
}

// Evaluate reports whether the badge's criteria are met by the snapshot.
func (e *Evaluator) Evaluate(history []*models.ActivityRecord, totals models.PointTotals, badge *models.BadgeDefinition) bool {
	fn, ok := criteriaFuncs[badge.CriteriaKind]
	if !ok {
		e.reportConfigError(badge, fmt.Errorf("unknown criteria kind %q", badge.CriteriaKind))
		return false
	}
	return fn(e, history, totals, badge)
}

// ConfigErrorCount returns how many badge definitions failed to evaluate
// because of bad configuration since startup.
func (e *Evaluator) ConfigErrorCount() int64 {
	return e.configErrors.Load()
}

// reportConfigError surfaces a badge misconfiguration without failing the
// evaluation pass.
func (e *Evaluator) reportConfigError(badge *models.BadgeDefinition, err error) {
	e.configErrors.Add(1)
	e.logger.Warn("Badge definition is misconfigured, evaluating as not satisfied",
		zap.Int64("badge_id", badge.ID),
		zap.String("badge_name", badge.Name),
		zap.String("criteria_kind", string(badge.CriteriaKind)),
		zap.Error(err),
	)
}

// decodeExtra parses the badge's kind-specific payload, reporting a
// config error on failure.
func decodeExtra[T any](e *Evaluator, badge *models.BadgeDefinition) (*T, bool) {
	payload, err := models.DecodeCriteriaExtra(badge.CriteriaKind, badge.CriteriaExtra)
	if err != nil {
		e.reportConfigError(badge, err)
		return nil, false
	}
	typed, ok := payload.(*T)
	if !ok {
		e.reportConfigError(badge, fmt.Errorf("unexpected payload type %T", payload))
		return nil, false
	}
	return typed, true
}

// ===============================
// POINT CRITERIA
// ===============================

func evalTotalPoints(_ *Evaluator, _ []*models.ActivityRecord, totals models.PointTotals, badge *models.BadgeDefinition) bool {
	return totals.Total() >= badge.CriteriaValue
}

func evalGottesdienstPoints(_ *Evaluator, _ []*models.ActivityRecord, totals models.PointTotals, badge *models.BadgeDefinition) bool {
	return totals.Gottesdienst >= badge.CriteriaValue
}

func evalGemeindePoints(_ *Evaluator, _ []*models.ActivityRecord, totals models.PointTotals, badge *models.BadgeDefinition) bool {
	return totals.Gemeinde >= badge.CriteriaValue
}

func evalBothCategories(_ *Evaluator, _ []*models.ActivityRecord, totals models.PointTotals, badge *models.BadgeDefinition) bool {
	return min(totals.Gottesdienst, totals.Gemeinde) >= badge.CriteriaValue
}

// ===============================
// COUNT CRITERIA
// ===============================

func evalActivityCount(_ *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	return len(history) >= badge.CriteriaValue
}

func evalUniqueActivities(_ *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	names := make(map[string]bool, len(history))
	for _, record := range history {
		names[record.Name] = true
	}
	return len(names) >= badge.CriteriaValue
}

func evalSpecificActivity(e *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	extra, ok := decodeExtra[models.SpecificActivityCriteria](e, badge)
	if !ok {
		return false
	}
	count := 0
	for _, record := range history {
		if record.Name == extra.ActivityName {
			count++
		}
	}
	return count >= badge.CriteriaValue
}

func evalCategoryActivities(e *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	extra, ok := decodeExtra[models.CategoryCriteria](e, badge)
	if !ok {
		return false
	}
	count := 0
	for _, record := range history {
		if record.HasCategory(extra.Category) {
			count++
		}
	}
	return count >= badge.CriteriaValue
}

func evalActivityCombination(e *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	extra, ok := decodeExtra[models.CombinationCriteria](e, badge)
	if !ok {
		return false
	}
	completed := make(map[string]bool, len(history))
	for _, record := range history {
		completed[record.Name] = true
	}
	for _, required := range extra.RequiredActivities {
		if !completed[required] {
			return false
		}
	}
	return true
}

func evalBonusPoints(_ *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	count := 0
	for _, record := range history {
		if record.Source == models.ActivitySourceBonus {
			count++
		}
	}
	return count >= badge.CriteriaValue
}

// ===============================
// CALENDAR CRITERIA
// ===============================

func evalTimeBased(e *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	extra, ok := decodeExtra[models.TimeWindowCriteria](e, badge)
	if !ok {
		return false
	}
	cutoff := e.now().AddDate(0, 0, -extra.Days)
	count := 0
	for _, record := range history {
		if !record.Date.Before(cutoff) {
			count++
		}
	}
	return count >= badge.CriteriaValue
}

func evalStreak(e *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	return weekStreak(history) >= badge.CriteriaValue
}

func evalMonthPoints(_ *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	buckets := make(map[string]int)
	for _, record := range history {
		buckets[record.Date.UTC().Format("2006-01")] += record.Points
	}
	return maxBucket(buckets) >= badge.CriteriaValue
}

func evalWeekPoints(_ *Evaluator, history []*models.ActivityRecord, _ models.PointTotals, badge *models.BadgeDefinition) bool {
	buckets := make(map[string]int)
	for _, record := range history {
		year, week := record.Date.UTC().ISOWeek()
		buckets[fmt.Sprintf("%04d-W%02d", year, week)] += record.Points
	}
	return maxBucket(buckets) >= badge.CriteriaValue
}

// weekStreak counts the unbroken run of consecutive ISO weeks with at
// least one activity, ending at the most recent active week. Weeks are
// normalized to their Monday, so year rollover at week 52/53 needs no
// special casing.
func weekStreak(history []*models.ActivityRecord) int {
	if len(history) == 0 {
		return 0
	}

	weeks := make(map[time.Time]bool, len(history))
	for _, record := range history {
		weeks[isoWeekStart(record.Date)] = true
	}

	starts := make([]time.Time, 0, len(weeks))
	for week := range weeks {
		starts = append(starts, week)
	}
	sort.Slice(starts, func(i, j int) bool {
		return starts[i].After(starts[j])
	})

	streak := 1
	for i := 1; i < len(starts); i++ {
		if starts[i-1].AddDate(0, 0, -7).Equal(starts[i]) {
			streak++
			continue
		}
		break
	}
	return streak
}

// isoWeekStart returns the Monday of the record's ISO-8601 week at
// midnight UTC.
func isoWeekStart(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := t.AddDate(0, 0, 1-weekday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

func maxBucket(buckets map[string]int) int {
	best := 0
	for _, sum := range buckets {
		if sum > best {
			best = sum
		}
	}
	return best
}
