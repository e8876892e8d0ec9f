package services

import (
	"encoding/json"
	"testing"
	"time"

	"konfihub/internal/models"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestEvaluator(now time.Time) *Evaluator {
	e := NewEvaluator(zap.NewNop())
	e.now = func() time.Time { return now }
	return e
}

func badge(kind models.CriteriaKind, value int, extra string) *models.BadgeDefinition {
	b := &models.BadgeDefinition{
		ID:            1,
		Name:          "test badge",
		CriteriaKind:  kind,
		CriteriaValue: value,
		IsActive:      true,
	}
	if extra != "" {
		b.CriteriaExtra = json.RawMessage(extra)
	}
	return b
}

func record(name string, points int, activityType models.ActivityType, date time.Time) *models.ActivityRecord {
	return &models.ActivityRecord{
		Name:   name,
		Points: points,
		Type:   activityType,
		Date:   date,
		Source: models.ActivitySourceAssigned,
	}
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestEvaluatePointCriteria(t *testing.T) {
	e := newTestEvaluator(day(2026, time.March, 1))
	history := []*models.ActivityRecord{
		record("Sonntagsgottesdienst", 8, models.ActivityTypeGottesdienst, day(2026, time.January, 11)),
		record("Gemeindefest", 12, models.ActivityTypeGemeinde, day(2026, time.January, 18)),
	}
	totals := totalsFromHistory(history)

	assert.Equal(t, models.PointTotals{Gottesdienst: 8, Gemeinde: 12}, totals)

	// Thresholds are inclusive.
	assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaTotalPoints, 20, "")))
	assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaTotalPoints, 21, "")))

	assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaGottesdienstPoints, 8, "")))
	assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaGottesdienstPoints, 9, "")))

	assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaGemeindePoints, 12, "")))

	// both_categories needs the threshold in each column separately.
	assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaBothCategories, 8, "")))
	assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaBothCategories, 9, "")))
}

func TestEvaluateMonotonicity(t *testing.T) {
	e := newTestEvaluator(day(2026, time.March, 1))
	b := badge(models.CriteriaTotalPoints, 15, "")

	history := []*models.ActivityRecord{
		record("Gottesdienst", 10, models.ActivityTypeGottesdienst, day(2026, time.January, 4)),
		record("Gemeindefest", 5, models.ActivityTypeGemeinde, day(2026, time.January, 11)),
	}
	assert.True(t, e.Evaluate(history, totalsFromHistory(history), b))

	// Adding entries never turns a satisfied criterion unsatisfied.
	history = append(history,
		record("Jugendkreis", 3, models.ActivityTypeGemeinde, day(2026, time.January, 18)))
	assert.True(t, e.Evaluate(history, totalsFromHistory(history), b))
}

func TestEvaluateCountCriteria(t *testing.T) {
	e := newTestEvaluator(day(2026, time.March, 1))
	history := []*models.ActivityRecord{
		record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 4)),
		record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 11)),
		record("Jugendkreis", 3, models.ActivityTypeGemeinde, day(2026, time.January, 14)),
	}
	totals := totalsFromHistory(history)

	assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaActivityCount, 3, "")))
	assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaActivityCount, 4, "")))

	// Repeated names collapse to one unique activity.
	assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaUniqueActivities, 2, "")))
	assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaUniqueActivities, 3, "")))

	assert.True(t, e.Evaluate(history, totals,
		badge(models.CriteriaSpecificActivity, 2, `{"activity_name":"Gottesdienst"}`)))
	assert.False(t, e.Evaluate(history, totals,
		badge(models.CriteriaSpecificActivity, 3, `{"activity_name":"Gottesdienst"}`)))
	assert.False(t, e.Evaluate(history, totals,
		badge(models.CriteriaSpecificActivity, 1, `{"activity_name":"Konfi-Camp"}`)))
}

func TestEvaluateCategoryActivities(t *testing.T) {
	e := newTestEvaluator(day(2026, time.March, 1))
	withCategory := record("Besuchsdienst", 3, models.ActivityTypeGemeinde, day(2026, time.January, 4))
	withCategory.Categories = []string{"sozial", "gemeinschaft"}
	history := []*models.ActivityRecord{
		withCategory,
		record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 11)),
	}
	totals := totalsFromHistory(history)

	// Containment, not exact match, of the category set.
	assert.True(t, e.Evaluate(history, totals,
		badge(models.CriteriaCategoryActivities, 1, `{"category":"sozial"}`)))
	assert.False(t, e.Evaluate(history, totals,
		badge(models.CriteriaCategoryActivities, 2, `{"category":"sozial"}`)))
	assert.False(t, e.Evaluate(history, totals,
		badge(models.CriteriaCategoryActivities, 1, `{"category":"sport"}`)))
}

func TestEvaluateActivityCombination(t *testing.T) {
	e := newTestEvaluator(day(2026, time.March, 1))
	history := []*models.ActivityRecord{
		record("Taufe", 5, models.ActivityTypeGottesdienst, day(2026, time.January, 4)),
		record("Konfi-Camp", 10, models.ActivityTypeGemeinde, day(2026, time.January, 11)),
		record("Jugendkreis", 3, models.ActivityTypeGemeinde, day(2026, time.January, 18)),
	}
	totals := totalsFromHistory(history)

	// A superset of the required set satisfies the combination.
	assert.True(t, e.Evaluate(history, totals,
		badge(models.CriteriaActivityCombination, 0, `{"required_activities":["Taufe","Konfi-Camp"]}`)))
	assert.False(t, e.Evaluate(history, totals,
		badge(models.CriteriaActivityCombination, 0, `{"required_activities":["Taufe","Osternacht"]}`)))
}

func TestEvaluateBonusPoints(t *testing.T) {
	e := newTestEvaluator(day(2026, time.March, 1))
	bonus := record("Sonderaufgabe", 5, models.ActivityTypeGemeinde, day(2026, time.January, 4))
	bonus.Source = models.ActivitySourceBonus
	history := []*models.ActivityRecord{
		bonus,
		record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 11)),
	}
	totals := totalsFromHistory(history)

	assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaBonusPoints, 1, "")))
	assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaBonusPoints, 2, "")))
}

func TestEvaluateTimeBased(t *testing.T) {
	now := day(2026, time.March, 1)
	e := newTestEvaluator(now)
	history := []*models.ActivityRecord{
		record("Gottesdienst", 2, models.ActivityTypeGottesdienst, now.AddDate(0, 0, -5)),
		record("Jugendkreis", 3, models.ActivityTypeGemeinde, now.AddDate(0, 0, -20)),
		record("Gemeindefest", 4, models.ActivityTypeGemeinde, now.AddDate(0, 0, -60)),
	}
	totals := totalsFromHistory(history)

	assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaTimeBased, 2, `{"days":30}`)))
	assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaTimeBased, 3, `{"days":30}`)))
	assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaTimeBased, 3, `{"days":90}`)))
}

func TestEvaluateStreak(t *testing.T) {
	e := newTestEvaluator(day(2026, time.March, 1))

	t.Run("three consecutive weeks", func(t *testing.T) {
		history := []*models.ActivityRecord{
			record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 1)),  // W01
			record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 7)),  // W02
			record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 14)), // W03
		}
		totals := totalsFromHistory(history)
		assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaStreak, 3, "")))
		assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaStreak, 4, "")))
	})

	t.Run("gap resets to the most recent run", func(t *testing.T) {
		history := []*models.ActivityRecord{
			record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 1)),  // W01
			record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 14)), // W03
		}
		totals := totalsFromHistory(history)
		assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaStreak, 1, "")))
		assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaStreak, 2, "")))
	})

	t.Run("multiple records in one week count once", func(t *testing.T) {
		history := []*models.ActivityRecord{
			record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 5)), // W02 Mon
			record("Jugendkreis", 3, models.ActivityTypeGemeinde, day(2026, time.January, 8)),      // W02 Thu
		}
		totals := totalsFromHistory(history)
		assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaStreak, 1, "")))
		assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaStreak, 2, "")))
	})

	t.Run("year rollover is seamless", func(t *testing.T) {
		// 2025-12-22 is 2025-W52, 2025-12-29 already belongs to 2026-W01
		// and 2026-01-05 to 2026-W02.
		history := []*models.ActivityRecord{
			record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2025, time.December, 22)),
			record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2025, time.December, 29)),
			record("Gottesdienst", 2, models.ActivityTypeGottesdienst, day(2026, time.January, 5)),
		}
		totals := totalsFromHistory(history)
		assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaStreak, 3, "")))
	})

	t.Run("empty history", func(t *testing.T) {
		assert.False(t, e.Evaluate(nil, models.PointTotals{}, badge(models.CriteriaStreak, 1, "")))
	})
}

func TestIsoWeekStart(t *testing.T) {
	// Sunday belongs to the week that started the previous Monday.
	sunday := day(2026, time.January, 11)
	assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), isoWeekStart(sunday))

	monday := day(2026, time.January, 5)
	assert.Equal(t, time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), isoWeekStart(monday))

	// 2025-12-29 is the Monday of 2026-W01.
	rollover := day(2026, time.January, 1)
	assert.Equal(t, time.Date(2025, time.December, 29, 0, 0, 0, 0, time.UTC), isoWeekStart(rollover))
}

func TestEvaluateCalendarBuckets(t *testing.T) {
	e := newTestEvaluator(day(2026, time.March, 1))

	t.Run("month points use the best month", func(t *testing.T) {
		history := []*models.ActivityRecord{
			record("Gottesdienst", 8, models.ActivityTypeGottesdienst, day(2026, time.January, 4)),
			record("Jugendkreis", 7, models.ActivityTypeGemeinde, day(2026, time.January, 20)),
			record("Gemeindefest", 5, models.ActivityTypeGemeinde, day(2026, time.February, 2)),
		}
		totals := totalsFromHistory(history)
		assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaMonthPoints, 15, "")))
		assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaMonthPoints, 16, "")))
	})

	t.Run("week points use the best ISO week", func(t *testing.T) {
		history := []*models.ActivityRecord{
			record("Gottesdienst", 4, models.ActivityTypeGottesdienst, day(2026, time.January, 5)), // W02 Mon
			record("Jugendkreis", 6, models.ActivityTypeGemeinde, day(2026, time.January, 11)),     // W02 Sun
			record("Gemeindefest", 3, models.ActivityTypeGemeinde, day(2026, time.January, 12)),    // W03
		}
		totals := totalsFromHistory(history)
		assert.True(t, e.Evaluate(history, totals, badge(models.CriteriaWeekPoints, 10, "")))
		assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaWeekPoints, 11, "")))
	})
}

func TestEvaluateMisconfiguredBadges(t *testing.T) {
	e := newTestEvaluator(day(2026, time.March, 1))
	history := []*models.ActivityRecord{
		record("Gottesdienst", 100, models.ActivityTypeGottesdienst, day(2026, time.January, 4)),
	}
	totals := totalsFromHistory(history)

	t.Run("unknown kind evaluates false", func(t *testing.T) {
		before := e.ConfigErrorCount()
		assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaKind("made_up"), 1, "")))
		assert.Equal(t, before+1, e.ConfigErrorCount())
	})

	t.Run("missing payload evaluates false", func(t *testing.T) {
		before := e.ConfigErrorCount()
		assert.False(t, e.Evaluate(history, totals, badge(models.CriteriaSpecificActivity, 1, "")))
		assert.Equal(t, before+1, e.ConfigErrorCount())
	})

	t.Run("malformed payload evaluates false", func(t *testing.T) {
		before := e.ConfigErrorCount()
		assert.False(t, e.Evaluate(history, totals,
			badge(models.CriteriaTimeBased, 1, `{"days":"soon"}`)))
		assert.Equal(t, before+1, e.ConfigErrorCount())
	})
}

func TestCriteriaDispatchIsExhaustive(t *testing.T) {
	for _, kind := range models.AllCriteriaKinds {
		_, ok := criteriaFuncs[kind]
		assert.True(t, ok, "kind %q has no evaluation function", kind)
	}
	assert.Len(t, criteriaFuncs, len(models.AllCriteriaKinds))
}
