package models

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// CriteriaKind is the closed set of badge criteria. The evaluator carries
// one implementation per kind; an unknown kind is a data-quality problem
// surfaced at definition time, never a silent branch.
type CriteriaKind string

const (
	CriteriaTotalPoints         CriteriaKind = "total_points"
	CriteriaGottesdienstPoints  CriteriaKind = "gottesdienst_points"
	CriteriaGemeindePoints      CriteriaKind = "gemeinde_points"
	CriteriaBothCategories      CriteriaKind = "both_categories"
	CriteriaActivityCount       CriteriaKind = "activity_count"
	CriteriaUniqueActivities    CriteriaKind = "unique_activities"
	CriteriaSpecificActivity    CriteriaKind = "specific_activity"
	CriteriaCategoryActivities  CriteriaKind = "category_activities"
	CriteriaActivityCombination CriteriaKind = "activity_combination"
	CriteriaTimeBased           CriteriaKind = "time_based"
	CriteriaStreak              CriteriaKind = "streak"
	CriteriaMonthPoints         CriteriaKind = "month_points"
	CriteriaWeekPoints          CriteriaKind = "week_points"
	CriteriaBonusPoints         CriteriaKind = "bonus_points"
)

// AllCriteriaKinds lists every supported kind, for admin catalogs and
// exhaustiveness checks.
var AllCriteriaKinds = []CriteriaKind{
	CriteriaTotalPoints,
	CriteriaGottesdienstPoints,
	CriteriaGemeindePoints,
	CriteriaBothCategories,
	CriteriaActivityCount,
	CriteriaUniqueActivities,
	CriteriaSpecificActivity,
	CriteriaCategoryActivities,
	CriteriaActivityCombination,
	CriteriaTimeBased,
	CriteriaStreak,
	CriteriaMonthPoints,
	CriteriaWeekPoints,
	CriteriaBonusPoints,
}

// Valid reports whether the kind is part of the closed set.
func (k CriteriaKind) Valid() bool {
	for _, known := range AllCriteriaKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ===============================
// KIND-SPECIFIC PAYLOADS
// ===============================

// SpecificActivityCriteria is the extra payload for specific_activity.
type SpecificActivityCriteria struct {
	ActivityName string `json:"activity_name" validate:"required"`
}

// CategoryCriteria is the extra payload for category_activities.
type CategoryCriteria struct {
	Category string `json:"category" validate:"required"`
}

// CombinationCriteria is the extra payload for activity_combination. The
// badge is earned once the set of completed activity names is a superset
// of RequiredActivities; criteria_value is unused for this kind.
type CombinationCriteria struct {
	RequiredActivities []string `json:"required_activities" validate:"required,min=1,dive,required"`
}

// TimeWindowCriteria is the extra payload for time_based.
type TimeWindowCriteria struct {
	Days int `json:"days" validate:"required,gt=0"`
}

var criteriaValidate = validator.New()

// kindsWithExtra maps each kind that carries a payload to a constructor
// for its payload type.
var kindsWithExtra = map[CriteriaKind]func() any{
	CriteriaSpecificActivity:    func() any { return &SpecificActivityCriteria{} },
	CriteriaCategoryActivities:  func() any { return &CategoryCriteria{} },
	CriteriaActivityCombination: func() any { return &CombinationCriteria{} },
	CriteriaTimeBased:           func() any { return &TimeWindowCriteria{} },
}

// DecodeCriteriaExtra parses and validates the extra payload for a kind.
// Kinds without a payload return (nil, nil) and ignore raw entirely.
func DecodeCriteriaExtra(kind CriteriaKind, raw json.RawMessage) (any, error) {
	build, needsExtra := kindsWithExtra[kind]
	if !needsExtra {
		return nil, nil
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("criteria kind %q requires a criteria_extra payload", kind)
	}
	payload := build()
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("criteria_extra for kind %q is malformed: %w", kind, err)
	}
	if err := criteriaValidate.Struct(payload); err != nil {
		return nil, fmt.Errorf("criteria_extra for kind %q is invalid: %w", kind, err)
	}
	return payload, nil
}

// ValidateCriteria checks a badge definition's criteria triple at
// definition time. Evaluation assumes definitions that pass this check.
func ValidateCriteria(kind CriteriaKind, value int, extra json.RawMessage) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown criteria kind %q", kind)
	}
	// activity_combination derives its threshold from the payload alone.
	if kind != CriteriaActivityCombination && value < 1 {
		return fmt.Errorf("criteria kind %q requires criteria_value >= 1, got %d", kind, value)
	}
	if _, err := DecodeCriteriaExtra(kind, extra); err != nil {
		return err
	}
	return nil
}
