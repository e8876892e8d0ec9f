package models

import (
	"encoding/json"
	"time"
)

// ===============================
// ENUMERATIONS
// ===============================

// ActivityType classifies which point column an activity counts toward.
type ActivityType string

const (
	ActivityTypeGottesdienst ActivityType = "gottesdienst"
	ActivityTypeGemeinde     ActivityType = "gemeinde"
)

// Valid reports whether the activity type is one of the known values.
func (t ActivityType) Valid() bool {
	return t == ActivityTypeGottesdienst || t == ActivityTypeGemeinde
}

// ActivitySource records how a ledger entry came to exist.
type ActivitySource string

const (
	ActivitySourceAssigned ActivitySource = "assigned"
	ActivitySourceBonus    ActivitySource = "bonus"
)

// RequestStatus is the lifecycle state of an activity request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// Valid reports whether the status is one of the three lifecycle states.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// ===============================
// CATALOG & LEDGER
// ===============================

// Activity is a catalog entry participants can request or be assigned.
type Activity struct {
	ID         int64        `json:"id" db:"id"`
	Name       string       `json:"name" db:"name"`
	Points     int          `json:"points" db:"points"`
	Type       ActivityType `json:"type" db:"type"`
	Categories []string     `json:"categories" db:"categories"`
	IsActive   bool         `json:"is_active" db:"is_active"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
}

// ActivityRecord is one immutable ledger entry. RequestID links the entry
// to the activity request that produced it, if any; at most one entry may
// exist per request.
type ActivityRecord struct {
	ID            int64          `json:"id" db:"id"`
	ParticipantID int64          `json:"participant_id" db:"participant_id"`
	RequestID     *int64         `json:"request_id,omitempty" db:"request_id"`
	Name          string         `json:"name" db:"name"`
	Points        int            `json:"points" db:"points"`
	Type          ActivityType   `json:"type" db:"type"`
	Categories    []string       `json:"categories" db:"categories"`
	Date          time.Time      `json:"date" db:"activity_date"`
	Source        ActivitySource `json:"source" db:"source"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
}

// HasCategory reports whether the record's category set contains the given
// category.
func (r *ActivityRecord) HasCategory(category string) bool {
	for _, c := range r.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// PointTotals is derived from the ledger and never stored on its own.
type PointTotals struct {
	Gottesdienst int `json:"gottesdienst"`
	Gemeinde     int `json:"gemeinde"`
}

// Total returns the combined point count.
func (t PointTotals) Total() int {
	return t.Gottesdienst + t.Gemeinde
}

// ===============================
// BADGES
// ===============================

// BadgeDefinition is an admin-managed achievement badge. CriteriaExtra is
// a kind-specific payload validated against CriteriaKind when the
// definition is created or updated, not at evaluation time.
type BadgeDefinition struct {
	ID            int64           `json:"id" db:"id"`
	Name          string          `json:"name" db:"name"`
	Description   string          `json:"description" db:"description"`
	Icon          string          `json:"icon" db:"icon"`
	CriteriaKind  CriteriaKind    `json:"criteria_kind" db:"criteria_kind"`
	CriteriaValue int             `json:"criteria_value" db:"criteria_value"`
	CriteriaExtra json.RawMessage `json:"criteria_extra,omitempty" db:"criteria_extra"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	IsHidden      bool            `json:"is_hidden" db:"is_hidden"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     *time.Time      `json:"updated_at,omitempty" db:"updated_at"`
}

// BadgeAward links a participant to a badge they earned. Unique per
// (participant, badge); awards are never revoked.
type BadgeAward struct {
	ParticipantID int64     `json:"participant_id" db:"participant_id"`
	BadgeID       int64     `json:"badge_id" db:"badge_id"`
	EarnedAt      time.Time `json:"earned_at" db:"earned_at"`
}

// EarnedBadge is a badge definition together with when it was earned.
type EarnedBadge struct {
	BadgeDefinition
	EarnedAt time.Time `json:"earned_at"`
}

// ===============================
// ACTIVITY REQUESTS
// ===============================

// ActivityRequest is a participant's claim that they completed an
// activity. Only administrators transition its status.
type ActivityRequest struct {
	ID            int64         `json:"id" db:"id"`
	ParticipantID int64         `json:"participant_id" db:"participant_id"`
	ActivityID    int64         `json:"activity_id" db:"activity_id"`
	RequestedDate time.Time     `json:"requested_date" db:"requested_date"`
	Comment       string        `json:"comment" db:"comment"`
	PhotoRef      *string       `json:"photo_ref,omitempty" db:"photo_ref"`
	Status        RequestStatus `json:"status" db:"status"`
	AdminComment  *string       `json:"admin_comment,omitempty" db:"admin_comment"`
	ApproverID    *int64        `json:"approver_id,omitempty" db:"approver_id"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}
