package events

import "time"

// Event type names.
const (
	EventTypeBadgeAwarded     = "badge.awarded"
	EventTypeRequestResolved  = "request.resolved"
	EventTypeActivityRecorded = "activity.recorded"
)

// BadgeAwardedEvent is published once per newly earned badge. Awards are
// never retracted, so consumers may notify without deduplicating.
type BadgeAwardedEvent struct {
	BaseEvent
	BadgeID   int64  `json:"badge_id"`
	BadgeName string `json:"badge_name"`
}

// NewBadgeAwardedEvent builds a badge awarded event.
func NewBadgeAwardedEvent(participantID, badgeID int64, badgeName string) *BadgeAwardedEvent {
	return &BadgeAwardedEvent{
		BaseEvent: BaseEvent{
			EventType:     EventTypeBadgeAwarded,
			Timestamp:     time.Now(),
			ParticipantID: participantID,
		},
		BadgeID:   badgeID,
		BadgeName: badgeName,
	}
}

// RequestResolvedEvent is published when an admin transitions a request
// out of (or back into) a resolved state.
type RequestResolvedEvent struct {
	BaseEvent
	RequestID int64  `json:"request_id"`
	Status    string `json:"status"`
}

// NewRequestResolvedEvent builds a request resolved event.
func NewRequestResolvedEvent(participantID, requestID int64, status string) *RequestResolvedEvent {
	return &RequestResolvedEvent{
		BaseEvent: BaseEvent{
			EventType:     EventTypeRequestResolved,
			Timestamp:     time.Now(),
			ParticipantID: participantID,
		},
		RequestID: requestID,
		Status:    status,
	}
}

// ActivityRecordedEvent is published for every new ledger entry.
type ActivityRecordedEvent struct {
	BaseEvent
	RecordID int64  `json:"record_id"`
	Name     string `json:"name"`
	Points   int    `json:"points"`
	Source   string `json:"source"`
}

// NewActivityRecordedEvent builds an activity recorded event.
func NewActivityRecordedEvent(participantID, recordID int64, name string, points int, source string) *ActivityRecordedEvent {
	return &ActivityRecordedEvent{
		BaseEvent: BaseEvent{
			EventType:     EventTypeActivityRecorded,
			Timestamp:     time.Now(),
			ParticipantID: participantID,
		},
		RecordID: recordID,
		Name:     name,
		Points:   points,
		Source:   source,
	}
}
