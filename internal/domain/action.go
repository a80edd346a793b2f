package domain

import "time"

// ActionType says who executes an action.
type ActionType string

const (
	ActionTypeAdmin ActionType = "admin"
	ActionTypeUser  ActionType = "user"
)

// ActionStatus is derived from the action timing and execution state.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"   // active and not yet executed
	ActionUpcoming  ActionStatus = "upcoming"  // not active yet
	ActionCompleted ActionStatus = "completed" // executed
)

// IsValid checks if the status is a known value.
func (s ActionStatus) IsValid() bool {
	return s == ActionPending || s == ActionUpcoming || s == ActionCompleted
}

// Action is an indexed to-do item for a user, e.g. "mature bond" or "claim yield".
type Action struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Type       ActionType `json:"type"`
	Target     string     `json:"target"` // contract the action applies to
	Executors  []string   `json:"executors"`
	ActiveAt   time.Time  `json:"activeAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	Executed   bool       `json:"executed"`
	ExecutedAt *time.Time `json:"executedAt,omitempty"`
	ExecutedBy string     `json:"executedBy,omitempty"`
}

// Status derives the action status at now.
func (a *Action) Status(now time.Time) ActionStatus {
	if a.Executed {
		return ActionCompleted
	}
	if now.Before(a.ActiveAt) {
		return ActionUpcoming
	}
	return ActionPending
}
