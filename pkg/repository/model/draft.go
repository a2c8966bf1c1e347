package model

import "time"

// Draft is a ticket form that has not been submitted yet. It is keyed by the requester only, so
// any later interaction from the same user reaches it regardless of the channel it came from.
type Draft struct {
	RequesterId       uint64    `json:"requester_id,string"`
	SubmissionKey     string    `json:"submission_key"`
	Category          string    `json:"category,omitempty"`
	Subcategory       string    `json:"subcategory,omitempty"`
	Goal              string    `json:"goal,omitempty"`
	CanJoin           *bool     `json:"can_join,omitempty"`
	PreferredHelperId *uint64   `json:"preferred_helper_id,string,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

func (d Draft) Expired(now time.Time) bool {
	return !d.ExpiresAt.IsZero() && !now.Before(d.ExpiresAt)
}

// MissingFields lists the mandatory fields that have not been filled in yet, in form order.
func (d Draft) MissingFields() []string {
	var missing []string
	if d.Category == "" {
		missing = append(missing, "category")
	}

	if d.Subcategory == "" {
		missing = append(missing, "subcategory")
	}

	if d.Goal == "" {
		missing = append(missing, "goal")
	}

	if d.CanJoin == nil {
		missing = append(missing, "can_join")
	}

	return missing
}
