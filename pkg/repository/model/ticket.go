package model

import (
	"fmt"
	"time"
)

type Ticket struct {
	Category          string     `json:"category"`
	Sequence          int        `json:"sequence"`
	RequesterId       uint64     `json:"requester_id,string"`
	Subcategory       string     `json:"subcategory"`
	Status            Status     `json:"status"`
	ClaimantId        *uint64    `json:"claimant_id,string,omitempty"`
	Goal              string     `json:"goal"`
	CanJoin           bool       `json:"can_join"`
	PreferredHelperId *uint64    `json:"preferred_helper_id,string,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
	ClosedBy          *uint64    `json:"closed_by,string,omitempty"`
}

// TicketRef identifies a committed ticket.
type TicketRef struct {
	Category string `json:"category"`
	Sequence int    `json:"sequence"`
}

func (t Ticket) Ref() TicketRef {
	return TicketRef{
		Category: t.Category,
		Sequence: t.Sequence,
	}
}

func (r TicketRef) String() string {
	return fmt.Sprintf("%s#%d", r.Category, r.Sequence)
}

// IsClaimant reports whether userId currently holds the claim on the ticket.
func (t Ticket) IsClaimant(userId uint64) bool {
	return t.ClaimantId != nil && *t.ClaimantId == userId
}
