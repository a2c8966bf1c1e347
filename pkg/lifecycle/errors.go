package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrExpiredDraft   = errors.New("draft expired")
	ErrNotAuthorized  = errors.New("not authorized")
	ErrAlreadyClaimed = errors.New("ticket already claimed")
	ErrNotClaimed     = errors.New("ticket is not claimed")
	ErrTicketClosed   = errors.New("ticket is closed")
	ErrAlreadyClosed  = errors.New("ticket already closed")
)

// ValidationError lists the draft fields that stop it from being submitted.
type ValidationError struct {
	Missing []string `json:"missing,omitempty"`
	Invalid []string `json:"invalid,omitempty"`
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}

	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(e.Invalid, ", "))
	}

	return "draft incomplete: " + strings.Join(parts, "; ")
}

type QuotaExceededError struct {
	Category string `json:"category"`
	Limit    int    `json:"limit"`
	Used     int    `json:"used"`
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily quota for %s exhausted (%d/%d used)", e.Category, e.Used, e.Limit)
}

func (e *QuotaExceededError) Remaining() int {
	if e.Used >= e.Limit {
		return 0
	}

	return e.Limit - e.Used
}

// IneligibleError is returned when the requester has not been a member of the community for long
// enough to use the free tier.
type IneligibleError struct {
	Required time.Duration `json:"required"`
	Actual   time.Duration `json:"actual"`
}

func (e *IneligibleError) Error() string {
	return fmt.Sprintf("membership age %s is below the required %s", e.Actual.Round(time.Minute), e.Required)
}
