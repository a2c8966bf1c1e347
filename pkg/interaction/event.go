// Package interaction is the boundary with the chat platform adapter. The adapter forwards each
// component or command interaction as an Event; the dispatcher turns it into a draft edit or a
// lifecycle operation and hands back what the adapter needs to render.
package interaction

import (
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/lifecycle"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/rxdn/gdl/objects/user"
	"strconv"
	"time"
)

type Kind string

const (
	KindFieldSet       Kind = "field_set"
	KindOptionSelect   Kind = "option_select"
	KindFreeTextSubmit Kind = "free_text_submit"
	KindSubmit         Kind = "submit"
	KindCancel         Kind = "cancel"
	KindClaim          Kind = "claim"
	KindUnclaim        Kind = "unclaim"
	KindClose          Kind = "close"
)

func (k Kind) EditsDraft() bool {
	return k == KindFieldSet || k == KindOptionSelect || k == KindFreeTextSubmit
}

type Payload struct {
	Field         string `json:"field,omitempty"`
	Value         string `json:"value,omitempty"`
	SubmissionKey string `json:"submission_key,omitempty"`
	Category      string `json:"category,omitempty"`
	Sequence      int    `json:"sequence,omitempty"`
}

type Event struct {
	Kind     Kind       `json:"kind"`
	User     user.User  `json:"user"`
	RoleIds  []string   `json:"role_ids,omitempty"`
	JoinedAt *time.Time `json:"joined_at,omitempty"`
	Payload  Payload    `json:"payload"`
}

func (e Event) Actor() (lifecycle.Actor, error) {
	if e.User.Id == 0 {
		return lifecycle.Actor{}, fmt.Errorf("%w: missing user", ErrInvalidEvent)
	}

	roleIds := make([]uint64, len(e.RoleIds))
	for i, raw := range e.RoleIds {
		roleId, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return lifecycle.Actor{}, fmt.Errorf("%w: role id %q", ErrInvalidEvent, raw)
		}

		roleIds[i] = roleId
	}

	actor := lifecycle.Actor{
		Id:      e.User.Id,
		RoleIds: roleIds,
	}

	if e.JoinedAt != nil {
		actor.JoinedAt = *e.JoinedAt
	}

	return actor, nil
}

func (e Event) TicketRef() (model.TicketRef, error) {
	if e.Payload.Category == "" || e.Payload.Sequence <= 0 {
		return model.TicketRef{}, fmt.Errorf("%w: %s needs a ticket category and sequence", ErrInvalidEvent, e.Kind)
	}

	return model.TicketRef{
		Category: e.Payload.Category,
		Sequence: e.Payload.Sequence,
	}, nil
}

// Outcome is what the adapter renders. Draft edits return the draft along with the mandatory
// fields still missing; lifecycle operations return the ticket in its new state.
type Outcome struct {
	Kind    Kind          `json:"kind"`
	Draft   *model.Draft  `json:"draft,omitempty"`
	Missing []string      `json:"missing,omitempty"`
	Ticket  *model.Ticket `json:"ticket,omitempty"`
	Cleared bool          `json:"cleared,omitempty"`
}
