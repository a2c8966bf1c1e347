package lifecycle

import (
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"time"
)

type Action string

const (
	ActionClaim   Action = "claim"
	ActionUnclaim Action = "unclaim"
	ActionClose   Action = "close"
)

// Actor is the user behind an interaction, with the guild roles they held when it was sent.
type Actor struct {
	Id       uint64
	RoleIds  []uint64
	JoinedAt time.Time
}

func (a Actor) HasAnyRole(roleIds []uint64) bool {
	for _, held := range a.RoleIds {
		for _, wanted := range roleIds {
			if held == wanted {
				return true
			}
		}
	}

	return false
}

// Policy is the only place that decides who may move a ticket. HelperRoles maps a category to the
// roles allowed to work its tickets.
type Policy struct {
	AdminRoleIds []uint64
	HelperRoles  map[string][]uint64
}

func (p Policy) IsAdmin(actor Actor) bool {
	return actor.HasAnyRole(p.AdminRoleIds)
}

func (p Policy) IsHelper(actor Actor, category string) bool {
	return actor.HasAnyRole(p.HelperRoles[category])
}

func (p Policy) KnownCategory(category string) bool {
	_, ok := p.HelperRoles[category]
	return ok
}

//	claim:   category helper or admin, never the requester themselves
//	unclaim: current claimant or admin
//	close:   requester, current claimant, category helper or admin
func (p Policy) CanPerform(actor Actor, ticket model.Ticket, action Action) bool {
	admin := p.IsAdmin(actor)

	switch action {
	case ActionClaim:
		if actor.Id == ticket.RequesterId {
			return false
		}

		return admin || p.IsHelper(actor, ticket.Category)
	case ActionUnclaim:
		return admin || ticket.IsClaimant(actor.Id)
	case ActionClose:
		return admin ||
			actor.Id == ticket.RequesterId ||
			ticket.IsClaimant(actor.Id) ||
			p.IsHelper(actor, ticket.Category)
	default:
		return false
	}
}
