// Package events publishes ticket lifecycle changes for downstream consumers such as rating,
// leaderboard and transcript services.
package events

import (
	"context"
	"encoding/json"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"time"
)

type Type string

const (
	TypeCreated   Type = "ticket.created"
	TypeClaimed   Type = "ticket.claimed"
	TypeUnclaimed Type = "ticket.unclaimed"
	TypeClosed    Type = "ticket.closed"
)

type Event struct {
	Type        Type         `json:"type"`
	Category    string       `json:"category"`
	Sequence    int          `json:"sequence"`
	RequesterId uint64       `json:"requester_id,string"`
	ActorId     uint64       `json:"actor_id,string"`
	Status      model.Status `json:"status"`
	At          time.Time    `json:"at"`
}

func NewEvent(eventType Type, ticket model.Ticket, actorId uint64, at time.Time) Event {
	return Event{
		Type:        eventType,
		Category:    ticket.Category,
		Sequence:    ticket.Sequence,
		RequesterId: ticket.RequesterId,
		ActorId:     actorId,
		Status:      ticket.Status,
		At:          at,
	}
}

// Key orders events per ticket when partitioned.
func (e Event) Key() []byte {
	return []byte(model.TicketRef{Category: e.Category, Sequence: e.Sequence}.String())
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, []byte, []byte) error {
	return nil
}
