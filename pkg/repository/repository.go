package repository

import (
	"context"
	"errors"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"time"
)

var (
	ErrTicketExists = errors.New("ticket already exists")
)

// Store runs f against a set of repositories bound to a single transaction. Every quota, sequence
// and claim operation is a single statement, so one Tx per operation is enough to make it atomic.
type Store interface {
	Tx(context.Context, func(Repositories) error) error
}

type Repositories interface {
	Tickets() TicketRepository
	Ledger() LedgerRepository
	Counters() CounterRepository
}

// TicketRepository transitions return ok=false when the row did not match the expected state
// (or does not exist); callers re-read the ticket to find out which.
type TicketRepository interface {
	GetTicket(ctx context.Context, ref model.TicketRef) (model.Ticket, bool, error)
	// ListByRequester returns tickets of every status when status is empty.
	ListByRequester(ctx context.Context, requesterId uint64, status model.Status) ([]model.Ticket, error)
	CreateTicket(ctx context.Context, ticket model.Ticket) error
	ClaimTicket(ctx context.Context, ref model.TicketRef, claimantId uint64, now time.Time) (model.Ticket, bool, error)
	UnclaimTicket(ctx context.Context, ref model.TicketRef, claimantId uint64, now time.Time) (model.Ticket, bool, error)
	CloseTicket(ctx context.Context, ref model.TicketRef, closedBy uint64, now time.Time) (model.Ticket, bool, error)
}

type LedgerRepository interface {
	// TryReserve inserts the row at used=1, or increments it only while used < limit. usedAfter is
	// the count after the attempt whether or not it was accepted.
	TryReserve(ctx context.Context, key model.ReservationKey, limit int) (accepted bool, usedAfter int, err error)
	// Release decrements the row, never below zero. Releasing an absent key returns 0.
	Release(ctx context.Context, key model.ReservationKey) (usedAfter int, err error)
	GetReservation(ctx context.Context, key model.ReservationKey) (model.ReservationRecord, bool, error)
}

type CounterRepository interface {
	Next(ctx context.Context, category string) (int, error)
}
