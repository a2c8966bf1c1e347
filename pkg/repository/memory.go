package repository

import (
	"context"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps everything in process. Transactions are serialised under a single mutex, which
// gives each Tx the same all-or-nothing visibility the Postgres store gets from its statements.
// Writes made by a failed Tx are not rolled back; every repository method performs at most one
// write, so a Tx that fails does so before writing.
type MemoryStore struct {
	mu       sync.Mutex
	tickets  map[model.TicketRef]model.Ticket
	ledger   map[model.ReservationKey]model.ReservationRecord
	counters map[string]int
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tickets:  make(map[model.TicketRef]model.Ticket),
		ledger:   make(map[model.ReservationKey]model.ReservationRecord),
		counters: make(map[string]int),
	}
}

func (s *MemoryStore) Tx(ctx context.Context, f func(Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return f(memoryRepositories{s})
}

type memoryRepositories struct {
	s *MemoryStore
}

func (r memoryRepositories) Tickets() TicketRepository {
	return memoryTickets{r.s}
}

func (r memoryRepositories) Ledger() LedgerRepository {
	return memoryLedger{r.s}
}

func (r memoryRepositories) Counters() CounterRepository {
	return memoryCounters{r.s}
}

type memoryTickets struct {
	s *MemoryStore
}

func (m memoryTickets) GetTicket(_ context.Context, ref model.TicketRef) (model.Ticket, bool, error) {
	ticket, ok := m.s.tickets[ref]
	return ticket, ok, nil
}

func (m memoryTickets) ListByRequester(_ context.Context, requesterId uint64, status model.Status) ([]model.Ticket, error) {
	tickets := make([]model.Ticket, 0)
	for _, ticket := range m.s.tickets {
		if ticket.RequesterId == requesterId && (status == "" || ticket.Status == status) {
			tickets = append(tickets, ticket)
		}
	}

	sort.Slice(tickets, func(i, j int) bool {
		return tickets[i].CreatedAt.Before(tickets[j].CreatedAt)
	})

	return tickets, nil
}

func (m memoryTickets) CreateTicket(_ context.Context, ticket model.Ticket) error {
	if _, ok := m.s.tickets[ticket.Ref()]; ok {
		return ErrTicketExists
	}

	m.s.tickets[ticket.Ref()] = ticket
	return nil
}

func (m memoryTickets) ClaimTicket(_ context.Context, ref model.TicketRef, claimantId uint64, now time.Time) (model.Ticket, bool, error) {
	ticket, ok := m.s.tickets[ref]
	if !ok || ticket.Status != model.StatusOpen {
		return model.Ticket{}, false, nil
	}

	ticket.Status = model.StatusClaimed
	ticket.ClaimantId = &claimantId
	ticket.UpdatedAt = now
	m.s.tickets[ref] = ticket

	return ticket, true, nil
}

func (m memoryTickets) UnclaimTicket(_ context.Context, ref model.TicketRef, claimantId uint64, now time.Time) (model.Ticket, bool, error) {
	ticket, ok := m.s.tickets[ref]
	if !ok || ticket.Status != model.StatusClaimed || !ticket.IsClaimant(claimantId) {
		return model.Ticket{}, false, nil
	}

	ticket.Status = model.StatusOpen
	ticket.ClaimantId = nil
	ticket.UpdatedAt = now
	m.s.tickets[ref] = ticket

	return ticket, true, nil
}

func (m memoryTickets) CloseTicket(_ context.Context, ref model.TicketRef, closedBy uint64, now time.Time) (model.Ticket, bool, error) {
	ticket, ok := m.s.tickets[ref]
	if !ok || ticket.Status == model.StatusClosed {
		return model.Ticket{}, false, nil
	}

	ticket.Status = model.StatusClosed
	ticket.ClosedAt = &now
	ticket.ClosedBy = &closedBy
	ticket.UpdatedAt = now
	m.s.tickets[ref] = ticket

	return ticket, true, nil
}

type memoryLedger struct {
	s *MemoryStore
}

func (m memoryLedger) TryReserve(_ context.Context, key model.ReservationKey, limit int) (bool, int, error) {
	key.Day = model.Day(key.Day)

	record, ok := m.s.ledger[key]
	if !ok {
		if limit <= 0 {
			return false, 0, nil
		}

		m.s.ledger[key] = model.ReservationRecord{ReservationKey: key, Used: 1, Limit: limit}
		return true, 1, nil
	}

	if record.Used >= limit {
		return false, record.Used, nil
	}

	record.Used++
	record.Limit = limit
	m.s.ledger[key] = record

	return true, record.Used, nil
}

func (m memoryLedger) Release(_ context.Context, key model.ReservationKey) (int, error) {
	key.Day = model.Day(key.Day)

	record, ok := m.s.ledger[key]
	if !ok {
		return 0, nil
	}

	if record.Used > 0 {
		record.Used--
	}

	m.s.ledger[key] = record
	return record.Used, nil
}

func (m memoryLedger) GetReservation(_ context.Context, key model.ReservationKey) (model.ReservationRecord, bool, error) {
	key.Day = model.Day(key.Day)

	record, ok := m.s.ledger[key]
	return record, ok, nil
}

type memoryCounters struct {
	s *MemoryStore
}

func (m memoryCounters) Next(_ context.Context, category string) (int, error) {
	m.s.counters[category]++
	return m.s.counters[category], nil
}
