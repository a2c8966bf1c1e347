package quota

import (
	"context"
	"fmt"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"time"
)

// Reservation is the outcome of a TryReserve call. UsedAfter is the ledger count once the attempt
// has been applied, accepted or not.
type Reservation struct {
	Accepted  bool `json:"accepted"`
	UsedAfter int  `json:"used_after"`
	Limit     int  `json:"limit"`
}

func (r Reservation) Remaining() int {
	if r.UsedAfter >= r.Limit {
		return 0
	}

	return r.Limit - r.UsedAfter
}

// Ledger consumes the daily free-tier allowance. Categories without a configured limit are not
// subject to quota at all.
type Ledger struct {
	store  repository.Store
	limits map[string]int
}

func NewLedger(store repository.Store, limits map[string]int) *Ledger {
	copied := make(map[string]int, len(limits))
	for category, limit := range limits {
		copied[category] = limit
	}

	return &Ledger{
		store:  store,
		limits: copied,
	}
}

func (l *Ledger) Limit(category string) (int, bool) {
	limit, ok := l.limits[category]
	return limit, ok
}

func (l *Ledger) KeyFor(requesterId uint64, category, subcategory string, at time.Time) model.ReservationKey {
	return model.ReservationKey{
		RequesterId: requesterId,
		Category:    category,
		Subcategory: subcategory,
		Day:         model.Day(at),
	}
}

// TryReserve is a single conditional increment; there is no read-then-write anywhere on this path.
func (l *Ledger) TryReserve(ctx context.Context, key model.ReservationKey, limit int) (Reservation, error) {
	if limit <= 0 {
		return Reservation{Accepted: false, Limit: limit}, nil
	}

	reservation := Reservation{Limit: limit}
	if err := l.store.Tx(ctx, func(r repository.Repositories) (err error) {
		reservation.Accepted, reservation.UsedAfter, err = r.Ledger().TryReserve(ctx, key, limit)
		return
	}); err != nil {
		return Reservation{}, fmt.Errorf("reserve quota: %w", err)
	}

	return reservation, nil
}

func (l *Ledger) Release(ctx context.Context, key model.ReservationKey) (int, error) {
	var used int
	if err := l.store.Tx(ctx, func(r repository.Repositories) (err error) {
		used, err = r.Ledger().Release(ctx, key)
		return
	}); err != nil {
		return 0, fmt.Errorf("release quota: %w", err)
	}

	return used, nil
}

// Usage reports the ledger row for key; an untouched key reports zero usage against the
// configured limit.
func (l *Ledger) Usage(ctx context.Context, key model.ReservationKey) (model.ReservationRecord, error) {
	var (
		record model.ReservationRecord
		ok     bool
	)

	if err := l.store.Tx(ctx, func(r repository.Repositories) (err error) {
		record, ok, err = r.Ledger().GetReservation(ctx, key)
		return
	}); err != nil {
		return model.ReservationRecord{}, err
	}

	if !ok {
		limit, _ := l.Limit(key.Category)
		return model.ReservationRecord{ReservationKey: key, Limit: limit}, nil
	}

	return record, nil
}
