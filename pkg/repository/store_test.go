package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeFactory func(t *testing.T) Store

func stores(t *testing.T) map[string]storeFactory {
	t.Helper()

	factories := map[string]storeFactory{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
	}

	if uri := os.Getenv("TEST_DATABASE_URI"); uri != "" {
		factories["postgres"] = func(t *testing.T) Store { return connectTestPostgres(t, uri) }
	}

	return factories
}

func connectTestPostgres(t *testing.T, uri string) Store {
	t.Helper()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/000001_init.up.sql")
	require.NoError(t, err)

	_, err = pool.Exec(ctx, string(schema))
	require.NoError(t, err)

	return NewPostgresRepository(pool)
}

// uniqueCategory keeps runs against a shared database from seeing each other's rows.
func uniqueCategory() string {
	return fmt.Sprintf("cat-%s", gofakeit.LetterN(12))
}

func newTicket(category string, sequence int, requester uint64) model.Ticket {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return model.Ticket{
		Category:    category,
		Sequence:    sequence,
		RequesterId: requester,
		Subcategory: "dungeon",
		Status:      model.StatusOpen,
		Goal:        gofakeit.Sentence(6),
		CanJoin:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestTryReserveNeverExceedsLimit(t *testing.T) {
	for name, factory := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			const limit, attempts = 3, 20
			key := model.ReservationKey{
				RequesterId: gofakeit.Uint64() >> 1,
				Category:    uniqueCategory(),
				Subcategory: "raid",
				Day:         model.Day(time.Now()),
			}

			var accepted atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < attempts; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()

					err := store.Tx(ctx, func(r Repositories) error {
						ok, used, err := r.Ledger().TryReserve(ctx, key, limit)
						if err != nil {
							return err
						}

						assert.LessOrEqual(t, used, limit)
						if ok {
							accepted.Add(1)
						}

						return nil
					})
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			assert.EqualValues(t, limit, accepted.Load())

			var record model.ReservationRecord
			require.NoError(t, store.Tx(ctx, func(r Repositories) (err error) {
				record, _, err = r.Ledger().GetReservation(ctx, key)
				return
			}))
			assert.Equal(t, limit, record.Used)
			assert.Equal(t, limit, record.Limit)
		})
	}
}

func TestReleaseFloorsAtZero(t *testing.T) {
	for name, factory := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()

			key := model.ReservationKey{
				RequesterId: gofakeit.Uint64() >> 1,
				Category:    uniqueCategory(),
				Subcategory: "raid",
				Day:         model.Day(time.Now()),
			}

			require.NoError(t, store.Tx(ctx, func(r Repositories) error {
				used, err := r.Ledger().Release(ctx, key)
				assert.Zero(t, used)
				return err
			}))

			require.NoError(t, store.Tx(ctx, func(r Repositories) error {
				_, _, err := r.Ledger().TryReserve(ctx, key, 2)
				return err
			}))

			for i := 0; i < 3; i++ {
				require.NoError(t, store.Tx(ctx, func(r Repositories) error {
					used, err := r.Ledger().Release(ctx, key)
					assert.Zero(t, used)
					return err
				}))
			}

			require.NoError(t, store.Tx(ctx, func(r Repositories) error {
				ok, used, err := r.Ledger().TryReserve(ctx, key, 2)
				assert.True(t, ok)
				assert.Equal(t, 1, used)
				return err
			}))
		})
	}
}

func TestCounterUniqueUnderConcurrency(t *testing.T) {
	for name, factory := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()
			category := uniqueCategory()

			const callers = 25
			values := make(chan int, callers)

			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()

					assert.NoError(t, store.Tx(ctx, func(r Repositories) error {
						value, err := r.Counters().Next(ctx, category)
						values <- value
						return err
					}))
				}()
			}
			wg.Wait()
			close(values)

			seen := make(map[int]bool)
			for value := range values {
				assert.False(t, seen[value], "duplicate sequence %d", value)
				assert.GreaterOrEqual(t, value, 1)
				seen[value] = true
			}
			assert.Len(t, seen, callers)
		})
	}
}

func TestClaimTicketSingleWinner(t *testing.T) {
	for name, factory := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()
			ticket := newTicket(uniqueCategory(), 7, 1000)

			require.NoError(t, store.Tx(ctx, func(r Repositories) error {
				return r.Tickets().CreateTicket(ctx, ticket)
			}))

			const helpers = 8
			var winners atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < helpers; i++ {
				wg.Add(1)
				go func(helper uint64) {
					defer wg.Done()

					assert.NoError(t, store.Tx(ctx, func(r Repositories) error {
						_, ok, err := r.Tickets().ClaimTicket(ctx, ticket.Ref(), helper, time.Now())
						if ok {
							winners.Add(1)
						}
						return err
					}))
				}(uint64(2000 + i))
			}
			wg.Wait()

			assert.EqualValues(t, 1, winners.Load())

			var stored model.Ticket
			require.NoError(t, store.Tx(ctx, func(r Repositories) (err error) {
				stored, _, err = r.Tickets().GetTicket(ctx, ticket.Ref())
				return
			}))
			assert.Equal(t, model.StatusClaimed, stored.Status)
			require.NotNil(t, stored.ClaimantId)
		})
	}
}

func TestTicketTransitions(t *testing.T) {
	for name, factory := range stores(t) {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			ctx := context.Background()
			ticket := newTicket(uniqueCategory(), 1, 1000)
			ref := ticket.Ref()

			require.NoError(t, store.Tx(ctx, func(r Repositories) error {
				return r.Tickets().CreateTicket(ctx, ticket)
			}))

			err := store.Tx(ctx, func(r Repositories) error {
				return r.Tickets().CreateTicket(ctx, ticket)
			})
			assert.ErrorIs(t, err, ErrTicketExists)

			require.NoError(t, store.Tx(ctx, func(r Repositories) error {
				tickets := r.Tickets()

				_, ok, err := tickets.UnclaimTicket(ctx, ref, 5, time.Now())
				require.NoError(t, err)
				assert.False(t, ok, "unclaim of an open ticket")

				claimed, ok, err := tickets.ClaimTicket(ctx, ref, 5, time.Now())
				require.NoError(t, err)
				require.True(t, ok)
				assert.True(t, claimed.IsClaimant(5))

				_, ok, err = tickets.UnclaimTicket(ctx, ref, 6, time.Now())
				require.NoError(t, err)
				assert.False(t, ok, "unclaim with a stale claimant")

				reopened, ok, err := tickets.UnclaimTicket(ctx, ref, 5, time.Now())
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, model.StatusOpen, reopened.Status)
				assert.Nil(t, reopened.ClaimantId)

				closed, ok, err := tickets.CloseTicket(ctx, ref, 1000, time.Now())
				require.NoError(t, err)
				require.True(t, ok)
				assert.Equal(t, model.StatusClosed, closed.Status)
				require.NotNil(t, closed.ClosedAt)
				require.NotNil(t, closed.ClosedBy)
				assert.EqualValues(t, 1000, *closed.ClosedBy)

				_, ok, err = tickets.CloseTicket(ctx, ref, 1000, time.Now())
				require.NoError(t, err)
				assert.False(t, ok, "close of a closed ticket")

				_, ok, err = tickets.ClaimTicket(ctx, ref, 5, time.Now())
				require.NoError(t, err)
				assert.False(t, ok, "claim of a closed ticket")

				return nil
			}))

			require.NoError(t, store.Tx(ctx, func(r Repositories) error {
				open, err := r.Tickets().ListByRequester(ctx, 1000, model.StatusOpen)
				require.NoError(t, err)
				assert.Empty(t, open)

				closed, err := r.Tickets().ListByRequester(ctx, 1000, model.StatusClosed)
				require.NoError(t, err)
				assert.NotEmpty(t, closed)

				return nil
			}))
		})
	}
}
