package draft

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testTTL = 10 * time.Minute

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type storeFixture struct {
	store   Store
	clock   *fakeClock
	evictor func(d time.Duration)
}

func fixtures(t *testing.T) map[string]func(t *testing.T) storeFixture {
	return map[string]func(t *testing.T) storeFixture{
		"memory": func(t *testing.T) storeFixture {
			clock := newFakeClock()
			return storeFixture{
				store:   NewMemoryStore(zaptest.NewLogger(t), testTTL, WithClock(clock.Now)),
				clock:   clock,
				evictor: func(time.Duration) {},
			}
		},
		"redis": func(t *testing.T) storeFixture {
			clock := newFakeClock()
			server := miniredis.RunT(t)
			client := redis.NewClient(&redis.Options{Addr: server.Addr()})
			t.Cleanup(func() { _ = client.Close() })

			return storeFixture{
				store:   NewRedisStore(client, testTTL, WithClock(clock.Now), WithSubmissionTTL(time.Hour)),
				clock:   clock,
				evictor: server.FastForward,
			}
		},
	}
}

func TestPutGetOverwrites(t *testing.T) {
	for name, build := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			f := build(t)
			ctx := context.Background()

			_, err := f.store.Get(ctx, 1)
			assert.ErrorIs(t, err, ErrDraftNotFound)

			d := New(1)
			require.NoError(t, Apply(&d, FieldCategory, "regular"))
			first, err := f.store.Put(ctx, d)
			require.NoError(t, err)
			assert.Equal(t, f.clock.Now().Add(testTTL), first.ExpiresAt)

			f.clock.Advance(time.Minute)
			require.NoError(t, Apply(&first, FieldGoal, "reach level 50"))
			second, err := f.store.Put(ctx, first)
			require.NoError(t, err)
			assert.Equal(t, first.CreatedAt, second.CreatedAt)
			assert.Equal(t, f.clock.Now().Add(testTTL), second.ExpiresAt)

			got, err := f.store.Get(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, "regular", got.Category)
			assert.Equal(t, "reach level 50", got.Goal)
			assert.Equal(t, d.SubmissionKey, got.SubmissionKey)

			require.NoError(t, f.store.Clear(ctx, 1))
			_, err = f.store.Get(ctx, 1)
			assert.ErrorIs(t, err, ErrDraftNotFound)
		})
	}
}

func TestDraftExpiresAfterInactivity(t *testing.T) {
	for name, build := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			f := build(t)
			ctx := context.Background()

			_, err := f.store.Put(ctx, New(7))
			require.NoError(t, err)

			f.clock.Advance(testTTL)
			_, err = f.store.Get(ctx, 7)
			assert.ErrorIs(t, err, ErrDraftExpired)

			f.evictor(testTTL)
			_, err = f.store.Take(ctx, 7)
			assert.ErrorIs(t, err, ErrDraftNotFound)
		})
	}
}

func TestTakeHandsOutDraftOnce(t *testing.T) {
	for name, build := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			f := build(t)
			ctx := context.Background()

			_, err := f.store.Put(ctx, New(9))
			require.NoError(t, err)

			const callers = 10
			var mu sync.Mutex
			taken := 0

			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()

					_, err := f.store.Take(ctx, 9)
					if err == nil {
						mu.Lock()
						taken++
						mu.Unlock()
						return
					}
					assert.ErrorIs(t, err, ErrDraftNotFound)
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, taken)
		})
	}
}

func TestPutIfAbsent(t *testing.T) {
	for name, build := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			f := build(t)
			ctx := context.Background()

			first := New(5)
			first.Goal = "first"
			stored, err := f.store.PutIfAbsent(ctx, first)
			require.NoError(t, err)
			assert.True(t, stored)

			second := New(5)
			second.Goal = "second"
			stored, err = f.store.PutIfAbsent(ctx, second)
			require.NoError(t, err)
			assert.False(t, stored)

			got, err := f.store.Get(ctx, 5)
			require.NoError(t, err)
			assert.Equal(t, "first", got.Goal)
			assert.Equal(t, first.SubmissionKey, got.SubmissionKey)
		})
	}
}

var errDelRefused = errors.New("del refused")

type refuseDelHook struct{}

func (refuseDelHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (refuseDelHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == "del" {
			cmd.SetErr(errDelRefused)
			return errDelRefused
		}

		return next(ctx, cmd)
	}
}

func (refuseDelHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func TestRedisExpiredEvictionFailure(t *testing.T) {
	clock := newFakeClock()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStore(client, testTTL, WithClock(clock.Now))
	ctx := context.Background()

	_, err := store.Put(ctx, New(11))
	require.NoError(t, err)

	client.AddHook(refuseDelHook{})
	clock.Advance(testTTL)

	_, err = store.Get(ctx, 11)
	assert.ErrorIs(t, err, ErrDraftExpired)
	assert.ErrorIs(t, err, errDelRefused)
}

func TestSubmissionReplayRecords(t *testing.T) {
	for name, build := range fixtures(t) {
		t.Run(name, func(t *testing.T) {
			f := build(t)
			ctx := context.Background()
			ref := model.TicketRef{Category: "regular", Sequence: 4}

			_, ok, err := f.store.Submission(ctx, 3, "key-1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, f.store.RememberSubmission(ctx, 3, "key-1", ref))

			got, ok, err := f.store.Submission(ctx, 3, "key-1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, ref, got)

			_, ok, err = f.store.Submission(ctx, 4, "key-1")
			require.NoError(t, err)
			assert.False(t, ok, "submission keys are scoped to the requester")
		})
	}
}

func TestMemorySweep(t *testing.T) {
	clock := newFakeClock()
	store := NewMemoryStore(zaptest.NewLogger(t), testTTL, WithClock(clock.Now), WithSubmissionTTL(time.Minute))
	ctx := context.Background()

	_, err := store.Put(ctx, New(1))
	require.NoError(t, err)
	require.NoError(t, store.RememberSubmission(ctx, 1, "k", model.TicketRef{Category: "regular", Sequence: 1}))

	clock.Advance(5 * time.Minute)
	_, err = store.Put(ctx, New(2))
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	assert.Equal(t, 1, store.Sweep())

	_, err = store.Get(ctx, 1)
	assert.ErrorIs(t, err, ErrDraftNotFound, "swept drafts are gone, not merely expired")

	_, err = store.Get(ctx, 2)
	assert.NoError(t, err)

	_, ok, err := store.Submission(ctx, 1, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApply(t *testing.T) {
	d := New(1)
	assert.NotEmpty(t, d.SubmissionKey)

	require.NoError(t, Apply(&d, FieldCategory, " regular "))
	require.NoError(t, Apply(&d, FieldSubcategory, "raids"))
	require.NoError(t, Apply(&d, FieldCanJoin, "true"))
	require.NoError(t, Apply(&d, FieldPreferredHelper, "123456789012345678"))

	assert.Equal(t, "regular", d.Category)
	require.NotNil(t, d.CanJoin)
	assert.True(t, *d.CanJoin)
	require.NotNil(t, d.PreferredHelperId)
	assert.EqualValues(t, 123456789012345678, *d.PreferredHelperId)

	require.NoError(t, Apply(&d, FieldCategory, "paid"))
	assert.Empty(t, d.Subcategory, "changing category resets the subcategory")

	require.NoError(t, Apply(&d, FieldPreferredHelper, ""))
	assert.Nil(t, d.PreferredHelperId)

	assert.ErrorIs(t, Apply(&d, FieldCanJoin, "maybe"), ErrInvalidValue)
	assert.ErrorIs(t, Apply(&d, FieldPreferredHelper, "@helper"), ErrInvalidValue)
	assert.ErrorIs(t, Apply(&d, "channel_id", "1"), ErrUnknownField)

	// The goal limit counts characters, not bytes.
	require.NoError(t, Apply(&d, FieldGoal, strings.Repeat("é", 1000)))
	assert.ErrorIs(t, Apply(&d, FieldGoal, strings.Repeat("é", 1001)), ErrInvalidValue)
	assert.ErrorIs(t, Apply(&d, FieldGoal, "bad \xff byte"), ErrInvalidValue)
}
