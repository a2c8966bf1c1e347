package interaction

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SirNotEthan/NexiusBot-sub000/pkg/draft"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/lifecycle"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/quota"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/sequence"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/rxdn/gdl/objects/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const helperRole = "555"

func newDispatcher(t *testing.T) (*Dispatcher, draft.Store) {
	t.Helper()

	logger := zaptest.NewLogger(t)
	store := repository.NewMemoryStore()
	drafts := draft.NewMemoryStore(logger, 10*time.Minute)

	coordinator := lifecycle.New(lifecycle.Options{
		Logger:    logger,
		Store:     store,
		Drafts:    drafts,
		Ledger:    quota.NewLedger(store, map[string]int{"regular": 1}),
		Sequences: sequence.NewService(store),
		Policy: lifecycle.Policy{
			HelperRoles: map[string][]uint64{"regular": {555}},
		},
	})

	return NewDispatcher(logger, drafts, coordinator), drafts
}

func fakeUser() user.User {
	return user.User{
		Id:       gofakeit.Uint64() >> 1,
		Username: gofakeit.Username(),
	}
}

func set(u user.User, field, value string) Event {
	return Event{
		Kind:    KindFieldSet,
		User:    u,
		Payload: Payload{Field: field, Value: value},
	}
}

func TestDraftAssembly(t *testing.T) {
	dispatcher, drafts := newDispatcher(t)
	ctx := context.Background()
	requester := fakeUser()

	outcome, err := dispatcher.Dispatch(ctx, Event{
		Kind:    KindOptionSelect,
		User:    requester,
		Payload: Payload{Field: draft.FieldCategory, Value: "regular"},
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Draft)
	assert.Equal(t, []string{"subcategory", "goal", "can_join"}, outcome.Missing)
	key := outcome.Draft.SubmissionKey
	assert.NotEmpty(t, key)

	_, err = dispatcher.Dispatch(ctx, set(requester, draft.FieldSubcategory, "raids"))
	require.NoError(t, err)

	outcome, err = dispatcher.Dispatch(ctx, Event{
		Kind:    KindFreeTextSubmit,
		User:    requester,
		Payload: Payload{Value: "  clear the last boss  "},
	})
	require.NoError(t, err)
	assert.Equal(t, "clear the last boss", outcome.Draft.Goal)

	outcome, err = dispatcher.Dispatch(ctx, set(requester, draft.FieldCanJoin, "true"))
	require.NoError(t, err)
	assert.Empty(t, outcome.Missing)
	assert.Equal(t, key, outcome.Draft.SubmissionKey)

	stored, err := drafts.Get(ctx, requester.Id)
	require.NoError(t, err)
	assert.Equal(t, "raids", stored.Subcategory)

	outcome, err = dispatcher.Dispatch(ctx, set(requester, draft.FieldCategory, "paid"))
	require.NoError(t, err)
	assert.Empty(t, outcome.Draft.Subcategory)
	assert.Equal(t, []string{"subcategory"}, outcome.Missing)
}

func TestDraftEditErrors(t *testing.T) {
	dispatcher, _ := newDispatcher(t)
	ctx := context.Background()
	requester := fakeUser()

	_, err := dispatcher.Dispatch(ctx, set(requester, "colour", "blue"))
	assert.ErrorIs(t, err, draft.ErrUnknownField)

	_, err = dispatcher.Dispatch(ctx, set(requester, draft.FieldCanJoin, "perhaps"))
	assert.ErrorIs(t, err, draft.ErrInvalidValue)

	_, err = dispatcher.Dispatch(ctx, set(user.User{}, draft.FieldGoal, "x"))
	assert.ErrorIs(t, err, ErrInvalidEvent)

	_, err = dispatcher.Dispatch(ctx, Event{Kind: "reopen", User: requester})
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCancelClearsDraft(t *testing.T) {
	dispatcher, drafts := newDispatcher(t)
	ctx := context.Background()
	requester := fakeUser()

	_, err := dispatcher.Dispatch(ctx, set(requester, draft.FieldGoal, "help"))
	require.NoError(t, err)

	outcome, err := dispatcher.Dispatch(ctx, Event{Kind: KindCancel, User: requester})
	require.NoError(t, err)
	assert.True(t, outcome.Cleared)

	_, err = drafts.Get(ctx, requester.Id)
	assert.ErrorIs(t, err, draft.ErrDraftNotFound)
}

func TestSubmitAndLifecycleEvents(t *testing.T) {
	dispatcher, _ := newDispatcher(t)
	ctx := context.Background()
	requester := fakeUser()
	helper := fakeUser()

	var key string
	for _, edit := range [][2]string{
		{draft.FieldCategory, "regular"},
		{draft.FieldSubcategory, "raids"},
		{draft.FieldGoal, "carry me"},
		{draft.FieldCanJoin, "false"},
	} {
		outcome, err := dispatcher.Dispatch(ctx, set(requester, edit[0], edit[1]))
		require.NoError(t, err)
		key = outcome.Draft.SubmissionKey
	}

	outcome, err := dispatcher.Dispatch(ctx, Event{
		Kind:    KindSubmit,
		User:    requester,
		Payload: Payload{SubmissionKey: key},
	})
	require.NoError(t, err)
	require.NotNil(t, outcome.Ticket)
	assert.Equal(t, model.StatusOpen, outcome.Ticket.Status)
	assert.False(t, outcome.Ticket.CanJoin)

	ref := Payload{Category: outcome.Ticket.Category, Sequence: outcome.Ticket.Sequence}

	_, err = dispatcher.Dispatch(ctx, Event{Kind: KindClaim, User: helper, Payload: ref})
	assert.ErrorIs(t, err, lifecycle.ErrNotAuthorized)

	outcome, err = dispatcher.Dispatch(ctx, Event{Kind: KindClaim, User: helper, RoleIds: []string{helperRole}, Payload: ref})
	require.NoError(t, err)
	assert.Equal(t, model.StatusClaimed, outcome.Ticket.Status)

	outcome, err = dispatcher.Dispatch(ctx, Event{Kind: KindUnclaim, User: helper, Payload: ref})
	require.NoError(t, err)
	assert.Equal(t, model.StatusOpen, outcome.Ticket.Status)

	outcome, err = dispatcher.Dispatch(ctx, Event{Kind: KindClose, User: requester, Payload: ref})
	require.NoError(t, err)
	assert.Equal(t, model.StatusClosed, outcome.Ticket.Status)

	_, err = dispatcher.Dispatch(ctx, Event{Kind: KindClose, User: requester})
	assert.ErrorIs(t, err, ErrInvalidEvent)
}

func TestEventDecoding(t *testing.T) {
	raw := `{
		"kind": "claim",
		"user": {"id": "123456789012345678", "username": "helper"},
		"role_ids": ["555", "777"],
		"joined_at": "2024-01-02T03:04:05Z",
		"payload": {"category": "regular", "sequence": 7}
	}`

	var event Event
	require.NoError(t, json.Unmarshal([]byte(raw), &event))

	actor, err := event.Actor()
	require.NoError(t, err)
	assert.Equal(t, uint64(123456789012345678), actor.Id)
	assert.Equal(t, []uint64{555, 777}, actor.RoleIds)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), actor.JoinedAt)

	ref, err := event.TicketRef()
	require.NoError(t, err)
	assert.Equal(t, model.TicketRef{Category: "regular", Sequence: 7}, ref)

	event.RoleIds = []string{"not-a-role"}
	_, err = event.Actor()
	assert.ErrorIs(t, err, ErrInvalidEvent)
}
