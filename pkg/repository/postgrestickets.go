package repository

import (
	"context"
	_ "embed"
	"errors"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"time"
)

type PostgresTicketRepository struct {
	tx pgx.Tx
}

var _ TicketRepository = (*PostgresTicketRepository)(nil)

var (
	//go:embed sql/tickets/get.sql
	queryGetTicket string

	//go:embed sql/tickets/list_by_requester.sql
	queryListTicketsByRequester string

	//go:embed sql/tickets/create.sql
	queryCreateTicket string

	//go:embed sql/tickets/claim.sql
	queryClaimTicket string

	//go:embed sql/tickets/unclaim.sql
	queryUnclaimTicket string

	//go:embed sql/tickets/close.sql
	queryCloseTicket string
)

const pgUniqueViolation = "23505"

func newPostgresTicketRepository(tx pgx.Tx) *PostgresTicketRepository {
	return &PostgresTicketRepository{
		tx: tx,
	}
}

func (p *PostgresTicketRepository) GetTicket(ctx context.Context, ref model.TicketRef) (model.Ticket, bool, error) {
	return scanTicketRow(p.tx.QueryRow(ctx, queryGetTicket, ref.Category, ref.Sequence))
}

func (p *PostgresTicketRepository) ListByRequester(ctx context.Context, requesterId uint64, status model.Status) ([]model.Ticket, error) {
	rows, err := p.tx.Query(ctx, queryListTicketsByRequester, requesterId, status)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	tickets := make([]model.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

func (p *PostgresTicketRepository) CreateTicket(ctx context.Context, ticket model.Ticket) error {
	if _, err := p.tx.Exec(
		ctx,
		queryCreateTicket,
		ticket.Category,
		ticket.Sequence,
		ticket.RequesterId,
		ticket.Subcategory,
		ticket.Status,
		ticket.ClaimantId,
		ticket.Goal,
		ticket.CanJoin,
		ticket.PreferredHelperId,
		ticket.CreatedAt,
		ticket.UpdatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrTicketExists
		}

		return err
	}

	return nil
}

func (p *PostgresTicketRepository) ClaimTicket(ctx context.Context, ref model.TicketRef, claimantId uint64, now time.Time) (model.Ticket, bool, error) {
	return scanTicketRow(p.tx.QueryRow(ctx, queryClaimTicket, ref.Category, ref.Sequence, claimantId, now))
}

func (p *PostgresTicketRepository) UnclaimTicket(ctx context.Context, ref model.TicketRef, claimantId uint64, now time.Time) (model.Ticket, bool, error) {
	return scanTicketRow(p.tx.QueryRow(ctx, queryUnclaimTicket, ref.Category, ref.Sequence, claimantId, now))
}

func (p *PostgresTicketRepository) CloseTicket(ctx context.Context, ref model.TicketRef, closedBy uint64, now time.Time) (model.Ticket, bool, error) {
	return scanTicketRow(p.tx.QueryRow(ctx, queryCloseTicket, ref.Category, ref.Sequence, closedBy, now))
}

func scanTicketRow(row pgx.Row) (model.Ticket, bool, error) {
	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Ticket{}, false, nil
		} else {
			return model.Ticket{}, false, err
		}
	}

	return ticket, true, nil
}

func scanTicket(row pgx.Row) (model.Ticket, error) {
	var ticket model.Ticket
	err := row.Scan(
		&ticket.Category,
		&ticket.Sequence,
		&ticket.RequesterId,
		&ticket.Subcategory,
		&ticket.Status,
		&ticket.ClaimantId,
		&ticket.Goal,
		&ticket.CanJoin,
		&ticket.PreferredHelperId,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ClosedAt,
		&ticket.ClosedBy,
	)

	return ticket, err
}
