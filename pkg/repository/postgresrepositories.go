package repository

import "github.com/jackc/pgx/v5"

type PostgresRepositories struct {
	tx pgx.Tx
}

func newPostgresRepositories(tx pgx.Tx) *PostgresRepositories {
	return &PostgresRepositories{
		tx: tx,
	}
}

var _ Repositories = (*PostgresRepositories)(nil)

func (p *PostgresRepositories) Tickets() TicketRepository {
	return newPostgresTicketRepository(p.tx)
}

func (p *PostgresRepositories) Ledger() LedgerRepository {
	return newPostgresLedgerRepository(p.tx)
}

func (p *PostgresRepositories) Counters() CounterRepository {
	return newPostgresCounterRepository(p.tx)
}
