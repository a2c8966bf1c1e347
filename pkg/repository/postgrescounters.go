package repository

import (
	"context"
	_ "embed"
	"github.com/jackc/pgx/v5"
)

type PostgresCounterRepository struct {
	tx pgx.Tx
}

var _ CounterRepository = (*PostgresCounterRepository)(nil)

//go:embed sql/counters/next.sql
var queryNextSequence string

func newPostgresCounterRepository(tx pgx.Tx) *PostgresCounterRepository {
	return &PostgresCounterRepository{
		tx: tx,
	}
}

func (p *PostgresCounterRepository) Next(ctx context.Context, category string) (int, error) {
	var value int
	if err := p.tx.QueryRow(ctx, queryNextSequence, category).Scan(&value); err != nil {
		return 0, err
	}

	return value, nil
}
