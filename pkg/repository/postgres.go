package repository

import (
	"context"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresRepository(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		db: db,
	}
}

func ConnectPostgres(ctx context.Context, uri string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, uri)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return NewPostgresRepository(pool), nil
}

func (p *PostgresStore) Tx(ctx context.Context, f func(Repositories) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return err
	}

	defer tx.Rollback(ctx)

	if err := f(newPostgresRepositories(tx)); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (p *PostgresStore) Close() {
	p.db.Close()
}
