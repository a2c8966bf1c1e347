package repository

import (
	"context"
	_ "embed"
	"errors"
	"github.com/SirNotEthan/NexiusBot-sub000/pkg/repository/model"
	"github.com/jackc/pgx/v5"
)

type PostgresLedgerRepository struct {
	tx pgx.Tx
}

var _ LedgerRepository = (*PostgresLedgerRepository)(nil)

var (
	//go:embed sql/ledger/try_reserve.sql
	queryTryReserve string

	//go:embed sql/ledger/release.sql
	queryRelease string

	//go:embed sql/ledger/get.sql
	queryGetReservation string
)

func newPostgresLedgerRepository(tx pgx.Tx) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{
		tx: tx,
	}
}

func (p *PostgresLedgerRepository) TryReserve(ctx context.Context, key model.ReservationKey, limit int) (bool, int, error) {
	var used int
	err := p.tx.QueryRow(ctx, queryTryReserve, key.RequesterId, key.Category, key.Subcategory, key.Day, limit).Scan(&used)
	if err == nil {
		return true, used, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return false, 0, err
	}

	// The guarded update matched nothing, so the row is already at its limit. The read below only
	// reports the count; the decision was made by the statement above.
	record, ok, err := p.GetReservation(ctx, key)
	if err != nil {
		return false, 0, err
	}

	if !ok {
		return false, 0, nil
	}

	return false, record.Used, nil
}

func (p *PostgresLedgerRepository) Release(ctx context.Context, key model.ReservationKey) (int, error) {
	var used int
	if err := p.tx.QueryRow(ctx, queryRelease, key.RequesterId, key.Category, key.Subcategory, key.Day).Scan(&used); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}

		return 0, err
	}

	return used, nil
}

func (p *PostgresLedgerRepository) GetReservation(ctx context.Context, key model.ReservationKey) (model.ReservationRecord, bool, error) {
	record := model.ReservationRecord{ReservationKey: key}
	if err := p.tx.QueryRow(ctx, queryGetReservation, key.RequesterId, key.Category, key.Subcategory, key.Day).Scan(&record.Used, &record.Limit); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ReservationRecord{}, false, nil
		} else {
			return model.ReservationRecord{}, false, err
		}
	}

	return record, true, nil
}
