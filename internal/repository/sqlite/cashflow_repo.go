package sqlite

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ repository.CashflowRepository = (*CashflowRepository)(nil)

// CashflowRepository returns fresh copies on every read; ApplySTPRule
// writes the new state back into the caller's struct.
type CashflowRepository struct {
	db *sql.DB
}

// fixed width so that timestamps sort as text
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const cashflowColumns = `id, counter_party, currency, amount, settlement_date, stp_allowed, note, version, created_at, updated_at`

func (r *CashflowRepository) Save(ctx context.Context, cf *domain.Cashflow) error {
	now := time.Now().UTC()
	if cf.CreatedAt.IsZero() {
		cf.CreatedAt = now
	}
	cf.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cashflows (`+cashflowColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		cf.ID, cf.CounterParty, cf.Currency, cf.Amount, cf.SettlementDay(),
		boolToInt(cf.StpAllowed), nullString(cf.Note), cf.Version,
		cf.CreatedAt.UTC().Format(timestampLayout), cf.UpdatedAt.Format(timestampLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: cashflow %s", repository.ErrDuplicate, cf.ID)
		}
		return fmt.Errorf("failed to insert cashflow: %w", err)
	}

	return nil
}

func (r *CashflowRepository) GetByID(ctx context.Context, id string) (*domain.Cashflow, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cashflowColumns+` FROM cashflows WHERE id = ?`, id)

	cf, err := scanCashflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: cashflow %s", repository.ErrNotFound, id)
	}
	return cf, err
}

func (r *CashflowRepository) FindAll(ctx context.Context) ([]*domain.Cashflow, error) {
	return r.query(ctx, `1 = 1`)
}

func (r *CashflowRepository) FindSTPAllowed(ctx context.Context) ([]*domain.Cashflow, error) {
	return r.query(ctx, `stp_allowed = 1`)
}

func (r *CashflowRepository) FindByCounterParty(ctx context.Context, counterParty string) ([]*domain.Cashflow, error) {
	return r.query(ctx, `counter_party = ?`, counterParty)
}

func (r *CashflowRepository) FindByCounterPartyAndSettlementDate(ctx context.Context, counterParty string, settlementDate time.Time) ([]*domain.Cashflow, error) {
	return r.query(ctx, `counter_party = ? AND settlement_date = ?`,
		counterParty, settlementDate.Format(domain.DateLayout))
}

func (r *CashflowRepository) FindByCounterPartyCurrencyAndSettlementDate(ctx context.Context, counterParty, currency string, settlementDate time.Time) ([]*domain.Cashflow, error) {
	return r.query(ctx, `counter_party = ? AND currency = ? AND settlement_date = ?`,
		counterParty, currency, settlementDate.Format(domain.DateLayout))
}

func (r *CashflowRepository) ApplySTPRule(ctx context.Context, cf *domain.Cashflow, note string) (bool, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE cashflows SET stp_allowed = 0, note = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND stp_allowed = 1 AND version = ?`,
		note, now.Format(timestampLayout), cf.ID, cf.Version)
	if err != nil {
		return false, fmt.Errorf("failed to apply STP rule: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to apply STP rule: %w", err)
	}
	if n == 1 {
		cf.StpAllowed = false
		cf.Note = note
		cf.Version++
		cf.UpdatedAt = now
		return true, nil
	}

	stored, err := r.GetByID(ctx, cf.ID)
	if err != nil {
		return false, err
	}
	if !stored.StpAllowed {
		*cf = *stored
		return false, nil
	}

	return false, fmt.Errorf("%w: cashflow %s at version %d, caller has %d",
		repository.ErrVersionConflict, cf.ID, stored.Version, cf.Version)
}

func (r *CashflowRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cashflows`); err != nil {
		return fmt.Errorf("failed to delete cashflows: %w", err)
	}
	return nil
}

func (r *CashflowRepository) query(ctx context.Context, where string, args ...any) ([]*domain.Cashflow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+cashflowColumns+` FROM cashflows WHERE `+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query cashflows: %w", err)
	}
	defer rows.Close()

	var result []*domain.Cashflow
	for rows.Next() {
		cf, err := scanCashflow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, cf)
	}

	return result, rows.Err()
}

func scanCashflow(s scanner) (*domain.Cashflow, error) {
	var (
		cf                   domain.Cashflow
		settlement           string
		stpAllowed           int
		note                 sql.NullString
		createdAt, updatedAt string
	)

	err := s.Scan(&cf.ID, &cf.CounterParty, &cf.Currency, &cf.Amount, &settlement,
		&stpAllowed, &note, &cf.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan cashflow: %w", err)
	}

	if cf.SettlementDate, err = time.Parse(domain.DateLayout, settlement); err != nil {
		return nil, fmt.Errorf("invalid settlement date %q: %w", settlement, err)
	}
	if cf.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if cf.UpdatedAt, err = time.Parse(timestampLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	cf.StpAllowed = stpAllowed != 0
	cf.Note = note.String

	return &cf, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
