package sqlite

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "stp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stp.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestRuleRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rules := openStore(t).Rules()

	rule := &domain.BusinessRule{Name: "Counterparty STP Rule", Type: domain.RuleTypeNonSTP, Active: true, Priority: 2}
	require.NoError(t, rules.CreateRule(ctx, rule))
	require.NotZero(t, rule.ID)

	attr := &domain.RuleAttribute{AttributeName: domain.AttributeCounterParty, DisplayName: "Counterparty"}
	require.NoError(t, rules.CreateAttribute(ctx, rule, attr))
	assert.Equal(t, rule.ID, attr.RuleID)
	assert.Equal(t, domain.RuleTypeNonSTP, attr.RuleType)

	_, err := rules.CreateValue(ctx, attr, "Lehman Brothers PLC")
	require.NoError(t, err)
	_, err = rules.CreateValue(ctx, attr, "Lehman Brothers PLC")
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	gotAttr, err := rules.FindRuleAttribute(ctx, domain.AttributeCounterParty, domain.RuleTypeNonSTP)
	require.NoError(t, err)
	assert.Equal(t, attr.ID, gotAttr.ID)

	values, err := rules.FindRuleValues(ctx, gotAttr)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "Lehman Brothers PLC", values[0].Operand)

	gotRule, err := rules.FindBusinessRule(ctx, "Counterparty STP Rule", domain.RuleTypeNonSTP)
	require.NoError(t, err)
	assert.Equal(t, *rule, *gotRule)

	byType, err := rules.FindRulesByType(ctx, domain.RuleTypeNonSTP)
	require.NoError(t, err)
	assert.Len(t, byType, 1)
}

func TestRuleRepository_Errors(t *testing.T) {
	ctx := context.Background()
	rules := openStore(t).Rules()

	rule := &domain.BusinessRule{Name: "r", Type: domain.RuleTypeNetting, Active: true}
	require.NoError(t, rules.CreateRule(ctx, rule))

	assert.ErrorIs(t, rules.CreateRule(ctx, &domain.BusinessRule{Name: "r", Type: domain.RuleTypeNetting}), repository.ErrDuplicate)
	assert.ErrorIs(t, rules.CreateAttribute(ctx, &domain.BusinessRule{ID: 999}, &domain.RuleAttribute{AttributeName: "x"}), repository.ErrNotFound)
	assert.ErrorIs(t, rules.SetActive(ctx, 999, true), repository.ErrNotFound)

	_, err := rules.FindRuleAttribute(ctx, "currency", domain.RuleTypeNetting)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = rules.FindBusinessRule(ctx, "missing", domain.RuleTypeNetting)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = rules.CreateValue(ctx, &domain.RuleAttribute{ID: 999}, "USD")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRuleRepository_SetActive(t *testing.T) {
	ctx := context.Background()
	rules := openStore(t).Rules()
	rule := &domain.BusinessRule{Name: "r", Type: domain.RuleTypeNonSTP, Active: true}
	require.NoError(t, rules.CreateRule(ctx, rule))

	require.NoError(t, rules.SetActive(ctx, rule.ID, false))

	active, err := rules.FindActiveRules(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	inactive, err := rules.FindActiveRules(ctx, false)
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.False(t, inactive[0].Active)
}

func TestCashflowRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cashflows := openStore(t).Cashflows()
	settle := time.Date(2026, 10, 27, 0, 0, 0, 0, time.UTC)

	cf := domain.NewCashflow("Lehman Brothers PLC", "USD", 210000, settle)
	require.NoError(t, cashflows.Save(ctx, cf))
	assert.ErrorIs(t, cashflows.Save(ctx, cf), repository.ErrDuplicate)

	got, err := cashflows.GetByID(ctx, cf.ID)
	require.NoError(t, err)
	assert.Equal(t, cf.CounterParty, got.CounterParty)
	assert.Equal(t, cf.Currency, got.Currency)
	assert.Equal(t, cf.Amount, got.Amount)
	assert.True(t, got.SettlementDate.Equal(settle))
	assert.True(t, got.StpAllowed)
	assert.Empty(t, got.Note)
	assert.Equal(t, 0, got.Version)

	_, err = cashflows.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCashflowRepository_Finders(t *testing.T) {
	ctx := context.Background()
	cashflows := openStore(t).Cashflows()
	settle := time.Date(2026, 10, 27, 0, 0, 0, 0, time.UTC)

	for _, cf := range []*domain.Cashflow{
		domain.NewCashflow("Lehman Brothers PLC", "USD", 1, settle),
		domain.NewCashflow("Lehman Brothers PLC", "EUR", 2, settle),
		domain.NewCashflow("Lehman Brothers PLC", "USD", 3, settle.AddDate(0, 0, 1)),
		domain.NewCashflow("Meryl Lynch PLC", "USD", 4, settle),
	} {
		require.NoError(t, cashflows.Save(ctx, cf))
	}

	all, err := cashflows.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	byCpty, err := cashflows.FindByCounterParty(ctx, "Lehman Brothers PLC")
	require.NoError(t, err)
	assert.Len(t, byCpty, 3)

	byDate, err := cashflows.FindByCounterPartyAndSettlementDate(ctx, "Lehman Brothers PLC", settle)
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	byKey, err := cashflows.FindByCounterPartyCurrencyAndSettlementDate(ctx, "Lehman Brothers PLC", "USD", settle)
	require.NoError(t, err)
	require.Len(t, byKey, 1)
	assert.Equal(t, 1.0, byKey[0].Amount)

	require.NoError(t, cashflows.DeleteAll(ctx))
	all, err = cashflows.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCashflowRepository_ApplySTPRule(t *testing.T) {
	ctx := context.Background()
	cashflows := openStore(t).Cashflows()
	cf := domain.NewCashflow("Lehman Brothers PLC", "USD", 210000, time.Now())
	require.NoError(t, cashflows.Save(ctx, cf))

	applied, err := cashflows.ApplySTPRule(ctx, cf, "manual review")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.False(t, cf.StpAllowed)
	assert.Equal(t, 1, cf.Version)

	applied, err = cashflows.ApplySTPRule(ctx, cf, "again")
	require.NoError(t, err)
	assert.False(t, applied)

	stored, err := cashflows.GetByID(ctx, cf.ID)
	require.NoError(t, err)
	assert.False(t, stored.StpAllowed)
	assert.Equal(t, "manual review", stored.Note)
	assert.Equal(t, 1, stored.Version)

	allowed, err := cashflows.FindSTPAllowed(ctx)
	require.NoError(t, err)
	assert.Empty(t, allowed)
}

func TestCashflowRepository_ApplySTPRuleStaleVersion(t *testing.T) {
	ctx := context.Background()
	cashflows := openStore(t).Cashflows()
	cf := domain.NewCashflow("Lehman Brothers PLC", "USD", 210000, time.Now())
	require.NoError(t, cashflows.Save(ctx, cf))

	stale := *cf
	stale.Version = 3

	_, err := cashflows.ApplySTPRule(ctx, &stale, "note")
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	_, err = cashflows.ApplySTPRule(ctx, &domain.Cashflow{ID: "missing"}, "note")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
