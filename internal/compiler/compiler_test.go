package compiler

import (
	"cashflow_stp/internal/domain"
	"cashflow_stp/internal/repository/memory"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settlement = time.Date(2026, 10, 27, 0, 0, 0, 0, time.UTC)

func seedAttribute(t *testing.T, repo *memory.RuleRepository, ruleName string, ruleType domain.RuleType, attribute string, operands ...string) (*domain.BusinessRule, *domain.RuleAttribute) {
	t.Helper()
	ctx := context.Background()

	rule, err := repo.FindBusinessRule(ctx, ruleName, ruleType)
	if err != nil {
		rule = &domain.BusinessRule{Name: ruleName, Type: ruleType, Active: true}
		require.NoError(t, repo.CreateRule(ctx, rule))
	}
	attr := &domain.RuleAttribute{AttributeName: attribute, DisplayName: attribute}
	require.NoError(t, repo.CreateAttribute(ctx, rule, attr))
	for _, op := range operands {
		_, err := repo.CreateValue(ctx, attr, op)
		require.NoError(t, err)
	}
	return rule, attr
}

func TestCounterPartyCompiler_MatchesIffConfigured(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Counterparty STP Rule", domain.RuleTypeNonSTP, domain.AttributeCounterParty,
		"Lehman Brothers PLC", "Bear Stearns")
	compiler := NewCounterPartyCompiler(NewOperandLoader(repo, nil))

	tests := []struct {
		counterParty string
		want         bool
	}{
		{counterParty: "Lehman Brothers PLC", want: true},
		{counterParty: "Bear Stearns", want: true},
		{counterParty: "Meryl Lynch PLC", want: false},
		{counterParty: "lehman brothers plc", want: false},
		{counterParty: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.counterParty, func(t *testing.T) {
			cf := domain.NewCashflow(tt.counterParty, "USD", 1, settlement)

			cond, err := compiler.Compile(context.Background(), cf, "Counterparty STP Rule", domain.RuleTypeNonSTP)

			require.NoError(t, err)
			assert.Equal(t, tt.want, cond.Evaluate())
		})
	}
}

func TestCompile_ConfigurationNotFound(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Counterparty STP Rule", domain.RuleTypeNonSTP, domain.AttributeCounterParty, "Lehman Brothers PLC")
	loader := NewOperandLoader(repo, nil)
	cf := domain.NewCashflow("Lehman Brothers PLC", "USD", 1, settlement)

	_, err := NewCurrencyCompiler(loader).Compile(context.Background(), cf, "Currency STP Rule", domain.RuleTypeNonSTP)
	assert.ErrorIs(t, err, ErrConfigurationNotFound)

	_, err = NewCounterPartyCompiler(loader).Compile(context.Background(), cf, "Counterparty STP Rule", domain.RuleTypeNetting)
	assert.ErrorIs(t, err, ErrConfigurationNotFound)
}

func TestCompile_RuleNameMustOwnAttribute(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Counterparty STP Rule", domain.RuleTypeNonSTP, domain.AttributeCounterParty, "Lehman Brothers PLC")
	seedAttribute(t, repo, "Currency STP Rule", domain.RuleTypeNonSTP, domain.AttributeCurrency, "YUAN")
	compiler := NewCounterPartyCompiler(NewOperandLoader(repo, nil))
	cf := domain.NewCashflow("Lehman Brothers PLC", "USD", 1, settlement)

	tests := []struct {
		name     string
		ruleName string
	}{
		{name: "misspelled rule", ruleName: "Countreparty STP Rul"},
		{name: "rule owning another attribute", ruleName: "Currency STP Rule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compiler.Compile(context.Background(), cf, tt.ruleName, domain.RuleTypeNonSTP)
			assert.ErrorIs(t, err, ErrConfigurationNotFound)
		})
	}
}

func TestCompile_EmptyOperandSetNeverMatches(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Currency STP Rule", domain.RuleTypeNonSTP, domain.AttributeCurrency)
	cf := domain.NewCashflow("Meryl Lynch PLC", "EUR", 1, settlement)

	cond, err := NewCurrencyCompiler(NewOperandLoader(repo, nil)).Compile(context.Background(), cf, "Currency STP Rule", domain.RuleTypeNonSTP)

	require.NoError(t, err)
	assert.False(t, cond.Evaluate())
}

func TestCompile_InactiveRuleNeverMatches(t *testing.T) {
	repo := memory.NewRuleRepository()
	rule, _ := seedAttribute(t, repo, "Currency STP Rule", domain.RuleTypeNonSTP, domain.AttributeCurrency, "USD")
	require.NoError(t, repo.SetActive(context.Background(), rule.ID, false))
	cf := domain.NewCashflow("Lehman Brothers PLC", "USD", 1, settlement)

	cond, err := NewCurrencyCompiler(NewOperandLoader(repo, nil)).Compile(context.Background(), cf, "Currency STP Rule", domain.RuleTypeNonSTP)

	require.NoError(t, err)
	assert.False(t, cond.Evaluate())
}

func TestSettlementDateCompiler(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Settlement Date STP Rule", domain.RuleTypeNonSTP, domain.AttributeSettlementDate,
		settlement.Format(domain.DateLayout))
	compiler := NewSettlementDateCompiler(NewOperandLoader(repo, nil))

	onDate := domain.NewCashflow("Lehman Brothers PLC", "YUAN", 1, settlement.Add(15*time.Hour))
	nextDay := domain.NewCashflow("Lehman Brothers PLC", "YUAN", 1, settlement.AddDate(0, 0, 1))

	cond, err := compiler.Compile(context.Background(), onDate, "Settlement Date STP Rule", domain.RuleTypeNonSTP)
	require.NoError(t, err)
	assert.True(t, cond.Evaluate())

	cond, err = compiler.Compile(context.Background(), nextDay, "Settlement Date STP Rule", domain.RuleTypeNonSTP)
	require.NoError(t, err)
	assert.False(t, cond.Evaluate())
}

func TestAmountCompiler(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Amount STP Rule", domain.RuleTypeNonSTP, domain.AttributeAmount, "210000.00", " 5e3 ")
	compiler := NewAmountCompiler(NewOperandLoader(repo, nil))

	for amount, want := range map[float64]bool{210000: true, 5000: true, 210000.01: false} {
		cf := domain.NewCashflow("Lehman Brothers PLC", "USD", amount, settlement)
		cond, err := compiler.Compile(context.Background(), cf, "Amount STP Rule", domain.RuleTypeNonSTP)
		require.NoError(t, err)
		assert.Equal(t, want, cond.Evaluate(), "amount %v", amount)
	}
}

func TestCompile_InvalidOperand(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Amount STP Rule", domain.RuleTypeNonSTP, domain.AttributeAmount, "lots")
	seedAttribute(t, repo, "Date STP Rule", domain.RuleTypeNonSTP, domain.AttributeSettlementDate, "tomorrow")
	loader := NewOperandLoader(repo, nil)
	cf := domain.NewCashflow("Lehman Brothers PLC", "USD", 1, settlement)

	_, err := NewAmountCompiler(loader).Compile(context.Background(), cf, "Amount STP Rule", domain.RuleTypeNonSTP)
	assert.ErrorIs(t, err, ErrInvalidOperand)

	_, err = NewSettlementDateCompiler(loader).Compile(context.Background(), cf, "Date STP Rule", domain.RuleTypeNonSTP)
	assert.ErrorIs(t, err, ErrInvalidOperand)
}

func TestOperandLoader_CacheAndInvalidate(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRuleRepository()
	_, attr := seedAttribute(t, repo, "Currency STP Rule", domain.RuleTypeNonSTP, domain.AttributeCurrency, "USD")
	loader := NewOperandLoader(repo, nil)

	set, err := loader.Load(ctx, "Currency STP Rule", domain.AttributeCurrency, domain.RuleTypeNonSTP)
	require.NoError(t, err)
	assert.Equal(t, []string{"USD"}, set.Operands)

	_, err = repo.CreateValue(ctx, attr, "YUAN")
	require.NoError(t, err)

	cached, err := loader.Load(ctx, "Currency STP Rule", domain.AttributeCurrency, domain.RuleTypeNonSTP)
	require.NoError(t, err)
	assert.Same(t, set, cached)

	loader.InvalidateCache()
	fresh, err := loader.Load(ctx, "Currency STP Rule", domain.AttributeCurrency, domain.RuleTypeNonSTP)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"USD", "YUAN"}, fresh.Operands)
	assert.True(t, fresh.Contains("YUAN"))
}

func TestRegistry(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Currency STP Rule", domain.RuleTypeNonSTP, domain.AttributeCurrency, "USD")
	registry := NewRegistry(NewOperandLoader(repo, nil))
	cf := domain.NewCashflow("Lehman Brothers PLC", "USD", 1, settlement)

	assert.Equal(t, []string{"amount", "counterParty", "currency", "settlementDate"}, registry.Attributes())

	cond, err := registry.Compile(context.Background(), cf, domain.AttributeCurrency, "Currency STP Rule", domain.RuleTypeNonSTP)
	require.NoError(t, err)
	assert.True(t, cond.Evaluate())

	_, err = registry.Lookup("notional")
	assert.ErrorIs(t, err, ErrUnknownAttribute)
}

func TestNettingCompiler(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Counterparty Netting Rule", domain.RuleTypeNetting, domain.AttributeCounterParty, "Meryl Lynch PLC")
	seedAttribute(t, repo, "Counterparty Netting Rule", domain.RuleTypeNetting, domain.AttributeCurrency, "USD", "EUR")
	seedAttribute(t, repo, "Counterparty Netting Rule", domain.RuleTypeNetting, domain.AttributeSettlementDate,
		settlement.Format(domain.DateLayout))
	compiler := NewNettingCompiler(NewOperandLoader(repo, nil))

	cf := domain.NewCashflow("Meryl Lynch PLC", "EUR", 1, settlement)
	conditions, err := compiler.Compile(context.Background(), cf, "Counterparty Netting Rule")

	require.NoError(t, err)
	require.Len(t, conditions, 3)
	for _, c := range conditions {
		assert.True(t, c.Evaluate(), c.String())
	}

	other := domain.NewCashflow("Lehman Brothers PLC", "EUR", 1, settlement)
	conditions, err = compiler.Compile(context.Background(), other, "Counterparty Netting Rule")
	require.NoError(t, err)
	assert.False(t, conditions[0].Evaluate())
	assert.True(t, conditions[1].Evaluate())
}

func TestNettingCompiler_MissingDimension(t *testing.T) {
	repo := memory.NewRuleRepository()
	seedAttribute(t, repo, "Counterparty Netting Rule", domain.RuleTypeNetting, domain.AttributeCounterParty, "Meryl Lynch PLC")
	compiler := NewNettingCompiler(NewOperandLoader(repo, nil))

	_, err := compiler.Compile(context.Background(), domain.NewCashflow("Meryl Lynch PLC", "USD", 1, settlement), "Counterparty Netting Rule")

	assert.ErrorIs(t, err, ErrConfigurationNotFound)
}
