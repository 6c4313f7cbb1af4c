package validator

import (
	"errors"
	"testing"
	"time"

	"cashflow_stp/internal/domain"
)

var settlement = time.Date(2026, 10, 27, 0, 0, 0, 0, time.UTC)

func TestCashflowValidator_ValidCashflow(t *testing.T) {
	v := NewCashflowValidator()
	cf := domain.NewCashflow("Meryl Lynch PLC", "USD", 100, settlement)

	err := v.ValidateCashflow(cf)

	if err != nil {
		t.Fatalf("expected valid cashflow, got err=%v", err)
	}
}

func TestCashflowValidator_FourLetterCurrency(t *testing.T) {
	v := NewCashflowValidator()
	cf := domain.NewCashflow("Lehman Brothers PLC", "YUAN", 100, settlement)

	if err := v.ValidateCashflow(cf); err != nil {
		t.Fatalf("expected YUAN to be accepted, got err=%v", err)
	}
}

func TestCashflowValidator_InvalidAmount(t *testing.T) {
	v := NewCashflowValidator()
	cf := domain.NewCashflow("Meryl Lynch PLC", "USD", 0, settlement)

	err := v.ValidateCashflow(cf)

	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestCashflowValidator_InvalidCurrencyFormat(t *testing.T) {
	v := NewCashflowValidator()

	for _, currency := range []string{"US", "usd", "EURO1", ""} {
		cf := domain.NewCashflow("Meryl Lynch PLC", currency, 50, settlement)
		if err := v.ValidateCashflow(cf); !errors.Is(err, ErrInvalidCurrency) {
			t.Errorf("currency %q: expected ErrInvalidCurrency, got %v", currency, err)
		}
	}
}

func TestCashflowValidator_ReportsAllViolations(t *testing.T) {
	v := NewCashflowValidator()
	cf := &domain.Cashflow{CounterParty: "  ", Currency: "x", Amount: -5}

	err := v.ValidateCashflow(cf)

	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	for _, want := range []error{ErrInvalidCounterParty, ErrInvalidAmount, ErrInvalidCurrency, ErrInvalidSettlementDate} {
		if !errors.Is(err, want) {
			t.Errorf("expected %v in %v", want, err)
		}
	}
}
