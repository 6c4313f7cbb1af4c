package validator

import (
	"cashflow_stp/internal/domain"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrInvalidAmount         = errors.New("invalid cashflow amount")
	ErrInvalidCurrency       = errors.New("invalid currency")
	ErrInvalidCounterParty   = errors.New("invalid counterparty")
	ErrInvalidSettlementDate = errors.New("invalid settlement date")
)

type CashflowValidator struct {
	currencyRegex *regexp.Regexp
}

func NewCashflowValidator() *CashflowValidator {
	return &CashflowValidator{
		currencyRegex: regexp.MustCompile(`^[A-Z]{3,4}$`),
	}
}

// ValidateCashflow reports every problem with cf at once. The result
// matches each violated sentinel with errors.Is.
func (v *CashflowValidator) ValidateCashflow(cf *domain.Cashflow) error {
	var errs []error

	if strings.TrimSpace(cf.CounterParty) == "" {
		errs = append(errs, ErrInvalidCounterParty)
	}

	if cf.Amount <= 0 {
		errs = append(errs, fmt.Errorf("%w: %.2f", ErrInvalidAmount, cf.Amount))
	}

	if !v.currencyRegex.MatchString(cf.Currency) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidCurrency, cf.Currency))
	}

	if cf.SettlementDate.IsZero() {
		errs = append(errs, ErrInvalidSettlementDate)
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation errors: %w", errors.Join(errs...))
	}

	return nil
}
