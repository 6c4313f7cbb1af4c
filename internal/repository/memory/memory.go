package memory

import (
	"cashflow_stp/internal/repository"
)

var (
	_ repository.CashflowRepository   = (*CashflowRepository)(nil)
	_ repository.RuleConfigRepository = (*RuleRepository)(nil)
)
