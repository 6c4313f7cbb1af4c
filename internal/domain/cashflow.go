package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the layout used for settlement dates in rule operands and storage.
const DateLayout = "2006-01-02"

type Cashflow struct {
	ID             string    `json:"id"`
	CounterParty   string    `json:"counter_party"`
	Currency       string    `json:"currency"`
	Amount         float64   `json:"amount"`
	SettlementDate time.Time `json:"settlement_date"`
	StpAllowed     bool      `json:"stp_allowed"`
	Note           string    `json:"note,omitempty"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NettingKey identifies the bucket a cashflow can be netted in.
type NettingKey struct {
	CounterParty   string
	Currency       string
	SettlementDate string
}

func (k NettingKey) String() string {
	return k.CounterParty + "-" + k.Currency + "-" + k.SettlementDate
}

func NewCashflow(counterParty, currency string, amount float64, settlementDate time.Time) *Cashflow {
	return &Cashflow{
		ID:             generateCashflowID(),
		CounterParty:   counterParty,
		Currency:       currency,
		Amount:         amount,
		SettlementDate: TruncateDate(settlementDate),
		StpAllowed:     true,
		CreatedAt:      time.Now(),
	}
}

func (cf *Cashflow) WithID(id string) *Cashflow {
	cf.ID = id
	return cf
}

func (cf *Cashflow) WithNote(note string) *Cashflow {
	cf.Note = note
	return cf
}

// SettlementDay returns the settlement date formatted with DateLayout.
func (cf *Cashflow) SettlementDay() string {
	return cf.SettlementDate.Format(DateLayout)
}

func (cf *Cashflow) NettingKey() NettingKey {
	return NettingKey{
		CounterParty:   cf.CounterParty,
		Currency:       cf.Currency,
		SettlementDate: cf.SettlementDay(),
	}
}

// TruncateDate drops the clock part of t and pins it to UTC.
func TruncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func generateCashflowID() string {
	return uuid.Must(uuid.NewV7()).String()
}
